package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"apptbook/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateEmail   = errors.New("duplicate email")
	ErrInvalidTimeRange = errors.New("start must be before end")
)

// ParticipantMissingError reports a referenced participant id that does not
// exist in the registry.
type ParticipantMissingError struct {
	ParticipantID uuid.UUID
}

func (e *ParticipantMissingError) Error() string {
	return fmt.Sprintf("participant %s not found", e.ParticipantID)
}

// Overlap is one participant's set of bookings that intersect a candidate
// interval.
type Overlap struct {
	Participant  domain.Participant
	Appointments []domain.Appointment
}

// OverlapError carries every conflict found for a candidate interval, one
// entry per participant that has at least one intersecting booking.
type OverlapError struct {
	Overlaps []Overlap
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("interval overlaps existing bookings for %d participant(s)", len(e.Overlaps))
}
