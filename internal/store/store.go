package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"apptbook/internal/domain"
)

// AppointmentPatch carries the fields of a partial update. Nil fields keep
// the stored value. A nil ParticipantIDs leaves the participant set
// unchanged; an empty non-nil slice clears it.
type AppointmentPatch struct {
	Title          *string
	Description    *string
	SchedulerName  *string
	SchedulerEmail *string
	StartAt        *time.Time
	EndAt          *time.Time
	ParticipantIDs *[]uuid.UUID
}

type AppointmentRepository interface {
	// Create resolves participantIDs, checks every participant's existing
	// bookings for interval overlaps and inserts the appointment with its
	// associations, all as one atomic unit.
	Create(ctx context.Context, appt domain.Appointment, participantIDs []uuid.UUID) (domain.Appointment, error)
	// Update applies the patch over the stored appointment, re-validates the
	// effective interval and re-checks conflicts, atomically.
	Update(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context) ([]domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ParticipantRepository interface {
	Create(ctx context.Context, participant domain.Participant) (domain.Participant, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Participant, error)
	List(ctx context.Context) ([]domain.Participant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BookingTx is the slice of a booking transaction that the conflict scan
// operates on. The postgres repository implements it on an open
// transaction; tests implement it with fakes.
type BookingTx interface {
	GetParticipant(ctx context.Context, id uuid.UUID) (domain.Participant, error)
	ListParticipantAppointments(ctx context.Context, participantID uuid.UUID) ([]domain.Appointment, error)
}
