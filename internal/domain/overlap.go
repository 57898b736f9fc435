package domain

import (
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Intervals that only touch at a boundary do not overlap, so
// back-to-back appointments are allowed.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// FindOverlaps returns every appointment in existing whose interval
// intersects [start,end). excludeID, when not uuid.Nil, removes that
// appointment from consideration so an appointment being rescheduled does
// not conflict with its own prior interval.
func FindOverlaps(existing []Appointment, start, end time.Time, excludeID uuid.UUID) []Appointment {
	var out []Appointment
	for _, a := range existing {
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		if Overlaps(a.StartAt, a.EndAt, start, end) {
			out = append(out, a)
		}
	}
	return out
}
