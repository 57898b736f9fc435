package booking

import (
	"fmt"
	"strings"

	"apptbook/internal/store"
)

// The transport layer maps these error kinds to response statuses. Anything
// else that escapes a service is an internal failure and must not be shown
// to callers verbatim.

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return e.Detail
}

const conflictTimeLayout = "2006-01-02 15:04"

func formatOverlapDetail(err *store.OverlapError) string {
	var b strings.Builder
	for i, ov := range err.Overlaps {
		if i > 0 {
			b.WriteString("; ")
		}
		details := make([]string, 0, len(ov.Appointments))
		for _, a := range ov.Appointments {
			details = append(details, fmt.Sprintf(
				"appointment %q (ID: %s) from %s to %s",
				a.Title, a.ID,
				a.StartAt.UTC().Format(conflictTimeLayout),
				a.EndAt.UTC().Format(conflictTimeLayout),
			))
		}
		fmt.Fprintf(&b, "participant %q (ID: %s) has a conflict with: %s",
			ov.Participant.Name, ov.Participant.ID, strings.Join(details, "; "))
	}
	b.WriteString(". Please choose a different time slot.")
	return b.String()
}
