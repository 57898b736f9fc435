package http

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"apptbook/internal/domain"
)

// Timestamps cross the boundary as a single canonical textual form.
const apiTimeLayout = "2006-01-02 15:04:05"

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type createAppointmentRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	SchedulerName  string   `json:"scheduler_name"`
	SchedulerEmail string   `json:"scheduler_email"`
	StartAt        string   `json:"start_at"`
	EndAt          string   `json:"end_at"`
	Participants   []string `json:"participants"`
}

func (r *createAppointmentRequest) validate() []string {
	var errs []string
	errs = appendLengthError(errs, "title", r.Title, 3)
	errs = appendLengthError(errs, "description", r.Description, 3)
	errs = appendLengthError(errs, "scheduler_name", r.SchedulerName, 3)
	if !emailRx.MatchString(strings.TrimSpace(r.SchedulerEmail)) {
		errs = append(errs, "scheduler_email: must be a valid email address")
	}
	if _, err := parseAPITime(r.StartAt); err != nil {
		errs = append(errs, "start_at: must be a datetime in the form "+apiTimeLayout)
	}
	if _, err := parseAPITime(r.EndAt); err != nil {
		errs = append(errs, "end_at: must be a datetime in the form "+apiTimeLayout)
	}
	if r.Participants == nil {
		errs = append(errs, "participants: is required")
	}
	for _, raw := range r.Participants {
		if _, err := uuid.Parse(raw); err != nil {
			errs = append(errs, fmt.Sprintf("participants: %q is not a valid id", raw))
		}
	}
	return errs
}

type updateAppointmentRequest struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	SchedulerName  *string   `json:"scheduler_name"`
	SchedulerEmail *string   `json:"scheduler_email"`
	StartAt        *string   `json:"start_at"`
	EndAt          *string   `json:"end_at"`
	Participants   *[]string `json:"participants"`
}

func (r *updateAppointmentRequest) validate() []string {
	var errs []string
	if r.Title != nil {
		errs = appendLengthError(errs, "title", *r.Title, 3)
	}
	if r.Description != nil {
		errs = appendLengthError(errs, "description", *r.Description, 3)
	}
	if r.SchedulerName != nil {
		errs = appendLengthError(errs, "scheduler_name", *r.SchedulerName, 3)
	}
	if r.SchedulerEmail != nil && !emailRx.MatchString(strings.TrimSpace(*r.SchedulerEmail)) {
		errs = append(errs, "scheduler_email: must be a valid email address")
	}
	if r.StartAt != nil {
		if _, err := parseAPITime(*r.StartAt); err != nil {
			errs = append(errs, "start_at: must be a datetime in the form "+apiTimeLayout)
		}
	}
	if r.EndAt != nil {
		if _, err := parseAPITime(*r.EndAt); err != nil {
			errs = append(errs, "end_at: must be a datetime in the form "+apiTimeLayout)
		}
	}
	if r.Participants != nil {
		for _, raw := range *r.Participants {
			if _, err := uuid.Parse(raw); err != nil {
				errs = append(errs, fmt.Sprintf("participants: %q is not a valid id", raw))
			}
		}
	}
	return errs
}

type createParticipantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *createParticipantRequest) validate() []string {
	var errs []string
	errs = appendLengthError(errs, "name", r.Name, 3)
	if !emailRx.MatchString(strings.TrimSpace(r.Email)) {
		errs = append(errs, "email: must be a valid email address")
	}
	return errs
}

func appendLengthError(errs []string, field, value string, min int) []string {
	if len(strings.TrimSpace(value)) < min {
		return append(errs, fmt.Sprintf("%s: must be at least %d characters", field, min))
	}
	return errs
}

func parseAPITime(s string) (time.Time, error) {
	return time.ParseInLocation(apiTimeLayout, strings.TrimSpace(s), time.UTC)
}

func parseParticipantIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

type participantResource struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type appointmentResource struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	SchedulerName  string                `json:"scheduler_name"`
	SchedulerEmail string                `json:"scheduler_email"`
	StartAt        string                `json:"start_at"`
	EndAt          string                `json:"end_at"`
	Participants   []participantResource `json:"participants"`
	CreatedAt      string                `json:"created_at"`
	UpdatedAt      string                `json:"updated_at"`
}

func toParticipantResource(p domain.Participant) participantResource {
	return participantResource{
		ID:        p.ID.String(),
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt.UTC().Format(apiTimeLayout),
		UpdatedAt: p.UpdatedAt.UTC().Format(apiTimeLayout),
	}
}

func toAppointmentResource(a domain.Appointment) appointmentResource {
	participants := make([]participantResource, 0, len(a.Participants))
	for _, p := range a.Participants {
		participants = append(participants, toParticipantResource(p))
	}
	return appointmentResource{
		ID:             a.ID.String(),
		Title:          a.Title,
		Description:    a.Description,
		SchedulerName:  a.SchedulerName,
		SchedulerEmail: a.SchedulerEmail,
		StartAt:        a.StartAt.UTC().Format(apiTimeLayout),
		EndAt:          a.EndAt.UTC().Format(apiTimeLayout),
		Participants:   participants,
		CreatedAt:      a.CreatedAt.UTC().Format(apiTimeLayout),
		UpdatedAt:      a.UpdatedAt.UTC().Format(apiTimeLayout),
	}
}
