package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"apptbook/internal/domain"
	"apptbook/internal/store"
)

type AppointmentService struct {
	repo store.AppointmentRepository
}

func NewAppointmentService(repo store.AppointmentRepository) *AppointmentService {
	return &AppointmentService{repo: repo}
}

type CreateInput struct {
	Title          string
	Description    string
	SchedulerName  string
	SchedulerEmail string
	StartAt        time.Time
	EndAt          time.Time
	ParticipantIDs []uuid.UUID
}

type UpdateInput struct {
	Title          *string
	Description    *string
	SchedulerName  *string
	SchedulerEmail *string
	StartAt        *time.Time
	EndAt          *time.Time
	// Nil leaves the participant set unchanged; an empty non-nil slice
	// clears it.
	ParticipantIDs *[]uuid.UUID
}

func (s *AppointmentService) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Appointment{}, validationError("title is required")
	}

	start := in.StartAt.UTC()
	end := in.EndAt.UTC()
	if !start.Before(end) {
		return domain.Appointment{}, validationError("the appointment start time must be before the end time")
	}

	appt := domain.Appointment{
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		SchedulerName:  strings.TrimSpace(in.SchedulerName),
		SchedulerEmail: strings.TrimSpace(in.SchedulerEmail),
		StartAt:        start,
		EndAt:          end,
	}

	created, err := s.repo.Create(ctx, appt, in.ParticipantIDs)
	if err != nil {
		return domain.Appointment{}, translateStoreError(err)
	}
	return created, nil
}

func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if in.StartAt != nil && in.EndAt != nil && !in.StartAt.Before(*in.EndAt) {
		return domain.Appointment{}, validationError("the appointment start time must be before the end time")
	}

	patch := store.AppointmentPatch{
		Title:          trimmed(in.Title),
		Description:    trimmed(in.Description),
		SchedulerName:  trimmed(in.SchedulerName),
		SchedulerEmail: trimmed(in.SchedulerEmail),
		StartAt:        utcTime(in.StartAt),
		EndAt:          utcTime(in.EndAt),
		ParticipantIDs: in.ParticipantIDs,
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, &NotFoundError{Resource: "appointment", ID: id.String()}
		}
		return domain.Appointment{}, translateStoreError(err)
	}
	return updated, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, &NotFoundError{Resource: "appointment", ID: id.String()}
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (s *AppointmentService) List(ctx context.Context) ([]domain.Appointment, error) {
	return s.repo.List(ctx)
}

func (s *AppointmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Resource: "appointment", ID: id.String()}
		}
		return err
	}
	return nil
}

func translateStoreError(err error) error {
	var missing *store.ParticipantMissingError
	var overlap *store.OverlapError
	switch {
	case errors.Is(err, store.ErrInvalidTimeRange):
		return validationError("the appointment start time must be before the end time")
	case errors.As(err, &missing):
		return &NotFoundError{Resource: "participant", ID: missing.ParticipantID.String()}
	case errors.As(err, &overlap):
		return &ConflictError{Detail: formatOverlapDetail(overlap)}
	}
	return err
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
