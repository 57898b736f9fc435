package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"apptbook/internal/domain"
	"apptbook/internal/store"
)

type ParticipantService struct {
	repo store.ParticipantRepository
}

func NewParticipantService(repo store.ParticipantRepository) *ParticipantService {
	return &ParticipantService{repo: repo}
}

func (s *ParticipantService) Create(ctx context.Context, name, email string) (domain.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Participant{}, validationError("name is required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Participant{}, validationError("email is required")
	}

	created, err := s.repo.Create(ctx, domain.Participant{Name: name, Email: email})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return domain.Participant{}, &ConflictError{Detail: "participant already exists"}
		}
		return domain.Participant{}, err
	}
	return created, nil
}

func (s *ParticipantService) Get(ctx context.Context, id uuid.UUID) (domain.Participant, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Participant{}, &NotFoundError{Resource: "participant", ID: id.String()}
		}
		return domain.Participant{}, err
	}
	return p, nil
}

func (s *ParticipantService) List(ctx context.Context) ([]domain.Participant, error) {
	return s.repo.List(ctx)
}

func (s *ParticipantService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Resource: "participant", ID: id.String()}
		}
		return err
	}
	return nil
}
