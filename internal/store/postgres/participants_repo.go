package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"apptbook/internal/domain"
	"apptbook/internal/store"
)

type ParticipantRepo struct {
	db *bun.DB
}

func NewParticipantRepo(db *bun.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

func (r *ParticipantRepo) Create(ctx context.Context, participant domain.Participant) (domain.Participant, error) {
	m := domain.Participant{
		ID:        participant.ID,
		Name:      participant.Name,
		Email:     participant.Email,
		CreatedAt: participant.CreatedAt,
		UpdatedAt: participant.UpdatedAt,
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*domain.Participant)(nil)).
			Where("email = ?", participant.Email).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return store.ErrDuplicateEmail
		}

		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			// The unique index backstops a race between the exists check
			// and the insert.
			return mapPgError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return m, nil
}

func (r *ParticipantRepo) Get(ctx context.Context, id uuid.UUID) (domain.Participant, error) {
	var m domain.Participant
	err := r.db.NewSelect().
		Model(&m).
		Where("p.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Participant{}, store.ErrNotFound
		}
		return domain.Participant{}, err
	}
	return m, nil
}

func (r *ParticipantRepo) List(ctx context.Context) ([]domain.Participant, error) {
	rows := make([]domain.Participant, 0)
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("p.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the participant and every appointment association it holds.
// The schema-level cascade covers the same rows; deleting them here keeps the
// behavior independent of how the store was provisioned.
func (r *ParticipantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*domain.AppointmentParticipant)(nil)).
			Where("participant_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*domain.Participant)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}
