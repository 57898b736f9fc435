package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"apptbook/internal/domain"
	"apptbook/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment, participantIDs []uuid.UUID) (domain.Appointment, error) {
	if !appt.StartAt.Before(appt.EndAt) {
		return domain.Appointment{}, store.ErrInvalidTimeRange
	}

	ids := normalizeParticipantIDs(participantIDs)

	var out domain.Appointment
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockParticipants(ctx, tx, ids); err != nil {
			return err
		}
		btx := bookingTx{tx: tx}

		participants, err := resolveParticipants(ctx, btx, ids)
		if err != nil {
			return err
		}
		if err := ensureNoOverlaps(ctx, btx, participants, appt.StartAt, appt.EndAt, uuid.Nil); err != nil {
			return err
		}

		created, err := btx.insertAppointment(ctx, appt, ids)
		if err != nil {
			return err
		}
		created.Participants = participants
		out = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, id uuid.UUID, patch store.AppointmentPatch) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		btx := bookingTx{tx: tx}

		// Row-lock the appointment first so concurrent updates of the same
		// appointment serialize before any advisory locks are taken.
		current, err := btx.getAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		currentIDs, err := btx.listParticipantIDs(ctx, id)
		if err != nil {
			return err
		}

		effective := applyPatch(current, patch)
		if !effective.StartAt.Before(effective.EndAt) {
			return store.ErrInvalidTimeRange
		}

		newIDs := currentIDs
		if patch.ParticipantIDs != nil {
			newIDs = normalizeParticipantIDs(*patch.ParticipantIDs)
		}

		if err := lockParticipants(ctx, tx, unionIDs(currentIDs, newIDs)); err != nil {
			return err
		}

		// Removals detach without any conflict check. Additions are always
		// checked; when the interval moved, every retained participant is
		// re-checked against the new interval as well.
		checkIDs := diffIDs(newIDs, currentIDs)
		intervalChanged := !effective.StartAt.Equal(current.StartAt) || !effective.EndAt.Equal(current.EndAt)
		if intervalChanged {
			checkIDs = newIDs
		}

		participants, err := resolveParticipants(ctx, btx, checkIDs)
		if err != nil {
			return err
		}
		if err := ensureNoOverlaps(ctx, btx, participants, effective.StartAt, effective.EndAt, id); err != nil {
			return err
		}

		if err := btx.updateAppointment(ctx, effective); err != nil {
			return err
		}
		if patch.ParticipantIDs != nil {
			if err := btx.replaceParticipants(ctx, id, newIDs); err != nil {
				return err
			}
		}

		updated, err := btx.getAppointment(ctx, id)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.db.NewSelect().
		Model(&m).
		Relation("Participants").
		Where("a.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) List(ctx context.Context) ([]domain.Appointment, error) {
	rows := make([]domain.Appointment, 0)
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Participants").
		OrderExpr("a.start_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*domain.AppointmentParticipant)(nil)).
			Where("appointment_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*domain.Appointment)(nil)).
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

// lockParticipants takes a transaction-scoped advisory lock per participant,
// in sorted id order so concurrent bookings acquire them without deadlock.
// Holding the locks across the resolve-check-write sequence is what prevents
// two simultaneous requests from both passing the conflict check.
func lockParticipants(ctx context.Context, tx bun.Tx, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", id.String()).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func resolveParticipants(ctx context.Context, tx store.BookingTx, ids []uuid.UUID) ([]domain.Participant, error) {
	out := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		p, err := tx.GetParticipant(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &store.ParticipantMissingError{ParticipantID: id}
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ensureNoOverlaps scans each participant's bookings against the candidate
// interval and collects every conflict before failing, so the caller can
// report all of them at once.
func ensureNoOverlaps(ctx context.Context, tx store.BookingTx, participants []domain.Participant, start, end time.Time, excludeID uuid.UUID) error {
	var overlaps []store.Overlap
	for _, p := range participants {
		existing, err := tx.ListParticipantAppointments(ctx, p.ID)
		if err != nil {
			return err
		}
		conflicts := domain.FindOverlaps(existing, start, end, excludeID)
		if len(conflicts) > 0 {
			overlaps = append(overlaps, store.Overlap{Participant: p, Appointments: conflicts})
		}
	}
	if len(overlaps) > 0 {
		return &store.OverlapError{Overlaps: overlaps}
	}
	return nil
}

func applyPatch(current domain.Appointment, patch store.AppointmentPatch) domain.Appointment {
	out := current
	if patch.Title != nil {
		out.Title = *patch.Title
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.SchedulerName != nil {
		out.SchedulerName = *patch.SchedulerName
	}
	if patch.SchedulerEmail != nil {
		out.SchedulerEmail = *patch.SchedulerEmail
	}
	if patch.StartAt != nil {
		out.StartAt = patch.StartAt.UTC()
	}
	if patch.EndAt != nil {
		out.EndAt = patch.EndAt.UTC()
	}
	return out
}

func normalizeParticipantIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func unionIDs(a, b []uuid.UUID) []uuid.UUID {
	return normalizeParticipantIDs(append(append([]uuid.UUID{}, a...), b...))
}

// diffIDs returns the ids in a that are not in b, preserving a's order.
func diffIDs(a, b []uuid.UUID) []uuid.UUID {
	inB := make(map[uuid.UUID]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(a))
	for _, id := range a {
		if _, ok := inB[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

func (r bookingTx) GetParticipant(ctx context.Context, id uuid.UUID) (domain.Participant, error) {
	var m domain.Participant
	err := r.tx.NewSelect().
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

func (r bookingTx) ListParticipantAppointments(ctx context.Context, participantID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Join("JOIN appointment_participants AS ap ON ap.appointment_id = a.id").
		Where("ap.participant_id = ?", participantID).
		OrderExpr("a.start_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r bookingTx) insertAppointment(ctx context.Context, appt domain.Appointment, participantIDs []uuid.UUID) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:             appt.ID,
		Title:          appt.Title,
		Description:    appt.Description,
		SchedulerName:  appt.SchedulerName,
		SchedulerEmail: appt.SchedulerEmail,
		StartAt:        appt.StartAt,
		EndAt:          appt.EndAt,
		CreatedAt:      appt.CreatedAt,
		UpdatedAt:      appt.UpdatedAt,
	}

	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapPgError(err)
	}

	if len(participantIDs) > 0 {
		joins := make([]domain.AppointmentParticipant, 0, len(participantIDs))
		for _, pid := range participantIDs {
			joins = append(joins, domain.AppointmentParticipant{
				AppointmentID: m.ID,
				ParticipantID: pid,
			})
		}
		if _, err := r.tx.NewInsert().Model(&joins).Exec(ctx); err != nil {
			return domain.Appointment{}, mapPgError(err)
		}
	}

	return m, nil
}

func (r bookingTx) getAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.tx.NewSelect().
		Model(&m).
		Where("a.id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r bookingTx) getAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.tx.NewSelect().
		Model(&m).
		Relation("Participants").
		Where("a.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r bookingTx) listParticipantIDs(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	var rows []domain.AppointmentParticipant
	err := r.tx.NewSelect().
		Model(&rows).
		Where("ap.appointment_id = ?", appointmentID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ParticipantID)
	}
	sortIDs(out)
	return out, nil
}

func (r bookingTx) updateAppointment(ctx context.Context, appt domain.Appointment) error {
	_, err := r.tx.NewUpdate().
		Model(&appt).
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r bookingTx) replaceParticipants(ctx context.Context, appointmentID uuid.UUID, participantIDs []uuid.UUID) error {
	if _, err := r.tx.NewDelete().
		Model((*domain.AppointmentParticipant)(nil)).
		Where("appointment_id = ?", appointmentID).
		Exec(ctx); err != nil {
		return err
	}
	if len(participantIDs) == 0 {
		return nil
	}

	joins := make([]domain.AppointmentParticipant, 0, len(participantIDs))
	for _, pid := range participantIDs {
		joins = append(joins, domain.AppointmentParticipant{
			AppointmentID: appointmentID,
			ParticipantID: pid,
		})
	}
	_, err := r.tx.NewInsert().Model(&joins).Exec(ctx)
	return mapPgError(err)
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514":
			// appointments_time_range check
			return store.ErrInvalidTimeRange
		case "23505":
			if pgErr.ConstraintName == "participants_email_key" {
				return store.ErrDuplicateEmail
			}
		}
	}
	return err
}
