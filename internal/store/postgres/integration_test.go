package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"apptbook/internal/domain"
	"apptbook/internal/store"
)

// openTestDB connects to the database named by APPTBOOK_TEST_DATABASE_URL
// and applies the schema. Tests that need a live database are skipped when
// the variable is unset so the suite stays runnable offline.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	url := os.Getenv("APPTBOOK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("APPTBOOK_TEST_DATABASE_URL not set")
	}

	db, err := Open(url, PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = db.NewDelete().Model((*domain.AppointmentParticipant)(nil)).Where("TRUE").Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewDelete().Model((*domain.Appointment)(nil)).Where("TRUE").Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewDelete().Model((*domain.Participant)(nil)).Where("TRUE").Exec(ctx)
	require.NoError(t, err)

	return db
}

func mustCreateParticipant(t *testing.T, db *bun.DB, name, email string) domain.Participant {
	t.Helper()
	p, err := NewParticipantRepo(db).Create(context.Background(), domain.Participant{Name: name, Email: email})
	require.NoError(t, err)
	return p
}

func TestAppointmentRepo_Integration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAppointmentRepo(db)

	grace := mustCreateParticipant(t, db, "Grace Hopper", "grace@example.com")
	linus := mustCreateParticipant(t, db, "Linus Torvalds", "linus@example.com")

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	newAppt := func(title string, start, end time.Time) domain.Appointment {
		return domain.Appointment{
			Title:          title,
			Description:    title + " session",
			SchedulerName:  "Ada Lovelace",
			SchedulerEmail: "ada@example.com",
			StartAt:        start,
			EndAt:          end,
		}
	}

	standup, err := repo.Create(ctx, newAppt("standup", base, base.Add(time.Hour)), []uuid.UUID{grace.ID})
	require.NoError(t, err)
	require.Len(t, standup.Participants, 1)

	t.Run("overlap for a booked participant is rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, newAppt("clash", base.Add(30*time.Minute), base.Add(90*time.Minute)), []uuid.UUID{grace.ID})
		var overlapErr *store.OverlapError
		require.ErrorAs(t, err, &overlapErr)
		require.Len(t, overlapErr.Overlaps, 1)
		assert.Equal(t, grace.ID, overlapErr.Overlaps[0].Participant.ID)
		assert.Equal(t, standup.ID, overlapErr.Overlaps[0].Appointments[0].ID)
	})

	t.Run("back to back bookings do not conflict", func(t *testing.T) {
		appt, err := repo.Create(ctx, newAppt("retro", base.Add(time.Hour), base.Add(2*time.Hour)), []uuid.UUID{grace.ID})
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, appt.ID))
	})

	t.Run("same slot is fine for a free participant", func(t *testing.T) {
		appt, err := repo.Create(ctx, newAppt("parallel", base, base.Add(time.Hour)), []uuid.UUID{linus.ID})
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, appt.ID))
	})

	t.Run("unknown participant is reported by id", func(t *testing.T) {
		missing := uuid.New()
		_, err := repo.Create(ctx, newAppt("ghost", base.Add(5*time.Hour), base.Add(6*time.Hour)), []uuid.UUID{missing})
		var pmErr *store.ParticipantMissingError
		require.ErrorAs(t, err, &pmErr)
		assert.Equal(t, missing, pmErr.ParticipantID)
	})

	t.Run("inverted interval is rejected by the schema too", func(t *testing.T) {
		_, err := repo.Create(ctx, newAppt("backwards", base.Add(time.Hour), base), nil)
		require.Error(t, err)
	})

	t.Run("moving an appointment re-checks its own participants but not itself", func(t *testing.T) {
		moved, err := repo.Update(ctx, standup.ID, store.AppointmentPatch{
			StartAt: timePtr(base.Add(15 * time.Minute)),
			EndAt:   timePtr(base.Add(75 * time.Minute)),
		})
		require.NoError(t, err)
		assert.Equal(t, base.Add(15*time.Minute), moved.StartAt.UTC())
	})

	t.Run("adding a busy participant to an overlapping slot conflicts", func(t *testing.T) {
		blocker, err := repo.Create(ctx, newAppt("focus", base, base.Add(2*time.Hour)), []uuid.UUID{linus.ID})
		require.NoError(t, err)

		ids := []uuid.UUID{grace.ID, linus.ID}
		_, err = repo.Update(ctx, standup.ID, store.AppointmentPatch{ParticipantIDs: &ids})
		var overlapErr *store.OverlapError
		require.ErrorAs(t, err, &overlapErr)

		require.NoError(t, repo.Delete(ctx, blocker.ID))
	})

	t.Run("deleting a participant detaches them from appointments", func(t *testing.T) {
		require.NoError(t, NewParticipantRepo(db).Delete(ctx, grace.ID))

		got, err := repo.Get(ctx, standup.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Participants)
	})

	t.Run("deleted appointments stay gone", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, standup.ID))
		_, err := repo.Get(ctx, standup.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, repo.Delete(ctx, standup.ID), store.ErrNotFound)
	})
}

func TestAppointmentRepo_ConcurrentBooking(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAppointmentRepo(db)

	p := mustCreateParticipant(t, db, "Barbara Liskov", "barbara@example.com")
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			_, err := repo.Create(ctx, domain.Appointment{
				Title:          fmt.Sprintf("race-%d", i),
				Description:    "contended slot",
				SchedulerName:  "Ada Lovelace",
				SchedulerEmail: "ada@example.com",
				StartAt:        base,
				EndAt:          base.Add(time.Hour),
			}, []uuid.UUID{p.ID})
			errs <- err
		}(i)
	}

	var created, conflicted int
	for i := 0; i < attempts; i++ {
		err := <-errs
		switch {
		case err == nil:
			created++
		default:
			var overlapErr *store.OverlapError
			require.True(t, errors.As(err, &overlapErr), "unexpected error: %v", err)
			conflicted++
		}
	}

	assert.Equal(t, 1, created, "exactly one of the racing bookings may win")
	assert.Equal(t, attempts-1, conflicted)
}

func timePtr(t time.Time) *time.Time { return &t }
