package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	Title          string    `bun:"title,notnull"`
	Description    string    `bun:"description,notnull"`
	SchedulerName  string    `bun:"scheduler_name,notnull"`
	SchedulerEmail string    `bun:"scheduler_email,notnull"`
	StartAt        time.Time `bun:"start_at,notnull"`
	EndAt          time.Time `bun:"end_at,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`

	Participants []Participant `bun:"m2m:appointment_participants,join:Appointment=Participant"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// AppointmentParticipant is the join row between an appointment and a
// participant. The pair is the primary key, so the same participant cannot
// be attached to one appointment twice.
type AppointmentParticipant struct {
	bun.BaseModel `bun:"table:appointment_participants,alias:ap"`

	AppointmentID uuid.UUID    `bun:"appointment_id,pk,type:uuid"`
	Appointment   *Appointment `bun:"rel:belongs-to,join:appointment_id=id"`
	ParticipantID uuid.UUID    `bun:"participant_id,pk,type:uuid"`
	Participant   *Participant `bun:"rel:belongs-to,join:participant_id=id"`
}
