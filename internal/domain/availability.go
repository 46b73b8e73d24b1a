package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Availability is a bookable time slot published by a therapist. The
// IsBooked flag is owned by the appointment flow and is never written
// directly by clients.
type Availability struct {
	bun.BaseModel `bun:"table:availabilities"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	TherapistID uuid.UUID `bun:"therapist_id,notnull,type:uuid" json:"therapist_id"`
	StartTime   time.Time `bun:"start_time,notnull" json:"start_time"`
	EndTime     time.Time `bun:"end_time,notnull" json:"end_time"`
	IsBooked    bool      `bun:"is_booked,notnull,default:false" json:"is_booked"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (a *Availability) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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

// Overlaps reports whether the slot's interval conflicts with
// [start, end]. Bounds are inclusive on both sides, so back-to-back
// slots sharing an endpoint count as a conflict.
func (a *Availability) Overlaps(start, end time.Time) bool {
	return !a.StartTime.After(end) && !a.EndTime.Before(start)
}
