package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentPending  AppointmentStatus = "pending"
	AppointmentApproved AppointmentStatus = "approved"
	AppointmentRejected AppointmentStatus = "rejected"
)

// Appointment is a parent's claim on a single availability slot. A
// non-rejected appointment always has its slot marked booked; both
// fields are flipped together inside one store transaction.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID             uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	ParentID       uuid.UUID         `bun:"parent_id,notnull,type:uuid" json:"parent_id"`
	AvailabilityID uuid.UUID         `bun:"availability_id,notnull,type:uuid" json:"availability_id"`
	Status         AppointmentStatus `bun:"status,notnull,default:'pending'" json:"status"`
	RequestedAt    time.Time         `bun:"requested_at,notnull" json:"requested_at"`
	UpdatedAt      time.Time         `bun:"updated_at,notnull" json:"updated_at"`
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
		if a.Status == "" {
			a.Status = AppointmentPending
		}
		if a.RequestedAt.IsZero() {
			a.RequestedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
