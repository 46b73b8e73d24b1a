package store

import (
	"context"

	"github.com/google/uuid"

	"caretrack/internal/domain"
)

// SchedulingRepository is the transactional store behind the
// availability and appointment managers. Every method that touches
// both a slot's is_booked flag and an appointment row performs the pair
// of writes inside a single transaction, so the booking invariant can
// not be half-applied.
type SchedulingRepository interface {
	GetAvailability(ctx context.Context, availabilityID uuid.UUID) (domain.Availability, error)
	ListAvailabilitiesByTherapist(ctx context.Context, therapistID uuid.UUID) ([]domain.Availability, error)
	ListUnbookedAvailabilities(ctx context.Context) ([]domain.Availability, error)
	CreateAvailability(ctx context.Context, av domain.Availability) (domain.Availability, error)
	UpdateAvailability(ctx context.Context, av domain.Availability) (domain.Availability, error)
	DeleteAvailability(ctx context.Context, therapistID, availabilityID uuid.UUID) error

	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	ListAppointments(ctx context.Context) ([]domain.Appointment, error)
	ListAppointmentsByParent(ctx context.Context, parentID uuid.UUID) ([]domain.Appointment, error)
	BookAppointment(ctx context.Context, parentID, availabilityID uuid.UUID) (domain.Appointment, error)
	ReassignAppointment(ctx context.Context, parentID, appointmentID, availabilityID uuid.UUID) (domain.Appointment, error)
	CancelAppointment(ctx context.Context, parentID, appointmentID uuid.UUID) error
	ApproveAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	RejectAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
}

// SchedulingTx is the per-transaction surface the repository composes
// its operations from. Implementations run under an advisory lock that
// serializes mutations touching the same slot set.
type SchedulingTx interface {
	GetAvailability(ctx context.Context, availabilityID uuid.UUID) (domain.Availability, error)
	ListOverlappingAvailabilities(ctx context.Context, therapistID uuid.UUID, av domain.Availability) ([]domain.Availability, error)
	InsertAvailability(ctx context.Context, av domain.Availability) (domain.Availability, error)
	UpdateAvailabilityTimes(ctx context.Context, av domain.Availability) (domain.Availability, error)
	SetAvailabilityBooked(ctx context.Context, availabilityID uuid.UUID, booked bool) error
	DeleteAvailability(ctx context.Context, availabilityID uuid.UUID) error

	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error
}
