package scheduling

import (
	"context"

	"github.com/google/uuid"

	"caretrack/internal/domain"
	"caretrack/internal/store"
)

// AppointmentService drives the booking relationship between a parent
// and a slot. The slot's is_booked flag and the appointment row are
// always written together by the store, never separately.
type AppointmentService struct {
	repo     store.SchedulingRepository
	identity store.IdentityRepository
}

func NewAppointmentService(repo store.SchedulingRepository, identity store.IdentityRepository) *AppointmentService {
	return &AppointmentService{repo: repo, identity: identity}
}

// List returns every appointment for a therapist (demand is visible
// across all calendars), the caller's own for a parent, and an empty
// set for a caller with no linked profile.
func (s *AppointmentService) List(ctx context.Context, caller domain.Caller) ([]domain.Appointment, error) {
	switch caller.Role() {
	case domain.RoleTherapist:
		return s.repo.ListAppointments(ctx)
	case domain.RoleParent:
		return s.repo.ListAppointmentsByParent(ctx, caller.Parent.UserID)
	default:
		return []domain.Appointment{}, nil
	}
}

// Get mirrors List visibility: therapists see any appointment, parents
// only their own, unlinked callers none.
func (s *AppointmentService) Get(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) (domain.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	switch caller.Role() {
	case domain.RoleTherapist:
		return appt, nil
	case domain.RoleParent:
		if appt.ParentID != caller.Parent.UserID {
			return domain.Appointment{}, store.ErrNotFound
		}
		return appt, nil
	default:
		return domain.Appointment{}, store.ErrNotFound
	}
}

// Create books the slot for the caller, provisioning a parent profile
// on first use. Booking an occupied slot fails with a conflict.
func (s *AppointmentService) Create(ctx context.Context, caller domain.Caller, availabilityID uuid.UUID) (domain.Appointment, error) {
	if availabilityID == uuid.Nil {
		return domain.Appointment{}, validationError("availability is required")
	}

	parent, err := s.identity.GetOrCreateParent(ctx, caller.UserID)
	if err != nil {
		return domain.Appointment{}, err
	}

	return s.repo.BookAppointment(ctx, parent.UserID, availabilityID)
}

// Update repoints the appointment at a different slot, releasing the
// old one and booking the new one in one unit. A nil availability
// leaves the appointment as it is.
func (s *AppointmentService) Update(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID, availabilityID *uuid.UUID) (domain.Appointment, error) {
	if caller.Parent == nil {
		return domain.Appointment{}, validationError("user must have a parent profile to update an appointment")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment id is required")
	}

	if availabilityID == nil || *availabilityID == uuid.Nil {
		appt, err := s.repo.GetAppointment(ctx, appointmentID)
		if err != nil {
			return domain.Appointment{}, err
		}
		if appt.ParentID != caller.Parent.UserID {
			return domain.Appointment{}, store.ErrNotFound
		}
		return appt, nil
	}

	return s.repo.ReassignAppointment(ctx, caller.Parent.UserID, appointmentID, *availabilityID)
}

func (s *AppointmentService) Delete(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) error {
	if caller.Parent == nil {
		return permissionError("user must have a parent profile to delete an appointment")
	}
	if appointmentID == uuid.Nil {
		return validationError("appointment id is required")
	}
	return s.repo.CancelAppointment(ctx, caller.Parent.UserID, appointmentID)
}

// Approve moves a pending appointment to approved. Any therapist may
// approve any appointment; ownership of the underlying slot is not
// checked.
func (s *AppointmentService) Approve(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) (domain.Appointment, error) {
	if caller.Therapist == nil {
		return domain.Appointment{}, validationError("only users with a therapist profile can approve appointments")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment id is required")
	}
	return s.repo.ApproveAppointment(ctx, appointmentID)
}

// Reject marks the appointment rejected and releases its slot. Safe to
// repeat; the same therapist rule as Approve applies.
func (s *AppointmentService) Reject(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) (domain.Appointment, error) {
	if caller.Therapist == nil {
		return domain.Appointment{}, validationError("only users with a therapist profile can reject appointments")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment id is required")
	}
	return s.repo.RejectAppointment(ctx, appointmentID)
}
