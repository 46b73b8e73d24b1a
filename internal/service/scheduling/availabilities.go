package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"caretrack/internal/domain"
	"caretrack/internal/store"
)

// AvailabilityService owns the slots a therapist publishes. Writes are
// restricted to the owning therapist; the per-therapist non-overlap
// rule is re-checked inside the store transaction on every mutation.
type AvailabilityService struct {
	repo store.SchedulingRepository
}

func NewAvailabilityService(repo store.SchedulingRepository) *AvailabilityService {
	return &AvailabilityService{repo: repo}
}

// List is polymorphic by caller role: a therapist sees their own slots,
// booked included; everyone else sees the global set of open slots.
func (s *AvailabilityService) List(ctx context.Context, caller domain.Caller) ([]domain.Availability, error) {
	switch caller.Role() {
	case domain.RoleTherapist:
		return s.repo.ListAvailabilitiesByTherapist(ctx, caller.Therapist.UserID)
	default:
		return s.repo.ListUnbookedAvailabilities(ctx)
	}
}

// Get applies the same visibility rule as List: therapists see their
// own slots, everyone else only open ones. Anything outside the
// caller's visible set reads as absent.
func (s *AvailabilityService) Get(ctx context.Context, caller domain.Caller, availabilityID uuid.UUID) (domain.Availability, error) {
	av, err := s.repo.GetAvailability(ctx, availabilityID)
	if err != nil {
		return domain.Availability{}, err
	}
	switch caller.Role() {
	case domain.RoleTherapist:
		if av.TherapistID != caller.Therapist.UserID {
			return domain.Availability{}, store.ErrNotFound
		}
	default:
		if av.IsBooked {
			return domain.Availability{}, store.ErrNotFound
		}
	}
	return av, nil
}

type CreateAvailabilityInput struct {
	StartTime time.Time
	EndTime   time.Time
}

func (s *AvailabilityService) Create(ctx context.Context, caller domain.Caller, in CreateAvailabilityInput) (domain.Availability, error) {
	if caller.Therapist == nil {
		return domain.Availability{}, permissionError("only users with a therapist profile can create availabilities")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return domain.Availability{}, validationError("start_time and end_time are required")
	}

	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	if end.Equal(start) || end.Before(start) {
		return domain.Availability{}, validationError("end_time must be after start_time")
	}

	return s.repo.CreateAvailability(ctx, domain.Availability{
		TherapistID: caller.Therapist.UserID,
		StartTime:   start,
		EndTime:     end,
	})
}

type UpdateAvailabilityInput struct {
	ID        uuid.UUID
	StartTime *time.Time
	EndTime   *time.Time
}

// Update changes a slot's time bounds. Absent bounds keep their current
// value; the merged interval is validated and the overlap check runs
// against every other slot of the same therapist.
func (s *AvailabilityService) Update(ctx context.Context, caller domain.Caller, in UpdateAvailabilityInput) (domain.Availability, error) {
	if caller.Therapist == nil {
		return domain.Availability{}, permissionError("only users with a therapist profile can update availabilities")
	}
	if in.ID == uuid.Nil {
		return domain.Availability{}, validationError("availability id is required")
	}

	existing, err := s.repo.GetAvailability(ctx, in.ID)
	if err != nil {
		return domain.Availability{}, err
	}
	if existing.TherapistID != caller.Therapist.UserID {
		return domain.Availability{}, store.ErrForbidden
	}

	start := existing.StartTime
	end := existing.EndTime
	if in.StartTime != nil {
		start = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		end = in.EndTime.UTC()
	}
	if end.Equal(start) || end.Before(start) {
		return domain.Availability{}, validationError("end_time must be after start_time")
	}

	return s.repo.UpdateAvailability(ctx, domain.Availability{
		ID:          in.ID,
		TherapistID: caller.Therapist.UserID,
		StartTime:   start,
		EndTime:     end,
	})
}

func (s *AvailabilityService) Delete(ctx context.Context, caller domain.Caller, availabilityID uuid.UUID) error {
	if caller.Therapist == nil {
		return permissionError("only users with a therapist profile can delete availabilities")
	}
	if availabilityID == uuid.Nil {
		return validationError("availability id is required")
	}
	return s.repo.DeleteAvailability(ctx, caller.Therapist.UserID, availabilityID)
}
