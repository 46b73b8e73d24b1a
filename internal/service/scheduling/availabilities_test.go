package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"caretrack/internal/domain"
	"caretrack/internal/store"
)

type fakeSchedulingRepo struct {
	getAvailabilityFn               func(ctx context.Context, availabilityID uuid.UUID) (domain.Availability, error)
	listAvailabilitiesByTherapistFn func(ctx context.Context, therapistID uuid.UUID) ([]domain.Availability, error)
	listUnbookedAvailabilitiesFn    func(ctx context.Context) ([]domain.Availability, error)
	createAvailabilityFn            func(ctx context.Context, av domain.Availability) (domain.Availability, error)
	updateAvailabilityFn            func(ctx context.Context, av domain.Availability) (domain.Availability, error)
	deleteAvailabilityFn            func(ctx context.Context, therapistID, availabilityID uuid.UUID) error
	getAppointmentFn                func(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	listAppointmentsFn              func(ctx context.Context) ([]domain.Appointment, error)
	listAppointmentsByParentFn      func(ctx context.Context, parentID uuid.UUID) ([]domain.Appointment, error)
	bookAppointmentFn               func(ctx context.Context, parentID, availabilityID uuid.UUID) (domain.Appointment, error)
	reassignAppointmentFn           func(ctx context.Context, parentID, appointmentID, availabilityID uuid.UUID) (domain.Appointment, error)
	cancelAppointmentFn             func(ctx context.Context, parentID, appointmentID uuid.UUID) error
	approveAppointmentFn            func(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	rejectAppointmentFn             func(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
}

func (f *fakeSchedulingRepo) GetAvailability(ctx context.Context, availabilityID uuid.UUID) (domain.Availability, error) {
	if f.getAvailabilityFn == nil {
		panic("GetAvailability not configured")
	}
	return f.getAvailabilityFn(ctx, availabilityID)
}

func (f *fakeSchedulingRepo) ListAvailabilitiesByTherapist(ctx context.Context, therapistID uuid.UUID) ([]domain.Availability, error) {
	if f.listAvailabilitiesByTherapistFn == nil {
		panic("ListAvailabilitiesByTherapist not configured")
	}
	return f.listAvailabilitiesByTherapistFn(ctx, therapistID)
}

func (f *fakeSchedulingRepo) ListUnbookedAvailabilities(ctx context.Context) ([]domain.Availability, error) {
	if f.listUnbookedAvailabilitiesFn == nil {
		panic("ListUnbookedAvailabilities not configured")
	}
	return f.listUnbookedAvailabilitiesFn(ctx)
}

func (f *fakeSchedulingRepo) CreateAvailability(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	if f.createAvailabilityFn == nil {
		panic("CreateAvailability not configured")
	}
	return f.createAvailabilityFn(ctx, av)
}

func (f *fakeSchedulingRepo) UpdateAvailability(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	if f.updateAvailabilityFn == nil {
		panic("UpdateAvailability not configured")
	}
	return f.updateAvailabilityFn(ctx, av)
}

func (f *fakeSchedulingRepo) DeleteAvailability(ctx context.Context, therapistID, availabilityID uuid.UUID) error {
	if f.deleteAvailabilityFn == nil {
		panic("DeleteAvailability not configured")
	}
	return f.deleteAvailabilityFn(ctx, therapistID, availabilityID)
}

func (f *fakeSchedulingRepo) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	if f.getAppointmentFn == nil {
		panic("GetAppointment not configured")
	}
	return f.getAppointmentFn(ctx, appointmentID)
}

func (f *fakeSchedulingRepo) ListAppointments(ctx context.Context) ([]domain.Appointment, error) {
	if f.listAppointmentsFn == nil {
		panic("ListAppointments not configured")
	}
	return f.listAppointmentsFn(ctx)
}

func (f *fakeSchedulingRepo) ListAppointmentsByParent(ctx context.Context, parentID uuid.UUID) ([]domain.Appointment, error) {
	if f.listAppointmentsByParentFn == nil {
		panic("ListAppointmentsByParent not configured")
	}
	return f.listAppointmentsByParentFn(ctx, parentID)
}

func (f *fakeSchedulingRepo) BookAppointment(ctx context.Context, parentID, availabilityID uuid.UUID) (domain.Appointment, error) {
	if f.bookAppointmentFn == nil {
		panic("BookAppointment not configured")
	}
	return f.bookAppointmentFn(ctx, parentID, availabilityID)
}

func (f *fakeSchedulingRepo) ReassignAppointment(ctx context.Context, parentID, appointmentID, availabilityID uuid.UUID) (domain.Appointment, error) {
	if f.reassignAppointmentFn == nil {
		panic("ReassignAppointment not configured")
	}
	return f.reassignAppointmentFn(ctx, parentID, appointmentID, availabilityID)
}

func (f *fakeSchedulingRepo) CancelAppointment(ctx context.Context, parentID, appointmentID uuid.UUID) error {
	if f.cancelAppointmentFn == nil {
		panic("CancelAppointment not configured")
	}
	return f.cancelAppointmentFn(ctx, parentID, appointmentID)
}

func (f *fakeSchedulingRepo) ApproveAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	if f.approveAppointmentFn == nil {
		panic("ApproveAppointment not configured")
	}
	return f.approveAppointmentFn(ctx, appointmentID)
}

func (f *fakeSchedulingRepo) RejectAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	if f.rejectAppointmentFn == nil {
		panic("RejectAppointment not configured")
	}
	return f.rejectAppointmentFn(ctx, appointmentID)
}

func therapistCaller(id uuid.UUID) domain.Caller {
	return domain.Caller{UserID: id, Therapist: &domain.Therapist{UserID: id}}
}

func parentCaller(id uuid.UUID) domain.Caller {
	return domain.Caller{UserID: id, Parent: &domain.Parent{UserID: id}}
}

func unlinkedCaller(id uuid.UUID) domain.Caller {
	return domain.Caller{UserID: id}
}

func TestAvailabilityCreate_RequiresTherapistProfile(t *testing.T) {
	svc := NewAvailabilityService(&fakeSchedulingRepo{})

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), parentCaller(uuid.New()), CreateAvailabilityInput{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	var pErr *PermissionError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PermissionError", err)
	}
}

func TestAvailabilityCreate_RejectsInvertedRange(t *testing.T) {
	svc := NewAvailabilityService(&fakeSchedulingRepo{})

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for _, end := range []time.Time{start, start.Add(-time.Minute)} {
		_, err := svc.Create(context.Background(), therapistCaller(uuid.New()), CreateAvailabilityInput{
			StartTime: start,
			EndTime:   end,
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("end=%v: error type = %T, want *ValidationError", end, err)
		}
	}
}

func TestAvailabilityCreate_NormalizesToUTCAndSetsOwner(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}

	therapistID := uuid.New()
	var got domain.Availability
	svc := NewAvailabilityService(&fakeSchedulingRepo{
		createAvailabilityFn: func(ctx context.Context, av domain.Availability) (domain.Availability, error) {
			got = av
			return av, nil
		},
	})

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	_, err = svc.Create(context.Background(), therapistCaller(therapistID), CreateAvailabilityInput{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.TherapistID != therapistID {
		t.Fatalf("therapist_id = %s, want %s", got.TherapistID, therapistID)
	}
	if got.StartTime.Location() != time.UTC || got.EndTime.Location() != time.UTC {
		t.Fatalf("expected UTC times, got start=%v end=%v", got.StartTime, got.EndTime)
	}
}

func TestAvailabilityCreate_PropagatesOverlapConflict(t *testing.T) {
	svc := NewAvailabilityService(&fakeSchedulingRepo{
		createAvailabilityFn: func(ctx context.Context, av domain.Availability) (domain.Availability, error) {
			return domain.Availability{}, store.ErrConflict
		},
	})

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), therapistCaller(uuid.New()), CreateAvailabilityInput{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want %v", err, store.ErrConflict)
	}
}

func TestAvailabilityList_DispatchesByRole(t *testing.T) {
	therapistID := uuid.New()
	own := []domain.Availability{{ID: uuid.New(), TherapistID: therapistID, IsBooked: true}}
	open := []domain.Availability{{ID: uuid.New()}, {ID: uuid.New()}}

	svc := NewAvailabilityService(&fakeSchedulingRepo{
		listAvailabilitiesByTherapistFn: func(ctx context.Context, id uuid.UUID) ([]domain.Availability, error) {
			if id != therapistID {
				t.Fatalf("therapist id = %s, want %s", id, therapistID)
			}
			return own, nil
		},
		listUnbookedAvailabilitiesFn: func(ctx context.Context) ([]domain.Availability, error) {
			return open, nil
		},
	})

	got, err := svc.List(context.Background(), therapistCaller(therapistID))
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 || got[0].ID != own[0].ID {
		t.Fatalf("therapist list = %+v, want own slots", got)
	}

	got, err = svc.List(context.Background(), parentCaller(uuid.New()))
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parent list len = %d, want 2", len(got))
	}

	got, err = svc.List(context.Background(), unlinkedCaller(uuid.New()))
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unlinked list len = %d, want 2", len(got))
	}
}

func TestAvailabilityUpdate_MergesPartialBounds(t *testing.T) {
	therapistID := uuid.New()
	availabilityID := uuid.New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	var got domain.Availability
	svc := NewAvailabilityService(&fakeSchedulingRepo{
		getAvailabilityFn: func(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
			return domain.Availability{ID: availabilityID, TherapistID: therapistID, StartTime: start, EndTime: end}, nil
		},
		updateAvailabilityFn: func(ctx context.Context, av domain.Availability) (domain.Availability, error) {
			got = av
			return av, nil
		},
	})

	newEnd := end.Add(30 * time.Minute)
	_, err := svc.Update(context.Background(), therapistCaller(therapistID), UpdateAvailabilityInput{
		ID:      availabilityID,
		EndTime: &newEnd,
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !got.StartTime.Equal(start) {
		t.Fatalf("start = %v, want unchanged %v", got.StartTime, start)
	}
	if !got.EndTime.Equal(newEnd) {
		t.Fatalf("end = %v, want %v", got.EndTime, newEnd)
	}
}

func TestAvailabilityUpdate_RejectsInvertedMergedRange(t *testing.T) {
	therapistID := uuid.New()
	availabilityID := uuid.New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	svc := NewAvailabilityService(&fakeSchedulingRepo{
		getAvailabilityFn: func(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
			return domain.Availability{ID: availabilityID, TherapistID: therapistID, StartTime: start, EndTime: start.Add(time.Hour)}, nil
		},
	})

	badEnd := start.Add(-time.Minute)
	_, err := svc.Update(context.Background(), therapistCaller(therapistID), UpdateAvailabilityInput{
		ID:      availabilityID,
		EndTime: &badEnd,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestAvailabilityUpdate_ForbidsNonOwner(t *testing.T) {
	availabilityID := uuid.New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	svc := NewAvailabilityService(&fakeSchedulingRepo{
		getAvailabilityFn: func(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
			return domain.Availability{ID: availabilityID, TherapistID: uuid.New(), StartTime: start, EndTime: start.Add(time.Hour)}, nil
		},
	})

	newStart := start.Add(time.Minute)
	_, err := svc.Update(context.Background(), therapistCaller(uuid.New()), UpdateAvailabilityInput{
		ID:        availabilityID,
		StartTime: &newStart,
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("err = %v, want %v", err, store.ErrForbidden)
	}
}

func TestAvailabilityDelete_RequiresTherapistProfile(t *testing.T) {
	svc := NewAvailabilityService(&fakeSchedulingRepo{})

	err := svc.Delete(context.Background(), parentCaller(uuid.New()), uuid.New())
	var pErr *PermissionError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PermissionError", err)
	}
}

func TestAvailabilityGet_HidesOutsideVisibleSet(t *testing.T) {
	ownerID := uuid.New()
	booked := domain.Availability{ID: uuid.New(), TherapistID: ownerID, IsBooked: true}

	svc := NewAvailabilityService(&fakeSchedulingRepo{
		getAvailabilityFn: func(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
			return booked, nil
		},
	})

	// Another therapist cannot see it.
	_, err := svc.Get(context.Background(), therapistCaller(uuid.New()), booked.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("other therapist err = %v, want %v", err, store.ErrNotFound)
	}

	// A parent cannot see a booked slot.
	_, err = svc.Get(context.Background(), parentCaller(uuid.New()), booked.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("parent err = %v, want %v", err, store.ErrNotFound)
	}

	// The owner sees it regardless of the flag.
	got, err := svc.Get(context.Background(), therapistCaller(ownerID), booked.ID)
	if err != nil {
		t.Fatalf("owner Get error: %v", err)
	}
	if got.ID != booked.ID {
		t.Fatalf("got id = %s, want %s", got.ID, booked.ID)
	}
}
