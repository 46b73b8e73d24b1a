package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"caretrack/internal/domain"
	"caretrack/internal/store"
)

type SchedulingRepo struct {
	db *bun.DB
}

func NewSchedulingRepo(db *bun.DB) *SchedulingRepo {
	return &SchedulingRepo{db: db}
}

type schedulingTx struct {
	tx bun.Tx
}

func (r *SchedulingRepo) inTx(ctx context.Context, fn func(ctx context.Context, tx schedulingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, schedulingTx{tx: tx})
	})
}

// lock serializes transactions contending for the same therapist
// calendar or slot. Keys are taken in sorted order so two transactions
// locking the same pair cannot deadlock.
func (r schedulingTx) lock(ctx context.Context, keys ...uuid.UUID) error {
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.String())
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := r.tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", id).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *SchedulingRepo) GetAvailability(ctx context.Context, availabilityID uuid.UUID) (domain.Availability, error) {
	var av domain.Availability
	err := r.db.NewSelect().
		Model(&av).
		Where("id = ?", availabilityID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Availability{}, store.ErrNotFound
		}
		return domain.Availability{}, err
	}
	return av, nil
}

func (r *SchedulingRepo) ListAvailabilitiesByTherapist(ctx context.Context, therapistID uuid.UUID) ([]domain.Availability, error) {
	var rows []domain.Availability
	err := r.db.NewSelect().
		Model(&rows).
		Where("therapist_id = ?", therapistID).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) ListUnbookedAvailabilities(ctx context.Context) ([]domain.Availability, error) {
	var rows []domain.Availability
	err := r.db.NewSelect().
		Model(&rows).
		Where("is_booked = FALSE").
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) CreateAvailability(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	var out domain.Availability
	err := r.inTx(ctx, func(ctx context.Context, tx schedulingTx) error {
		if err := tx.lock(ctx, av.TherapistID); err != nil {
			return err
		}
		if err := ensureNoAvailabilityOverlap(ctx, tx, av); err != nil {
			return err
		}
		created, err := tx.InsertAvailability(ctx, av)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Availability{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) UpdateAvailability(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	var out domain.Availability
	err := r.inTx(ctx, func(ctx context.Context, tx schedulingTx) error {
		if err := tx.lock(ctx, av.TherapistID); err != nil {
			return err
		}
		existing, err := tx.GetAvailability(ctx, av.ID)
		if err != nil {
			return err
		}
		if existing.TherapistID != av.TherapistID {
			return store.ErrForbidden
		}
		if err := ensureNoAvailabilityOverlap(ctx, tx, av); err != nil {
			return err
		}
		existing.StartTime = av.StartTime
		existing.EndTime = av.EndTime
		updated, err := tx.UpdateAvailabilityTimes(ctx, existing)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Availability{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) DeleteAvailability(ctx context.Context, therapistID, availabilityID uuid.UUID) error {
	return r.inTx(ctx, func(ctx context.Context, tx schedulingTx) error {
		if err := tx.lock(ctx, therapistID); err != nil {
			return err
		}
		existing, err := tx.GetAvailability(ctx, availabilityID)
		if err != nil {
			return err
		}
		if existing.TherapistID != therapistID {
			return store.ErrForbidden
		}
		// Dependent appointments go with the slot via ON DELETE CASCADE.
		return tx.DeleteAvailability(ctx, availabilityID)
	})
}

func (r *SchedulingRepo) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *SchedulingRepo) ListAppointments(ctx context.Context) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("requested_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) ListAppointmentsByParent(ctx context.Context, parentID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("parent_id = ?", parentID).
		OrderExpr("requested_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) BookAppointment(ctx context.Context, parentID, availabilityID uuid.UUID) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inTx(ctx, func(ctx context.Context, tx schedulingTx) error {
		if err := tx.lock(ctx, availabilityID); err != nil {
			return err
		}
		appt, err := bookSlot(ctx, tx, parentID, availabilityID)
		if err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) ReassignAppointment(ctx context.Context, parentID, appointmentID, availabilityID uuid.UUID) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inTx(ctx, func(ctx context.Context, tx schedulingTx) error {
		appt, err := reassignAppointmentLocked(ctx, tx, parentID, appointmentID, availabilityID)
		if err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) CancelAppointment(ctx context.Context, parentID, appointmentID uuid.UUID) error {
	return r.inTx(ctx, func(ctx context.Context, tx schedulingTx) error {
		return cancelAppointmentLocked(ctx, tx, parentID, appointmentID)
	})
}

func (r *SchedulingRepo) ApproveAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inTx(ctx, func(ctx context.Context, tx schedulingTx) error {
		appt, err := approveAppointmentLocked(ctx, tx, appointmentID)
		if err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) RejectAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inTx(ctx, func(ctx context.Context, tx schedulingTx) error {
		appt, err := rejectAppointmentLocked(ctx, tx, appointmentID)
		if err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// lockingTx is a SchedulingTx that can take advisory locks. Operations
// on an existing appointment lock the appointment id before reading the
// row, so the row cannot be repointed by a concurrent reassignment
// between the read and the slot writes. Appointment locks always come
// before slot locks; one fixed order, no cycles.
type lockingTx interface {
	store.SchedulingTx
	lock(ctx context.Context, keys ...uuid.UUID) error
}

func reassignAppointmentLocked(ctx context.Context, tx lockingTx, parentID, appointmentID, availabilityID uuid.UUID) (domain.Appointment, error) {
	if err := tx.lock(ctx, appointmentID); err != nil {
		return domain.Appointment{}, err
	}
	appt, err := tx.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	// A parent cannot see, and therefore cannot distinguish,
	// appointments that are not theirs.
	if appt.ParentID != parentID {
		return domain.Appointment{}, store.ErrNotFound
	}
	if appt.AvailabilityID == availabilityID {
		return appt, nil
	}
	if err := tx.lock(ctx, appt.AvailabilityID, availabilityID); err != nil {
		return domain.Appointment{}, err
	}
	return reassignSlot(ctx, tx, appt, availabilityID)
}

func cancelAppointmentLocked(ctx context.Context, tx lockingTx, parentID, appointmentID uuid.UUID) error {
	if err := tx.lock(ctx, appointmentID); err != nil {
		return err
	}
	appt, err := tx.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.ParentID != parentID {
		return store.ErrNotFound
	}
	if err := tx.lock(ctx, appt.AvailabilityID); err != nil {
		return err
	}
	if err := tx.SetAvailabilityBooked(ctx, appt.AvailabilityID, false); err != nil {
		return err
	}
	return tx.DeleteAppointment(ctx, appointmentID)
}

func approveAppointmentLocked(ctx context.Context, tx lockingTx, appointmentID uuid.UUID) (domain.Appointment, error) {
	if err := tx.lock(ctx, appointmentID); err != nil {
		return domain.Appointment{}, err
	}
	return approveAppointment(ctx, tx, appointmentID)
}

func rejectAppointmentLocked(ctx context.Context, tx lockingTx, appointmentID uuid.UUID) (domain.Appointment, error) {
	if err := tx.lock(ctx, appointmentID); err != nil {
		return domain.Appointment{}, err
	}
	appt, err := tx.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := tx.lock(ctx, appt.AvailabilityID); err != nil {
		return domain.Appointment{}, err
	}
	return rejectAppointment(ctx, tx, appt)
}

// ensureNoAvailabilityOverlap enforces the per-therapist non-overlap
// rule. Bounds are inclusive on both sides; the slot being updated is
// excluded from the comparison by id.
func ensureNoAvailabilityOverlap(ctx context.Context, tx store.SchedulingTx, av domain.Availability) error {
	overlapping, err := tx.ListOverlappingAvailabilities(ctx, av.TherapistID, av)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return store.ErrConflict
	}
	return nil
}

// bookSlot flips the slot to booked and inserts the pending
// appointment as one unit. Callers must already hold the slot lock.
func bookSlot(ctx context.Context, tx store.SchedulingTx, parentID, availabilityID uuid.UUID) (domain.Appointment, error) {
	slot, err := tx.GetAvailability(ctx, availabilityID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if slot.IsBooked {
		return domain.Appointment{}, store.ErrConflict
	}
	if err := tx.SetAvailabilityBooked(ctx, availabilityID, true); err != nil {
		return domain.Appointment{}, err
	}
	return tx.InsertAppointment(ctx, domain.Appointment{
		ParentID:       parentID,
		AvailabilityID: availabilityID,
		Status:         domain.AppointmentPending,
	})
}

// reassignSlot releases the appointment's current slot, books the new
// one and repoints the appointment, all in the caller's transaction.
func reassignSlot(ctx context.Context, tx store.SchedulingTx, appt domain.Appointment, availabilityID uuid.UUID) (domain.Appointment, error) {
	next, err := tx.GetAvailability(ctx, availabilityID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if next.IsBooked {
		return domain.Appointment{}, store.ErrConflict
	}
	if err := tx.SetAvailabilityBooked(ctx, appt.AvailabilityID, false); err != nil {
		return domain.Appointment{}, err
	}
	if err := tx.SetAvailabilityBooked(ctx, availabilityID, true); err != nil {
		return domain.Appointment{}, err
	}
	appt.AvailabilityID = availabilityID
	return tx.UpdateAppointment(ctx, appt)
}

// approveAppointment moves pending to approved. Approving an approved
// appointment is a no-op; a rejected one cannot come back.
func approveAppointment(ctx context.Context, tx store.SchedulingTx, appointmentID uuid.UUID) (domain.Appointment, error) {
	appt, err := tx.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	switch appt.Status {
	case domain.AppointmentRejected:
		return domain.Appointment{}, store.ErrConflict
	case domain.AppointmentApproved:
		return appt, nil
	}
	appt.Status = domain.AppointmentApproved
	return tx.UpdateAppointment(ctx, appt)
}

// rejectAppointment sets the terminal rejected status and releases the
// slot in the same unit. Re-rejecting only re-confirms the released
// flag.
func rejectAppointment(ctx context.Context, tx store.SchedulingTx, appt domain.Appointment) (domain.Appointment, error) {
	appt.Status = domain.AppointmentRejected
	updated, err := tx.UpdateAppointment(ctx, appt)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := tx.SetAvailabilityBooked(ctx, appt.AvailabilityID, false); err != nil {
		return domain.Appointment{}, err
	}
	return updated, nil
}

func (r schedulingTx) GetAvailability(ctx context.Context, availabilityID uuid.UUID) (domain.Availability, error) {
	var av domain.Availability
	err := r.tx.NewSelect().
		Model(&av).
		Where("id = ?", availabilityID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Availability{}, store.ErrNotFound
		}
		return domain.Availability{}, err
	}
	return av, nil
}

func (r schedulingTx) ListOverlappingAvailabilities(ctx context.Context, therapistID uuid.UUID, av domain.Availability) ([]domain.Availability, error) {
	var rows []domain.Availability
	q := r.tx.NewSelect().
		Model(&rows).
		Where("therapist_id = ?", therapistID).
		Where("start_time <= ?", av.EndTime).
		Where("end_time >= ?", av.StartTime)
	if av.ID != uuid.Nil {
		q = q.Where("id != ?", av.ID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r schedulingTx) InsertAvailability(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	m := domain.Availability{
		ID:          av.ID,
		TherapistID: av.TherapistID,
		StartTime:   av.StartTime,
		EndTime:     av.EndTime,
		IsBooked:    false,
	}

	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "availabilities_no_overlap" {
			return domain.Availability{}, store.ErrConflict
		}
		return domain.Availability{}, err
	}
	return m, nil
}

func (r schedulingTx) UpdateAvailabilityTimes(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	_, err := r.tx.NewUpdate().
		Model(&av).
		Column("start_time", "end_time", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "availabilities_no_overlap" {
			return domain.Availability{}, store.ErrConflict
		}
		return domain.Availability{}, err
	}
	return av, nil
}

func (r schedulingTx) SetAvailabilityBooked(ctx context.Context, availabilityID uuid.UUID, booked bool) error {
	res, err := r.tx.NewUpdate().
		Model((*domain.Availability)(nil)).
		Set("is_booked = ?", booked).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", availabilityID).
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
}

func (r schedulingTx) DeleteAvailability(ctx context.Context, availabilityID uuid.UUID) error {
	res, err := r.tx.NewDelete().
		Model((*domain.Availability)(nil)).
		Where("id = ?", availabilityID).
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
}

func (r schedulingTx) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.tx.NewSelect().
		Model(&appt).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r schedulingTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:             appt.ID,
		ParentID:       appt.ParentID,
		AvailabilityID: appt.AvailabilityID,
		Status:         appt.Status,
	}

	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r schedulingTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	_, err := r.tx.NewUpdate().
		Model(&appt).
		Column("availability_id", "status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r schedulingTx) DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	res, err := r.tx.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", appointmentID).
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
}
