package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"caretrack/internal/domain"
	"caretrack/internal/store"
)

type IdentityRepo struct {
	db *bun.DB
}

func NewIdentityRepo(db *bun.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().
		Model(&u).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r *IdentityRepo) GetTherapist(ctx context.Context, userID uuid.UUID) (domain.Therapist, error) {
	var t domain.Therapist
	err := r.db.NewSelect().
		Model(&t).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Therapist{}, store.ErrNotFound
		}
		return domain.Therapist{}, err
	}
	return t, nil
}

func (r *IdentityRepo) GetParent(ctx context.Context, userID uuid.UUID) (domain.Parent, error) {
	var p domain.Parent
	err := r.db.NewSelect().
		Model(&p).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Parent{}, store.ErrNotFound
		}
		return domain.Parent{}, err
	}
	return p, nil
}

func (r *IdentityRepo) GetOrCreateParent(ctx context.Context, userID uuid.UUID) (domain.Parent, error) {
	p := domain.Parent{UserID: userID}
	_, err := r.db.NewInsert().
		Model(&p).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return domain.Parent{}, err
	}
	return r.GetParent(ctx, userID)
}
