package store

import (
	"context"

	"github.com/google/uuid"

	"caretrack/internal/domain"
)

// IdentityRepository is the user directory the booking core resolves
// callers against. Role is carried by profile rows, looked up
// independently per request.
type IdentityRepository interface {
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetTherapist(ctx context.Context, userID uuid.UUID) (domain.Therapist, error)
	GetParent(ctx context.Context, userID uuid.UUID) (domain.Parent, error)
	// GetOrCreateParent provisions a parent profile on first booking.
	// It is idempotent.
	GetOrCreateParent(ctx context.Context, userID uuid.UUID) (domain.Parent, error)
}
