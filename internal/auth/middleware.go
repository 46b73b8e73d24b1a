package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"caretrack/internal/domain"
	"caretrack/internal/store"
)

const callerContextKey = "caretrack.caller"

// Middleware authenticates the bearer token and resolves the caller's
// role profiles once, before any handler runs. Role is determined by
// which profile rows exist, via two independent lookups.
func Middleware(issuer *TokenIssuer, identity store.IdentityRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get("Authorization"))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			userID, err := issuer.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			caller, err := ResolveCaller(c.Request().Context(), identity, userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}

			c.Set(callerContextKey, caller)
			return next(c)
		}
	}
}

// ResolveCaller builds the tagged caller union for a user id. A missing
// profile is not an error; both lookups are attempted independently.
func ResolveCaller(ctx context.Context, identity store.IdentityRepository, userID uuid.UUID) (domain.Caller, error) {
	caller := domain.Caller{UserID: userID}

	therapist, err := identity.GetTherapist(ctx, userID)
	switch {
	case err == nil:
		caller.Therapist = &therapist
	case !errors.Is(err, store.ErrNotFound):
		return domain.Caller{}, err
	}

	parent, err := identity.GetParent(ctx, userID)
	switch {
	case err == nil:
		caller.Parent = &parent
	case !errors.Is(err, store.ErrNotFound):
		return domain.Caller{}, err
	}

	return caller, nil
}

// CallerFromContext returns the caller resolved by Middleware.
func CallerFromContext(c echo.Context) (domain.Caller, bool) {
	caller, ok := c.Get(callerContextKey).(domain.Caller)
	return caller, ok
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
