package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"caretrack/internal/service/scheduling"
	"caretrack/internal/store"
)

// mapError translates the service error taxonomy onto HTTP statuses.
// Internal errors are logged and redacted.
func mapError(log zerolog.Logger, op string, err error, conflictMsg string) *echo.HTTPError {
	var vErr *scheduling.ValidationError
	if errors.As(err, &vErr) {
		return echo.NewHTTPError(http.StatusBadRequest, vErr.Error())
	}
	var pErr *scheduling.PermissionError
	if errors.As(err, &pErr) {
		return echo.NewHTTPError(http.StatusForbidden, pErr.Error())
	}
	switch {
	case errors.Is(err, store.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "you do not own this resource")
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		if conflictMsg == "" {
			conflictMsg = "conflict"
		}
		return echo.NewHTTPError(http.StatusConflict, conflictMsg)
	}
	log.Error().Err(err).Str("op", op).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
