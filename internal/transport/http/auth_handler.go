package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"caretrack/internal/auth"
)

type authHandler struct {
	svc authService
	log zerolog.Logger
}

func newAuthHandler(svc authService, log zerolog.Logger) *authHandler {
	return &authHandler{
		svc: svc,
		log: log.With().Str("component", "http.auth").Logger(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *authHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	token, user, err := h.svc.Login(c.Request().Context(), email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		h.log.Error().Err(err).Msg("login failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return c.JSON(http.StatusOK, loginResponse{Token: token})
}
