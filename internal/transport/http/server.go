package http

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"caretrack/internal/domain"
	"caretrack/internal/service/scheduling"
)

type availabilityService interface {
	List(ctx context.Context, caller domain.Caller) ([]domain.Availability, error)
	Get(ctx context.Context, caller domain.Caller, availabilityID uuid.UUID) (domain.Availability, error)
	Create(ctx context.Context, caller domain.Caller, in scheduling.CreateAvailabilityInput) (domain.Availability, error)
	Update(ctx context.Context, caller domain.Caller, in scheduling.UpdateAvailabilityInput) (domain.Availability, error)
	Delete(ctx context.Context, caller domain.Caller, availabilityID uuid.UUID) error
}

type appointmentService interface {
	List(ctx context.Context, caller domain.Caller) ([]domain.Appointment, error)
	Get(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) (domain.Appointment, error)
	Create(ctx context.Context, caller domain.Caller, availabilityID uuid.UUID) (domain.Appointment, error)
	Update(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID, availabilityID *uuid.UUID) (domain.Appointment, error)
	Delete(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) error
	Approve(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) (domain.Appointment, error)
	Reject(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) (domain.Appointment, error)
}

type authService interface {
	Login(ctx context.Context, email, password string) (string, domain.User, error)
}

type ServerConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter wires the REST surface. Everything except /auth/login and
// /healthz sits behind the authentication middleware.
func NewRouter(
	log zerolog.Logger,
	cfg ServerConfig,
	authMW echo.MiddlewareFunc,
	authSvc authService,
	availabilities availabilityService,
	appointments appointmentService,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	}
	if cfg.RequestTimeout > 0 {
		e.Use(echomw.TimeoutWithConfig(echomw.TimeoutConfig{Timeout: cfg.RequestTimeout}))
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	ah := newAuthHandler(authSvc, log)
	e.POST("/auth/login", ah.Login)

	api := e.Group("", authMW)

	vh := newAvailabilitiesHandler(availabilities, log)
	api.GET("/availabilities", vh.List)
	api.POST("/availabilities", vh.Create)
	api.GET("/availabilities/:id", vh.Get)
	api.PUT("/availabilities/:id", vh.Update)
	api.PATCH("/availabilities/:id", vh.Update)
	api.DELETE("/availabilities/:id", vh.Delete)

	ph := newAppointmentsHandler(appointments, log)
	api.GET("/appointments", ph.List)
	api.POST("/appointments", ph.Create)
	api.GET("/appointments/:id", ph.Get)
	api.PUT("/appointments/:id", ph.Update)
	api.PATCH("/appointments/:id", ph.Update)
	api.DELETE("/appointments/:id", ph.Delete)
	api.POST("/appointments/:id/approve", ph.Approve)
	api.POST("/appointments/:id/reject", ph.Reject)

	return e
}
