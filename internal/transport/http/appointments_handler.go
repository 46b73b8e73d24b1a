package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"caretrack/internal/auth"
	"caretrack/internal/domain"
)

const bookedConflictMsg = "this time slot is already booked"

type appointmentsHandler struct {
	svc appointmentService
	log zerolog.Logger
}

func newAppointmentsHandler(svc appointmentService, log zerolog.Logger) *appointmentsHandler {
	return &appointmentsHandler{
		svc: svc,
		log: log.With().Str("component", "http.appointments").Logger(),
	}
}

type appointmentRequest struct {
	AvailabilityID *uuid.UUID `json:"availability"`
}

func (h *appointmentsHandler) List(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	appts, err := h.svc.List(c.Request().Context(), caller)
	if err != nil {
		return mapError(h.log, "list", err, "")
	}
	if appts == nil {
		appts = []domain.Appointment{}
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *appointmentsHandler) Get(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	appt, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return mapError(h.log, "get", err, "")
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *appointmentsHandler) Create(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AvailabilityID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "availability is required")
	}

	appt, err := h.svc.Create(c.Request().Context(), caller, *req.AvailabilityID)
	if err != nil {
		return mapError(h.log, "create", err, bookedConflictMsg)
	}

	h.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("availability_id", appt.AvailabilityID.String()).
		Str("parent_id", appt.ParentID.String()).
		Msg("appointment created")

	return c.JSON(http.StatusCreated, appt)
}

func (h *appointmentsHandler) Update(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.Update(c.Request().Context(), caller, id, req.AvailabilityID)
	if err != nil {
		return mapError(h.log, "update", err, bookedConflictMsg)
	}

	h.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("availability_id", appt.AvailabilityID.String()).
		Msg("appointment updated")

	return c.JSON(http.StatusOK, appt)
}

func (h *appointmentsHandler) Delete(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return mapError(h.log, "delete", err, "")
	}

	h.log.Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return c.NoContent(http.StatusNoContent)
}

func (h *appointmentsHandler) Approve(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	appt, err := h.svc.Approve(c.Request().Context(), caller, id)
	if err != nil {
		return mapError(h.log, "approve", err, "appointment is already rejected")
	}

	h.log.Info().Str("appointment_id", appt.ID.String()).Msg("appointment approved")
	return c.JSON(http.StatusOK, map[string]string{"status": string(appt.Status)})
}

func (h *appointmentsHandler) Reject(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	appt, err := h.svc.Reject(c.Request().Context(), caller, id)
	if err != nil {
		return mapError(h.log, "reject", err, "")
	}

	h.log.Info().Str("appointment_id", appt.ID.String()).Msg("appointment rejected")
	return c.JSON(http.StatusOK, map[string]string{"status": string(appt.Status)})
}
