package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"caretrack/internal/auth"
	"caretrack/internal/domain"
	"caretrack/internal/service/scheduling"
)

const overlapConflictMsg = "this time slot overlaps with an existing availability"

type availabilitiesHandler struct {
	svc availabilityService
	log zerolog.Logger
}

func newAvailabilitiesHandler(svc availabilityService, log zerolog.Logger) *availabilitiesHandler {
	return &availabilitiesHandler{
		svc: svc,
		log: log.With().Str("component", "http.availabilities").Logger(),
	}
}

type availabilityRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

func (h *availabilitiesHandler) List(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	slots, err := h.svc.List(c.Request().Context(), caller)
	if err != nil {
		return mapError(h.log, "list", err, "")
	}
	if slots == nil {
		slots = []domain.Availability{}
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *availabilitiesHandler) Get(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid availability id")
	}

	slot, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return mapError(h.log, "get", err, "")
	}
	return c.JSON(http.StatusOK, slot)
}

func (h *availabilitiesHandler) Create(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StartTime == nil || req.EndTime == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_time and end_time are required")
	}

	slot, err := h.svc.Create(c.Request().Context(), caller, scheduling.CreateAvailabilityInput{
		StartTime: *req.StartTime,
		EndTime:   *req.EndTime,
	})
	if err != nil {
		return mapError(h.log, "create", err, overlapConflictMsg)
	}

	h.log.Info().
		Str("availability_id", slot.ID.String()).
		Str("therapist_id", slot.TherapistID.String()).
		Time("start_time", slot.StartTime).
		Time("end_time", slot.EndTime).
		Msg("availability created")

	return c.JSON(http.StatusCreated, slot)
}

func (h *availabilitiesHandler) Update(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid availability id")
	}

	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	slot, err := h.svc.Update(c.Request().Context(), caller, scheduling.UpdateAvailabilityInput{
		ID:        id,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return mapError(h.log, "update", err, overlapConflictMsg)
	}

	h.log.Info().
		Str("availability_id", slot.ID.String()).
		Str("therapist_id", slot.TherapistID.String()).
		Msg("availability updated")

	return c.JSON(http.StatusOK, slot)
}

func (h *availabilitiesHandler) Delete(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid availability id")
	}

	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return mapError(h.log, "delete", err, "")
	}

	h.log.Info().Str("availability_id", id.String()).Msg("availability deleted")
	return c.NoContent(http.StatusNoContent)
}
