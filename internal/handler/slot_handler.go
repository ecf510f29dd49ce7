package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/dto"
	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/service"
)

type SlotHandler struct {
	svc service.SlotService
}

func NewSlotHandler(svc service.SlotService) *SlotHandler {
	return &SlotHandler{svc: svc}
}

func (h *SlotHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/slots", h.CreateSlots)
	e.GET("/api/v1/slots/:id", h.GetSlot)
	e.DELETE("/api/v1/slots/:id", h.DeactivateSlot)
	e.GET("/api/v1/projects/:id/slots", h.ListProjectSlots)
}

func (h *SlotHandler) CreateSlots(c echo.Context) error {
	var req dto.CreateSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	spec, err := specFromRequest(req)
	if err != nil {
		return err
	}

	ids, err := h.svc.CreateSlots(c.Request().Context(), spec)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, dto.CreateSlotsResponse{SlotIDs: ids})
}

func (h *SlotHandler) GetSlot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}

	slot, err := h.svc.GetSlot(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToSlotResponse(slot))
}

func (h *SlotHandler) DeactivateSlot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}

	if err := h.svc.DeactivateSlot(c.Request().Context(), id); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SlotHandler) ListProjectSlots(c echo.Context) error {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid project id")
	}

	slots, err := h.svc.ListSlotsByProject(c.Request().Context(), projectID)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]dto.SlotResponse, len(slots))
	for i, s := range slots {
		resp[i] = dto.ToSlotResponse(&s)
	}
	return c.JSON(http.StatusOK, resp)
}

func specFromRequest(req dto.CreateSlotRequest) (service.CreateSlotSpec, error) {
	var spec service.CreateSlotSpec

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return spec, echo.NewHTTPError(http.StatusBadRequest, "project_id is required")
	}
	createdBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		return spec, echo.NewHTTPError(http.StatusBadRequest, "created_by is required")
	}

	spec = service.CreateSlotSpec{
		ProjectID:         projectID,
		CreatedBy:         createdBy,
		StartTime:         req.StartTime,
		DurationMinutes:   req.DurationMinutes,
		TimeZone:          req.TimeZone,
		LocationType:      models.LocationType(req.LocationType),
		VenueAddress:      req.VenueAddress,
		CreateMeetingLink: req.CreateMeetingLink,
		MaxParticipants:   req.MaxParticipants,
		IsRecurring:       req.IsRecurring,
	}
	if spec.LocationType == "" {
		spec.LocationType = models.LocationPhysical
	}

	if req.CharacterID != nil {
		characterID, err := uuid.Parse(*req.CharacterID)
		if err != nil {
			return spec, echo.NewHTTPError(http.StatusBadRequest, "invalid character_id")
		}
		spec.CharacterID = &characterID
	}

	if req.IsRecurring {
		if req.Recurrence == nil || req.RecurrenceUntil == nil {
			return spec, echo.NewHTTPError(http.StatusBadRequest, "recurrence and recurrence_until are required for recurring slots")
		}
		weekdays := make([]time.Weekday, len(req.Recurrence.Weekdays))
		for i, d := range req.Recurrence.Weekdays {
			weekdays[i] = time.Weekday(d)
		}
		spec.Recurrence = &calendar.RecurrenceRule{
			Frequency: calendar.Frequency(req.Recurrence.Frequency),
			Interval:  req.Recurrence.Interval,
			Weekdays:  weekdays,
		}
		spec.RecurrenceUntil = *req.RecurrenceUntil
	}

	return spec, nil
}
