package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/dto"
	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/service"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	slots := e.Group("/api/v1/slots")
	slots.GET("/:id/availability", h.CheckAvailability)
	slots.POST("/:id/bookings", h.CreateBooking)
	slots.GET("/:id/bookings", h.ListSlotBookings)

	e.GET("/api/v1/bookings/:id", h.GetBooking)
	e.PUT("/api/v1/bookings/:id/reschedule", h.RescheduleBooking)
	e.DELETE("/api/v1/bookings/:id", h.CancelBooking)

	e.GET("/api/v1/talents/:id/auditions", h.GetUpcomingAuditions)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}

	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	talentID, err := uuid.Parse(req.TalentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "talent_id is required")
	}

	data := service.BookingData{
		SlotID:               slotID,
		TalentID:             talentID,
		ConfirmationRequired: req.ConfirmationRequired,
	}
	if req.ApplicationID != nil {
		appID, err := uuid.Parse(*req.ApplicationID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid application_id")
		}
		data.ApplicationID = &appID
	}

	result, err := h.svc.BookSlot(c.Request().Context(), data)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, dto.BookingResultResponse{
		Booking:  dto.ToBookingResponse(result.Booking),
		Warnings: result.Warnings,
	})
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) RescheduleBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	var req dto.RescheduleBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	newSlotID, err := uuid.Parse(req.NewSlotID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "new_slot_id is required")
	}

	err = h.svc.RescheduleBooking(c.Request().Context(), service.RescheduleRequest{
		BookingID: id,
		NewSlotID: newSlotID,
		Reason:    req.Reason,
	})
	if err != nil {
		return mapServiceError(err)
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	var req dto.CancelBookingRequest
	_ = c.Bind(&req) // body is optional on cancel

	notify := true
	if v := c.QueryParam("notify"); v != "" {
		notify, err = strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid notify flag")
		}
	}

	if err := h.svc.CancelBooking(c.Request().Context(), id, req.Reason, notify); err != nil {
		return mapServiceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}

	availability, err := h.svc.CheckSlotAvailability(c.Request().Context(), slotID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, availability)
}

func (h *BookingHandler) ListSlotBookings(c echo.Context) error {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}

	var status *models.BookingStatus
	if s := c.QueryParam("status"); s != "" {
		bs := models.BookingStatus(s)
		status = &bs
	}

	bookings, err := h.svc.ListSlotBookings(c.Request().Context(), slotID, status)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]dto.BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = dto.ToBookingResponse(&b)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) GetUpcomingAuditions(c echo.Context) error {
	talentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid talent id")
	}

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}

	bookings, err := h.svc.GetUpcomingAuditions(c.Request().Context(), talentID, limit)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]dto.BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = dto.ToBookingResponse(&b)
	}
	return c.JSON(http.StatusOK, resp)
}

// mapServiceError translates engine sentinels into HTTP errors.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrCharacterNotFound),
		errors.Is(err, service.ErrTalentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSlotFull),
		errors.Is(err, service.ErrBookingCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCharacterMismatch),
		errors.Is(err, service.ErrInvalidCapacity),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrSlotInactive),
		errors.Is(err, service.ErrSameSlot),
		errors.Is(err, calendar.ErrInvalidRule),
		errors.Is(err, calendar.ErrInvalidWindow):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
