package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stageright/audition-service/internal/dto"
	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/service"
)

// --- Mock BookingService ---

type mockBookingService struct {
	bookSlotFn     func(ctx context.Context, data service.BookingData) (*service.BookingResult, error)
	rescheduleFn   func(ctx context.Context, req service.RescheduleRequest) error
	cancelFn       func(ctx context.Context, id uuid.UUID, reason string, notify bool) error
	availabilityFn func(ctx context.Context, slotID uuid.UUID) (*service.SlotAvailability, error)
	getBookingFn   func(ctx context.Context, id uuid.UUID) (*models.AuditionBooking, error)
	listSlotFn     func(ctx context.Context, slotID uuid.UUID, status *models.BookingStatus) ([]models.AuditionBooking, error)
	upcomingFn     func(ctx context.Context, talentID uuid.UUID, limit int) ([]models.AuditionBooking, error)
}

func (m *mockBookingService) BookSlot(ctx context.Context, data service.BookingData) (*service.BookingResult, error) {
	return m.bookSlotFn(ctx, data)
}
func (m *mockBookingService) RescheduleBooking(ctx context.Context, req service.RescheduleRequest) error {
	return m.rescheduleFn(ctx, req)
}
func (m *mockBookingService) CancelBooking(ctx context.Context, id uuid.UUID, reason string, notify bool) error {
	return m.cancelFn(ctx, id, reason, notify)
}
func (m *mockBookingService) CheckSlotAvailability(ctx context.Context, slotID uuid.UUID) (*service.SlotAvailability, error) {
	return m.availabilityFn(ctx, slotID)
}
func (m *mockBookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.AuditionBooking, error) {
	return m.getBookingFn(ctx, id)
}
func (m *mockBookingService) ListSlotBookings(ctx context.Context, slotID uuid.UUID, status *models.BookingStatus) ([]models.AuditionBooking, error) {
	return m.listSlotFn(ctx, slotID, status)
}
func (m *mockBookingService) GetUpcomingAuditions(ctx context.Context, talentID uuid.UUID, limit int) ([]models.AuditionBooking, error) {
	return m.upcomingFn(ctx, talentID, limit)
}

// --- Tests ---

func performRequest(h *BookingHandler, method, target string, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateBooking_Created(t *testing.T) {
	slotID := uuid.New()
	talentID := uuid.New()
	svc := &mockBookingService{
		bookSlotFn: func(ctx context.Context, data service.BookingData) (*service.BookingResult, error) {
			assert.Equal(t, slotID, data.SlotID)
			assert.Equal(t, talentID, data.TalentID)
			return &service.BookingResult{
				Booking: &models.AuditionBooking{
					ID:               uuid.New(),
					ConfirmationCode: "ABCD2345",
					SlotID:           slotID,
					TalentID:         talentID,
					Status:           models.StatusConfirmed,
				},
				Warnings: []string{"existing audition XYZ"},
			}, nil
		},
	}
	h := NewBookingHandler(svc)

	rec := performRequest(h, http.MethodPost, "/api/v1/slots/"+slotID.String()+"/bookings",
		`{"talent_id":"`+talentID.String()+`"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.BookingResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ABCD2345", resp.Booking.ConfirmationCode)
	assert.Equal(t, models.StatusConfirmed, resp.Booking.Status)
	assert.Equal(t, []string{"existing audition XYZ"}, resp.Warnings)
}

func TestCreateBooking_SlotNotFound(t *testing.T) {
	svc := &mockBookingService{
		bookSlotFn: func(ctx context.Context, data service.BookingData) (*service.BookingResult, error) {
			return nil, service.ErrSlotNotFound
		},
	}
	h := NewBookingHandler(svc)

	rec := performRequest(h, http.MethodPost, "/api/v1/slots/"+uuid.NewString()+"/bookings",
		`{"talent_id":"`+uuid.NewString()+`"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBooking_InvalidTalentID(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})

	rec := performRequest(h, http.MethodPost, "/api/v1/slots/"+uuid.NewString()+"/bookings",
		`{"talent_id":"not-a-uuid"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckAvailability(t *testing.T) {
	slotID := uuid.New()
	svc := &mockBookingService{
		availabilityFn: func(ctx context.Context, id uuid.UUID) (*service.SlotAvailability, error) {
			return &service.SlotAvailability{
				SlotID:          id,
				IsAvailable:     true,
				BookedCount:     1,
				MaxParticipants: 3,
				AvailableSpots:  2,
				WaitlistCount:   0,
			}, nil
		},
	}
	h := NewBookingHandler(svc)

	rec := performRequest(h, http.MethodGet, "/api/v1/slots/"+slotID.String()+"/availability", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp service.SlotAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.AvailableSpots)
	assert.True(t, resp.IsAvailable)
}

func TestRescheduleBooking_Conflict(t *testing.T) {
	svc := &mockBookingService{
		rescheduleFn: func(ctx context.Context, req service.RescheduleRequest) error {
			return service.ErrSlotFull
		},
	}
	h := NewBookingHandler(svc)

	rec := performRequest(h, http.MethodPut, "/api/v1/bookings/"+uuid.NewString()+"/reschedule",
		`{"new_slot_id":"`+uuid.NewString()+`"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelBooking_NotifyFlag(t *testing.T) {
	var gotNotify bool
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, id uuid.UUID, reason string, notify bool) error {
			gotNotify = notify
			return nil
		},
	}
	h := NewBookingHandler(svc)

	rec := performRequest(h, http.MethodDelete, "/api/v1/bookings/"+uuid.NewString()+"?notify=false", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, gotNotify)
}

func TestGetUpcomingAuditions_Limit(t *testing.T) {
	talentID := uuid.New()
	var gotLimit int
	svc := &mockBookingService{
		upcomingFn: func(ctx context.Context, id uuid.UUID, limit int) ([]models.AuditionBooking, error) {
			gotLimit = limit
			return []models.AuditionBooking{}, nil
		},
	}
	h := NewBookingHandler(svc)

	rec := performRequest(h, http.MethodGet, "/api/v1/talents/"+talentID.String()+"/auditions?limit=5", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
}
