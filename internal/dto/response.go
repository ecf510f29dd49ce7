package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/stageright/audition-service/internal/models"
)

type BookingResponse struct {
	ID               uuid.UUID            `json:"id"`
	ConfirmationCode string               `json:"confirmation_code"`
	SlotID           uuid.UUID            `json:"slot_id"`
	TalentID         uuid.UUID            `json:"talent_id"`
	Status           models.BookingStatus `json:"status"`
	IsWaitlisted     bool                 `json:"is_waitlisted"`
	WaitlistPosition *int                 `json:"waitlist_position,omitempty"`
	RescheduledFrom  *uuid.UUID           `json:"rescheduled_from,omitempty"`
	RescheduleCount  int                  `json:"reschedule_count"`
	CreatedAt        time.Time            `json:"created_at"`

	Slot *SlotResponse `json:"slot,omitempty"`
}

type BookingResultResponse struct {
	Booking  BookingResponse `json:"booking"`
	Warnings []string        `json:"warnings,omitempty"`
}

type SlotResponse struct {
	ID              uuid.UUID  `json:"id"`
	RecurrenceID    *uuid.UUID `json:"recurrence_id,omitempty"`
	ProjectID       uuid.UUID  `json:"project_id"`
	CharacterID     *uuid.UUID `json:"character_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	TimeZone        string     `json:"time_zone"`
	LocationType    string     `json:"location_type"`
	VenueAddress    string     `json:"venue_address,omitempty"`
	MeetingLink     string     `json:"meeting_link,omitempty"`
	MaxParticipants int        `json:"max_participants"`
	BookedCount     int        `json:"booked_count"`
	IsAvailable     bool       `json:"is_available"`
}

type CreateSlotsResponse struct {
	SlotIDs []uuid.UUID `json:"slot_ids"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.AuditionBooking) BookingResponse {
	resp := BookingResponse{
		ID:               b.ID,
		ConfirmationCode: b.ConfirmationCode,
		SlotID:           b.SlotID,
		TalentID:         b.TalentID,
		Status:           b.Status,
		IsWaitlisted:     b.IsWaitlisted,
		WaitlistPosition: b.WaitlistPosition,
		RescheduledFrom:  b.RescheduledFrom,
		RescheduleCount:  b.RescheduleCount,
		CreatedAt:        b.CreatedAt,
	}
	if b.Slot != nil {
		slot := ToSlotResponse(b.Slot)
		resp.Slot = &slot
	}
	return resp
}

func ToSlotResponse(s *models.AuditionSlot) SlotResponse {
	return SlotResponse{
		ID:              s.ID,
		RecurrenceID:    s.RecurrenceID,
		ProjectID:       s.ProjectID,
		CharacterID:     s.CharacterID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		DurationMinutes: s.DurationMinutes,
		TimeZone:        s.TimeZone,
		LocationType:    string(s.LocationType),
		VenueAddress:    s.VenueAddress,
		MeetingLink:     s.MeetingLink,
		MaxParticipants: s.MaxParticipants,
		BookedCount:     s.BookedCount,
		IsAvailable:     s.IsAvailable,
	}
}
