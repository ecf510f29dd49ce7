package dto

import "time"

type RecurrenceRequest struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
	// time.Weekday numbering, Sunday = 0.
	Weekdays []int `json:"weekdays,omitempty"`
}

type CreateSlotRequest struct {
	ProjectID   string  `json:"project_id"`
	CharacterID *string `json:"character_id,omitempty"`
	CreatedBy   string  `json:"created_by"`

	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	TimeZone        string    `json:"time_zone,omitempty"`

	LocationType      string `json:"location_type"`
	VenueAddress      string `json:"venue_address,omitempty"`
	CreateMeetingLink bool   `json:"create_meeting_link,omitempty"`

	MaxParticipants int `json:"max_participants"`

	IsRecurring     bool               `json:"is_recurring,omitempty"`
	Recurrence      *RecurrenceRequest `json:"recurrence,omitempty"`
	RecurrenceUntil *time.Time         `json:"recurrence_until,omitempty"`
}

type CreateBookingRequest struct {
	TalentID             string  `json:"talent_id"`
	ApplicationID        *string `json:"application_id,omitempty"`
	ConfirmationRequired bool    `json:"confirmation_required,omitempty"`
}

type RescheduleBookingRequest struct {
	NewSlotID string `json:"new_slot_id"`
	Reason    string `json:"reason,omitempty"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}
