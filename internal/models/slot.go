package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LocationType string

const (
	LocationPhysical LocationType = "physical"
	LocationVirtual  LocationType = "virtual"
	LocationHybrid   LocationType = "hybrid"
)

type AuditionSlot struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecurrenceID *uuid.UUID `gorm:"type:uuid;index" json:"recurrence_id,omitempty"`

	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	CharacterID *uuid.UUID `gorm:"type:uuid;index" json:"character_id,omitempty"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`

	Date            datatypes.Date `gorm:"type:date;not null" json:"date"`
	StartTime       time.Time      `gorm:"not null;index" json:"start_time"`
	EndTime         time.Time      `gorm:"not null" json:"end_time"`
	DurationMinutes int            `gorm:"not null" json:"duration_minutes"`
	TimeZone        string         `gorm:"type:varchar(64);not null;default:'UTC'" json:"time_zone"`

	LocationType LocationType `gorm:"type:varchar(16);not null;default:'physical'" json:"location_type"`
	VenueAddress string       `gorm:"type:text" json:"venue_address,omitempty"`
	MeetingLink  string       `gorm:"type:text" json:"meeting_link,omitempty"`

	MaxParticipants int  `gorm:"not null" json:"max_participants"`
	BookedCount     int  `gorm:"not null;default:0" json:"booked_count"`
	IsAvailable     bool `gorm:"not null;default:true" json:"is_available"`
	IsActive        bool `gorm:"not null;default:true" json:"is_active"`

	// The rule the slot was generated from, nil for one-off slots.
	RecurrenceRule datatypes.JSON `gorm:"type:jsonb" json:"recurrence_rule,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvailableSpots is derived, never stored.
func (s *AuditionSlot) AvailableSpots() int {
	spots := s.MaxParticipants - s.BookedCount
	if spots < 0 {
		return 0
	}
	return spots
}

// ComputeAvailability re-derives IsAvailable from the capacity counter and the
// active flag. IsAvailable is never set independently of this rule.
func (s *AuditionSlot) ComputeAvailability() {
	s.IsAvailable = s.IsActive && s.BookedCount < s.MaxParticipants
}
