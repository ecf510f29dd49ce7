package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	StatusTentative BookingStatus = "tentative"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

type AuditionBooking struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConfirmationCode string    `gorm:"type:varchar(8);not null;uniqueIndex" json:"confirmation_code"`

	SlotID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"slot_id"`
	TalentID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"talent_id"`
	ApplicationID *uuid.UUID `gorm:"type:uuid" json:"application_id,omitempty"`

	Status BookingStatus `gorm:"type:varchar(20);not null;default:'tentative'" json:"status"`

	IsWaitlisted     bool `gorm:"not null;default:false" json:"is_waitlisted"`
	WaitlistPosition *int `json:"waitlist_position,omitempty"`

	RescheduledFrom  *uuid.UUID `gorm:"type:uuid" json:"rescheduled_from,omitempty"`
	RescheduleCount  int        `gorm:"not null;default:0" json:"reschedule_count"`
	RescheduleReason string     `gorm:"type:text" json:"reschedule_reason,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason,omitempty"`

	// Reminder offsets already fired, e.g. ["24h","2h"]. Guards duplicate
	// sends under at-least-once job delivery.
	RemindersSent datatypes.JSON `gorm:"type:jsonb" json:"reminders_sent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Slot *AuditionSlot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
}

// Active reports whether the booking still occupies or is queued for a spot.
func (b *AuditionBooking) Active() bool {
	return b.Status != StatusCancelled
}
