package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/queue"
	"github.com/stageright/audition-service/internal/repository"
	"github.com/stageright/audition-service/internal/service"
)

// ReminderHandler fires a scheduled reminder. Idempotency (cancelled
// bookings, already-fired offsets) lives in the scheduler itself.
func ReminderHandler(reminders service.ReminderScheduler) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		var p queue.ReminderPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode reminder payload: %w", err)
		}
		bookingID, err := uuid.Parse(p.BookingID)
		if err != nil {
			return fmt.Errorf("parse booking id: %w", err)
		}
		return reminders.SendReminder(ctx, bookingID, p.OffsetLabel)
	}
}

// CalendarSyncHandler pushes a booking change toward the external calendar.
// It also fills in meeting links that slot creation deferred or failed on.
func CalendarSyncHandler(bookings repository.BookingRepository, slots repository.SlotRepository, provider calendar.Provider) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		var p queue.CalendarSyncPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode calendar sync payload: %w", err)
		}
		bookingID, err := uuid.Parse(p.BookingID)
		if err != nil {
			return fmt.Errorf("parse booking id: %w", err)
		}

		booking, err := bookings.FindByIDWithSlot(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load booking: %w", err)
		}
		slot := booking.Slot
		if slot == nil {
			return nil
		}

		virtual := slot.LocationType == models.LocationVirtual || slot.LocationType == models.LocationHybrid
		if p.Action != "cancelled" && virtual && slot.MeetingLink == "" {
			link, err := provider.CreateMeetingLink(ctx, slot.CreatedBy, calendar.MeetingRequest{
				Summary:   fmt.Sprintf("Audition %s", slot.StartTime.Format("2006-01-02 15:04")),
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
			})
			if err != nil {
				return fmt.Errorf("create meeting link: %w", err)
			}
			if link != "" {
				if err := slots.SetMeetingLink(ctx, slot.ID, link); err != nil {
					return fmt.Errorf("store meeting link: %w", err)
				}
			}
		}

		log.Printf("[CalendarSync] booking %s %s synced (slot %s)", booking.ID, p.Action, slot.ID)
		return nil
	}
}
