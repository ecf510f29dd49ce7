package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/notify"
	"github.com/stageright/audition-service/internal/queue"
	"github.com/stageright/audition-service/internal/repository"
)

// ReminderScheduler enqueues time-offset reminder jobs and handles them at
// fire time. Delivery is at-least-once, so SendReminder is idempotent: fired
// offsets are recorded on the booking and cancelled bookings are skipped.
type ReminderScheduler interface {
	ScheduleReminders(ctx context.Context, bookingID uuid.UUID) error
	SendReminder(ctx context.Context, bookingID uuid.UUID, offsetLabel string) error
}

type reminderScheduler struct {
	bookingRepo repository.BookingRepository
	notifier    notify.Notifier
	tasks       queue.TaskQueue
	offsets     []time.Duration
	now         func() time.Time
}

func NewReminderScheduler(bookingRepo repository.BookingRepository, notifier notify.Notifier, tasks queue.TaskQueue, offsets []time.Duration) ReminderScheduler {
	if len(offsets) == 0 {
		offsets = []time.Duration{24 * time.Hour, 2 * time.Hour}
	}
	return &reminderScheduler{
		bookingRepo: bookingRepo,
		notifier:    notifier,
		tasks:       tasks,
		offsets:     offsets,
		now:         time.Now,
	}
}

func (s *reminderScheduler) ScheduleReminders(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.bookingRepo.FindByIDWithSlot(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("load booking: %w", err)
	}
	if !booking.Active() || booking.Slot == nil {
		return nil
	}

	now := s.now()
	for _, offset := range s.offsets {
		trigger := booking.Slot.StartTime.Add(-offset)
		delay := trigger.Sub(now)
		if delay <= 0 {
			// Trigger instant already passed: skip rather than fire late.
			continue
		}

		label := offsetLabel(offset)
		err := s.tasks.Enqueue(ctx, queue.JobBookingReminder, queue.ReminderPayload{
			BookingID:   bookingID.String(),
			OffsetLabel: label,
		}, queue.Options{
			Delay:      delay,
			MaxRetries: 3,
			Backoff:    30 * time.Second,
		})
		if err != nil {
			// A lost reminder never invalidates the booking.
			log.Printf("[ReminderScheduler] enqueue %s reminder for booking %s failed: %v", label, bookingID, err)
		}
	}
	return nil
}

func (s *reminderScheduler) SendReminder(ctx context.Context, bookingID uuid.UUID, offsetLabel string) error {
	booking, err := s.bookingRepo.FindByIDWithSlot(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load booking: %w", err)
	}

	if !booking.Active() {
		log.Printf("[ReminderScheduler] booking %s cancelled before %s reminder, skipping", bookingID, offsetLabel)
		return nil
	}

	sent, err := firedOffsets(booking)
	if err != nil {
		return err
	}
	for _, fired := range sent {
		if fired == offsetLabel {
			return nil
		}
	}

	if err := s.notifier.SendReminder(ctx, booking, offsetLabel); err != nil {
		return fmt.Errorf("send %s reminder: %w", offsetLabel, err)
	}

	sent = append(sent, offsetLabel)
	raw, err := json.Marshal(sent)
	if err != nil {
		return fmt.Errorf("marshal fired offsets: %w", err)
	}
	err = s.bookingRepo.UpdateFields(ctx, s.bookingRepo.GetDB(), booking.ID, map[string]any{
		"reminders_sent": raw,
	})
	if err != nil {
		return fmt.Errorf("record fired offset: %w", err)
	}
	return nil
}

func firedOffsets(b *models.AuditionBooking) ([]string, error) {
	if len(b.RemindersSent) == 0 {
		return nil, nil
	}
	var sent []string
	if err := json.Unmarshal(b.RemindersSent, &sent); err != nil {
		return nil, fmt.Errorf("decode fired offsets: %w", err)
	}
	return sent, nil
}

// offsetLabel renders a duration the way reminder copy expects it: "24h",
// "2h", "30m".
func offsetLabel(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}
