package service

import (
	"bytes"
	"context"
	"crypto/rand"
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

// BookingData is a booking request against one slot.
type BookingData struct {
	SlotID        uuid.UUID
	TalentID      uuid.UUID
	ApplicationID *uuid.UUID
	// When set, the booking starts tentative and is confirmed out of band.
	ConfirmationRequired bool
}

// BookingResult carries the committed booking plus any advisory conflict
// warnings. Warnings never block a booking.
type BookingResult struct {
	Booking  *models.AuditionBooking
	Warnings []string
}

// SlotAvailability is the capacity snapshot callers branch on.
type SlotAvailability struct {
	SlotID          uuid.UUID `json:"slot_id"`
	IsAvailable     bool      `json:"is_available"`
	BookedCount     int       `json:"booked_count"`
	MaxParticipants int       `json:"max_participants"`
	AvailableSpots  int       `json:"available_spots"`
	WaitlistCount   int64     `json:"waitlist_count"`
}

type RescheduleRequest struct {
	BookingID uuid.UUID
	NewSlotID uuid.UUID
	Reason    string
}

// BookingService is the engine's state machine over bookings:
//
//	(none)     --book, spot free--> confirmed|tentative
//	(none)     --book, slot full--> waitlisted
//	active     --reschedule-------> confirmed on the new slot
//	active     --cancel-----------> cancelled (terminal)
//	waitlisted --spot freed-------> confirmed (via WaitlistService)
type BookingService interface {
	BookSlot(ctx context.Context, data BookingData) (*BookingResult, error)
	RescheduleBooking(ctx context.Context, req RescheduleRequest) error
	CancelBooking(ctx context.Context, bookingID uuid.UUID, reason string, notifyTalent bool) error
	CheckSlotAvailability(ctx context.Context, slotID uuid.UUID) (*SlotAvailability, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*models.AuditionBooking, error)
	ListSlotBookings(ctx context.Context, slotID uuid.UUID, status *models.BookingStatus) ([]models.AuditionBooking, error)
	GetUpcomingAuditions(ctx context.Context, talentID uuid.UUID, limit int) ([]models.AuditionBooking, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	slotRepo    repository.SlotRepository
	castingRepo repository.CastingRepository
	waitlist    WaitlistService
	conflicts   ConflictDetector
	reminders   ReminderScheduler
	notifier    notify.Notifier
	tasks       queue.TaskQueue
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	slotRepo repository.SlotRepository,
	castingRepo repository.CastingRepository,
	waitlist WaitlistService,
	conflicts ConflictDetector,
	reminders ReminderScheduler,
	notifier notify.Notifier,
	tasks queue.TaskQueue,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		slotRepo:    slotRepo,
		castingRepo: castingRepo,
		waitlist:    waitlist,
		conflicts:   conflicts,
		reminders:   reminders,
		notifier:    notifier,
		tasks:       tasks,
	}
}

func (s *bookingService) BookSlot(ctx context.Context, data BookingData) (*BookingResult, error) {
	var (
		booking    *models.AuditionBooking
		warnings   []string
		waitlisted bool
	)

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the slot row: the capacity read and the counter write below
		// must be one atomic unit.
		slot, err := s.slotRepo.FindByIDForUpdate(ctx, tx, data.SlotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}
		if !slot.IsActive {
			return ErrSlotInactive
		}

		if _, err := s.castingRepo.FindTalent(ctx, tx, data.TalentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTalentNotFound
			}
			return err
		}

		if slot.AvailableSpots() <= 0 {
			// Full slot: the waitlist is its own complete path, not a
			// fallback after a failed insert.
			booking = s.newBooking(data)
			if err := s.waitlist.AddToWaitlist(ctx, tx, booking); err != nil {
				return err
			}
			waitlisted = true
			return nil
		}

		// Advisory only: overlaps are reported, never enforced.
		warnings, err = s.conflicts.FindConflicts(ctx, tx, data.TalentID, slot.StartTime, slot.EndTime)
		if err != nil {
			log.Printf("[BookingEngine] conflict check failed for talent %s: %v", data.TalentID, err)
			warnings = nil
		}
		if len(warnings) > 0 {
			log.Printf("[BookingEngine] talent %s booking slot %s despite conflicts: %v", data.TalentID, slot.ID, warnings)
		}

		booking = s.newBooking(data)
		if !data.ConfirmationRequired {
			booking.Status = models.StatusConfirmed
		}
		if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		if err := s.slotRepo.IncrementBooked(ctx, tx, slot.ID); err != nil {
			if errors.Is(err, repository.ErrNoCapacity) {
				return ErrSlotFull
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if waitlisted {
		s.fireAndForget("waitlist notice", s.notifier.SendWaitlistNotice(ctx, booking))
		return &BookingResult{Booking: booking}, nil
	}

	s.fireAndForget("confirmation", s.notifier.SendConfirmation(ctx, booking))
	if err := s.reminders.ScheduleReminders(ctx, booking.ID); err != nil {
		log.Printf("[BookingEngine] scheduling reminders for booking %s failed: %v", booking.ID, err)
	}
	s.enqueueCalendarSync(ctx, booking.ID, "created")

	return &BookingResult{Booking: booking, Warnings: warnings}, nil
}

func (s *bookingService) RescheduleBooking(ctx context.Context, req RescheduleRequest) error {
	var (
		booking  *models.AuditionBooking
		promoted *models.AuditionBooking
	)

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.bookingRepo.FindByID(ctx, tx, req.BookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Status == models.StatusCancelled {
			return ErrBookingCancelled
		}
		if booking.SlotID == req.NewSlotID {
			return ErrSameSlot
		}
		oldSlotID := booking.SlotID

		// Both slot rows are locked in id order; opposite reschedules
		// otherwise acquire them in conflicting order and deadlock.
		var newSlot *models.AuditionSlot
		first, second := lockOrder(oldSlotID, req.NewSlotID)
		for _, id := range [2]uuid.UUID{first, second} {
			locked, err := s.slotRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if id == req.NewSlotID && errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSlotNotFound
				}
				return err
			}
			if id == req.NewSlotID {
				newSlot = locked
			}
		}
		if !newSlot.IsActive || newSlot.AvailableSpots() <= 0 {
			return ErrSlotFull
		}

		wasWaitlisted := booking.IsWaitlisted

		changed, err := s.bookingRepo.UpdateFieldsIfActive(ctx, tx, booking.ID, map[string]any{
			"slot_id":           req.NewSlotID,
			"rescheduled_from":  oldSlotID,
			"reschedule_count":  gorm.Expr("reschedule_count + 1"),
			"reschedule_reason": req.Reason,
			// A reschedule always re-confirms.
			"status":            models.StatusConfirmed,
			"is_waitlisted":     false,
			"waitlist_position": nil,
			// Fired offsets belong to the old slot time.
			"reminders_sent": nil,
		})
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if !changed {
			// Lost the race against a concurrent cancel.
			return ErrBookingCancelled
		}
		booking.RescheduledFrom = &oldSlotID
		booking.SlotID = req.NewSlotID
		booking.RescheduleCount++
		booking.RescheduleReason = req.Reason
		booking.Status = models.StatusConfirmed
		booking.IsWaitlisted = false
		booking.WaitlistPosition = nil
		booking.RemindersSent = nil

		if err := s.slotRepo.IncrementBooked(ctx, tx, req.NewSlotID); err != nil {
			if errors.Is(err, repository.ErrNoCapacity) {
				return ErrSlotFull
			}
			return err
		}

		if wasWaitlisted {
			// The booking never held a spot on the old slot; only the
			// queue behind it moves up.
			return s.waitlist.RecomputePositions(ctx, tx, oldSlotID)
		}

		if err := s.slotRepo.DecrementBooked(ctx, tx, oldSlotID); err != nil {
			return err
		}
		// A spot just freed on the old slot.
		promoted, err = s.waitlist.ProcessWaitlist(ctx, tx, oldSlotID)
		return err
	})
	if err != nil {
		return err
	}

	oldSlotID := uuid.Nil
	if booking.RescheduledFrom != nil {
		oldSlotID = *booking.RescheduledFrom
	}
	s.fireAndForget("reschedule notice", s.notifier.SendRescheduleNotice(ctx, booking, oldSlotID))
	if promoted != nil {
		s.fireAndForget("waitlist promotion", s.notifier.SendWaitlistPromotion(ctx, promoted))
		if err := s.reminders.ScheduleReminders(ctx, promoted.ID); err != nil {
			log.Printf("[BookingEngine] scheduling reminders for booking %s failed: %v", promoted.ID, err)
		}
	}
	if err := s.reminders.ScheduleReminders(ctx, booking.ID); err != nil {
		log.Printf("[BookingEngine] scheduling reminders for booking %s failed: %v", booking.ID, err)
	}
	s.enqueueCalendarSync(ctx, booking.ID, "rescheduled")
	return nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, reason string, notifyTalent bool) error {
	var (
		booking  *models.AuditionBooking
		promoted *models.AuditionBooking
	)

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.bookingRepo.FindByID(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		// Cancelled is terminal.
		if booking.Status == models.StatusCancelled {
			return ErrBookingCancelled
		}

		if _, err := s.slotRepo.FindByIDForUpdate(ctx, tx, booking.SlotID); err != nil {
			return err
		}

		now := time.Now().UTC()
		// Guarded: a concurrent cancel that won the race must not let this
		// one decrement the counter a second time.
		changed, err := s.bookingRepo.UpdateFieldsIfActive(ctx, tx, booking.ID, map[string]any{
			"status":              models.StatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": reason,
		})
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if !changed {
			return ErrBookingCancelled
		}
		booking.Status = models.StatusCancelled
		booking.CancelledAt = &now
		booking.CancellationReason = reason

		if booking.IsWaitlisted {
			// The removed entry leaves a gap in the queue, not a spot.
			return s.waitlist.RecomputePositions(ctx, tx, booking.SlotID)
		}

		if err := s.slotRepo.DecrementBooked(ctx, tx, booking.SlotID); err != nil {
			return err
		}
		promoted, err = s.waitlist.ProcessWaitlist(ctx, tx, booking.SlotID)
		return err
	})
	if err != nil {
		return err
	}

	if notifyTalent {
		s.fireAndForget("cancellation notice", s.notifier.SendCancellationNotice(ctx, booking))
	}
	if promoted != nil {
		s.fireAndForget("waitlist promotion", s.notifier.SendWaitlistPromotion(ctx, promoted))
		if err := s.reminders.ScheduleReminders(ctx, promoted.ID); err != nil {
			log.Printf("[BookingEngine] scheduling reminders for booking %s failed: %v", promoted.ID, err)
		}
	}
	s.enqueueCalendarSync(ctx, booking.ID, "cancelled")
	return nil
}

func (s *bookingService) CheckSlotAvailability(ctx context.Context, slotID uuid.UUID) (*SlotAvailability, error) {
	slot, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	waitlistCount, err := s.bookingRepo.CountWaitlisted(ctx, s.bookingRepo.GetDB(), slotID)
	if err != nil {
		return nil, err
	}

	return &SlotAvailability{
		SlotID:          slot.ID,
		IsAvailable:     slot.IsAvailable,
		BookedCount:     slot.BookedCount,
		MaxParticipants: slot.MaxParticipants,
		AvailableSpots:  slot.AvailableSpots(),
		WaitlistCount:   waitlistCount,
	}, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.AuditionBooking, error) {
	booking, err := s.bookingRepo.FindByIDWithSlot(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListSlotBookings(ctx context.Context, slotID uuid.UUID, status *models.BookingStatus) ([]models.AuditionBooking, error) {
	return s.bookingRepo.ListBySlot(ctx, slotID, status)
}

func (s *bookingService) GetUpcomingAuditions(ctx context.Context, talentID uuid.UUID, limit int) ([]models.AuditionBooking, error) {
	return s.bookingRepo.ListUpcomingByTalent(ctx, talentID, time.Now().UTC(), limit)
}

func (s *bookingService) newBooking(data BookingData) *models.AuditionBooking {
	return &models.AuditionBooking{
		ID:               uuid.New(),
		ConfirmationCode: newConfirmationCode(),
		SlotID:           data.SlotID,
		TalentID:         data.TalentID,
		ApplicationID:    data.ApplicationID,
		Status:           models.StatusTentative,
	}
}

func (s *bookingService) enqueueCalendarSync(ctx context.Context, bookingID uuid.UUID, action string) {
	err := s.tasks.Enqueue(ctx, queue.JobCalendarSync, queue.CalendarSyncPayload{
		BookingID: bookingID.String(),
		Action:    action,
	}, queue.Options{MaxRetries: 5, Backoff: time.Minute})
	if err != nil {
		log.Printf("[BookingEngine] enqueue calendar sync for booking %s failed: %v", bookingID, err)
	}
}

func (s *bookingService) fireAndForget(what string, err error) {
	if err != nil {
		log.Printf("[BookingEngine] %s failed: %v", what, err)
	}
}

// Unambiguous charset, no 0/O or 1/I.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newConfirmationCode returns an 8-char human-shareable code. The space is
// 32^8, large enough that collisions are not a practical concern; the unique
// index on confirmation_code backstops it.
func newConfirmationCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in much deeper trouble.
		panic(fmt.Sprintf("confirmation code entropy: %v", err))
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

// lockOrder returns the two slot ids in a stable order so every transaction
// acquires their row locks the same way regardless of reschedule direction.
func lockOrder(a, b uuid.UUID) (first, second uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
