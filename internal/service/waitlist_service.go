package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/repository"
)

// WaitlistService keeps the per-slot FIFO queue. All methods run inside the
// caller's capacity transaction; notifications for its outcomes are sent by
// the caller after commit.
type WaitlistService interface {
	// AddToWaitlist appends booking to the slot's queue, assigning the next
	// dense position. The booking must carry id, slot, talent and code.
	AddToWaitlist(ctx context.Context, tx *gorm.DB, booking *models.AuditionBooking) error
	// ProcessWaitlist promotes the head of the queue when the slot has a
	// free spot, returning the promoted booking or nil. No-op at capacity.
	ProcessWaitlist(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) (*models.AuditionBooking, error)
	// RecomputePositions reassigns dense positions 1..n, closing gaps left
	// by removals. Idempotent.
	RecomputePositions(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error
}

type waitlistService struct {
	bookingRepo repository.BookingRepository
	slotRepo    repository.SlotRepository
}

func NewWaitlistService(bookingRepo repository.BookingRepository, slotRepo repository.SlotRepository) WaitlistService {
	return &waitlistService{bookingRepo: bookingRepo, slotRepo: slotRepo}
}

func (s *waitlistService) AddToWaitlist(ctx context.Context, tx *gorm.DB, booking *models.AuditionBooking) error {
	count, err := s.bookingRepo.CountWaitlisted(ctx, tx, booking.SlotID)
	if err != nil {
		return fmt.Errorf("count waitlisted: %w", err)
	}

	position := int(count) + 1
	booking.IsWaitlisted = true
	booking.WaitlistPosition = &position
	booking.Status = models.StatusTentative

	if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
		return fmt.Errorf("create waitlist booking: %w", err)
	}
	return nil
}

func (s *waitlistService) ProcessWaitlist(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) (*models.AuditionBooking, error) {
	slot, err := s.slotRepo.FindByIDForUpdate(ctx, tx, slotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if !slot.IsActive || slot.AvailableSpots() <= 0 {
		return nil, nil
	}

	next, err := s.bookingRepo.FindFirstWaitlisted(ctx, tx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find first waitlisted: %w", err)
	}

	err = s.bookingRepo.UpdateFields(ctx, tx, next.ID, map[string]any{
		"is_waitlisted":     false,
		"waitlist_position": nil,
		"status":            models.StatusConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("promote booking: %w", err)
	}

	if err := s.slotRepo.IncrementBooked(ctx, tx, slotID); err != nil {
		return nil, fmt.Errorf("claim freed spot: %w", err)
	}

	if err := s.RecomputePositions(ctx, tx, slotID); err != nil {
		return nil, err
	}

	next.IsWaitlisted = false
	next.WaitlistPosition = nil
	next.Status = models.StatusConfirmed
	return next, nil
}

func (s *waitlistService) RecomputePositions(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) error {
	waitlisted, err := s.bookingRepo.ListWaitlisted(ctx, tx, slotID)
	if err != nil {
		return fmt.Errorf("list waitlisted: %w", err)
	}

	for i, b := range waitlisted {
		want := i + 1
		if b.WaitlistPosition != nil && *b.WaitlistPosition == want {
			continue
		}
		err := s.bookingRepo.UpdateFields(ctx, tx, b.ID, map[string]any{
			"waitlist_position": want,
		})
		if err != nil {
			return fmt.Errorf("recompute position for %s: %w", b.ID, err)
		}
	}
	return nil
}
