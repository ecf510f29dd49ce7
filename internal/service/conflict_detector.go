package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/repository"
)

// ConflictDetector reports overlaps between a proposed audition window and a
// talent's existing commitments. Pure query: it never mutates state, and its
// findings are advisory. Callers decide policy. Reads run on the caller's tx
// so a check made mid-transaction stays on that transaction's connection.
type ConflictDetector interface {
	FindConflicts(ctx context.Context, tx *gorm.DB, talentID uuid.UUID, start, end time.Time) ([]string, error)
}

type conflictDetector struct {
	bookingRepo   repository.BookingRepository
	castingRepo   repository.CastingRepository
	provider      calendar.Provider
	bufferMinutes int
}

func NewConflictDetector(bookingRepo repository.BookingRepository, castingRepo repository.CastingRepository, provider calendar.Provider, bufferMinutes int) ConflictDetector {
	return &conflictDetector{
		bookingRepo:   bookingRepo,
		castingRepo:   castingRepo,
		provider:      provider,
		bufferMinutes: bufferMinutes,
	}
}

func (d *conflictDetector) FindConflicts(ctx context.Context, tx *gorm.DB, talentID uuid.UUID, start, end time.Time) ([]string, error) {
	var conflicts []string

	bookings, err := d.bookingRepo.ListActiveByTalent(ctx, tx, talentID)
	if err != nil {
		return nil, fmt.Errorf("list talent bookings: %w", err)
	}

	for _, b := range bookings {
		if b.Slot == nil {
			continue
		}
		// Half-open windows: an audition ending exactly when the proposed
		// one starts is not a conflict.
		if calendar.Overlaps(start, end, b.Slot.StartTime, b.Slot.EndTime) {
			conflicts = append(conflicts, fmt.Sprintf(
				"existing audition %s (%s–%s)",
				b.ConfirmationCode,
				b.Slot.StartTime.Format(time.RFC3339),
				b.Slot.EndTime.Format(time.RFC3339),
			))
		}
	}

	talent, err := d.castingRepo.FindTalent(ctx, tx, talentID)
	if err != nil {
		// Talent existence is the booking path's concern; here we only
		// lose the external lookup.
		return conflicts, nil
	}

	if talent.CalendarConnected && d.provider != nil {
		busy, err := d.provider.CheckAvailability(ctx, talentID, start, end, d.bufferMinutes)
		if err != nil {
			// Degrade to own-bookings-only rather than failing the check.
			log.Printf("[ConflictDetector] external availability lookup failed for talent %s: %v", talentID, err)
			return conflicts, nil
		}
		for _, c := range busy.ConflictsWith {
			conflicts = append(conflicts, fmt.Sprintf("external calendar: %s", c))
		}
	}

	return conflicts, nil
}
