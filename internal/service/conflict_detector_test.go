package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/repository"
)

func newDetector(db *gorm.DB, provider calendar.Provider) ConflictDetector {
	return NewConflictDetector(repository.NewBookingRepository(db), repository.NewCastingRepository(db), provider, 15)
}

func bookTalentOn(t *testing.T, db *gorm.DB, talentID, slotID uuid.UUID, status models.BookingStatus) {
	t.Helper()
	b := &models.AuditionBooking{
		ID:               uuid.New(),
		ConfirmationCode: uuid.NewString()[:8],
		SlotID:           slotID,
		TalentID:         talentID,
		Status:           status,
	}
	require.NoError(t, db.Create(b).Error)
}

func TestFindConflicts_DetectsOverlap(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	talent := createTestTalent(t, db, "ada")
	start := time.Date(2026, 10, 5, 14, 0, 0, 0, time.UTC)
	slot := createTestSlot(t, db, project.ID, start, 1) // 14:00–14:30
	bookTalentOn(t, db, talent.ID, slot.ID, models.StatusConfirmed)
	d := newDetector(db, calendar.NoopProvider{})

	conflicts, err := d.FindConflicts(context.Background(), db, talent.ID, start.Add(15*time.Minute), start.Add(45*time.Minute))
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func TestFindConflicts_TouchingWindowsDoNotConflict(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	talent := createTestTalent(t, db, "ada")
	start := time.Date(2026, 10, 5, 14, 0, 0, 0, time.UTC)
	slot := createTestSlot(t, db, project.ID, start, 1) // ends 14:30
	bookTalentOn(t, db, talent.ID, slot.ID, models.StatusConfirmed)
	d := newDetector(db, calendar.NoopProvider{})

	// Starts exactly when the existing one ends: half-open windows.
	conflicts, err := d.FindConflicts(context.Background(), db, talent.ID, start.Add(30*time.Minute), start.Add(60*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// Ends exactly when the existing one starts.
	conflicts, err = d.FindConflicts(context.Background(), db, talent.ID, start.Add(-30*time.Minute), start)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestFindConflicts_IgnoresCancelledBookings(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	talent := createTestTalent(t, db, "ada")
	start := time.Date(2026, 10, 5, 14, 0, 0, 0, time.UTC)
	slot := createTestSlot(t, db, project.ID, start, 1)
	bookTalentOn(t, db, talent.ID, slot.ID, models.StatusCancelled)
	d := newDetector(db, calendar.NoopProvider{})

	conflicts, err := d.FindConflicts(context.Background(), db, talent.ID, start, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestFindConflicts_ExternalCalendarRequiresIntegration(t *testing.T) {
	db := newTestDB(t)
	createTestProject(t, db)
	talent := createTestTalent(t, db, "ada")
	provider := &mockProvider{busy: calendar.BusyCheck{ConflictsWith: []string{"Costume fitting"}}}
	d := newDetector(db, provider)

	start := time.Date(2026, 10, 5, 14, 0, 0, 0, time.UTC)

	// No integration: external busy times are invisible.
	conflicts, err := d.FindConflicts(context.Background(), db, talent.ID, start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	require.NoError(t, db.Model(&models.Talent{}).Where("id = ?", talent.ID).Update("calendar_connected", true).Error)

	conflicts, err = d.FindConflicts(context.Background(), db, talent.ID, start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts[0], "Costume fitting")
}

func TestFindConflicts_ProviderFailureDegrades(t *testing.T) {
	db := newTestDB(t)
	createTestProject(t, db)
	talent := createTestTalent(t, db, "ada")
	require.NoError(t, db.Model(&models.Talent{}).Where("id = ?", talent.ID).Update("calendar_connected", true).Error)
	d := newDetector(db, &mockProvider{busyErr: errors.New("provider down")})

	start := time.Date(2026, 10, 5, 14, 0, 0, 0, time.UTC)
	conflicts, err := d.FindConflicts(context.Background(), db, talent.ID, start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}
