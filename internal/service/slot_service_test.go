package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/repository"
)

func newSlotService(db *gorm.DB, provider calendar.Provider) SlotService {
	return NewSlotService(repository.NewSlotRepository(db), repository.NewCastingRepository(db), provider, 52)
}

func baseSpec(project *models.Project) CreateSlotSpec {
	return CreateSlotSpec{
		ProjectID:       project.ID,
		CreatedBy:       project.CreatedBy,
		StartTime:       time.Date(2026, 10, 5, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		LocationType:    models.LocationPhysical,
		MaxParticipants: 3,
	}
}

func TestCreateSlots_OneOff(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	svc := newSlotService(db, &mockProvider{})

	ids, err := svc.CreateSlots(context.Background(), baseSpec(project))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	var slot models.AuditionSlot
	require.NoError(t, db.First(&slot, "id = ?", ids[0]).Error)
	assert.Nil(t, slot.RecurrenceID)
	assert.Equal(t, 3, slot.MaxParticipants)
	assert.Equal(t, 0, slot.BookedCount)
	assert.True(t, slot.IsAvailable)
	assert.Equal(t, slot.StartTime.Add(30*time.Minute), slot.EndTime)
}

func TestCreateSlots_RejectsZeroCapacity(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	svc := newSlotService(db, &mockProvider{})

	spec := baseSpec(project)
	spec.MaxParticipants = 0

	_, err := svc.CreateSlots(context.Background(), spec)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestCreateSlots_UnknownProject(t *testing.T) {
	db := newTestDB(t)
	project := &models.Project{ID: newUUID(t), CreatedBy: newUUID(t)}
	svc := newSlotService(db, &mockProvider{})

	_, err := svc.CreateSlots(context.Background(), baseSpec(project))
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestCreateSlots_CharacterFromOtherProject(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	other := createTestProject(t, db)
	stranger := createTestCharacter(t, db, other.ID)
	svc := newSlotService(db, &mockProvider{})

	spec := baseSpec(project)
	spec.CharacterID = &stranger.ID

	_, err := svc.CreateSlots(context.Background(), spec)
	assert.ErrorIs(t, err, ErrCharacterMismatch)
}

func TestCreateSlots_WeeklyRecurrenceSharesGroupID(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	svc := newSlotService(db, &mockProvider{})

	spec := baseSpec(project)
	spec.IsRecurring = true
	spec.Recurrence = &calendar.RecurrenceRule{Frequency: calendar.FreqWeekly, Interval: 1}
	spec.RecurrenceUntil = spec.StartTime.AddDate(0, 0, 15) // covers 3 weekly hits

	ids, err := svc.CreateSlots(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	var slots []models.AuditionSlot
	require.NoError(t, db.Where("id IN ?", ids).Order("start_time ASC").Find(&slots).Error)
	require.Len(t, slots, 3)

	// The first slot anchors the group, itself included.
	for i, slot := range slots {
		require.NotNil(t, slot.RecurrenceID)
		assert.Equal(t, ids[0], *slot.RecurrenceID)
		assert.Equal(t, 30, slot.DurationMinutes)
		assert.Equal(t, 3, slot.MaxParticipants)
		assert.True(t, slot.StartTime.Equal(spec.StartTime.AddDate(0, 0, 7*i)))
		assert.NotEmpty(t, slot.RecurrenceRule)
	}
}

func TestCreateSlots_MeetingLinkFailureDoesNotAbort(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	svc := newSlotService(db, &mockProvider{linkErr: errors.New("provider down")})

	spec := baseSpec(project)
	spec.LocationType = models.LocationVirtual
	spec.CreateMeetingLink = true

	ids, err := svc.CreateSlots(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	var slot models.AuditionSlot
	require.NoError(t, db.First(&slot, "id = ?", ids[0]).Error)
	assert.Empty(t, slot.MeetingLink)
}

func TestCreateSlots_MeetingLinkAttached(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	svc := newSlotService(db, &mockProvider{link: "https://meet.example/abc"})

	spec := baseSpec(project)
	spec.LocationType = models.LocationHybrid
	spec.CreateMeetingLink = true

	ids, err := svc.CreateSlots(context.Background(), spec)
	require.NoError(t, err)

	var slot models.AuditionSlot
	require.NoError(t, db.First(&slot, "id = ?", ids[0]).Error)
	assert.Equal(t, "https://meet.example/abc", slot.MeetingLink)
}

func TestDeactivateSlot(t *testing.T) {
	db := newTestDB(t)
	project := createTestProject(t, db)
	slot := createTestSlot(t, db, project.ID, time.Now().Add(24*time.Hour), 3)
	svc := newSlotService(db, &mockProvider{})

	require.NoError(t, svc.DeactivateSlot(context.Background(), slot.ID))

	var dbSlot models.AuditionSlot
	require.NoError(t, db.First(&dbSlot, "id = ?", slot.ID).Error)
	assert.False(t, dbSlot.IsActive)
	assert.False(t, dbSlot.IsAvailable)

	assert.ErrorIs(t, svc.DeactivateSlot(context.Background(), newUUID(t)), ErrSlotNotFound)
}
