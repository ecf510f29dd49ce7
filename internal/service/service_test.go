package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/queue"
	"github.com/stageright/audition-service/internal/repository"
)

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// One connection, or every pooled conn gets its own :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Project{},
		&models.Character{},
		&models.Talent{},
		&models.AuditionSlot{},
		&models.AuditionBooking{},
	))
	return db
}

func createTestProject(t *testing.T, db *gorm.DB) *models.Project {
	t.Helper()
	project := &models.Project{ID: uuid.New(), Title: "Midnight Harbor", CreatedBy: uuid.New()}
	require.NoError(t, db.Create(project).Error)
	return project
}

func createTestCharacter(t *testing.T, db *gorm.DB, projectID uuid.UUID) *models.Character {
	t.Helper()
	character := &models.Character{ID: uuid.New(), ProjectID: projectID, Name: "Detective Vale"}
	require.NoError(t, db.Create(character).Error)
	return character
}

func createTestTalent(t *testing.T, db *gorm.DB, name string) *models.Talent {
	t.Helper()
	talent := &models.Talent{ID: uuid.New(), Name: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(talent).Error)
	return talent
}

func createTestSlot(t *testing.T, db *gorm.DB, projectID uuid.UUID, start time.Time, maxParticipants int) *models.AuditionSlot {
	t.Helper()
	slot := &models.AuditionSlot{
		ID:              uuid.New(),
		ProjectID:       projectID,
		CreatedBy:       uuid.New(),
		StartTime:       start,
		EndTime:         start.Add(30 * time.Minute),
		DurationMinutes: 30,
		TimeZone:        "UTC",
		LocationType:    models.LocationPhysical,
		MaxParticipants: maxParticipants,
		IsAvailable:     true,
		IsActive:        true,
	}
	require.NoError(t, db.Create(slot).Error)
	return slot
}

// --- Collaborator mocks ---

type mockNotifier struct {
	confirmations []uuid.UUID
	reminders     []string
	reschedules   []uuid.UUID
	cancellations []uuid.UUID
	waitlists     []uuid.UUID
	promotions    []uuid.UUID
	err           error
}

func (m *mockNotifier) SendConfirmation(ctx context.Context, b *models.AuditionBooking) error {
	m.confirmations = append(m.confirmations, b.ID)
	return m.err
}

func (m *mockNotifier) SendReminder(ctx context.Context, b *models.AuditionBooking, offsetLabel string) error {
	m.reminders = append(m.reminders, offsetLabel)
	return m.err
}

func (m *mockNotifier) SendRescheduleNotice(ctx context.Context, b *models.AuditionBooking, oldSlotID uuid.UUID) error {
	m.reschedules = append(m.reschedules, b.ID)
	return m.err
}

func (m *mockNotifier) SendCancellationNotice(ctx context.Context, b *models.AuditionBooking) error {
	m.cancellations = append(m.cancellations, b.ID)
	return m.err
}

func (m *mockNotifier) SendWaitlistNotice(ctx context.Context, b *models.AuditionBooking) error {
	m.waitlists = append(m.waitlists, b.ID)
	return m.err
}

func (m *mockNotifier) SendWaitlistPromotion(ctx context.Context, b *models.AuditionBooking) error {
	m.promotions = append(m.promotions, b.ID)
	return m.err
}

type enqueuedJob struct {
	jobType string
	payload any
	opts    queue.Options
}

type mockQueue struct {
	jobs []enqueuedJob
	err  error
}

func (m *mockQueue) Enqueue(ctx context.Context, jobType string, payload any, opts queue.Options) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, enqueuedJob{jobType: jobType, payload: payload, opts: opts})
	return nil
}

type mockProvider struct {
	link    string
	linkErr error
	busy    calendar.BusyCheck
	busyErr error
}

func (m *mockProvider) CreateMeetingLink(ctx context.Context, ownerID uuid.UUID, req calendar.MeetingRequest) (string, error) {
	return m.link, m.linkErr
}

func (m *mockProvider) CheckAvailability(ctx context.Context, userID uuid.UUID, start, end time.Time, bufferMinutes int) (calendar.BusyCheck, error) {
	return m.busy, m.busyErr
}

// newTestEngine wires a full BookingService over the given sqlite DB with
// recording collaborators.
func newTestEngine(t *testing.T, db *gorm.DB) (BookingService, *mockNotifier, *mockQueue) {
	t.Helper()
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	castingRepo := repository.NewCastingRepository(db)

	notifier := &mockNotifier{}
	tasks := &mockQueue{}

	conflicts := NewConflictDetector(bookingRepo, castingRepo, &mockProvider{}, 15)
	waitlist := NewWaitlistService(bookingRepo, slotRepo)
	reminders := NewReminderScheduler(bookingRepo, notifier, tasks, nil)
	svc := NewBookingService(bookingRepo, slotRepo, castingRepo, waitlist, conflicts, reminders, notifier, tasks)
	return svc, notifier, tasks
}
