package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/models"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.AuditionBooking) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.AuditionBooking, error)
	FindByIDWithSlot(ctx context.Context, id uuid.UUID) (*models.AuditionBooking, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	UpdateFieldsIfActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) (bool, error)
	CountWaitlisted(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) (int64, error)
	FindFirstWaitlisted(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) (*models.AuditionBooking, error)
	ListWaitlisted(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) ([]models.AuditionBooking, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID, status *models.BookingStatus) ([]models.AuditionBooking, error)
	ListActiveByTalent(ctx context.Context, tx *gorm.DB, talentID uuid.UUID) ([]models.AuditionBooking, error)
	ListUpcomingByTalent(ctx context.Context, talentID uuid.UUID, after time.Time, limit int) ([]models.AuditionBooking, error)
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.AuditionBooking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.AuditionBooking, error) {
	var booking models.AuditionBooking
	if err := tx.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByIDWithSlot(ctx context.Context, id uuid.UUID) (*models.AuditionBooking, error) {
	var booking models.AuditionBooking
	err := r.db.WithContext(ctx).
		Preload("Slot").
		First(&booking, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	return tx.WithContext(ctx).
		Model(&models.AuditionBooking{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// UpdateFieldsIfActive applies fields only when the booking has not been
// cancelled, reporting whether a row changed. Cancelled is terminal; this is
// the write-side guard that keeps it so under concurrent transitions, the
// same way the counter guards on the slot keep capacity bounded.
func (r *bookingRepository) UpdateFieldsIfActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.AuditionBooking{}).
		Where("id = ? AND status <> ?", id, models.StatusCancelled).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *bookingRepository) CountWaitlisted(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.AuditionBooking{}).
		Where("slot_id = ? AND is_waitlisted = ? AND status <> ?", slotID, true, models.StatusCancelled).
		Count(&count).Error
	return count, err
}

// FindFirstWaitlisted returns the next booking to promote: lowest waitlist
// position wins. Positions are unique per slot, so no further tie-break.
func (r *bookingRepository) FindFirstWaitlisted(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) (*models.AuditionBooking, error) {
	var booking models.AuditionBooking
	err := tx.WithContext(ctx).
		Where("slot_id = ? AND is_waitlisted = ? AND status <> ?", slotID, true, models.StatusCancelled).
		Order("waitlist_position ASC").
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) ListWaitlisted(ctx context.Context, tx *gorm.DB, slotID uuid.UUID) ([]models.AuditionBooking, error) {
	var bookings []models.AuditionBooking
	err := tx.WithContext(ctx).
		Where("slot_id = ? AND is_waitlisted = ? AND status <> ?", slotID, true, models.StatusCancelled).
		Order("waitlist_position ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) ListBySlot(ctx context.Context, slotID uuid.UUID, status *models.BookingStatus) ([]models.AuditionBooking, error) {
	var bookings []models.AuditionBooking
	q := r.db.WithContext(ctx).Where("slot_id = ?", slotID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("created_at ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) ListActiveByTalent(ctx context.Context, tx *gorm.DB, talentID uuid.UUID) ([]models.AuditionBooking, error) {
	var bookings []models.AuditionBooking
	err := tx.WithContext(ctx).
		Preload("Slot").
		Where("talent_id = ? AND status <> ?", talentID, models.StatusCancelled).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) ListUpcomingByTalent(ctx context.Context, talentID uuid.UUID, after time.Time, limit int) ([]models.AuditionBooking, error) {
	var bookings []models.AuditionBooking
	q := r.db.WithContext(ctx).
		Preload("Slot").
		Joins("JOIN audition_slots ON audition_slots.id = audition_bookings.slot_id").
		Where("audition_bookings.talent_id = ? AND audition_bookings.status <> ?", talentID, models.StatusCancelled).
		Where("audition_slots.start_time > ?", after).
		Order("audition_slots.start_time ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}
