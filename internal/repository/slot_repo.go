package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stageright/audition-service/internal/models"
)

// ErrNoCapacity is returned by IncrementBooked when the guarded update finds
// the slot already at max_participants.
var ErrNoCapacity = errors.New("slot has no free capacity")

// ErrCounterUnderflow is returned by DecrementBooked when booked_count is
// already zero; it indicates a broken capacity invariant upstream.
var ErrCounterUnderflow = errors.New("slot booked_count is already zero")

type SlotRepository interface {
	CreateBatch(ctx context.Context, slots []*models.AuditionSlot) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AuditionSlot, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.AuditionSlot, error)
	IncrementBooked(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DecrementBooked(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	SetMeetingLink(ctx context.Context, id uuid.UUID, link string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.AuditionSlot, error)
	GetDB() *gorm.DB
}

type slotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *slotRepository) CreateBatch(ctx context.Context, slots []*models.AuditionSlot) error {
	return r.db.WithContext(ctx).Create(slots).Error
}

func (r *slotRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.AuditionSlot, error) {
	var slot models.AuditionSlot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindByIDForUpdate acquires a row-level lock on the slot within the given
// transaction, serializing concurrent capacity decisions. sqlite (tests) has
// no row locks and a single writer, so the clause is skipped there.
func (r *slotRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.AuditionSlot, error) {
	q := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var slot models.AuditionSlot
	if err := q.First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

// IncrementBooked bumps booked_count and re-derives is_available in one
// guarded update. The WHERE guard keeps booked_count <= max_participants
// even if the caller's lock was lost.
func (r *slotRepository) IncrementBooked(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	res := tx.WithContext(ctx).
		Model(&models.AuditionSlot{}).
		Where("id = ? AND booked_count < max_participants", id).
		Updates(map[string]any{
			"booked_count": gorm.Expr("booked_count + 1"),
			"is_available": gorm.Expr("booked_count + 1 < max_participants AND is_active"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoCapacity
	}
	return nil
}

// DecrementBooked frees one spot and re-derives is_available, guarded
// against underflow.
func (r *slotRepository) DecrementBooked(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	res := tx.WithContext(ctx).
		Model(&models.AuditionSlot{}).
		Where("id = ? AND booked_count > 0", id).
		Updates(map[string]any{
			"booked_count": gorm.Expr("booked_count - 1"),
			"is_available": gorm.Expr("booked_count - 1 < max_participants AND is_active"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCounterUnderflow
	}
	return nil
}

func (r *slotRepository) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) error {
	return r.db.WithContext(ctx).
		Model(&models.AuditionSlot{}).
		Where("id = ?", id).
		Update("meeting_link", link).Error
}

func (r *slotRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.AuditionSlot{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":    active,
			"is_available": gorm.Expr("booked_count < max_participants AND ?", active),
		}).Error
}

func (r *slotRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.AuditionSlot, error) {
	var slots []models.AuditionSlot
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}
