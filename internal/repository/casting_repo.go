package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/models"
)

// CastingRepository reads marketplace entities the engine validates against.
// Methods take the caller's tx so existence checks made inside a capacity
// transaction run on that transaction's connection.
type CastingRepository interface {
	FindProject(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Project, error)
	FindCharacter(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Character, error)
	FindTalent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Talent, error)
	GetDB() *gorm.DB
}

type castingRepository struct {
	db *gorm.DB
}

func NewCastingRepository(db *gorm.DB) CastingRepository {
	return &castingRepository{db: db}
}

func (r *castingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *castingRepository) FindProject(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := tx.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *castingRepository) FindCharacter(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Character, error) {
	var character models.Character
	if err := tx.WithContext(ctx).First(&character, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &character, nil
}

func (r *castingRepository) FindTalent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Talent, error) {
	var talent models.Talent
	if err := tx.WithContext(ctx).First(&talent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &talent, nil
}
