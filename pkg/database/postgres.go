package database

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stageright/audition-service/internal/models"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.AutoMigrate(
		&models.Project{},
		&models.Character{},
		&models.Talent{},
		&models.AuditionSlot{},
		&models.AuditionBooking{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Dense positions are unique per slot among active waitlist entries.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_position
		ON audition_bookings (slot_id, waitlist_position)
		WHERE is_waitlisted AND status <> 'cancelled'
	`)

	return db
}
