package database

import (
	"github.com/snapq/snapq-go/internal/database/models"
	"gorm.io/gorm"
)

// Migrate auto-migrates every model owned by this service.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.RequestSnapshot{},
		&models.WorkerStatsRow{},
		&models.Log{},
		&models.Metric{},
	)
}
