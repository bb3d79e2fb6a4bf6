package database

import (
	"fmt"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.Menu{},
		&models.Order{},
		&models.OrderMenu{},
		&models.DBChange{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Info("Database migrated")
	return nil
}
