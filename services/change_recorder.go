package services

import (
	"time"

	"github.com/cafein/cafein-backend/models"
	"gorm.io/gorm"
)

// ChangeRecorder appends change records inside the caller's transaction.
type ChangeRecorder interface {
	Record(tx *gorm.DB, table string, recordID uint, action string) error
}

// OutboxRecorder writes db_changes rows for ChangeMonitor to publish.
type OutboxRecorder struct{}

func (OutboxRecorder) Record(tx *gorm.DB, table string, recordID uint, action string) error {
	return tx.Create(&models.DBChange{
		SchemaName: "public",
		TableName:  table,
		RecordID:   int64(recordID),
		ActionType: action,
		ChangedAt:  time.Now(),
	}).Error
}

// NopRecorder is used when database triggers emit the changes themselves.
type NopRecorder struct{}

func (NopRecorder) Record(*gorm.DB, string, uint, string) error { return nil }
