package models

import (
	"time"
)

const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// DBChange is an outbox row written in the same transaction as the change it
// describes. The change monitor publishes and marks it processed.
type DBChange struct {
	ID         uint      `gorm:"primaryKey"`
	SchemaName string    `gorm:"type:varchar(50);not null;default:'public'"`
	TableName  string    `gorm:"type:varchar(50);not null;index:idx_table_action"`
	RecordID   int64     `gorm:"not null"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_table_action"`
	ChangedAt  time.Time `gorm:"not null"`
	Processed  bool      `gorm:"default:false;index:idx_processed"`
}
