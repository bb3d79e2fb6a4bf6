package models

import "time"

// Table statuses. A table only leaves "available" as a side effect of an
// order transition.
const (
	TableStatusAvailable = "available"
	TableStatusReserved  = "reserved"
	TableStatusProcess   = "process"
)

type Table struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(50);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Capacity    int       `gorm:"not null;default:0" json:"capacity"`
	Status      string    `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
