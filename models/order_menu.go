package models

import "time"

const (
	OrderMenuStatusPending = "pending"
	OrderMenuStatusReady   = "ready"
	OrderMenuStatusServed  = "served"
)

// OrderMenu is a line item of an order. Nominal is the billed amount in
// rupiah after discount.
type OrderMenu struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	MenuID    uint      `gorm:"not null" json:"menu_id"`
	Menu      *Menu     `gorm:"foreignKey:MenuID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menus,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Nominal   int64     `gorm:"not null" json:"nominal"`
	Status    string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (OrderMenu) TableName() string {
	return "orders_menus"
}
