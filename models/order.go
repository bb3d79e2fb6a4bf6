package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OrderStatusReserved = "reserved"
	OrderStatusProcess  = "process"
	OrderStatusSettled  = "settled"
	OrderStatusCanceled = "canceled"
)

// ActiveOrderStatuses are the non-terminal statuses. At most one order in
// one of these statuses may reference a given table.
var ActiveOrderStatuses = []string{OrderStatusReserved, OrderStatusProcess}

type Order struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	OrderID      string      `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_id"`
	CustomerName string      `gorm:"type:varchar(255);not null" json:"customer_name"`
	Status       string      `gorm:"type:varchar(20);not null;default:'reserved';index" json:"status"`
	TableID      *uint       `gorm:"index" json:"table_id"`
	Table        *Table      `gorm:"foreignKey:TableID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"tables,omitempty"`
	PaymentToken *string     `gorm:"type:varchar(255)" json:"payment_token"`
	Items        []OrderMenu `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt    time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updated_at"`
}

// IsTakeaway reports whether the order has no table binding.
func (o *Order) IsTakeaway() bool {
	return o.TableID == nil
}

// IsTerminal reports whether no further transition is possible.
func (o *Order) IsTerminal() bool {
	return IsTerminalOrderStatus(o.Status)
}

func IsTerminalOrderStatus(status string) bool {
	return status == OrderStatusSettled || status == OrderStatusCanceled
}

// NewOrderCode returns a human-facing order code such as CAFEIN-1A2B3C4D.
func NewOrderCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CAFEIN-" + strings.ToUpper(raw[:8])
}
