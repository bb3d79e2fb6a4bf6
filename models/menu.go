package models

import "time"

const (
	MenuCategoryBeverage = "beverage"
	MenuCategoryMains    = "mains"
	MenuCategoryDessert  = "dessert"
)

type Menu struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Price       int64     `gorm:"not null" json:"price"`
	Discount    int       `gorm:"not null;default:0" json:"discount"`
	Category    string    `gorm:"type:varchar(20);not null;index" json:"category"`
	ImageURL    string    `gorm:"type:varchar(255)" json:"image_url"`
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// UnitPrice is the price after the percentage discount.
func (m *Menu) UnitPrice() int64 {
	if m.Discount <= 0 {
		return m.Price
	}
	return m.Price - m.Price*int64(m.Discount)/100
}
