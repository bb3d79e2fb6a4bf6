package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type OrderItemInput struct {
	MenuID   uint   `json:"menu_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

// OrderMenuService adds line items to open orders.
type OrderMenuService struct {
	db       *gorm.DB
	recorder ChangeRecorder
	log      logrus.FieldLogger
}

func NewOrderMenuService(db *gorm.DB, recorder ChangeRecorder, log logrus.FieldLogger) *OrderMenuService {
	if recorder == nil {
		recorder = OutboxRecorder{}
	}
	return &OrderMenuService{db: db, recorder: recorder, log: utils.LoggerOrDefault(log)}
}

// AddItems prices each item at the menu's discounted price and stores it.
// Orders with an issued payment token are closed to new items.
func (s *OrderMenuService) AddItems(ctx context.Context, orderID uint, items []OrderItemInput) ([]models.OrderMenu, error) {
	if len(items) == 0 {
		return nil, validationError("items", "at least one item is required")
	}
	for i, item := range items {
		if item.MenuID == 0 {
			return nil, validationError("items", fmt.Sprintf("item %d: menu is required", i+1))
		}
		if item.Quantity <= 0 {
			return nil, validationError("items", fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
	}

	var created []models.OrderMenu
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("order", orderID)
			}
			return err
		}
		if order.IsTerminal() {
			return invalidTransitionError(order.Status, "add items")
		}

		// Writing the order row fires the orders notify trigger under
		// pg_notify, and closes the order to new items once a payment token
		// exists.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ? AND (payment_token IS NULL OR payment_token = '')", order.ID, models.ActiveOrderStatuses).
			Update("updated_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.First(&order, orderID).Error; err != nil {
				return err
			}
			if order.IsTerminal() {
				return invalidTransitionError(order.Status, "add items")
			}
			// MySQL reports changed rows, not matched ones, so an unchanged
			// updated_at also lands here.
			if order.PaymentToken != nil && *order.PaymentToken != "" {
				return conflictError("order has a pending payment, items can no longer be added")
			}
		}

		for i, item := range items {
			var menu models.Menu
			if err := tx.First(&menu, item.MenuID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return validationError("items", fmt.Sprintf("item %d: menu %d does not exist", i+1, item.MenuID))
				}
				return err
			}
			if !menu.IsAvailable {
				return validationError("items", fmt.Sprintf("item %d: %s is not available", i+1, menu.Name))
			}

			line := models.OrderMenu{
				OrderID:  order.ID,
				MenuID:   menu.ID,
				Quantity: item.Quantity,
				Notes:    item.Notes,
				Nominal:  menu.UnitPrice() * int64(item.Quantity),
				Status:   models.OrderMenuStatusPending,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			line.Menu = &menu
			created = append(created, line)
		}
		return s.recorder.Record(tx, "orders", order.ID, models.ChangeUpdate)
	})
	if err != nil {
		return nil, classifyDBError(err)
	}

	s.log.WithFields(logrus.Fields{"order": orderID, "items": len(created)}).Info("Order items added")
	return created, nil
}

// OrderTotal sums the nominal of every line of an order.
func (s *OrderMenuService) OrderTotal(ctx context.Context, orderID uint) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.OrderMenu{}).
		Select("COALESCE(SUM(nominal), 0)").
		Where("order_id = ?", orderID).
		Scan(&total).Error
	return total, classifyDBError(err)
}
