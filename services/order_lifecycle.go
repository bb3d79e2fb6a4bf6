package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OrderLifecycle owns every order status change and the table status that
// follows from it. Each operation is a single transaction whose decisive
// write is a conditional UPDATE; losing that race is a ConflictError.
type OrderLifecycle struct {
	db       *gorm.DB
	recorder ChangeRecorder
	log      logrus.FieldLogger
}

func NewOrderLifecycle(db *gorm.DB, recorder ChangeRecorder, log logrus.FieldLogger) *OrderLifecycle {
	if recorder == nil {
		recorder = OutboxRecorder{}
	}
	return &OrderLifecycle{db: db, recorder: recorder, log: utils.LoggerOrDefault(log)}
}

func (m *OrderLifecycle) CreateDineInOrder(ctx context.Context, customerName string, tableID uint) (*models.Order, error) {
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		return nil, validationError("customer_name", "customer name is required")
	}
	if tableID == 0 {
		return nil, validationError("table_id", "table is required for dine-in orders")
	}

	var order models.Order
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, tableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationError("table_id", fmt.Sprintf("table %d does not exist", tableID))
			}
			return err
		}
		if table.Status != models.TableStatusAvailable {
			return validationError("table_id", fmt.Sprintf("table %s is not available", table.Name))
		}

		var active int64
		if err := tx.Model(&models.Order{}).
			Where("table_id = ? AND status IN ?", tableID, models.ActiveOrderStatuses).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return conflictError(fmt.Sprintf("table %s is already claimed by another order", table.Name))
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ?", tableID, models.TableStatusAvailable).
			Updates(map[string]interface{}{"status": models.TableStatusReserved, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictError(fmt.Sprintf("table %s was claimed by another order", table.Name))
		}

		order = models.Order{
			OrderID:      models.NewOrderCode(),
			CustomerName: customerName,
			Status:       models.OrderStatusReserved,
			TableID:      &tableID,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		table.Status = models.TableStatusReserved
		order.Table = &table

		if err := m.recorder.Record(tx, "orders", order.ID, models.ChangeInsert); err != nil {
			return err
		}
		return m.recorder.Record(tx, "tables", tableID, models.ChangeUpdate)
	})
	if err != nil {
		return nil, classifyDBError(err)
	}

	m.log.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"table_id": tableID,
	}).Info("Dine-in order reserved")
	return &order, nil
}

// CreateTakeawayOrder starts directly in process: there is no table to reserve.
func (m *OrderLifecycle) CreateTakeawayOrder(ctx context.Context, customerName string) (*models.Order, error) {
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		return nil, validationError("customer_name", "customer name is required")
	}

	order := models.Order{
		OrderID:      models.NewOrderCode(),
		CustomerName: customerName,
		Status:       models.OrderStatusProcess,
	}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return m.recorder.Record(tx, "orders", order.ID, models.ChangeInsert)
	})
	if err != nil {
		return nil, classifyDBError(err)
	}

	m.log.WithField("order_id", order.OrderID).Info("Takeaway order created")
	return &order, nil
}

// Transition confirms (process) or rejects (canceled) a reserved order.
// tableID, when non-zero, must match the order's table.
func (m *OrderLifecycle) Transition(ctx context.Context, orderID, tableID uint, target string) (*models.Order, error) {
	var tableStatus string
	switch target {
	case models.OrderStatusProcess:
		tableStatus = models.TableStatusProcess
	case models.OrderStatusCanceled:
		tableStatus = models.TableStatusAvailable
	default:
		return nil, validationError("status", fmt.Sprintf("status must be %s or %s",
			models.OrderStatusProcess, models.OrderStatusCanceled))
	}

	var order models.Order
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("order", orderID)
			}
			return err
		}
		if tableID != 0 && (order.TableID == nil || *order.TableID != tableID) {
			return validationError("table_id", "table does not match the order")
		}
		if order.Status != models.OrderStatusReserved {
			return invalidTransitionError(order.Status, target)
		}

		if err := m.swapStatus(tx, &order, models.OrderStatusReserved, target); err != nil {
			return err
		}
		return m.setTableStatus(tx, order.TableID, tableStatus)
	})
	if err != nil {
		return nil, classifyDBError(err)
	}

	m.log.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"status":   target,
	}).Info("Order transitioned")
	return &order, nil
}

// Cancel moves any non-terminal order to canceled and frees its table.
func (m *OrderLifecycle) Cancel(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("order", orderID)
			}
			return err
		}
		if order.IsTerminal() {
			return invalidTransitionError(order.Status, models.OrderStatusCanceled)
		}

		if err := m.swapStatus(tx, &order, order.Status, models.OrderStatusCanceled); err != nil {
			return err
		}
		return m.setTableStatus(tx, order.TableID, models.TableStatusAvailable)
	})
	if err != nil {
		return nil, classifyDBError(err)
	}

	m.log.WithField("order_id", order.OrderID).Info("Order canceled")
	return &order, nil
}

// Settle closes a process order after payment and frees its table.
func (m *OrderLifecycle) Settle(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("order", orderID)
			}
			return err
		}
		if order.Status != models.OrderStatusProcess {
			return invalidTransitionError(order.Status, models.OrderStatusSettled)
		}

		if err := m.swapStatus(tx, &order, models.OrderStatusProcess, models.OrderStatusSettled); err != nil {
			return err
		}
		return m.setTableStatus(tx, order.TableID, models.TableStatusAvailable)
	})
	if err != nil {
		return nil, classifyDBError(err)
	}

	m.log.WithField("order_id", order.OrderID).Info("Order settled")
	return &order, nil
}

// AttachPaymentToken stores the payment gateway token of a process order.
func (m *OrderLifecycle) AttachPaymentToken(ctx context.Context, orderID uint, token string) error {
	if strings.TrimSpace(token) == "" {
		return validationError("payment_token", "payment token is required")
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusProcess).
			Updates(map[string]interface{}{"payment_token": token, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var order models.Order
			if err := tx.First(&order, orderID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFoundError("order", orderID)
				}
				return err
			}
			return invalidTransitionError(order.Status, "payment")
		}
		return m.recorder.Record(tx, "orders", orderID, models.ChangeUpdate)
	})
	return classifyDBError(err)
}

// swapStatus is the authoritative write: it only succeeds when the row is
// still in the status the caller read.
func (m *OrderLifecycle) swapStatus(tx *gorm.DB, order *models.Order, from, to string) error {
	now := time.Now()
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictError(fmt.Sprintf("order %s was changed by someone else", order.OrderID))
	}
	order.Status = to
	order.UpdatedAt = now
	return m.recorder.Record(tx, "orders", order.ID, models.ChangeUpdate)
}

// setTableStatus writes the table status unconditionally so a drifted table
// is repaired by the next transition of its order.
func (m *OrderLifecycle) setTableStatus(tx *gorm.DB, tableID *uint, status string) error {
	if tableID == nil {
		return nil
	}
	if err := tx.Model(&models.Table{}).
		Where("id = ?", *tableID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error; err != nil {
		return err
	}
	return m.recorder.Record(tx, "tables", *tableID, models.ChangeUpdate)
}
