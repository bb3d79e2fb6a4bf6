package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PaymentToken struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url,omitempty"`
	GrossAmount int64  `json:"gross_amount"`
}

// PaymentService issues Snap tokens for open orders and settles orders
// from Midtrans notifications.
type PaymentService struct {
	db        *gorm.DB
	snap      SnapClient
	serverKey string
	lifecycle *OrderLifecycle
	items     *OrderMenuService
	log       logrus.FieldLogger
}

func NewPaymentService(db *gorm.DB, client SnapClient, serverKey string, lifecycle *OrderLifecycle, items *OrderMenuService, log logrus.FieldLogger) *PaymentService {
	return &PaymentService{
		db:        db,
		snap:      client,
		serverKey: serverKey,
		lifecycle: lifecycle,
		items:     items,
		log:       utils.LoggerOrDefault(log),
	}
}

// RequestToken returns the Snap token of a process order, creating the
// transaction on first use.
func (s *PaymentService) RequestToken(ctx context.Context, orderID uint) (*PaymentToken, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items.Menu").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("order", orderID)
		}
		return nil, classifyDBError(err)
	}
	if order.Status != models.OrderStatusProcess {
		return nil, invalidTransitionError(order.Status, "payment")
	}

	var gross int64
	var details []midtrans.ItemDetails
	for _, item := range order.Items {
		gross += item.Nominal
		name := fmt.Sprintf("menu-%d", item.MenuID)
		if item.Menu != nil {
			name = item.Menu.Name
		}
		details = append(details, midtrans.ItemDetails{
			ID:    fmt.Sprintf("%d", item.ID),
			Name:  name,
			Price: item.Nominal / int64(item.Quantity),
			Qty:   int32(item.Quantity),
		})
	}
	if gross <= 0 {
		return nil, validationError("items", "order has no billable items")
	}

	if order.PaymentToken != nil && *order.PaymentToken != "" {
		return &PaymentToken{OrderID: order.OrderID, Token: *order.PaymentToken, GrossAmount: gross}, nil
	}
	if s.snap == nil {
		return nil, &StateError{Kind: ErrNetwork, Message: "payment gateway is not configured"}
	}

	resp, mErr := s.snap.CreateTransaction(&snap.Request{
		TransactionDetails: midtrans.TransactionDetails{OrderID: order.OrderID, GrossAmt: gross},
		CustomerDetail:     &midtrans.CustomerDetails{FName: order.CustomerName},
		Items:              &details,
	})
	if mErr != nil {
		s.log.WithFields(logrus.Fields{
			"order_id":    order.OrderID,
			"status_code": mErr.StatusCode,
			"message":     mErr.Message,
		}).Error("Midtrans transaction failed")
		return nil, &StateError{Kind: ErrNetwork, Message: "payment gateway rejected the request", Err: mErr}
	}

	if err := s.lifecycle.AttachPaymentToken(ctx, order.ID, resp.Token); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"order_id": order.OrderID, "gross_amount": gross}).Info("Payment token issued")
	return &PaymentToken{OrderID: order.OrderID, Token: resp.Token, RedirectURL: resp.RedirectURL, GrossAmount: gross}, nil
}

// HandleNotification verifies a Midtrans notification and settles the
// order on success. Failed payments leave the order in process so staff
// can retry. Repeated success notifications are accepted.
func (s *PaymentService) HandleNotification(ctx context.Context, n Notification) error {
	if !validSignature(n, s.serverKey) {
		return validationError("signature_key", "invalid notification signature")
	}

	var order models.Order
	if err := s.db.WithContext(ctx).Where("order_id = ?", n.OrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("order", n.OrderID)
		}
		return classifyDBError(err)
	}

	fields := logrus.Fields{
		"order_id":           n.OrderID,
		"transaction_status": n.TransactionStatus,
		"payment_type":       n.PaymentType,
	}

	switch mapTransactionStatus(n.TransactionStatus, n.FraudStatus) {
	case paymentSuccess:
		if order.Status == models.OrderStatusSettled {
			s.log.WithFields(fields).Info("Duplicate settlement notification")
			return nil
		}
		if err := s.checkGrossAmount(ctx, order, n.GrossAmount); err != nil {
			s.log.WithFields(fields).WithField("gross_amount", n.GrossAmount).Error("Paid amount does not match order total")
			return err
		}
		if _, err := s.lifecycle.Settle(ctx, order.ID); err != nil {
			return err
		}
		s.log.WithFields(fields).Info("Order settled by payment")
	case paymentFailed:
		s.log.WithFields(fields).Warn("Payment failed, order stays in process")
	default:
		s.log.WithFields(fields).Info("Payment notification recorded")
	}
	return nil
}

// checkGrossAmount refuses settlement unless the paid amount equals the
// current sum of the order's nominals. Midtrans sends it as "45000.00".
func (s *PaymentService) checkGrossAmount(ctx context.Context, order models.Order, gross string) error {
	paid, err := decimal.NewFromString(gross)
	if err != nil {
		return validationError("gross_amount", "gross amount is not a number")
	}
	total, err := s.items.OrderTotal(ctx, order.ID)
	if err != nil {
		return err
	}
	if !paid.Equal(decimal.NewFromInt(total)) {
		return conflictError(fmt.Sprintf("paid %s but order %s totals %d", paid.StringFixed(0), order.OrderID, total))
	}
	return nil
}
