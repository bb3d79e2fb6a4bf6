package services

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// SnapClient is the part of the Midtrans Snap API the service needs.
type SnapClient interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
}

func (c *MidtransConfig) Validate() error {
	if c.ServerKey == "" {
		return errors.New("midtrans server key is required")
	}
	return nil
}

// NewSnapClient builds a Snap client for the configured environment.
func NewSnapClient(cfg *MidtransConfig) (SnapClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}
	var client snap.Client
	client.New(cfg.ServerKey, env)
	return &client, nil
}

// Notification is the body Midtrans posts to the payment webhook.
type Notification struct {
	OrderID           string `json:"order_id" binding:"required"`
	StatusCode        string `json:"status_code" binding:"required"`
	GrossAmount       string `json:"gross_amount" binding:"required"`
	SignatureKey      string `json:"signature_key" binding:"required"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

// Signature computes the notification signature Midtrans sends:
// sha512(order_id + status_code + gross_amount + server_key).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(fmt.Sprintf("%s%s%s%s", orderID, statusCode, grossAmount, serverKey)))
	return hex.EncodeToString(sum[:])
}

func validSignature(n Notification, serverKey string) bool {
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) == 1
}

const (
	paymentSuccess = "success"
	paymentPending = "pending"
	paymentFailed  = "failed"
	paymentUnknown = "unknown"
)

// mapTransactionStatus maps a Midtrans transaction status to an outcome.
// A capture flagged by fraud detection is not a success.
func mapTransactionStatus(status, fraud string) string {
	switch status {
	case "settlement":
		return paymentSuccess
	case "capture":
		if fraud == "challenge" || fraud == "deny" {
			return paymentPending
		}
		return paymentSuccess
	case "pending", "authorize":
		return paymentPending
	case "deny", "cancel", "expire", "failure":
		return paymentFailed
	default:
		return paymentUnknown
	}
}
