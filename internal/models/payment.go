package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// Payment settles one order. It references the order but is not owned by it.
type Payment struct {
	ID                int64           `json:"payment_id"`
	OrderID           int64           `json:"order_id"`
	ExternalReference string          `json:"external_reference,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            PaymentStatus   `json:"status"`
	PaymentAt         *time.Time      `json:"payment_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CanBeProcessed holds only for a pending payment with a positive amount.
func (p Payment) CanBeProcessed() bool {
	return p.Status == PaymentStatusPending && p.Amount.IsPositive()
}

// MarkPaid returns p moved to PAID with paidAt as completion time.
func (p Payment) MarkPaid(paidAt time.Time) (Payment, error) {
	return p.settle(PaymentStatusPaid, paidAt)
}

// MarkFailed returns p moved to FAILED, stamped with now.
func (p Payment) MarkFailed(now time.Time) (Payment, error) {
	return p.settle(PaymentStatusFailed, now)
}

func (p Payment) settle(status PaymentStatus, at time.Time) (Payment, error) {
	if !p.CanBeProcessed() {
		return p, errors.NewValidationError("payment_id", fmt.Sprintf(
			"payment %d cannot be processed: status=%s amount=%s",
			p.ID, p.Status, p.Amount.String(),
		))
	}
	at = at.UTC()
	p.Status = status
	p.PaymentAt = &at
	p.UpdatedAt = at
	return p, nil
}

// RecordPaymentRequest registers a pending payment produced by the external
// payment-initiation step.
type RecordPaymentRequest struct {
	OrderID           int64           `json:"order_id"`
	ExternalReference string          `json:"external_reference"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
}
