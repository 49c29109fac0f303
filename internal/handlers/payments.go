package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

type recordPaymentBody struct {
	OrderID           int64           `json:"order_id"`
	ExternalReference string          `json:"external_reference"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
}

type markPaidBody struct {
	PaidAt *time.Time `json:"paid_at"`
}

// RecordPayment handles POST /api/v2/payments
func (h *Handlers) RecordPayment(c *gin.Context) {
	var body recordPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "body", "invalid request body")
		return
	}

	payment, err := h.paymentService.RecordPayment(c.Request.Context(), models.RecordPaymentRequest{
		OrderID:           body.OrderID,
		ExternalReference: strings.TrimSpace(body.ExternalReference),
		Amount:            body.Amount,
		Currency:          body.Currency,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetPayment handles GET /api/v2/payments/:id
func (h *Handlers) GetPayment(c *gin.Context) {
	paymentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// MarkPaymentPaid handles POST /api/v2/payments/:id/paid. The body is
// optional; without paid_at the settlement is stamped with the current time.
func (h *Handlers) MarkPaymentPaid(c *gin.Context) {
	paymentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var body markPaidBody
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "paid_at", "paid_at must be an RFC3339 timestamp")
			return
		}
	}

	payment, err := h.paymentService.MarkPaid(c.Request.Context(), paymentID, body.PaidAt)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// MarkPaymentFailed handles POST /api/v2/payments/:id/failed
func (h *Handlers) MarkPaymentFailed(c *gin.Context) {
	paymentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.MarkFailed(c.Request.Context(), paymentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}
