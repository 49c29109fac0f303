package service

import (
	"context"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/repository"
)

// PaymentService handles payment-related business logic.
type PaymentService struct {
	paymentRepo    repository.PaymentRepository
	orderRepo      repository.OrderRepository
	eventPublisher PaymentEventPublisher
	metrics        *metrics.Metrics
	config         *config.Config
	logger         *logging.LoggerV2
	now            func() time.Time
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	eventPublisher PaymentEventPublisher,
	m *metrics.Metrics,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		orderRepo:      orderRepo,
		eventPublisher: eventPublisher,
		metrics:        m,
		config:         cfg,
		logger:         logging.NewLoggerV2("payment-service"),
		now:            time.Now,
	}
}

// RecordPayment stores a pending payment for an existing order. An order
// takes a single payment; a second one fails with a conflict error.
func (s *PaymentService) RecordPayment(ctx context.Context, req models.RecordPaymentRequest) (*models.Payment, error) {
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := ValidateRecordPaymentRequest(req); err != nil {
		return nil, err
	}

	s.logger.Info("Recording payment", logging.Fields{
		"order_id": req.OrderID,
		"amount":   req.Amount.String(),
		"currency": req.Currency,
	})

	order, err := s.orderRepo.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.NewNotFoundError("order", req.OrderID)
	}

	return s.paymentRepo.CreatePayment(ctx, models.Payment{
		OrderID:           req.OrderID,
		ExternalReference: req.ExternalReference,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Status:            models.PaymentStatusPending,
	})
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	s.logger.Debug("Getting payment", logging.Fields{"payment_id": paymentID})

	payment, err := s.paymentRepo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, errors.NewNotFoundError("payment", paymentID)
	}
	return payment, nil
}

// MarkPaid settles a pending payment as PAID. A nil paidAt means now.
func (s *PaymentService) MarkPaid(ctx context.Context, paymentID int64, paidAt *time.Time) (*models.Payment, error) {
	at := s.now()
	if paidAt != nil {
		at = *paidAt
	}
	return s.settle(ctx, paymentID, func(p models.Payment) (models.Payment, error) {
		return p.MarkPaid(at)
	})
}

// MarkFailed settles a pending payment as FAILED, stamped with the current time.
func (s *PaymentService) MarkFailed(ctx context.Context, paymentID int64) (*models.Payment, error) {
	now := s.now()
	return s.settle(ctx, paymentID, func(p models.Payment) (models.Payment, error) {
		return p.MarkFailed(now)
	})
}

func (s *PaymentService) settle(ctx context.Context, paymentID int64, transition func(models.Payment) (models.Payment, error)) (*models.Payment, error) {
	current, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	next, err := transition(*current)
	if err != nil {
		s.logger.Warn("Payment transition rejected", logging.Fields{
			"payment_id": paymentID,
			"status":     current.Status,
			"error":      err.Error(),
		})
		return nil, err
	}

	updated, err := s.paymentRepo.UpdatePayment(ctx, next)
	if err != nil {
		s.logger.Error("Failed to update payment", logging.Fields{
			"payment_id": paymentID,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.metrics.PaymentTransition(string(updated.Status))
	s.logger.Info("Payment settled", logging.Fields{
		"payment_id": updated.ID,
		"order_id":   updated.OrderID,
		"status":     updated.Status,
	})

	if s.eventPublisher != nil && s.config.Features.EnableOrderEvents {
		if err := s.eventPublisher.PublishPaymentStatusChanged(ctx, updated, current.Status); err != nil {
			s.logger.Error("Failed to publish payment status event", logging.Fields{
				"payment_id": updated.ID,
				"error":      err.Error(),
			})
		}
	}

	return updated, nil
}
