package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

// OrderEventPublisher announces order lifecycle changes.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previousStatus models.OrderStatus) error
}

// PaymentEventPublisher announces payment settlements.
type PaymentEventPublisher interface {
	PublishPaymentStatusChanged(ctx context.Context, payment *models.Payment, previousStatus models.PaymentStatus) error
}
