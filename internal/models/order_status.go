package models

import (
	"fmt"
	"strings"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus accepts any casing and surrounding whitespace.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", errors.NewValidationError("status", fmt.Sprintf("invalid order status: %s", s))
	}
	return status, nil
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is directly reachable from s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionOrderStatus validates a lifecycle step and returns the new status.
// It does not persist anything.
func TransitionOrderStatus(current, requested OrderStatus) (OrderStatus, error) {
	if !current.IsValid() {
		return "", errors.NewValidationError("status", fmt.Sprintf("invalid order status: %s", current))
	}
	if !requested.IsValid() {
		return "", errors.NewValidationError("status", fmt.Sprintf("invalid order status: %s", requested))
	}
	if !current.CanTransitionTo(requested) {
		return "", errors.NewValidationError("status", fmt.Sprintf(
			"cannot transition from %s to %s", current, requested,
		))
	}
	return requested, nil
}
