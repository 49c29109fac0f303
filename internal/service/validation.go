package service

import (
	"strings"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

// NormalizeOrderListFilter validates a list filter and fills in defaults.
// The page, page size and date range checks run in that order and stop at
// the first failure. The caller's filter is never modified.
func NormalizeOrderListFilter(filter models.OrderListFilter) (models.OrderQuery, error) {
	q := models.OrderQuery{
		UserID:    filter.UserID,
		Page:      models.DefaultPage,
		PageSize:  models.DefaultPageSize,
		SortOrder: models.SortDesc,
	}

	if filter.Page != nil {
		if *filter.Page < 1 {
			return models.OrderQuery{}, errors.NewValidationError("page", "Page must be greater than 0")
		}
		q.Page = *filter.Page
	}

	if filter.PageSize != nil {
		if *filter.PageSize < 1 || *filter.PageSize > models.MaxPageSize {
			return models.OrderQuery{}, errors.NewValidationError("page_size", "Page size must be between 1 and 100")
		}
		q.PageSize = *filter.PageSize
	}

	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return models.OrderQuery{}, errors.NewValidationError("start_date", "Start date cannot be after end date")
	}
	if filter.StartDate != nil {
		start := *filter.StartDate
		q.StartDate = &start
	}
	if filter.EndDate != nil {
		end := *filter.EndDate
		q.EndDate = &end
	}

	if filter.UserID <= 0 {
		return models.OrderQuery{}, errors.NewValidationError("user_id", "user ID is required")
	}

	if filter.SortOrder != nil {
		switch models.SortOrder(strings.ToLower(strings.TrimSpace(*filter.SortOrder))) {
		case models.SortAsc:
			q.SortOrder = models.SortAsc
		case models.SortDesc:
			q.SortOrder = models.SortDesc
		default:
			return models.OrderQuery{}, errors.NewValidationError("sort_order", "sort order must be asc or desc")
		}
	}

	if filter.Status != nil {
		status, err := models.ParseOrderStatus(*filter.Status)
		if err != nil {
			return models.OrderQuery{}, err
		}
		q.Status = &status
	}

	return q, nil
}

// ValidateCartQuantity rejects non-positive cart quantities.
func ValidateCartQuantity(quantity int) error {
	if quantity <= 0 {
		return errors.NewValidationError("quantity", "quantity must be greater than 0")
	}
	return nil
}

// ValidateCreateFromCartRequest validates a cart conversion request.
func ValidateCreateFromCartRequest(req models.CreateOrderFromCartRequest) error {
	if req.UserID <= 0 {
		return errors.NewValidationError("user_id", "user ID is required")
	}

	if strings.TrimSpace(req.ShippingAddress) == "" {
		return errors.NewValidationError("shipping_address", "shipping address is required")
	}

	return nil
}

// ValidateRecordPaymentRequest validates a request to record a pending payment.
func ValidateRecordPaymentRequest(req models.RecordPaymentRequest) error {
	if req.OrderID <= 0 {
		return errors.NewValidationError("order_id", "order ID is required")
	}

	if !req.Amount.IsPositive() {
		return errors.NewValidationError("amount", "amount must be positive")
	}

	if len(req.Currency) != 3 {
		return errors.NewValidationError("currency", "currency must be a 3-letter ISO code")
	}
	for _, r := range req.Currency {
		if r < 'A' || r > 'Z' {
			return errors.NewValidationError("currency", "currency must be a 3-letter ISO code")
		}
	}

	if len(req.ExternalReference) > 255 {
		return errors.NewValidationError("external_reference", "external reference too long (max 255 characters)")
	}

	return nil
}
