package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestNormalizeOrderListFilter_Defaults(t *testing.T) {
	q, err := NormalizeOrderListFilter(models.OrderListFilter{UserID: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.PageSize)
	assert.Equal(t, models.SortDesc, q.SortOrder)
	assert.Nil(t, q.Status)
}

func TestNormalizeOrderListFilter_Rejects(t *testing.T) {
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  models.OrderListFilter
		field   string
		message string
	}{
		{"page zero", models.OrderListFilter{UserID: 1, Page: intPtr(0)}, "page", "Page must be greater than 0"},
		{"negative page", models.OrderListFilter{UserID: 1, Page: intPtr(-3)}, "page", "Page must be greater than 0"},
		{"page size zero", models.OrderListFilter{UserID: 1, PageSize: intPtr(0)}, "page_size", "Page size must be between 1 and 100"},
		{"page size too large", models.OrderListFilter{UserID: 1, PageSize: intPtr(101)}, "page_size", "Page size must be between 1 and 100"},
		{"inverted dates", models.OrderListFilter{UserID: 1, StartDate: &feb, EndDate: &jan}, "start_date", "Start date cannot be after end date"},
		{"page checked before page size", models.OrderListFilter{UserID: 1, Page: intPtr(0), PageSize: intPtr(500)}, "page", "Page must be greater than 0"},
		{"page size checked before dates", models.OrderListFilter{UserID: 1, PageSize: intPtr(500), StartDate: &feb, EndDate: &jan}, "page_size", "Page size must be between 1 and 100"},
		{"missing user", models.OrderListFilter{}, "user_id", "user ID is required"},
		{"unknown sort", models.OrderListFilter{UserID: 1, SortOrder: strPtr("sideways")}, "sort_order", "sort order must be asc or desc"},
		{"unknown status", models.OrderListFilter{UserID: 1, Status: strPtr("lost")}, "status", "invalid order status: lost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeOrderListFilter(tt.filter)

			require.Error(t, err)
			var appErr *errors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, errors.KindValidation, appErr.Kind)
			assert.Equal(t, tt.field, appErr.Field)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestNormalizeOrderListFilter_AcceptsBounds(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q, err := NormalizeOrderListFilter(models.OrderListFilter{
		UserID:    1,
		Page:      intPtr(3),
		PageSize:  intPtr(100),
		SortOrder: strPtr("ASC"),
		Status:    strPtr("Shipped"),
		StartDate: &day,
		EndDate:   &day,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 100, q.PageSize)
	assert.Equal(t, models.SortAsc, q.SortOrder)
	require.NotNil(t, q.Status)
	assert.Equal(t, models.OrderStatusShipped, *q.Status)
}

func TestNormalizeOrderListFilter_DoesNotShareCallerState(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	filter := models.OrderListFilter{UserID: 1, StartDate: timePtr(start)}

	q, err := NormalizeOrderListFilter(filter)
	require.NoError(t, err)

	*q.StartDate = q.StartDate.Add(48 * time.Hour)

	assert.True(t, filter.StartDate.Equal(start))
	assert.Nil(t, filter.Page)
	assert.Nil(t, filter.PageSize)
	assert.Nil(t, filter.SortOrder)
}

func TestValidateRecordPaymentRequest(t *testing.T) {
	valid := models.RecordPaymentRequest{OrderID: 1, Amount: decimal.RequireFromString("51.98"), Currency: "USD"}
	assert.NoError(t, ValidateRecordPaymentRequest(valid))

	tests := []struct {
		name   string
		mutate func(*models.RecordPaymentRequest)
		field  string
	}{
		{"missing order", func(r *models.RecordPaymentRequest) { r.OrderID = 0 }, "order_id"},
		{"zero amount", func(r *models.RecordPaymentRequest) { r.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(r *models.RecordPaymentRequest) { r.Amount = decimal.NewFromInt(-1) }, "amount"},
		{"short currency", func(r *models.RecordPaymentRequest) { r.Currency = "US" }, "currency"},
		{"lowercase currency", func(r *models.RecordPaymentRequest) { r.Currency = "usd" }, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := ValidateRecordPaymentRequest(req)

			var appErr *errors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestValidateCreateFromCartRequest(t *testing.T) {
	assert.NoError(t, ValidateCreateFromCartRequest(models.CreateOrderFromCartRequest{UserID: 1, ShippingAddress: "1 Main St"}))
	assert.True(t, errors.IsKind(ValidateCreateFromCartRequest(models.CreateOrderFromCartRequest{UserID: 1, ShippingAddress: "  "}), errors.KindValidation))
	assert.True(t, errors.IsKind(ValidateCreateFromCartRequest(models.CreateOrderFromCartRequest{ShippingAddress: "x"}), errors.KindValidation))
}

func TestPriceCartItem(t *testing.T) {
	item := models.ShoppingCartItem{ID: 31, ProductItemID: 123, Quantity: 2}

	line, err := priceCartItem(item, &models.ProductItem{ID: 123, Price: decimal.RequireFromString("25.99"), QtyInStock: 10})
	require.NoError(t, err)
	assert.Equal(t, "25.99", line.Price.String())
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, int64(31), line.CartItemID)

	_, err = priceCartItem(item, nil)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	_, err = priceCartItem(item, &models.ProductItem{ID: 123, QtyInStock: 1})
	assert.True(t, errors.IsKind(err, errors.KindConflict))
	assert.Contains(t, err.Error(), "product item 123")
}
