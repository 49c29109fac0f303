package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

// dateLayouts are tried in order for start_date and end_date.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

type createOrderBody struct {
	ShippingAddress string `json:"shipping_address"`
}

type updateStatusBody struct {
	Status string `json:"status"`
}

// CreateOrder handles POST /api/v2/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("Failed to bind request", logging.Fields{"error": err.Error()})
		badRequest(c, "body", "invalid request body")
		return
	}

	order, err := h.orderService.CreateFromCart(c.Request.Context(), models.CreateOrderFromCartRequest{
		UserID:          uid,
		ShippingAddress: body.ShippingAddress,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /api/v2/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrderDetails(c.Request.Context(), orderID, uid)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /api/v2/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	filter, err := parseListFilter(c)
	if err != nil {
		handleError(c, err)
		return
	}
	filter.UserID = uid

	page, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateOrderStatus handles PATCH /api/v2/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var body updateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "body", "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), models.UpdateOrderStatusRequest{
		OrderID:   orderID,
		NewStatus: models.OrderStatus(body.Status),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// parseListFilter reads the optional list parameters. Only syntax is checked
// here; range checks belong to the service.
func parseListFilter(c *gin.Context) (models.OrderListFilter, error) {
	var filter models.OrderListFilter

	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"page", &filter.Page},
		{"page_size", &filter.PageSize},
	} {
		raw, ok := c.GetQuery(p.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.NewValidationError(p.name, p.name+" must be an integer")
		}
		*p.dst = &n
	}

	if raw, ok := c.GetQuery("sort_order"); ok {
		filter.SortOrder = &raw
	}
	if raw, ok := c.GetQuery("status"); ok {
		filter.Status = &raw
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"start_date", &filter.StartDate},
		{"end_date", &filter.EndDate},
	} {
		raw, ok := c.GetQuery(p.name)
		if !ok {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			return filter, errors.NewValidationError(p.name, p.name+" must be RFC3339 or YYYY-MM-DD")
		}
		*p.dst = &t
	}

	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
