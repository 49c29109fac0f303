package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/service"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handlers holds all HTTP handlers for the fulfillment service.
type Handlers struct {
	cartService    *service.CartService
	orderService   *service.OrderService
	paymentService *service.PaymentService
	readiness      map[string]ReadinessCheck
	config         *config.Config
	logger         *logging.LoggerV2
}

// NewHandlers creates a new handlers instance. readiness may be nil.
func NewHandlers(
	cartService *service.CartService,
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	readiness map[string]ReadinessCheck,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		cartService:    cartService,
		orderService:   orderService,
		paymentService: paymentService,
		readiness:      readiness,
		config:         cfg,
		logger:         logging.NewLoggerV2("handlers"),
	}
}

// RegisterAPI mounts the cart, order and payment endpoints on r.
func (h *Handlers) RegisterAPI(r gin.IRouter) {
	cart := r.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.POST("/items", h.AddCartItem)
		cart.PATCH("/items/:id", h.UpdateCartItem)
		cart.DELETE("/items/:id", h.RemoveCartItem)
	}

	orders := r.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/status", h.UpdateOrderStatus)
	}

	payments := r.Group("/payments")
	{
		payments.POST("", h.RecordPayment)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/paid", h.MarkPaymentPaid)
		payments.POST("/:id/failed", h.MarkPaymentFailed)
	}
}
