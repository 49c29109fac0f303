package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/repository"
)

const defaultCatalogLookupConcurrency = 8

// OrderService handles order business logic.
type OrderService struct {
	orderRepo      repository.OrderRepository
	cartRepo       repository.CartRepository
	catalogRepo    repository.CatalogRepository
	orderCache     repository.OrderCache
	eventPublisher OrderEventPublisher
	metrics        *metrics.Metrics
	config         *config.Config
	logger         *logging.LoggerV2
}

// NewOrderService creates a new order service. orderCache may be nil when
// caching is disabled.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	catalogRepo repository.CatalogRepository,
	orderCache repository.OrderCache,
	eventPublisher OrderEventPublisher,
	m *metrics.Metrics,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		cartRepo:       cartRepo,
		catalogRepo:    catalogRepo,
		orderCache:     orderCache,
		eventPublisher: eventPublisher,
		metrics:        m,
		config:         cfg,
		logger:         logging.NewLoggerV2("order-service"),
	}
}

func (s *OrderService) cachingEnabled() bool {
	return s.orderCache != nil && s.config.Features.EnableOrderCaching
}

func (s *OrderService) eventsEnabled() bool {
	return s.eventPublisher != nil && s.config.Features.EnableOrderEvents
}

// GetOrderDetails returns an order owned by userID, with its lines.
func (s *OrderService) GetOrderDetails(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	s.logger.Debug("Getting order", logging.Fields{
		"order_id": orderID,
		"user_id":  userID,
	})

	order := s.cachedOrder(ctx, orderID)
	if order == nil {
		var err error
		order, err = s.orderRepo.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, errors.NewNotFoundError("order", orderID)
		}
		s.cacheOrder(ctx, order)
	}

	if order.UserID != userID {
		s.logger.Warn("Order ownership check failed", logging.Fields{
			"order_id": orderID,
			"user_id":  userID,
		})
		return nil, errors.NewAuthorizationError("order", orderID)
	}

	return order, nil
}

// ListOrders returns one page of the user's orders.
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderListFilter) (models.OrderPage, error) {
	q, err := NormalizeOrderListFilter(filter)
	if err != nil {
		return models.OrderPage{}, err
	}

	s.logger.Debug("Listing orders", logging.Fields{
		"user_id":    q.UserID,
		"page":       q.Page,
		"page_size":  q.PageSize,
		"sort_order": q.SortOrder,
	})

	orders, total, err := s.orderRepo.FindOrders(ctx, q)
	if err != nil {
		return models.OrderPage{}, err
	}

	return models.NewOrderPage(orders, total, q), nil
}

// CreateFromCart converts the user's cart into an order. Prices are frozen
// from the catalog at this instant. Storage commits the order, its lines,
// the stock decrements and the removal of the converted cart items in one
// transaction. Items added to the cart after it was read stay in it.
func (s *OrderService) CreateFromCart(ctx context.Context, req models.CreateOrderFromCartRequest) (*models.Order, error) {
	if err := ValidateCreateFromCartRequest(req); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.FindByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.IsEmpty() {
		return nil, errors.NewValidationError("cart", "Cart is empty")
	}

	s.logger.Info("Creating order from cart", logging.Fields{
		"user_id":    req.UserID,
		"cart_id":    cart.ID,
		"item_count": len(cart.Items),
	})

	lines, err := s.priceCartItems(ctx, cart.Items)
	if err != nil {
		if errors.IsKind(err, errors.KindConflict) {
			s.metrics.StockConflict()
		}
		return nil, err
	}

	order, err := s.orderRepo.CreateFromCart(ctx, models.OrderDraft{
		UserID:          req.UserID,
		CartID:          cart.ID,
		ShippingAddress: req.ShippingAddress,
		Lines:           lines,
	})
	if err != nil {
		if errors.IsKind(err, errors.KindConflict) {
			s.metrics.StockConflict()
		}
		s.logger.Error("Failed to create order", logging.Fields{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.metrics.OrderCreated()
	s.cacheOrder(ctx, order)

	if s.eventsEnabled() {
		if err := s.eventPublisher.PublishOrderCreated(ctx, order); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to publish order created event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	s.logger.Info("Order created successfully", logging.Fields{
		"order_id": order.ID,
		"total":    order.CalculatedTotal().String(),
	})

	return order, nil
}

// priceCartItems resolves price and stock for every cart item concurrently.
// Lines keep the cart's item order.
func (s *OrderService) priceCartItems(ctx context.Context, items []models.ShoppingCartItem) ([]models.OrderLineDraft, error) {
	limit := s.config.CatalogLookupConcurrency
	if limit <= 0 {
		limit = defaultCatalogLookupConcurrency
	}

	lines := make([]models.OrderLineDraft, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			product, err := s.catalogRepo.GetProductItem(gctx, item.ProductItemID)
			if err != nil {
				return err
			}
			line, err := priceCartItem(item, product)
			if err != nil {
				return err
			}
			lines[i] = line
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

// UpdateStatus moves an order to a new status through the lifecycle state
// machine and persists the result.
func (s *OrderService) UpdateStatus(ctx context.Context, req models.UpdateOrderStatusRequest) (*models.Order, error) {
	requested, err := models.ParseOrderStatus(string(req.NewStatus))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Updating order status", logging.Fields{
		"order_id":   req.OrderID,
		"new_status": requested,
	})

	current, err := s.orderRepo.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NewNotFoundError("order", req.OrderID)
	}

	next, err := models.TransitionOrderStatus(current.Status, requested)
	if err != nil {
		return nil, err
	}

	previousStatus := current.Status
	order, err := s.orderRepo.UpdateStatus(ctx, req.OrderID, previousStatus, next)
	if err != nil {
		return nil, err
	}

	s.refreshCachedOrder(ctx, order)

	s.metrics.OrderTransition(string(previousStatus), string(next))

	if s.eventsEnabled() {
		if err := s.eventPublisher.PublishOrderStatusChanged(ctx, order, previousStatus); err != nil {
			s.logger.Error("Failed to publish status change event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	return order, nil
}

func (s *OrderService) cachedOrder(ctx context.Context, orderID int64) *models.Order {
	if !s.cachingEnabled() {
		return nil
	}
	order, err := s.orderCache.Get(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to read cached order", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return nil
	}
	if order != nil {
		s.logger.Debug("Order found in cache", logging.Fields{"order_id": orderID})
	}
	return order
}

// refreshCachedOrder replaces the cached copy with the freshly written
// order. The cache drops older versions, so a concurrent reader cannot put
// the previous status back. If the write fails the entry is removed.
func (s *OrderService) refreshCachedOrder(ctx context.Context, order *models.Order) {
	if !s.cachingEnabled() {
		return
	}
	if err := s.orderCache.Set(ctx, order); err == nil {
		return
	}
	if err := s.orderCache.Delete(ctx, order.ID); err != nil {
		s.logger.Error("Failed to invalidate cached order", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func (s *OrderService) cacheOrder(ctx context.Context, order *models.Order) {
	if !s.cachingEnabled() {
		return
	}
	if err := s.orderCache.Set(ctx, order); err != nil {
		// Log but don't fail
		s.logger.Error("Failed to cache order", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}
