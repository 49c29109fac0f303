package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		Features: config.FeatureFlags{
			EnableOrderCaching: true,
			EnableOrderEvents:  true,
		},
		CatalogLookupConcurrency: 4,
	}
}

// seededStore returns a store with two catalog items: 123 at 25.99 (10 in
// stock) and 124 at 9.50 (5 in stock).
func seededStore() *repository.MemoryStore {
	store := repository.NewMemoryStore()
	store.PutProductItem(models.ProductItem{ID: 123, SKU: "MUG-RED", Price: decimal.RequireFromString("25.99"), QtyInStock: 10})
	store.PutProductItem(models.ProductItem{ID: 124, SKU: "MUG-BLUE", Price: decimal.RequireFromString("9.50"), QtyInStock: 5})
	return store
}

type publishedEvent struct {
	kind           string
	orderID        int64
	paymentID      int64
	previousStatus string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishOrderCreated(_ context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind: "order.created", orderID: order.ID})
	return p.err
}

func (p *fakePublisher) PublishOrderStatusChanged(_ context.Context, order *models.Order, previous models.OrderStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind: "order.status_changed", orderID: order.ID, previousStatus: string(previous)})
	return p.err
}

func (p *fakePublisher) PublishPaymentStatusChanged(_ context.Context, payment *models.Payment, previous models.PaymentStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind: "payment.status_changed", orderID: payment.OrderID, paymentID: payment.ID, previousStatus: string(previous)})
	return p.err
}

// countingCartRepo counts every call that reaches storage.
type countingCartRepo struct {
	repository.CartRepository
	calls int
}

func (r *countingCartRepo) FindByUserID(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	r.calls++
	return r.CartRepository.FindByUserID(ctx, userID)
}

func (r *countingCartRepo) CreateForUser(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	r.calls++
	return r.CartRepository.CreateForUser(ctx, userID)
}

func (r *countingCartRepo) AddItem(ctx context.Context, cartID, productItemID int64, quantity int) (*models.ShoppingCartItem, error) {
	r.calls++
	return r.CartRepository.AddItem(ctx, cartID, productItemID, quantity)
}

func (r *countingCartRepo) UpdateItemQuantity(ctx context.Context, cartItemID int64, quantity int) (*models.ShoppingCartItem, error) {
	r.calls++
	return r.CartRepository.UpdateItemQuantity(ctx, cartItemID, quantity)
}

func (r *countingCartRepo) FindCartItemByID(ctx context.Context, cartItemID int64) (*models.ShoppingCartItem, error) {
	r.calls++
	return r.CartRepository.FindCartItemByID(ctx, cartItemID)
}

// countingOrderRepo counts FindOrders calls.
type countingOrderRepo struct {
	repository.OrderRepository
	findCalls int
}

func (r *countingOrderRepo) FindOrders(ctx context.Context, q models.OrderQuery) ([]models.Order, int, error) {
	r.findCalls++
	return r.OrderRepository.FindOrders(ctx, q)
}

// staleCatalog reports more stock than storage holds, as a catalog read
// taken just before a concurrent order consumed the stock would.
type staleCatalog struct {
	items map[int64]models.ProductItem
}

func (c staleCatalog) GetProductItem(_ context.Context, id int64) (*models.ProductItem, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

type failingCatalog struct{}

func (failingCatalog) GetProductItem(context.Context, int64) (*models.ProductItem, error) {
	return nil, errors.New("catalog unavailable")
}

type fixture struct {
	store     *repository.MemoryStore
	carts     *CartService
	orders    *OrderService
	payments  *PaymentService
	publisher *fakePublisher
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := seededStore()
	pub := &fakePublisher{}
	m := metrics.New(prometheus.NewRegistry())
	cfg := testConfig()
	return &fixture{
		store:     store,
		carts:     NewCartService(store),
		orders:    NewOrderService(store, store, store, nil, pub, m, cfg),
		payments:  NewPaymentService(store, store, pub, m, cfg),
		publisher: pub,
		metrics:   m,
	}
}

// placeOrder fills the user's cart and converts it.
func (f *fixture) placeOrder(t *testing.T, userID int64, items map[int64]int) *models.Order {
	t.Helper()
	ctx := context.Background()
	for productItemID, qty := range items {
		_, err := f.carts.AddItem(ctx, models.AddCartItemRequest{UserID: userID, ProductItemID: productItemID, Quantity: qty})
		require.NoError(t, err)
	}
	order, err := f.orders.CreateFromCart(ctx, models.CreateOrderFromCartRequest{UserID: userID, ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	return order
}
