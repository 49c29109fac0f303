package repository

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

// Find*/Get* methods return (nil, nil) when the entity is absent. Mutations
// on an absent entity fail with a not-found error.

// CartRepository stores carts and their items. Implementations must enforce
// uniqueness of (cart_id, product_item_id) so that racing adds of the same
// product collapse into one row.
type CartRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*models.ShoppingCart, error)
	CreateForUser(ctx context.Context, userID int64) (*models.ShoppingCart, error)
	AddItem(ctx context.Context, cartID, productItemID int64, quantity int) (*models.ShoppingCartItem, error)
	RemoveItem(ctx context.Context, cartItemID int64) error
	UpdateItemQuantity(ctx context.Context, cartItemID int64, quantity int) (*models.ShoppingCartItem, error)
	ClearCart(ctx context.Context, cartID int64) error
	FindCartItemByID(ctx context.Context, cartItemID int64) (*models.ShoppingCartItem, error)
}

// OrderRepository stores orders. CreateFromCart is a single transaction:
// order row, order lines, stock decrements and removal of the drafted cart
// items commit together
// or not at all. A decrement that finds insufficient stock fails with a
// conflict error and rolls everything back. UpdateStatus only applies while
// the stored status still equals from; otherwise it fails with a conflict
// error and leaves the order untouched.
type OrderRepository interface {
	CreateFromCart(ctx context.Context, draft models.OrderDraft) (*models.Order, error)
	FindOrders(ctx context.Context, q models.OrderQuery) ([]models.Order, int, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) (*models.Order, error)
}

// PaymentRepository stores payments, at most one per order. CreatePayment
// fails with a conflict error when the order already has one. UpdatePayment
// only succeeds while the stored payment is still pending.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment models.Payment) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment models.Payment) (*models.Payment, error)
}

// CatalogRepository resolves current price and stock of a product item.
type CatalogRepository interface {
	GetProductItem(ctx context.Context, id int64) (*models.ProductItem, error)
}

// OrderCache defines caching operations for orders.
type OrderCache interface {
	Get(ctx context.Context, id int64) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id int64) error
}
