package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

var (
	_ CartRepository    = (*MemoryStore)(nil)
	_ OrderRepository   = (*MemoryStore)(nil)
	_ PaymentRepository = (*MemoryStore)(nil)
	_ CatalogRepository = (*MemoryStore)(nil)
)

type cartItemKey struct {
	cartID        int64
	productItemID int64
}

// MemoryStore implements every repository contract in process. One mutex
// guards all state, so each method is atomic with respect to the others.
type MemoryStore struct {
	mu sync.Mutex

	nextID int64
	now    func() time.Time

	carts      map[int64]*models.ShoppingCart // by user id
	cartItems  map[int64]*models.ShoppingCartItem
	itemsByKey map[cartItemKey]int64
	products   map[int64]*models.ProductItem
	orders     map[int64]*models.Order
	payments   map[int64]*models.Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:        func() time.Time { return time.Now().UTC() },
		carts:      make(map[int64]*models.ShoppingCart),
		cartItems:  make(map[int64]*models.ShoppingCartItem),
		itemsByKey: make(map[cartItemKey]int64),
		products:   make(map[int64]*models.ProductItem),
		orders:     make(map[int64]*models.Order),
		payments:   make(map[int64]*models.Payment),
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// PutProductItem seeds or replaces a catalog entry.
func (s *MemoryStore) PutProductItem(item models.ProductItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[item.ID] = &item
}

func (s *MemoryStore) GetProductItem(ctx context.Context, id int64) (*models.ProductItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) FindByUserID(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartSnapshot(userID), nil
}

func (s *MemoryStore) cartSnapshot(userID int64) *models.ShoppingCart {
	cart, ok := s.carts[userID]
	if !ok {
		return nil
	}
	out := *cart
	out.Items = make([]models.ShoppingCartItem, 0)
	for _, item := range s.cartItems {
		if item.CartID == cart.ID {
			out.Items = append(out.Items, *item)
		}
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ID < out.Items[j].ID })
	return &out
}

func (s *MemoryStore) CreateForUser(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[userID]; !ok {
		now := s.now()
		s.carts[userID] = &models.ShoppingCart{ID: s.id(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	}
	return s.cartSnapshot(userID), nil
}

func (s *MemoryStore) AddItem(ctx context.Context, cartID, productItemID int64, quantity int) (*models.ShoppingCartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productItemID]
	if !ok {
		return nil, errors.NewNotFoundError("product_item", productItemID)
	}

	key := cartItemKey{cartID: cartID, productItemID: productItemID}
	now := s.now()
	if id, ok := s.itemsByKey[key]; ok {
		item := s.cartItems[id]
		if err := checkStock(product, item.Quantity+quantity); err != nil {
			return nil, err
		}
		item.Quantity += quantity
		item.UpdatedAt = now
		out := *item
		return &out, nil
	}

	if err := checkStock(product, quantity); err != nil {
		return nil, err
	}
	item := models.NewShoppingCartItem(s.id(), cartID, productItemID, quantity, now, now)
	s.cartItems[item.ID] = &item
	s.itemsByKey[key] = item.ID
	out := item
	return &out, nil
}

func checkStock(product *models.ProductItem, quantity int) error {
	if quantity > product.QtyInStock {
		return insufficientStock(product.ID, quantity, product.QtyInStock)
	}
	return nil
}

func (s *MemoryStore) RemoveItem(ctx context.Context, cartItemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.cartItems[cartItemID]
	if !ok {
		return errors.NewNotFoundError("cart_item", cartItemID)
	}
	delete(s.itemsByKey, cartItemKey{cartID: item.CartID, productItemID: item.ProductItemID})
	delete(s.cartItems, cartItemID)
	return nil
}

func (s *MemoryStore) UpdateItemQuantity(ctx context.Context, cartItemID int64, quantity int) (*models.ShoppingCartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.cartItems[cartItemID]
	if !ok {
		return nil, errors.NewNotFoundError("cart_item", cartItemID)
	}
	if product, ok := s.products[item.ProductItemID]; ok {
		if err := checkStock(product, quantity); err != nil {
			return nil, err
		}
	}
	item.Quantity = quantity
	item.UpdatedAt = s.now()
	out := *item
	return &out, nil
}

func (s *MemoryStore) ClearCart(ctx context.Context, cartID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCartLocked(cartID)
	return nil
}

func (s *MemoryStore) clearCartLocked(cartID int64) {
	for id, item := range s.cartItems {
		if item.CartID == cartID {
			delete(s.itemsByKey, cartItemKey{cartID: cartID, productItemID: item.ProductItemID})
			delete(s.cartItems, id)
		}
	}
}

func (s *MemoryStore) FindCartItemByID(ctx context.Context, cartItemID int64) (*models.ShoppingCartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.cartItems[cartItemID]
	if !ok {
		return nil, nil
	}
	out := *item
	return &out, nil
}

// CreateFromCart validates every stock decrement before applying any of
// them, so a failure leaves the store untouched.
func (s *MemoryStore) CreateFromCart(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewStorageError("create order", err)
	}

	requested := make(map[int64]int)
	for _, line := range draft.Lines {
		requested[line.ProductItemID] += line.Quantity
	}
	for productItemID, qty := range requested {
		product, ok := s.products[productItemID]
		if !ok {
			return nil, errors.NewNotFoundError("product_item", productItemID)
		}
		if err := checkStock(product, qty); err != nil {
			return nil, err
		}
	}

	now := s.now()
	order := models.Order{
		ID:              s.id(),
		UserID:          draft.UserID,
		ShippingAddress: draft.ShippingAddress,
		Status:          models.OrderStatusPending,
		OrderDate:       now,
		OrderTotal:      draft.Total(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.Lines = make([]models.OrderLine, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		order.Lines = append(order.Lines, models.NewOrderLine(s.id(), order.ID, line.ProductItemID, line.Quantity, line.Price, now))
	}
	for productItemID, qty := range requested {
		s.products[productItemID].QtyInStock -= qty
	}
	for _, line := range draft.Lines {
		item, ok := s.cartItems[line.CartItemID]
		if !ok || item.CartID != draft.CartID {
			continue
		}
		delete(s.itemsByKey, cartItemKey{cartID: item.CartID, productItemID: item.ProductItemID})
		delete(s.cartItems, item.ID)
	}

	s.orders[order.ID] = &order
	out := order.Clone()
	return &out, nil
}

func (s *MemoryStore) FindOrders(ctx context.Context, q models.OrderQuery) ([]models.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.Order, 0)
	for _, o := range s.orders {
		if o.UserID != q.UserID {
			continue
		}
		if q.Status != nil && o.Status != *q.Status {
			continue
		}
		if q.StartDate != nil && o.OrderDate.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && o.OrderDate.After(*q.EndDate) {
			continue
		}
		summary := *o
		summary.Lines = nil
		matched = append(matched, summary)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.OrderDate.Equal(b.OrderDate) {
			if q.SortOrder == models.SortAsc {
				return a.OrderDate.Before(b.OrderDate)
			}
			return a.OrderDate.After(b.OrderDate)
		}
		if q.SortOrder == models.SortAsc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	out := o.Clone()
	return &out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.NewNotFoundError("order", id)
	}
	if o.Status != from {
		return nil, statusChanged(id, from, o.Status)
	}
	o.Status = to
	o.UpdatedAt = s.now()
	out := o.Clone()
	return &out, nil
}

func (s *MemoryStore) CreatePayment(ctx context.Context, payment models.Payment) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.OrderID == payment.OrderID {
			return nil, paymentExists(payment.OrderID)
		}
	}
	now := s.now()
	payment.ID = s.id()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	s.payments[payment.ID] = &payment
	out := payment
	return &out, nil
}

func (s *MemoryStore) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) UpdatePayment(ctx context.Context, payment models.Payment) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.payments[payment.ID]
	if !ok {
		return nil, errors.NewNotFoundError("payment", payment.ID)
	}
	if stored.Status != models.PaymentStatusPending {
		return nil, errors.NewConflictError("payment_id", fmt.Sprintf(
			"payment %d was already settled as %s", payment.ID, stored.Status,
		))
	}
	stored.Status = payment.Status
	stored.PaymentAt = payment.PaymentAt
	stored.ExternalReference = payment.ExternalReference
	stored.UpdatedAt = s.now()
	out := *stored
	return &out, nil
}
