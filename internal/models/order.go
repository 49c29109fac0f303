package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is an immutable purchase record. Only Status changes after creation,
// and only through TransitionOrderStatus.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	ShippingAddress string          `json:"shipping_address"`
	Status          OrderStatus     `json:"order_status"`
	OrderDate       time.Time       `json:"order_date"`
	OrderTotal      decimal.Decimal `json:"order_total"`
	Lines           []OrderLine     `json:"order_lines,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CalculatedTotal sums the line totals when lines are loaded and falls back
// to the stored OrderTotal otherwise.
func (o Order) CalculatedTotal() decimal.Decimal {
	if len(o.Lines) == 0 {
		return o.OrderTotal
	}
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.TotalPrice())
	}
	return total
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	if o.Lines != nil {
		lines := make([]OrderLine, len(o.Lines))
		copy(lines, o.Lines)
		o.Lines = lines
	}
	return o
}

// OrderLine is a product snapshot frozen at order creation.
type OrderLine struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	ProductItemID int64           `json:"product_item_id"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewOrderLine(id, orderID, productItemID int64, quantity int, price decimal.Decimal, createdAt time.Time) OrderLine {
	return OrderLine{
		ID:            id,
		OrderID:       orderID,
		ProductItemID: productItemID,
		Quantity:      quantity,
		Price:         price,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// TotalPrice is price × quantity.
func (l OrderLine) TotalPrice() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderDraft is what the conversion hands to storage: one priced line per
// cart item plus the cart those items belong to. Only the cart items named
// by the lines are removed when the order commits.
type OrderDraft struct {
	UserID          int64
	CartID          int64
	ShippingAddress string
	Lines           []OrderLineDraft
}

type OrderLineDraft struct {
	CartItemID    int64
	ProductItemID int64
	Quantity      int
	Price         decimal.Decimal
}

// CartItemIDs lists the cart items consumed by the draft.
func (d OrderDraft) CartItemIDs() []int64 {
	ids := make([]int64, 0, len(d.Lines))
	for _, line := range d.Lines {
		ids = append(ids, line.CartItemID)
	}
	return ids
}

// Total is the order total implied by the draft lines.
func (d OrderDraft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// CreateOrderFromCartRequest converts the caller's cart into an order.
type CreateOrderFromCartRequest struct {
	UserID          int64  `json:"user_id"`
	ShippingAddress string `json:"shipping_address"`
}

type UpdateOrderStatusRequest struct {
	OrderID   int64       `json:"order_id"`
	NewStatus OrderStatus `json:"new_status"`
}

// ProductItem is the catalog collaborator's view of a stock-bearing item.
type ProductItem struct {
	ID         int64           `json:"id"`
	SKU        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	QtyInStock int             `json:"qty_in_stock"`
}
