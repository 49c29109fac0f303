package models

import "time"

// ShoppingCart is the single active cart of a user. It owns its items.
type ShoppingCart struct {
	ID        int64              `json:"id"`
	UserID    int64              `json:"user_id"`
	Items     []ShoppingCartItem `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (c ShoppingCart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a copy that shares no slices with c.
func (c ShoppingCart) Clone() ShoppingCart {
	items := make([]ShoppingCartItem, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}

type ShoppingCartItem struct {
	ID            int64     `json:"id"`
	CartID        int64     `json:"cart_id"`
	ProductItemID int64     `json:"product_item_id"`
	Quantity      int       `json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewShoppingCartItem(id, cartID, productItemID int64, quantity int, createdAt, updatedAt time.Time) ShoppingCartItem {
	return ShoppingCartItem{
		ID:            id,
		CartID:        cartID,
		ProductItemID: productItemID,
		Quantity:      quantity,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

type AddCartItemRequest struct {
	UserID        int64 `json:"user_id"`
	ProductItemID int64 `json:"product_item_id"`
	Quantity      int   `json:"quantity"`
}

type UpdateCartItemRequest struct {
	UserID     int64 `json:"user_id"`
	CartItemID int64 `json:"cart_item_id"`
	Quantity   int   `json:"quantity"`
}

type RemoveCartItemRequest struct {
	UserID     int64 `json:"user_id"`
	CartItemID int64 `json:"cart_item_id"`
}
