package service

import (
	"fmt"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

// priceCartItem freezes the current catalog price of a cart item into an
// order line. It fails when the product is gone or short on stock.
func priceCartItem(item models.ShoppingCartItem, product *models.ProductItem) (models.OrderLineDraft, error) {
	if product == nil {
		return models.OrderLineDraft{}, errors.NewNotFoundError("product_item", item.ProductItemID)
	}
	if item.Quantity > product.QtyInStock {
		return models.OrderLineDraft{}, errors.NewConflictError("product_item_id", fmt.Sprintf(
			"insufficient stock for product item %d: requested %d, available %d",
			item.ProductItemID, item.Quantity, product.QtyInStock,
		))
	}
	return models.OrderLineDraft{
		CartItemID:    item.ID,
		ProductItemID: item.ProductItemID,
		Quantity:      item.Quantity,
		Price:         product.Price,
	}, nil
}
