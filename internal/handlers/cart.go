package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

type addCartItemBody struct {
	ProductItemID int64 `json:"product_item_id"`
	Quantity      int   `json:"quantity"`
}

type updateCartItemBody struct {
	Quantity int `json:"quantity"`
}

// GetCart handles GET /api/v2/cart
func (h *Handlers) GetCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), uid)
	if err != nil {
		handleError(c, err)
		return
	}
	if cart == nil {
		cart = &models.ShoppingCart{UserID: uid, Items: []models.ShoppingCartItem{}}
	}

	c.JSON(http.StatusOK, cart)
}

// AddCartItem handles POST /api/v2/cart/items
func (h *Handlers) AddCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var body addCartItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("Failed to bind request", logging.Fields{"error": err.Error()})
		badRequest(c, "body", "invalid request body")
		return
	}
	if body.ProductItemID <= 0 {
		badRequest(c, "product_item_id", "product item ID is required")
		return
	}

	item, err := h.cartService.AddItem(c.Request.Context(), models.AddCartItemRequest{
		UserID:        uid,
		ProductItemID: body.ProductItemID,
		Quantity:      body.Quantity,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// UpdateCartItem handles PATCH /api/v2/cart/items/:id
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var body updateCartItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "body", "invalid request body")
		return
	}

	item, err := h.cartService.UpdateItemQuantity(c.Request.Context(), models.UpdateCartItemRequest{
		UserID:     uid,
		CartItemID: itemID,
		Quantity:   body.Quantity,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// RemoveCartItem handles DELETE /api/v2/cart/items/:id
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "id")
	if !ok {
		return
	}

	err := h.cartService.RemoveItem(c.Request.Context(), models.RemoveCartItemRequest{
		UserID:     uid,
		CartItemID: itemID,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearCart handles DELETE /api/v2/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), uid); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
