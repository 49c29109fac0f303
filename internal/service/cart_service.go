package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/repository"
)

// CartService handles shopping cart mutations.
type CartService struct {
	cartRepo repository.CartRepository
	logger   *logging.LoggerV2
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository) *CartService {
	return &CartService{
		cartRepo: cartRepo,
		logger:   logging.NewLoggerV2("cart-service"),
	}
}

// GetCart returns the user's cart, or nil if the user has none.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	s.logger.Debug("Getting cart", logging.Fields{"user_id": userID})
	return s.cartRepo.FindByUserID(ctx, userID)
}

// AddItem adds a product item to the user's cart, creating the cart on first
// use. Adding a product already in the cart increases that line's quantity.
func (s *CartService) AddItem(ctx context.Context, req models.AddCartItemRequest) (*models.ShoppingCartItem, error) {
	if err := ValidateCartQuantity(req.Quantity); err != nil {
		return nil, err
	}

	s.logger.Info("Adding cart item", logging.Fields{
		"user_id":         req.UserID,
		"product_item_id": req.ProductItemID,
		"quantity":        req.Quantity,
	})

	cart, err := s.cartRepo.FindByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart, err = s.cartRepo.CreateForUser(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
	}

	// Storage merges into an existing line for the same product item in one
	// step, so concurrent adds never lose an increment.
	return s.cartRepo.AddItem(ctx, cart.ID, req.ProductItemID, req.Quantity)
}

// UpdateItemQuantity sets the quantity of a line in the user's own cart.
func (s *CartService) UpdateItemQuantity(ctx context.Context, req models.UpdateCartItemRequest) (*models.ShoppingCartItem, error) {
	if err := ValidateCartQuantity(req.Quantity); err != nil {
		return nil, err
	}

	s.logger.Info("Updating cart item quantity", logging.Fields{
		"user_id":      req.UserID,
		"cart_item_id": req.CartItemID,
		"quantity":     req.Quantity,
	})

	if err := s.authorizeItem(ctx, req.UserID, req.CartItemID); err != nil {
		return nil, err
	}

	return s.cartRepo.UpdateItemQuantity(ctx, req.CartItemID, req.Quantity)
}

// RemoveItem deletes a line from the user's own cart.
func (s *CartService) RemoveItem(ctx context.Context, req models.RemoveCartItemRequest) error {
	s.logger.Info("Removing cart item", logging.Fields{
		"user_id":      req.UserID,
		"cart_item_id": req.CartItemID,
	})

	if err := s.authorizeItem(ctx, req.UserID, req.CartItemID); err != nil {
		return err
	}

	return s.cartRepo.RemoveItem(ctx, req.CartItemID)
}

// ClearCart removes every item from the user's cart. A user without a cart
// has nothing to clear.
func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	s.logger.Info("Clearing cart", logging.Fields{"user_id": userID})

	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}

	return s.cartRepo.ClearCart(ctx, cart.ID)
}

// authorizeItem checks that the cart item exists and sits in the cart owned
// by userID. The cart id is always taken from storage, never from the caller.
func (s *CartService) authorizeItem(ctx context.Context, userID, cartItemID int64) error {
	item, err := s.cartRepo.FindCartItemByID(ctx, cartItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return errors.NewNotFoundError("cart_item", cartItemID)
	}

	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil || cart.ID != item.CartID {
		s.logger.Warn("Cart item ownership check failed", logging.Fields{
			"user_id":      userID,
			"cart_item_id": cartItemID,
		})
		return errors.NewAuthorizationError("cart_item", cartItemID)
	}

	return nil
}
