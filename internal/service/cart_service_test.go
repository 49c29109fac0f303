package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

func TestCartService_NonPositiveQuantityNeverReachesStorage(t *testing.T) {
	ctx := context.Background()
	repo := &countingCartRepo{CartRepository: seededStore()}
	svc := NewCartService(repo)

	for _, qty := range []int{0, -1, -100} {
		_, err := svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 123, Quantity: qty})
		assert.True(t, errors.IsKind(err, errors.KindValidation), "add quantity %d", qty)

		_, err = svc.UpdateItemQuantity(ctx, models.UpdateCartItemRequest{UserID: 1, CartItemID: 1, Quantity: qty})
		assert.True(t, errors.IsKind(err, errors.KindValidation), "update quantity %d", qty)
	}

	assert.Zero(t, repo.calls)
}

func TestCartService_AddItemCreatesCartAndMerges(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(seededStore())

	cart, err := svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, cart)

	first, err := svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 123, Quantity: 2})
	require.NoError(t, err)
	second, err := svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 123, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	cart, err = svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_AddItemSurfacesStorageFailures(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(seededStore())

	_, err := svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 999, Quantity: 1})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	_, err = svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 124, Quantity: 6})
	assert.True(t, errors.IsKind(err, errors.KindConflict))

	_, err = svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 124, Quantity: 4})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 124, Quantity: 2})
	assert.True(t, errors.IsKind(err, errors.KindConflict), "merged quantity exceeds stock")
}

func TestCartService_UpdateItemQuantityChecksOwnership(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(seededStore())

	item, err := svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 123, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, models.AddCartItemRequest{UserID: 2, ProductItemID: 124, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(ctx, models.UpdateCartItemRequest{UserID: 2, CartItemID: item.ID, Quantity: 4})
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))

	_, err = svc.UpdateItemQuantity(ctx, models.UpdateCartItemRequest{UserID: 3, CartItemID: item.ID, Quantity: 4})
	assert.True(t, errors.IsKind(err, errors.KindAuthorization), "caller without a cart")

	_, err = svc.UpdateItemQuantity(ctx, models.UpdateCartItemRequest{UserID: 1, CartItemID: 9999, Quantity: 4})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	updated, err := svc.UpdateItemQuantity(ctx, models.UpdateCartItemRequest{UserID: 1, CartItemID: item.ID, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
}

func TestCartService_RemoveItemChecksOwnership(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(seededStore())

	item, err := svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 123, Quantity: 1})
	require.NoError(t, err)

	err = svc.RemoveItem(ctx, models.RemoveCartItemRequest{UserID: 2, CartItemID: item.ID})
	assert.True(t, errors.IsKind(err, errors.KindAuthorization))

	require.NoError(t, svc.RemoveItem(ctx, models.RemoveCartItemRequest{UserID: 1, CartItemID: item.ID}))

	err = svc.RemoveItem(ctx, models.RemoveCartItemRequest{UserID: 1, CartItemID: item.ID})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestCartService_ClearCart(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(seededStore())

	assert.NoError(t, svc.ClearCart(ctx, 1), "no cart is a no-op")

	_, err := svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 123, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, models.AddCartItemRequest{UserID: 1, ProductItemID: 124, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, 1))

	cart, err := svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.True(t, cart.IsEmpty())
}
