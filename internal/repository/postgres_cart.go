package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

var _ CartRepository = (*PostgresCartRepository)(nil)

const cartItemColumns = `id, cart_id, product_item_id, quantity, created_at, updated_at`

// PostgresCartRepository implements CartRepository using PostgreSQL.
type PostgresCartRepository struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

func NewPostgresCartRepository(db *sql.DB, logger *logging.LoggerV2) *PostgresCartRepository {
	return &PostgresCartRepository{db: db, logger: logger}
}

func (r *PostgresCartRepository) FindByUserID(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	var cart models.ShoppingCart
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, updated_at
		FROM shopping_carts
		WHERE user_id = $1
	`, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("get cart", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+cartItemColumns+` FROM shopping_cart_items WHERE cart_id = $1 ORDER BY id`, cart.ID)
	if err != nil {
		return nil, errors.NewStorageError("load cart items", err)
	}
	defer rows.Close()

	cart.Items = make([]models.ShoppingCartItem, 0)
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, errors.NewStorageError("scan cart item", err)
		}
		cart.Items = append(cart.Items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("load cart items", err)
	}

	return &cart, nil
}

// CreateForUser creates the user's cart. A concurrent creation that wins
// the unique constraint is treated as success.
func (r *PostgresCartRepository) CreateForUser(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	now := time.Now().UTC()
	cart := models.ShoppingCart{Items: make([]models.ShoppingCartItem, 0)}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO shopping_carts (user_id, created_at, updated_at)
		VALUES ($1, $2, $2)
		RETURNING id, user_id, created_at, updated_at
	`, userID, now).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if isUniqueViolation(err) {
		return r.FindByUserID(ctx, userID)
	}
	if err != nil {
		return nil, errors.NewStorageError("create cart", err)
	}

	r.logger.Info("Cart created", logging.Fields{"cart_id": cart.ID, "user_id": userID})
	return &cart, nil
}

// AddItem inserts a cart line, or increments the existing line for the same
// product item when the unique constraint reports one.
func (r *PostgresCartRepository) AddItem(ctx context.Context, cartID, productItemID int64, quantity int) (*models.ShoppingCartItem, error) {
	var available int
	err := r.db.QueryRowContext(ctx, `SELECT qty_in_stock FROM product_items WHERE id = $1`, productItemID).Scan(&available)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("product_item", productItemID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read stock", err)
	}
	if quantity > available {
		return nil, insufficientStock(productItemID, quantity, available)
	}

	now := time.Now().UTC()
	item, err := scanCartItem(r.db.QueryRowContext(ctx, `
		INSERT INTO shopping_cart_items (cart_id, product_item_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+cartItemColumns,
		cartID, productItemID, quantity, now))
	if isUniqueViolation(err) {
		return r.mergeItem(ctx, cartID, productItemID, quantity, now)
	}
	if err != nil {
		r.logger.Error("Failed to add cart item", logging.Fields{
			"cart_id":         cartID,
			"product_item_id": productItemID,
			"error":           err.Error(),
		})
		return nil, errors.NewStorageError("add cart item", err)
	}

	return item, nil
}

// mergeItem increments an existing line in one statement, only while the
// product still has stock for the combined quantity.
func (r *PostgresCartRepository) mergeItem(ctx context.Context, cartID, productItemID int64, quantity int, now time.Time) (*models.ShoppingCartItem, error) {
	item, err := scanCartItem(r.db.QueryRowContext(ctx, `
		UPDATE shopping_cart_items ci
		SET quantity = ci.quantity + $3, updated_at = $4
		FROM product_items p
		WHERE ci.cart_id = $1 AND ci.product_item_id = $2
			AND p.id = ci.product_item_id AND p.qty_in_stock >= ci.quantity + $3
		RETURNING ci.id, ci.cart_id, ci.product_item_id, ci.quantity, ci.created_at, ci.updated_at
	`, cartID, productItemID, quantity, now))
	if err == nil {
		return item, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.NewStorageError("merge cart item", err)
	}

	var current, available int
	err = r.db.QueryRowContext(ctx, `
		SELECT ci.quantity, p.qty_in_stock
		FROM shopping_cart_items ci
		JOIN product_items p ON p.id = ci.product_item_id
		WHERE ci.cart_id = $1 AND ci.product_item_id = $2
	`, cartID, productItemID).Scan(&current, &available)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("cart_item", productItemID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read cart item stock", err)
	}
	return nil, insufficientStock(productItemID, current+quantity, available)
}

func (r *PostgresCartRepository) RemoveItem(ctx context.Context, cartItemID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shopping_cart_items WHERE id = $1`, cartItemID)
	if err != nil {
		return errors.NewStorageError("remove cart item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStorageError("remove cart item", err)
	}
	if n == 0 {
		return errors.NewNotFoundError("cart_item", cartItemID)
	}
	return nil
}

// UpdateItemQuantity sets the quantity only if the product has enough stock.
func (r *PostgresCartRepository) UpdateItemQuantity(ctx context.Context, cartItemID int64, quantity int) (*models.ShoppingCartItem, error) {
	item, err := scanCartItem(r.db.QueryRowContext(ctx, `
		UPDATE shopping_cart_items ci
		SET quantity = $2, updated_at = $3
		FROM product_items p
		WHERE ci.id = $1 AND p.id = ci.product_item_id AND p.qty_in_stock >= $2
		RETURNING ci.id, ci.cart_id, ci.product_item_id, ci.quantity, ci.created_at, ci.updated_at
	`, cartItemID, quantity, time.Now().UTC()))
	if err == nil {
		return item, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.NewStorageError("update cart item", err)
	}

	var productItemID int64
	var available int
	err = r.db.QueryRowContext(ctx, `
		SELECT p.id, p.qty_in_stock
		FROM shopping_cart_items ci
		JOIN product_items p ON p.id = ci.product_item_id
		WHERE ci.id = $1
	`, cartItemID).Scan(&productItemID, &available)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("cart_item", cartItemID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read stock", err)
	}
	return nil, insufficientStock(productItemID, quantity, available)
}

// ClearCart deletes every item of the cart in one transaction.
func (r *PostgresCartRepository) ClearCart(ctx context.Context, cartID int64) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_cart_items WHERE cart_id = $1`, cartID); err != nil {
			return errors.NewStorageError("clear cart", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE shopping_carts SET updated_at = $2 WHERE id = $1`, cartID, time.Now().UTC()); err != nil {
			return errors.NewStorageError("touch cart", err)
		}
		return nil
	})
}

func (r *PostgresCartRepository) FindCartItemByID(ctx context.Context, cartItemID int64) (*models.ShoppingCartItem, error) {
	item, err := scanCartItem(r.db.QueryRowContext(ctx,
		`SELECT `+cartItemColumns+` FROM shopping_cart_items WHERE id = $1`, cartItemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("get cart item", err)
	}
	return item, nil
}

func scanCartItem(row rowScanner) (*models.ShoppingCartItem, error) {
	var id, cartID, productItemID int64
	var quantity int
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &cartID, &productItemID, &quantity, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	item := models.NewShoppingCartItem(id, cartID, productItemID, quantity, createdAt, updatedAt)
	return &item, nil
}
