package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

var _ OrderRepository = (*PostgresOrderRepository)(nil)

const orderColumns = `id, user_id, shipping_address, order_status, order_date, order_total, created_at, updated_at`

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *logging.LoggerV2) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
	}
}

// GetOrder retrieves an order with its lines.
func (r *PostgresOrderRepository) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	r.logger.Debug("Fetching order by ID", logging.Fields{"order_id": id})

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to fetch order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, errors.NewStorageError("get order", err)
	}

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

func (r *PostgresOrderRepository) loadLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_item_id, quantity, price, created_at, updated_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, errors.NewStorageError("load order lines", err)
	}
	defer rows.Close()

	lines := make([]models.OrderLine, 0)
	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductItemID, &l.Quantity, &l.Price, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, errors.NewStorageError("scan order line", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("load order lines", err)
	}
	return lines, nil
}

// CreateFromCart writes the order, its lines, the stock decrements and the
// cart clearing in one transaction.
func (r *PostgresOrderRepository) CreateFromCart(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	r.logger.Debug("Creating order from cart", logging.Fields{
		"user_id":    draft.UserID,
		"cart_id":    draft.CartID,
		"line_count": len(draft.Lines),
	})

	var created *models.Order
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		order := models.Order{
			UserID:          draft.UserID,
			ShippingAddress: draft.ShippingAddress,
			Status:          models.OrderStatusPending,
			OrderDate:       now,
			OrderTotal:      draft.Total(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, shipping_address, order_status, order_date, order_total, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $4, $4)
			RETURNING id
		`, order.UserID, order.ShippingAddress, string(order.Status), now, order.OrderTotal).Scan(&order.ID)
		if err != nil {
			return errors.NewStorageError("insert order", err)
		}

		order.Lines = make([]models.OrderLine, 0, len(draft.Lines))
		for _, line := range draft.Lines {
			if err := decrementStock(ctx, tx, line.ProductItemID, line.Quantity); err != nil {
				return err
			}

			var lineID int64
			err := tx.QueryRowContext(ctx, `
				INSERT INTO order_lines (order_id, product_item_id, quantity, price, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $5)
				RETURNING id
			`, order.ID, line.ProductItemID, line.Quantity, line.Price, now).Scan(&lineID)
			if err != nil {
				return errors.NewStorageError("insert order line", err)
			}
			order.Lines = append(order.Lines, models.NewOrderLine(lineID, order.ID, line.ProductItemID, line.Quantity, line.Price, now))
		}

		// Items added to the cart after it was read stay in the cart.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM shopping_cart_items
			WHERE cart_id = $1 AND id = ANY($2)
		`, draft.CartID, pq.Array(draft.CartItemIDs())); err != nil {
			return errors.NewStorageError("clear cart", err)
		}

		created = &order
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create order from cart", logging.Fields{
			"user_id": draft.UserID,
			"cart_id": draft.CartID,
			"error":   err.Error(),
		})
		return nil, err
	}

	r.logger.Info("Order created successfully", logging.Fields{
		"order_id": created.ID,
		"user_id":  created.UserID,
		"total":    created.OrderTotal.String(),
	})

	return created, nil
}

// decrementStock re-checks availability and decrements in one statement, so
// a concurrent order that consumed the stock makes this one fail.
func decrementStock(ctx context.Context, tx *sql.Tx, productItemID int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE product_items
		SET qty_in_stock = qty_in_stock - $1, updated_at = NOW()
		WHERE id = $2 AND qty_in_stock >= $1
	`, quantity, productItemID)
	if err != nil {
		return errors.NewStorageError("decrement stock", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStorageError("decrement stock", err)
	}
	if n == 0 {
		var available int
		err := tx.QueryRowContext(ctx, `SELECT qty_in_stock FROM product_items WHERE id = $1`, productItemID).Scan(&available)
		if err == sql.ErrNoRows {
			return errors.NewNotFoundError("product_item", productItemID)
		}
		if err != nil {
			return errors.NewStorageError("read stock", err)
		}
		return insufficientStock(productItemID, quantity, available)
	}
	return nil
}

// UpdateStatus persists a new order status if the stored one is still from.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) (*models.Order, error) {
	r.logger.Debug("Updating order status", logging.Fields{
		"order_id":   id,
		"old_status": from,
		"new_status": to,
	})

	var returnedID int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET order_status = $2, updated_at = $3
		WHERE id = $1 AND order_status = $4
		RETURNING id
	`, id, string(to), time.Now().UTC(), string(from)).Scan(&returnedID)
	if err == sql.ErrNoRows {
		var actual string
		err := r.db.QueryRowContext(ctx, `SELECT order_status FROM orders WHERE id = $1`, id).Scan(&actual)
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("order", id)
		}
		if err != nil {
			return nil, errors.NewStorageError("read order status", err)
		}
		r.logger.Warn("Order status changed concurrently", logging.Fields{
			"order_id": id,
			"expected": from,
			"actual":   actual,
		})
		return nil, statusChanged(id, from, models.OrderStatus(actual))
	}
	if err != nil {
		r.logger.Error("Failed to update order status", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, errors.NewStorageError("update order status", err)
	}

	r.logger.Info("Order status updated", logging.Fields{
		"order_id":   id,
		"new_status": to,
	})

	return r.GetOrder(ctx, id)
}

// FindOrders returns one page of a user's orders, without lines, plus the
// total number of matching orders.
func (r *PostgresOrderRepository) FindOrders(ctx context.Context, q models.OrderQuery) ([]models.Order, int, error) {
	r.logger.Debug("Listing orders", logging.Fields{
		"user_id":   q.UserID,
		"page":      q.Page,
		"page_size": q.PageSize,
	})

	where := []string{"user_id = $1"}
	args := []interface{}{q.UserID}

	if q.Status != nil {
		args = append(args, string(*q.Status))
		where = append(where, fmt.Sprintf("order_status = $%d", len(args)))
	}
	if q.StartDate != nil {
		args = append(args, *q.StartDate)
		where = append(where, fmt.Sprintf("order_date >= $%d", len(args)))
	}
	if q.EndDate != nil {
		args = append(args, *q.EndDate)
		where = append(where, fmt.Sprintf("order_date <= $%d", len(args)))
	}
	whereClause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewStorageError("count orders", err)
	}

	direction := "DESC"
	if q.SortOrder == models.SortAsc {
		direction = "ASC"
	}
	selectQuery := "SELECT " + orderColumns + " FROM orders" + whereClause +
		fmt.Sprintf(" ORDER BY order_date %s, id %s LIMIT $%d OFFSET $%d", direction, direction, len(args)+1, len(args)+2)
	args = append(args, q.PageSize, q.Offset())

	rows, err := r.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, errors.NewStorageError("list orders", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, errors.NewStorageError("scan order", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewStorageError("list orders", err)
	}

	r.logger.Info("Orders listed", logging.Fields{
		"count": len(orders),
		"total": total,
	})

	return orders, total, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var status string
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ShippingAddress,
		&status,
		&order.OrderDate,
		&order.OrderTotal,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)
	return &order, nil
}
