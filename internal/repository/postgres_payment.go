package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-fulfillment-service/internal/models"
)

var (
	_ PaymentRepository = (*PostgresPaymentRepository)(nil)
	_ CatalogRepository = (*PostgresCatalogRepository)(nil)
)

const paymentColumns = `id, order_id, external_reference, amount, currency, status, payment_at, created_at, updated_at`

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL.
type PostgresPaymentRepository struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

func NewPostgresPaymentRepository(db *sql.DB, logger *logging.LoggerV2) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db, logger: logger}
}

func (r *PostgresPaymentRepository) CreatePayment(ctx context.Context, payment models.Payment) (*models.Payment, error) {
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, external_reference, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, created_at, updated_at
	`, payment.OrderID, payment.ExternalReference, payment.Amount, payment.Currency, string(payment.Status), now).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if isUniqueViolation(err) {
		r.logger.Warn("Duplicate payment rejected", logging.Fields{"order_id": payment.OrderID})
		return nil, paymentExists(payment.OrderID)
	}
	if err != nil {
		r.logger.Error("Failed to create payment", logging.Fields{
			"order_id": payment.OrderID,
			"error":    err.Error(),
		})
		return nil, errors.NewStorageError("create payment", err)
	}

	r.logger.Info("Payment created", logging.Fields{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
	})
	return &payment, nil
}

func (r *PostgresPaymentRepository) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	payment, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("get payment", err)
	}
	return payment, nil
}

// UpdatePayment writes a settled payment. The WHERE clause only matches a
// pending row, so two racing settlements cannot both succeed.
func (r *PostgresPaymentRepository) UpdatePayment(ctx context.Context, payment models.Payment) (*models.Payment, error) {
	var paymentAt sql.NullTime
	if payment.PaymentAt != nil {
		paymentAt = sql.NullTime{Time: *payment.PaymentAt, Valid: true}
	}

	updated, err := scanPayment(r.db.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $2, payment_at = $3, external_reference = $4, updated_at = $5
		WHERE id = $1 AND status = $6
		RETURNING `+paymentColumns,
		payment.ID, string(payment.Status), paymentAt, payment.ExternalReference, time.Now().UTC(),
		string(models.PaymentStatusPending)))
	if err == nil {
		return updated, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.NewStorageError("update payment", err)
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = $1`, payment.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("payment", payment.ID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read payment status", err)
	}
	return nil, errors.NewConflictError("payment_id", fmt.Sprintf(
		"payment %d was already settled as %s", payment.ID, current,
	))
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var status string
	var paymentAt sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.ExternalReference,
		&p.Amount,
		&p.Currency,
		&status,
		&paymentAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	if paymentAt.Valid {
		p.PaymentAt = &paymentAt.Time
	}
	return &p, nil
}

// PostgresCatalogRepository reads price and stock from product_items.
type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

func (r *PostgresCatalogRepository) GetProductItem(ctx context.Context, id int64) (*models.ProductItem, error) {
	var p models.ProductItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sku, price, qty_in_stock
		FROM product_items
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Price, &p.QtyInStock)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("get product item", err)
	}
	return &p, nil
}
