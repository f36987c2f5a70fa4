// Package repository provides data persistence implementations for payment entities.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/shop-events/internal/database"
	"github.com/allisson/shop-events/internal/payment/domain"
)

// PostgreSQLPaymentRepository handles payment persistence for PostgreSQL
type PostgreSQLPaymentRepository struct {
	db *sql.DB
}

// NewPostgreSQLPaymentRepository creates a new PostgreSQLPaymentRepository
func NewPostgreSQLPaymentRepository(db *sql.DB) *PostgreSQLPaymentRepository {
	return &PostgreSQLPaymentRepository{
		db: db,
	}
}

// Create inserts a new payment through the Querier from context, joining the
// caller's transaction when present.
func (r *PostgreSQLPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO payments (id, order_id, amount, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query,
		payment.ID, payment.OrderID, payment.Amount, payment.Status)

	return err
}

// GetByOrderID retrieves the payment recorded for an order.
func (r *PostgreSQLPaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, amount, status, created_at, updated_at
			  FROM payments
			  WHERE order_id = $1`

	var payment domain.Payment
	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&payment.ID, &payment.OrderID, &payment.Amount, &payment.Status,
		&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	return &payment, nil
}

// List retrieves payments ordered by newest first.
func (r *PostgreSQLPaymentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, amount, status, created_at, updated_at
			  FROM payments
			  ORDER BY created_at DESC, id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var payments []*domain.Payment
	for rows.Next() {
		var payment domain.Payment
		err := rows.Scan(&payment.ID, &payment.OrderID, &payment.Amount, &payment.Status,
			&payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			return nil, err
		}
		payments = append(payments, &payment)
	}

	return payments, rows.Err()
}
