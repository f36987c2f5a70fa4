package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/shop-events/internal/database"
	"github.com/allisson/shop-events/internal/payment/domain"
)

// MySQLPaymentRepository handles payment persistence for MySQL
type MySQLPaymentRepository struct {
	db *sql.DB
}

// NewMySQLPaymentRepository creates a new MySQLPaymentRepository
func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{
		db: db,
	}
}

// Create inserts a new payment through the Querier from context, joining the
// caller's transaction when present.
func (r *MySQLPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO payments (id, order_id, amount, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, NOW(), NOW())`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := payment.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query,
		idBytes, payment.OrderID, payment.Amount, payment.Status)

	return err
}

// GetByOrderID retrieves the payment recorded for an order.
func (r *MySQLPaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, amount, status, created_at, updated_at
			  FROM payments
			  WHERE order_id = ?`

	var payment domain.Payment
	var idBytes []byte
	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&idBytes, &payment.OrderID, &payment.Amount, &payment.Status,
		&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	if err := payment.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}

	return &payment, nil
}

// List retrieves payments ordered by newest first.
func (r *MySQLPaymentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, amount, status, created_at, updated_at
			  FROM payments
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var payments []*domain.Payment
	for rows.Next() {
		var payment domain.Payment
		var idBytes []byte
		err := rows.Scan(&idBytes, &payment.OrderID, &payment.Amount, &payment.Status,
			&payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if err := payment.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, err
		}
		payments = append(payments, &payment)
	}

	return payments, rows.Err()
}
