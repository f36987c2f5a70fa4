// Package repository provides data persistence implementations for order entities.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/shop-events/internal/database"
	"github.com/allisson/shop-events/internal/order/domain"
)

// PostgreSQLOrderRepository handles order persistence for PostgreSQL
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderRepository creates a new PostgreSQLOrderRepository
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order and fills in the generated ID. It executes
// through the Querier from context, so inside TxManager.WithTx it joins the
// caller's transaction.
func (r *PostgreSQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (customer_email, total_amount, status, created_at, updated_at)
			  VALUES ($1, $2, $3, NOW(), NOW())
			  RETURNING id, created_at, updated_at`

	return querier.QueryRowContext(ctx, query,
		order.CustomerEmail, order.TotalAmount, order.Status).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

// GetByID retrieves an order by its ID.
func (r *PostgreSQLOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_email, total_amount, status, created_at, updated_at
			  FROM orders
			  WHERE id = $1`

	var order domain.Order
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.CustomerEmail, &order.TotalAmount, &order.Status,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return &order, nil
}

// UpdateStatus transitions an order to the given status.
func (r *PostgreSQLOrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE orders
			  SET status = $1, updated_at = NOW()
			  WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

// List retrieves orders ordered by newest first.
func (r *PostgreSQLOrderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_email, total_amount, status, created_at, updated_at
			  FROM orders
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		err := rows.Scan(&order.ID, &order.CustomerEmail, &order.TotalAmount, &order.Status,
			&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, &order)
	}

	return orders, rows.Err()
}
