package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/shop-events/internal/database"
	"github.com/allisson/shop-events/internal/order/domain"
)

// MySQLOrderRepository handles order persistence for MySQL
type MySQLOrderRepository struct {
	db *sql.DB
}

// NewMySQLOrderRepository creates a new MySQLOrderRepository
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order and fills in the generated ID.
func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (customer_email, total_amount, status, created_at, updated_at)
			  VALUES (?, ?, ?, NOW(), NOW())`

	result, err := querier.ExecContext(ctx, query,
		order.CustomerEmail, order.TotalAmount, order.Status)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = id

	return nil
}

// GetByID retrieves an order by its ID.
func (r *MySQLOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_email, total_amount, status, created_at, updated_at
			  FROM orders
			  WHERE id = ?`

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
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE orders
			  SET status = ?, updated_at = NOW()
			  WHERE id = ?`

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
func (r *MySQLOrderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_email, total_amount, status, created_at, updated_at
			  FROM orders
			  ORDER BY id DESC
			  LIMIT ? OFFSET ?`

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
