// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/shop-events/internal/database"
	"github.com/allisson/shop-events/internal/outbox/domain"
)

// PostgreSQLOutboxMessageRepository handles outbox message persistence for PostgreSQL
type PostgreSQLOutboxMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxMessageRepository creates a new PostgreSQLOutboxMessageRepository
func NewPostgreSQLOutboxMessageRepository(db *sql.DB) *PostgreSQLOutboxMessageRepository {
	return &PostgreSQLOutboxMessageRepository{
		db: db,
	}
}

// Create inserts a new outbox message with status=pending. It executes through
// the Querier from context, so inside TxManager.WithTx it joins the caller's
// business transaction and rolls back with it.
func (r *PostgreSQLOutboxMessageRepository) Create(ctx context.Context, msg *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_messages (id, aggregate_id, event_type, payload, status, attempts, last_error, next_attempt_at, sent_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, msg.ID, msg.AggregateID, msg.EventType, msg.Payload,
		msg.Status, msg.Attempts, msg.LastError, msg.SentAt)

	return err
}

// ClaimPending retrieves pending messages whose retry time has passed, oldest
// first, locking the rows and skipping rows locked by concurrent relay
// instances. Locks are released when the surrounding transaction ends, so a
// crashed relay never leaves a row claimed. Rows whose aggregate has an older
// pending row still backing off are excluded: publishing them would overtake
// the deferred row and break the aggregate's event order.
func (r *PostgreSQLOutboxMessageRepository) ClaimPending(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxMessage, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT o.id, o.aggregate_id, o.event_type, o.payload, o.status, o.attempts, o.last_error, o.next_attempt_at, o.sent_at, o.created_at, o.updated_at
			  FROM outbox_messages o
			  WHERE o.status = $1 AND o.next_attempt_at <= NOW()
			    AND NOT EXISTS (
			        SELECT 1 FROM outbox_messages prior
			        WHERE prior.aggregate_id = o.aggregate_id
			          AND prior.status = $1
			          AND prior.next_attempt_at > NOW()
			          AND (prior.created_at, prior.id) < (o.created_at, o.id)
			    )
			  ORDER BY o.created_at ASC, o.id ASC
			  LIMIT $2
			  FOR UPDATE OF o SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxMessageStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var messages []*domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage

		err := rows.Scan(&msg.ID, &msg.AggregateID, &msg.EventType, &msg.Payload, &msg.Status,
			&msg.Attempts, &msg.LastError, &msg.NextAttemptAt, &msg.SentAt, &msg.CreatedAt, &msg.UpdatedAt)
		if err != nil {
			return nil, err
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkSent transitions a message to sent and records the send time. The status
// guard keeps the transition monotonic: a sent or failed row is never touched.
func (r *PostgreSQLOutboxMessageRepository) MarkSent(ctx context.Context, msg *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = $1, sent_at = NOW(), updated_at = NOW()
			  WHERE id = $2 AND status = $3`

	result, err := querier.ExecContext(ctx, query,
		domain.OutboxMessageStatusSent, msg.ID, domain.OutboxMessageStatusPending)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrMessageNotFound
	}

	return nil
}

// MarkFailedAttempt records a failed publish attempt: the attempt count, the
// error, the deferred retry time and, once the attempt budget is exhausted,
// the terminal failed status.
func (r *PostgreSQLOutboxMessageRepository) MarkFailedAttempt(ctx context.Context, msg *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = $1, attempts = $2, last_error = $3, next_attempt_at = $4, updated_at = NOW()
			  WHERE id = $5`

	_, err := querier.ExecContext(ctx, query,
		msg.Status, msg.Attempts, msg.LastError, msg.NextAttemptAt, msg.ID)

	return err
}

// GetByID retrieves an outbox message by id.
func (r *PostgreSQLOutboxMessageRepository) GetByID(ctx context.Context, id string) (*domain.OutboxMessage, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_id, event_type, payload, status, attempts, last_error, next_attempt_at, sent_at, created_at, updated_at
			  FROM outbox_messages
			  WHERE id = $1`

	var msg domain.OutboxMessage
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&msg.ID, &msg.AggregateID, &msg.EventType, &msg.Payload, &msg.Status,
		&msg.Attempts, &msg.LastError, &msg.NextAttemptAt, &msg.SentAt, &msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}

	return &msg, nil
}

// CountByStatus returns the number of outbox messages per status.
func (r *PostgreSQLOutboxMessageRepository) CountByStatus(ctx context.Context) (map[domain.OutboxMessageStatus]int, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, COUNT(*) FROM outbox_messages GROUP BY status`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[domain.OutboxMessageStatus]int)
	for rows.Next() {
		var status domain.OutboxMessageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
