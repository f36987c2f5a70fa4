package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/shop-events/internal/database"
	"github.com/allisson/shop-events/internal/outbox/domain"
)

// MySQLOutboxMessageRepository handles outbox message persistence for MySQL
type MySQLOutboxMessageRepository struct {
	db *sql.DB
}

// NewMySQLOutboxMessageRepository creates a new MySQLOutboxMessageRepository
func NewMySQLOutboxMessageRepository(db *sql.DB) *MySQLOutboxMessageRepository {
	return &MySQLOutboxMessageRepository{
		db: db,
	}
}

// Create inserts a new outbox message with status=pending through the Querier
// from context, joining the caller's business transaction when present.
func (r *MySQLOutboxMessageRepository) Create(ctx context.Context, msg *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_messages (id, aggregate_id, event_type, payload, status, attempts, last_error, next_attempt_at, sent_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), ?, NOW(), NOW())`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := msg.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, idBytes, msg.AggregateID, msg.EventType, msg.Payload,
		msg.Status, msg.Attempts, msg.LastError, msg.SentAt)

	return err
}

// ClaimPending retrieves pending messages whose retry time has passed, oldest
// first, skipping rows locked by concurrent relay instances. Rows whose
// aggregate has an older pending row still backing off are excluded so the
// aggregate's event order survives the backoff.
func (r *MySQLOutboxMessageRepository) ClaimPending(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxMessage, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT o.id, o.aggregate_id, o.event_type, o.payload, o.status, o.attempts, o.last_error, o.next_attempt_at, o.sent_at, o.created_at, o.updated_at
			  FROM outbox_messages o
			  WHERE o.status = ? AND o.next_attempt_at <= NOW()
			    AND NOT EXISTS (
			        SELECT 1 FROM outbox_messages prior
			        WHERE prior.aggregate_id = o.aggregate_id
			          AND prior.status = ?
			          AND prior.next_attempt_at > NOW()
			          AND (prior.created_at < o.created_at
			               OR (prior.created_at = o.created_at AND prior.id < o.id))
			    )
			  ORDER BY o.created_at ASC, o.id ASC
			  LIMIT ?
			  FOR UPDATE OF o SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query,
		domain.OutboxMessageStatusPending, domain.OutboxMessageStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var messages []*domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		var idBytes []byte

		err := rows.Scan(&idBytes, &msg.AggregateID, &msg.EventType, &msg.Payload, &msg.Status,
			&msg.Attempts, &msg.LastError, &msg.NextAttemptAt, &msg.SentAt, &msg.CreatedAt, &msg.UpdatedAt)
		if err != nil {
			return nil, err
		}

		// Convert bytes back to UUID
		if err := msg.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, err
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkSent transitions a message to sent with a monotonic status guard.
func (r *MySQLOutboxMessageRepository) MarkSent(ctx context.Context, msg *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = ?, sent_at = NOW(), updated_at = NOW()
			  WHERE id = ? AND status = ?`

	idBytes, err := msg.ID.MarshalBinary()
	if err != nil {
		return err
	}

	result, err := querier.ExecContext(ctx, query,
		domain.OutboxMessageStatusSent, idBytes, domain.OutboxMessageStatusPending)
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

// MarkFailedAttempt records a failed publish attempt and the deferred retry time.
func (r *MySQLOutboxMessageRepository) MarkFailedAttempt(ctx context.Context, msg *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = ?, attempts = ?, last_error = ?, next_attempt_at = ?, updated_at = NOW()
			  WHERE id = ?`

	idBytes, err := msg.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query,
		msg.Status, msg.Attempts, msg.LastError, msg.NextAttemptAt, idBytes)

	return err
}

// GetByID retrieves an outbox message by id.
func (r *MySQLOutboxMessageRepository) GetByID(ctx context.Context, id string) (*domain.OutboxMessage, error) {
	querier := database.GetTx(ctx, r.db)

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrMessageNotFound
	}
	idBytes, err := parsed.MarshalBinary()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, aggregate_id, event_type, payload, status, attempts, last_error, next_attempt_at, sent_at, created_at, updated_at
			  FROM outbox_messages
			  WHERE id = ?`

	var msg domain.OutboxMessage
	var rawID []byte
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(
		&rawID, &msg.AggregateID, &msg.EventType, &msg.Payload, &msg.Status,
		&msg.Attempts, &msg.LastError, &msg.NextAttemptAt, &msg.SentAt, &msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}

	if err := msg.ID.UnmarshalBinary(rawID); err != nil {
		return nil, err
	}

	return &msg, nil
}

// CountByStatus returns the number of outbox messages per status.
func (r *MySQLOutboxMessageRepository) CountByStatus(ctx context.Context) (map[domain.OutboxMessageStatus]int, error) {
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
