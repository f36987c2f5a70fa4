// Package repository provides data persistence implementations for inbox entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/allisson/shop-events/internal/database"
	apperrors "github.com/allisson/shop-events/internal/errors"
	"github.com/allisson/shop-events/internal/inbox/domain"
)

// PostgreSQLInboxMessageRepository handles inbox message persistence for PostgreSQL
type PostgreSQLInboxMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLInboxMessageRepository creates a new PostgreSQLInboxMessageRepository
func NewPostgreSQLInboxMessageRepository(db *sql.DB) *PostgreSQLInboxMessageRepository {
	return &PostgreSQLInboxMessageRepository{
		db: db,
	}
}

// Create inserts a new inbox row claiming the message identity. A unique
// violation on message_id maps to errors.ErrDuplicateMessage: some past or
// concurrent delivery already claimed this identity, and the caller must skip
// the business handler. This insert-or-fail is the compare-and-swap the whole
// dedup scheme rests on; there is deliberately no check-then-insert variant.
func (r *PostgreSQLInboxMessageRepository) Create(ctx context.Context, msg *domain.InboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO inbox_messages (message_id, event_type, payload, status, attempts, last_error, received_at, processed_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)`

	_, err := querier.ExecContext(ctx, query, msg.MessageID, msg.EventType, msg.Payload,
		msg.Status, msg.Attempts, msg.LastError, msg.ProcessedAt)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.ErrDuplicateMessage
		}
		return apperrors.Wrap(err, "failed to create inbox message")
	}

	return nil
}

// MarkProcessed transitions a message to processed. The status guard keeps
// processed terminal.
func (r *PostgreSQLInboxMessageRepository) MarkProcessed(ctx context.Context, messageID string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE inbox_messages
			  SET status = $1, processed_at = NOW()
			  WHERE message_id = $2 AND status = $3`

	result, err := querier.ExecContext(ctx, query,
		domain.InboxMessageStatusProcessed, messageID, domain.InboxMessageStatusPending)
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

// MarkFailed records a terminally failed message for dead-letter inspection.
func (r *PostgreSQLInboxMessageRepository) MarkFailed(ctx context.Context, msg *domain.InboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO inbox_messages (message_id, event_type, payload, status, attempts, last_error, received_at, processed_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW(), NULL)
			  ON CONFLICT (message_id)
			  DO UPDATE SET status = $4, attempts = $5, last_error = $6
			  WHERE inbox_messages.status = 'pending'`

	_, err := querier.ExecContext(ctx, query, msg.MessageID, msg.EventType, msg.Payload,
		domain.InboxMessageStatusFailed, msg.Attempts, msg.LastError)

	return err
}

// GetByMessageID retrieves an inbox message by its identity.
func (r *PostgreSQLInboxMessageRepository) GetByMessageID(ctx context.Context, messageID string) (*domain.InboxMessage, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT message_id, event_type, payload, status, attempts, last_error, received_at, processed_at
			  FROM inbox_messages
			  WHERE message_id = $1`

	var msg domain.InboxMessage
	err := querier.QueryRowContext(ctx, query, messageID).Scan(
		&msg.MessageID, &msg.EventType, &msg.Payload, &msg.Status,
		&msg.Attempts, &msg.LastError, &msg.ReceivedAt, &msg.ProcessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}

	return &msg, nil
}

// CountByStatus returns the number of inbox messages per status.
func (r *PostgreSQLInboxMessageRepository) CountByStatus(ctx context.Context) (map[domain.InboxMessageStatus]int, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, COUNT(*) FROM inbox_messages GROUP BY status`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[domain.InboxMessageStatus]int)
	for rows.Next() {
		var status domain.InboxMessageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
