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

// MySQLInboxMessageRepository handles inbox message persistence for MySQL
type MySQLInboxMessageRepository struct {
	db *sql.DB
}

// NewMySQLInboxMessageRepository creates a new MySQLInboxMessageRepository
func NewMySQLInboxMessageRepository(db *sql.DB) *MySQLInboxMessageRepository {
	return &MySQLInboxMessageRepository{
		db: db,
	}
}

// Create inserts a new inbox row claiming the message identity. A unique
// violation on message_id maps to errors.ErrDuplicateMessage so the caller can
// skip the business handler.
func (r *MySQLInboxMessageRepository) Create(ctx context.Context, msg *domain.InboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO inbox_messages (message_id, event_type, payload, status, attempts, last_error, received_at, processed_at)
			  VALUES (?, ?, ?, ?, ?, ?, NOW(), ?)`

	_, err := querier.ExecContext(ctx, query, msg.MessageID, msg.EventType, msg.Payload,
		msg.Status, msg.Attempts, msg.LastError, msg.ProcessedAt)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return apperrors.ErrDuplicateMessage
		}
		return apperrors.Wrap(err, "failed to create inbox message")
	}

	return nil
}

// MarkProcessed transitions a message to processed. The status guard keeps
// processed terminal.
func (r *MySQLInboxMessageRepository) MarkProcessed(ctx context.Context, messageID string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE inbox_messages
			  SET status = ?, processed_at = NOW()
			  WHERE message_id = ? AND status = ?`

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
// The IF guards keep a processed row untouched if the upsert races a commit.
func (r *MySQLInboxMessageRepository) MarkFailed(ctx context.Context, msg *domain.InboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO inbox_messages (message_id, event_type, payload, status, attempts, last_error, received_at, processed_at)
			  VALUES (?, ?, ?, ?, ?, ?, NOW(), NULL)
			  ON DUPLICATE KEY UPDATE
			  attempts = IF(status = 'pending', VALUES(attempts), attempts),
			  last_error = IF(status = 'pending', VALUES(last_error), last_error),
			  status = IF(status = 'pending', VALUES(status), status)`

	_, err := querier.ExecContext(ctx, query, msg.MessageID, msg.EventType, msg.Payload,
		domain.InboxMessageStatusFailed, msg.Attempts, msg.LastError)

	return err
}

// GetByMessageID retrieves an inbox message by its identity.
func (r *MySQLInboxMessageRepository) GetByMessageID(ctx context.Context, messageID string) (*domain.InboxMessage, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT message_id, event_type, payload, status, attempts, last_error, received_at, processed_at
			  FROM inbox_messages
			  WHERE message_id = ?`

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
func (r *MySQLInboxMessageRepository) CountByStatus(ctx context.Context) (map[domain.InboxMessageStatus]int, error) {
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

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry" for unique constraint violations
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
