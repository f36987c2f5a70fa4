package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/shop-events/internal/errors"
	"github.com/allisson/shop-events/internal/outbox/domain"
	"github.com/allisson/shop-events/internal/testutil"
)

func TestNewMySQLOutboxMessageRepository(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewMySQLOutboxMessageRepository(db)
	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestMySQLOutboxMessageRepository_CreateAndClaim(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLOutboxMessageRepository(db)
	ctx := context.Background()

	first := newPendingMessage("order.created")
	second := newPendingMessage("payment.processed")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	messages, err := repo.ClaimPending(ctx, 10)
	assert.NoError(t, err)
	require.Len(t, messages, 2)

	// Oldest first, UUIDs round-tripped through BINARY(16).
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)
	assert.Equal(t, first.Payload, messages[0].Payload)
	assert.Equal(t, domain.OutboxMessageStatusPending, messages[0].Status)
}

func TestMySQLOutboxMessageRepository_ClaimPending_Limit(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLOutboxMessageRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newPendingMessage("order.created")))
	}

	messages, err := repo.ClaimPending(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestMySQLOutboxMessageRepository_ClaimPending_DeferredRowHoldsBackAggregate(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLOutboxMessageRepository(db)
	ctx := context.Background()

	older := newPendingMessage("order.created")
	newer := newPendingMessage("payment.processed")
	other := newPendingMessage("order.created")
	other.AggregateID = "order-2"
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, other))

	// Back off the oldest row of order-1 after a failed publish.
	lastError := "broker unavailable"
	older.Attempts = 1
	older.LastError = &lastError
	older.NextAttemptAt = time.Now().Add(time.Hour)
	require.NoError(t, repo.MarkFailedAttempt(ctx, older))

	// The newer order-1 row must wait for its deferred sibling; order-2 is
	// unaffected.
	messages, err := repo.ClaimPending(ctx, 10)
	assert.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, other.ID, messages[0].ID)
}

func TestMySQLOutboxMessageRepository_MarkSent(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLOutboxMessageRepository(db)
	ctx := context.Background()

	msg := newPendingMessage("order.created")
	require.NoError(t, repo.Create(ctx, msg))

	err := repo.MarkSent(ctx, msg)
	assert.NoError(t, err)

	// Sent is terminal: no pending row left to transition.
	err = repo.MarkSent(ctx, msg)
	assert.Error(t, err)
	assert.True(t, apperrors.Is(err, domain.ErrMessageNotFound))

	messages, err := repo.ClaimPending(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMySQLOutboxMessageRepository_MarkFailedAttempt(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLOutboxMessageRepository(db)
	ctx := context.Background()

	msg := newPendingMessage("order.created")
	require.NoError(t, repo.Create(ctx, msg))

	// Defer the retry far into the future; the claim query must skip it.
	lastError := "broker unavailable"
	msg.Attempts = 1
	msg.LastError = &lastError
	msg.NextAttemptAt = time.Now().Add(time.Hour)

	err := repo.MarkFailedAttempt(ctx, msg)
	assert.NoError(t, err)

	messages, err := repo.ClaimPending(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMySQLOutboxMessageRepository_GetByID(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLOutboxMessageRepository(db)
	ctx := context.Background()

	msg := newPendingMessage("order.created")
	require.NoError(t, repo.Create(ctx, msg))

	found, err := repo.GetByID(ctx, msg.ID.String())
	require.NoError(t, err)
	assert.Equal(t, msg.ID, found.ID)
	assert.Equal(t, msg.Payload, found.Payload)
	assert.Equal(t, domain.OutboxMessageStatusPending, found.Status)

	_, err = repo.GetByID(ctx, uuid.Must(uuid.NewV7()).String())
	assert.True(t, apperrors.Is(err, domain.ErrMessageNotFound))

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.True(t, apperrors.Is(err, domain.ErrMessageNotFound))
}

func TestMySQLOutboxMessageRepository_CountByStatus(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLOutboxMessageRepository(db)
	ctx := context.Background()

	first := newPendingMessage("order.created")
	second := newPendingMessage("order.created")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.MarkSent(ctx, first))

	counts, err := repo.CountByStatus(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, counts[domain.OutboxMessageStatusPending])
	assert.Equal(t, 1, counts[domain.OutboxMessageStatusSent])
}
