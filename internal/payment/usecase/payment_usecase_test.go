package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/shop-events/internal/errors"
	"github.com/allisson/shop-events/internal/event"
	outboxDomain "github.com/allisson/shop-events/internal/outbox/domain"
	outboxUsecase "github.com/allisson/shop-events/internal/outbox/usecase"
	"github.com/allisson/shop-events/internal/payment/domain"
)

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Payment, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

// MockOutboxMessageRepository backs the outbox writer in these tests.
type MockOutboxMessageRepository struct {
	mock.Mock
}

func (m *MockOutboxMessageRepository) Create(ctx context.Context, msg *outboxDomain.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockOutboxMessageRepository) ClaimPending(
	ctx context.Context,
	limit int,
) ([]*outboxDomain.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outboxDomain.OutboxMessage), args.Error(1)
}

func (m *MockOutboxMessageRepository) MarkSent(ctx context.Context, msg *outboxDomain.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockOutboxMessageRepository) MarkFailedAttempt(ctx context.Context, msg *outboxDomain.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockOutboxMessageRepository) CountByStatus(
	ctx context.Context,
) (map[outboxDomain.OutboxMessageStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[outboxDomain.OutboxMessageStatus]int), args.Error(1)
}

func orderCreated() event.OrderCreatedV1 {
	return event.OrderCreatedV1{
		OrderID:       1,
		CustomerEmail: "john@example.com",
		TotalAmount:   99.9,
	}
}

func TestNewPaymentUseCase(t *testing.T) {
	useCase := NewPaymentUseCase(&MockPaymentRepository{}, outboxUsecase.NewWriter(&MockOutboxMessageRepository{}), nil)
	assert.NotNil(t, useCase)
}

func TestPaymentUseCase_ProcessOrderCreated_Approved(t *testing.T) {
	paymentRepo := &MockPaymentRepository{}
	outboxRepo := &MockOutboxMessageRepository{}
	useCase := NewPaymentUseCase(paymentRepo, outboxUsecase.NewWriter(outboxRepo), nil)

	ctx := context.Background()

	var capturedPayment *domain.Payment
	var capturedMsg *outboxDomain.OutboxMessage
	paymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) {
			capturedPayment = args.Get(1).(*domain.Payment)
		}).
		Return(nil)
	outboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.OutboxMessage")).
		Run(func(args mock.Arguments) {
			capturedMsg = args.Get(1).(*outboxDomain.OutboxMessage)
		}).
		Return(nil)

	err := useCase.ProcessOrderCreated(ctx, orderCreated())

	assert.NoError(t, err)
	require.NotNil(t, capturedPayment)
	assert.Equal(t, int64(1), capturedPayment.OrderID)
	assert.Equal(t, 99.9, capturedPayment.Amount)
	assert.Equal(t, domain.PaymentStatusProcessed, capturedPayment.Status)

	// The staged event carries the recorded payment.
	require.NotNil(t, capturedMsg)
	assert.Equal(t, event.TypePaymentProcessed, capturedMsg.EventType)
	assert.Equal(t, "1", capturedMsg.AggregateID)

	var payload event.PaymentProcessedV1
	require.NoError(t, json.Unmarshal([]byte(capturedMsg.Payload), &payload))
	assert.Equal(t, capturedPayment.ID.String(), payload.PaymentID)
	assert.Equal(t, int64(1), payload.OrderID)
	assert.Equal(t, 99.9, payload.Amount)
	assert.Equal(t, "john@example.com", payload.CustomerEmail)

	paymentRepo.AssertExpectations(t)
	outboxRepo.AssertExpectations(t)
}

func TestPaymentUseCase_ProcessOrderCreated_Declined(t *testing.T) {
	paymentRepo := &MockPaymentRepository{}
	outboxRepo := &MockOutboxMessageRepository{}
	charge := func(ctx context.Context, order event.OrderCreatedV1) error {
		return errors.New("card declined")
	}
	useCase := NewPaymentUseCase(paymentRepo, outboxUsecase.NewWriter(outboxRepo), charge)

	ctx := context.Background()

	var capturedPayment *domain.Payment
	var capturedMsg *outboxDomain.OutboxMessage
	paymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) {
			capturedPayment = args.Get(1).(*domain.Payment)
		}).
		Return(nil)
	outboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.OutboxMessage")).
		Run(func(args mock.Arguments) {
			capturedMsg = args.Get(1).(*outboxDomain.OutboxMessage)
		}).
		Return(nil)

	err := useCase.ProcessOrderCreated(ctx, orderCreated())

	// A declined charge consumes the message and publishes the decline.
	assert.NoError(t, err)
	require.NotNil(t, capturedPayment)
	assert.Equal(t, domain.PaymentStatusFailed, capturedPayment.Status)

	require.NotNil(t, capturedMsg)
	assert.Equal(t, event.TypePaymentFailed, capturedMsg.EventType)

	var payload event.PaymentFailedV1
	require.NoError(t, json.Unmarshal([]byte(capturedMsg.Payload), &payload))
	assert.Equal(t, int64(1), payload.OrderID)
	assert.Equal(t, "card declined", payload.Reason)
}

func TestPaymentUseCase_ProcessOrderCreated_WrongPayloadType(t *testing.T) {
	useCase := NewPaymentUseCase(&MockPaymentRepository{}, outboxUsecase.NewWriter(&MockOutboxMessageRepository{}), nil)

	err := useCase.ProcessOrderCreated(context.Background(), event.PaymentFailedV1{OrderID: 1, Reason: "x"})

	assert.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
}

func TestPaymentUseCase_ProcessOrderCreated_RepositoryError(t *testing.T) {
	paymentRepo := &MockPaymentRepository{}
	outboxRepo := &MockOutboxMessageRepository{}
	useCase := NewPaymentUseCase(paymentRepo, outboxUsecase.NewWriter(outboxRepo), nil)

	ctx := context.Background()
	paymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(assert.AnError)

	err := useCase.ProcessOrderCreated(ctx, orderCreated())

	// Transient: the consumer's transaction rolls back and the delivery is
	// requeued.
	assert.Error(t, err)
	assert.False(t, apperrors.IsPermanent(err))
	outboxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPaymentUseCase_GetPaymentByOrderID(t *testing.T) {
	paymentRepo := &MockPaymentRepository{}
	useCase := NewPaymentUseCase(paymentRepo, outboxUsecase.NewWriter(&MockOutboxMessageRepository{}), nil)

	ctx := context.Background()
	expected := &domain.Payment{OrderID: 1, Amount: 99.9, Status: domain.PaymentStatusProcessed}

	paymentRepo.On("GetByOrderID", ctx, int64(1)).Return(expected, nil)

	payment, err := useCase.GetPaymentByOrderID(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, expected, payment)
	paymentRepo.AssertExpectations(t)
}

func TestPaymentUseCase_ListPayments(t *testing.T) {
	paymentRepo := &MockPaymentRepository{}
	useCase := NewPaymentUseCase(paymentRepo, outboxUsecase.NewWriter(&MockOutboxMessageRepository{}), nil)

	ctx := context.Background()
	expected := []*domain.Payment{
		{OrderID: 2, Amount: 10.5},
		{OrderID: 1, Amount: 99.9},
	}

	paymentRepo.On("List", ctx, 50, 0).Return(expected, nil)

	payments, err := useCase.ListPayments(ctx, 50, 0)

	assert.NoError(t, err)
	assert.Equal(t, expected, payments)
	paymentRepo.AssertExpectations(t)
}
