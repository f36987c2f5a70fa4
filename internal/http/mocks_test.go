package http

import (
	"context"
	nethttp "net/http"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/shop-events/internal/event"
	inboxDomain "github.com/allisson/shop-events/internal/inbox/domain"
	orderDomain "github.com/allisson/shop-events/internal/order/domain"
	orderUsecase "github.com/allisson/shop-events/internal/order/usecase"
	outboxDomain "github.com/allisson/shop-events/internal/outbox/domain"
	paymentDomain "github.com/allisson/shop-events/internal/payment/domain"
)

// MockOrderUseCase is a mock implementation of the order use case.
type MockOrderUseCase struct {
	mock.Mock
}

func (m *MockOrderUseCase) CreateOrder(
	ctx context.Context,
	input orderUsecase.CreateOrderInput,
) (*orderDomain.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderDomain.Order), args.Error(1)
}

func (m *MockOrderUseCase) GetOrderByID(ctx context.Context, id int64) (*orderDomain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderDomain.Order), args.Error(1)
}

func (m *MockOrderUseCase) ListOrders(ctx context.Context, limit, offset int) ([]*orderDomain.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*orderDomain.Order), args.Error(1)
}

func (m *MockOrderUseCase) HandlePaymentProcessed(ctx context.Context, payload event.Payload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockOrderUseCase) HandlePaymentFailed(ctx context.Context, payload event.Payload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// MockPaymentUseCase is a mock implementation of the payment use case.
type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) ProcessOrderCreated(ctx context.Context, payload event.Payload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockPaymentUseCase) GetPaymentByOrderID(
	ctx context.Context,
	orderID int64,
) (*paymentDomain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentDomain.Payment), args.Error(1)
}

func (m *MockPaymentUseCase) ListPayments(
	ctx context.Context,
	limit, offset int,
) ([]*paymentDomain.Payment, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*paymentDomain.Payment), args.Error(1)
}

// MockOutboxMessageRepository backs the messaging stats handler in tests.
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

func (m *MockOutboxMessageRepository) MarkFailedAttempt(
	ctx context.Context,
	msg *outboxDomain.OutboxMessage,
) error {
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

// MockInboxMessageRepository backs the messaging stats handler in tests.
type MockInboxMessageRepository struct {
	mock.Mock
}

func (m *MockInboxMessageRepository) Create(ctx context.Context, msg *inboxDomain.InboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockInboxMessageRepository) MarkProcessed(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MockInboxMessageRepository) MarkFailed(ctx context.Context, msg *inboxDomain.InboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockInboxMessageRepository) GetByMessageID(
	ctx context.Context,
	messageID string,
) (*inboxDomain.InboxMessage, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inboxDomain.InboxMessage), args.Error(1)
}

func (m *MockInboxMessageRepository) CountByStatus(
	ctx context.Context,
) (map[inboxDomain.InboxMessageStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[inboxDomain.InboxMessageStatus]int), args.Error(1)
}

// newTestHandler builds a fully routed handler around the given mocks.
func newTestHandler(
	orderUC *MockOrderUseCase,
	paymentUC *MockPaymentUseCase,
	outboxRepo *MockOutboxMessageRepository,
	inboxRepo *MockInboxMessageRepository,
) nethttp.Handler {
	logger := testLogger()
	server := NewServer(nil, "localhost", 8080, logger)
	server.RegisterRoutes(
		NewOrderHandler(orderUC, logger),
		NewPaymentHandler(paymentUC, logger),
		NewMessagingHandler(outboxRepo, inboxRepo, logger),
	)
	return server.GetHandler()
}
