// Package usecase implements the order business logic: creating orders with
// their staged events and reacting to payment outcomes.
package usecase

import (
	"context"
	"strconv"

	validation "github.com/jellydator/validation"

	"github.com/allisson/shop-events/internal/database"
	apperrors "github.com/allisson/shop-events/internal/errors"
	"github.com/allisson/shop-events/internal/event"
	"github.com/allisson/shop-events/internal/order/domain"
	outboxUsecase "github.com/allisson/shop-events/internal/outbox/usecase"
	appValidation "github.com/allisson/shop-events/internal/validation"
)

// CreateOrderInput contains the input data for order creation
type CreateOrderInput struct {
	CustomerEmail string  `json:"customer_email"`
	TotalAmount   float64 `json:"total_amount"`
}

// UseCase defines the interface for order business logic operations
type UseCase interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error)
	HandlePaymentProcessed(ctx context.Context, payload event.Payload) error
	HandlePaymentFailed(ctx context.Context, payload event.Payload) error
}

// OrderRepository interface defines order repository operations
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	List(ctx context.Context, limit, offset int) ([]*domain.Order, error)
}

// OrderUseCase handles order-related business logic
type OrderUseCase struct {
	txManager    database.TxManager
	orderRepo    OrderRepository
	outboxWriter *outboxUsecase.Writer
}

// NewOrderUseCase creates a new OrderUseCase
func NewOrderUseCase(
	txManager database.TxManager,
	orderRepo OrderRepository,
	outboxWriter *outboxUsecase.Writer,
) UseCase {
	return &OrderUseCase{
		txManager:    txManager,
		orderRepo:    orderRepo,
		outboxWriter: outboxWriter,
	}
}

// validateCreateOrderInput validates the order creation input using jellydator/validation
func (uc *OrderUseCase) validateCreateOrderInput(input CreateOrderInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.CustomerEmail,
			validation.Required.Error("customer_email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("customer_email must be between 5 and 255 characters"),
		),
		validation.Field(&input.TotalAmount,
			validation.Required.Error("total_amount is required"),
			validation.Min(0.01).Error("total_amount must be positive"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreateOrder creates a new order and stages an order.created event in the
// same transaction. The event row commits if and only if the order commits;
// there is no code path that publishes without the order existing.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if err := uc.validateCreateOrderInput(input); err != nil {
		return nil, err
	}

	order := &domain.Order{
		CustomerEmail: input.CustomerEmail,
		TotalAmount:   input.TotalAmount,
		Status:        domain.OrderStatusPending,
	}

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.orderRepo.Create(ctx, order); err != nil {
			return apperrors.Wrap(err, "failed to create order")
		}

		_, err := uc.outboxWriter.Append(ctx, strconv.FormatInt(order.ID, 10), event.OrderCreatedV1{
			OrderID:       order.ID,
			CustomerEmail: order.CustomerEmail,
			TotalAmount:   order.TotalAmount,
		})
		if err != nil {
			return apperrors.Wrap(err, "failed to stage order.created event")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrderByID retrieves an order by its ID.
func (uc *OrderUseCase) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	return uc.orderRepo.GetByID(ctx, id)
}

// ListOrders retrieves orders ordered by newest first.
func (uc *OrderUseCase) ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	return uc.orderRepo.List(ctx, limit, offset)
}

// HandlePaymentProcessed marks the order paid when its payment is recorded.
// It runs inside the inbox consumer's transaction, so the status change
// commits atomically with the inbox row. A payment for a missing order is
// permanent: redelivery cannot make the order appear.
func (uc *OrderUseCase) HandlePaymentProcessed(ctx context.Context, payload event.Payload) error {
	p, ok := payload.(event.PaymentProcessedV1)
	if !ok {
		return apperrors.Permanent(apperrors.Wrapf(apperrors.ErrInvalidInput,
			"unexpected payload type for %s", event.TypePaymentProcessed))
	}

	if err := uc.orderRepo.UpdateStatus(ctx, p.OrderID, domain.OrderStatusPaid); err != nil {
		if apperrors.Is(err, domain.ErrOrderNotFound) {
			return apperrors.Permanent(err)
		}
		return err
	}

	return nil
}

// HandlePaymentFailed keeps the order pending and succeeds, so the event is
// consumed exactly once without side effects beyond the inbox record.
func (uc *OrderUseCase) HandlePaymentFailed(ctx context.Context, payload event.Payload) error {
	if _, ok := payload.(event.PaymentFailedV1); !ok {
		return apperrors.Permanent(apperrors.Wrapf(apperrors.ErrInvalidInput,
			"unexpected payload type for %s", event.TypePaymentFailed))
	}
	return nil
}
