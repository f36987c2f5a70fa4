// Package usecase implements the payment business logic: recording payments
// for created orders and staging the resulting events.
package usecase

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/allisson/shop-events/internal/errors"
	"github.com/allisson/shop-events/internal/event"
	outboxUsecase "github.com/allisson/shop-events/internal/outbox/usecase"
	"github.com/allisson/shop-events/internal/payment/domain"
)

// ChargeFunc decides whether a payment for the order is approved. Returning an
// error declines the charge; a nil ChargeFunc approves everything. The real
// payment provider call sits behind this seam.
type ChargeFunc func(ctx context.Context, order event.OrderCreatedV1) error

// UseCase defines the interface for payment business logic operations
type UseCase interface {
	ProcessOrderCreated(ctx context.Context, payload event.Payload) error
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error)
	ListPayments(ctx context.Context, limit, offset int) ([]*domain.Payment, error)
}

// PaymentRepository interface defines payment repository operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Payment, error)
}

// PaymentUseCase handles payment-related business logic
type PaymentUseCase struct {
	paymentRepo  PaymentRepository
	outboxWriter *outboxUsecase.Writer
	charge       ChargeFunc
}

// NewPaymentUseCase creates a new PaymentUseCase. charge may be nil, in which
// case every payment is approved.
func NewPaymentUseCase(
	paymentRepo PaymentRepository,
	outboxWriter *outboxUsecase.Writer,
	charge ChargeFunc,
) UseCase {
	return &PaymentUseCase{
		paymentRepo:  paymentRepo,
		outboxWriter: outboxWriter,
		charge:       charge,
	}
}

// ProcessOrderCreated is the order.created inbox handler. It records the
// payment and stages the outcome event in the caller's transaction: the
// payment row, the inbox row and the staged payment.processed (or
// payment.failed) commit or roll back together. The event reaches the broker
// later through the outbox relay, never directly from here.
func (uc *PaymentUseCase) ProcessOrderCreated(ctx context.Context, payload event.Payload) error {
	order, ok := payload.(event.OrderCreatedV1)
	if !ok {
		return apperrors.Permanent(apperrors.Wrapf(apperrors.ErrInvalidInput,
			"unexpected payload type for %s", event.TypeOrderCreated))
	}

	payment := &domain.Payment{
		ID:      uuid.Must(uuid.NewV7()),
		OrderID: order.OrderID,
		Amount:  order.TotalAmount,
		Status:  domain.PaymentStatusProcessed,
	}

	if uc.charge != nil {
		if chargeErr := uc.charge(ctx, order); chargeErr != nil {
			// A declined charge is an outcome, not a processing failure: the
			// message is consumed and the decline is published downstream.
			payment.Status = domain.PaymentStatusFailed

			if err := uc.paymentRepo.Create(ctx, payment); err != nil {
				return apperrors.Wrap(err, "failed to record declined payment")
			}

			_, err := uc.outboxWriter.Append(ctx, aggregateID(order.OrderID), event.PaymentFailedV1{
				OrderID: order.OrderID,
				Reason:  chargeErr.Error(),
			})
			if err != nil {
				return apperrors.Wrap(err, "failed to stage payment.failed event")
			}

			return nil
		}
	}

	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		return apperrors.Wrap(err, "failed to record payment")
	}

	_, err := uc.outboxWriter.Append(ctx, aggregateID(order.OrderID), event.PaymentProcessedV1{
		OrderID:       order.OrderID,
		PaymentID:     payment.ID.String(),
		Amount:        payment.Amount,
		CustomerEmail: order.CustomerEmail,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to stage payment.processed event")
	}

	return nil
}

// GetPaymentByOrderID retrieves the payment recorded for an order.
func (uc *PaymentUseCase) GetPaymentByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error) {
	return uc.paymentRepo.GetByOrderID(ctx, orderID)
}

// ListPayments retrieves payments ordered by newest first.
func (uc *PaymentUseCase) ListPayments(ctx context.Context, limit, offset int) ([]*domain.Payment, error) {
	return uc.paymentRepo.List(ctx, limit, offset)
}

func aggregateID(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}
