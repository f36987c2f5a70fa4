package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/shop-events/internal/http/dto"
	"github.com/allisson/shop-events/internal/httputil"
	paymentUsecase "github.com/allisson/shop-events/internal/payment/usecase"
)

// PaymentHandler handles HTTP requests for payment operations.
type PaymentHandler struct {
	paymentUseCase paymentUsecase.UseCase
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentUseCase paymentUsecase.UseCase, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentUseCase: paymentUseCase,
		logger:         logger,
	}
}

// GetOrderPaymentHandler retrieves the payment recorded for an order.
// GET /v1/orders/:id/payment
// Returns 404 while the order.created event is still in flight.
func (h *PaymentHandler) GetOrderPaymentHandler(c *gin.Context) {
	id, err := parseOrderID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	payment, err := h.paymentUseCase.GetPaymentByOrderID(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPaymentToResponse(payment))
}

// ListPaymentsHandler retrieves payments with pagination support.
// GET /v1/payments?offset=0&limit=50
func (h *PaymentHandler) ListPaymentsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	payments, err := h.paymentUseCase.ListPayments(c.Request.Context(), limit, offset)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPaymentsToListResponse(payments))
}
