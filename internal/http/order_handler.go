package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/allisson/shop-events/internal/http/dto"
	"github.com/allisson/shop-events/internal/httputil"
	orderUsecase "github.com/allisson/shop-events/internal/order/usecase"
)

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	orderUseCase orderUsecase.UseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderUseCase orderUsecase.UseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
		logger:       logger,
	}
}

// CreateOrderHandler creates a new order and stages its order.created event.
// POST /v1/orders
// Returns 201 Created with the order. The event is published asynchronously
// by the outbox relay, never within this request.
func (h *OrderHandler) CreateOrderHandler(c *gin.Context) {
	var input orderUsecase.CreateOrderInput

	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.CreateOrder(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapOrderToResponse(order))
}

// GetOrderHandler retrieves an order by its ID.
// GET /v1/orders/:id
func (h *OrderHandler) GetOrderHandler(c *gin.Context) {
	id, err := parseOrderID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// ListOrdersHandler retrieves orders with pagination support.
// GET /v1/orders?offset=0&limit=50
func (h *OrderHandler) ListOrdersHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	orders, err := h.orderUseCase.ListOrders(c.Request.Context(), limit, offset)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrdersToListResponse(orders))
}

// parseOrderID parses the :id path parameter.
func parseOrderID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id parameter: must be a positive integer")
	}
	return id, nil
}
