package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/shop-events/internal/http/dto"
	"github.com/allisson/shop-events/internal/httputil"
	inboxUsecase "github.com/allisson/shop-events/internal/inbox/usecase"
	outboxUsecase "github.com/allisson/shop-events/internal/outbox/usecase"
)

// MessagingHandler exposes outbox and inbox counters for operational
// inspection. A growing pending count on either side is the first symptom of
// a stuck relay or consumer.
type MessagingHandler struct {
	outboxRepo outboxUsecase.OutboxMessageRepository
	inboxRepo  inboxUsecase.InboxMessageRepository
	logger     *slog.Logger
}

// NewMessagingHandler creates a new messaging handler.
func NewMessagingHandler(
	outboxRepo outboxUsecase.OutboxMessageRepository,
	inboxRepo inboxUsecase.InboxMessageRepository,
	logger *slog.Logger,
) *MessagingHandler {
	return &MessagingHandler{
		outboxRepo: outboxRepo,
		inboxRepo:  inboxRepo,
		logger:     logger,
	}
}

// StatsHandler reports outbox and inbox row counts grouped by status.
// GET /v1/messaging/stats
func (h *MessagingHandler) StatsHandler(c *gin.Context) {
	ctx := c.Request.Context()

	outboxCounts, err := h.outboxRepo.CountByStatus(ctx)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	inboxCounts, err := h.inboxRepo.CountByStatus(ctx)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MessagingStatsResponse{
		Outbox: make(map[string]int, len(outboxCounts)),
		Inbox:  make(map[string]int, len(inboxCounts)),
	}
	for status, count := range outboxCounts {
		response.Outbox[string(status)] = count
	}
	for status, count := range inboxCounts {
		response.Inbox[string(status)] = count
	}

	c.JSON(http.StatusOK, response)
}
