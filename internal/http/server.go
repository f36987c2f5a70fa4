// Package http provides the ops API HTTP server for order intake and
// messaging inspection.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server represents the ops API HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new Server with the base middleware chain installed.
// Optional middleware (CORS, HTTP metrics) is passed through extraMiddleware;
// nil entries are skipped so callers can pass the result of CORSMiddleware
// directly. All middleware is installed before any route is registered.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
	extraMiddleware ...gin.HandlerFunc,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))

	for _, middleware := range extraMiddleware {
		if middleware != nil {
			router.Use(middleware)
		}
	}

	server := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		db:     db,
		logger: logger,
	}

	router.GET("/health", server.healthHandler)
	router.GET("/ready", server.readinessHandler)

	return server
}

// RegisterRoutes mounts the v1 API handlers.
func (s *Server) RegisterRoutes(
	orderHandler *OrderHandler,
	paymentHandler *PaymentHandler,
	messagingHandler *MessagingHandler,
) {
	v1 := s.router.Group("/v1")
	v1.POST("/orders", orderHandler.CreateOrderHandler)
	v1.GET("/orders", orderHandler.ListOrdersHandler)
	v1.GET("/orders/:id", orderHandler.GetOrderHandler)
	v1.GET("/orders/:id/payment", paymentHandler.GetOrderPaymentHandler)
	v1.GET("/payments", paymentHandler.ListPaymentsHandler)
	v1.GET("/messaging/stats", messagingHandler.StatsHandler)
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness. It never touches dependencies.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic. The database
// is the only hard dependency of the ops API; the broker is intentionally not
// checked here because order intake only writes outbox rows.
func (s *Server) readinessHandler(c *gin.Context) {
	statusCode := http.StatusOK
	status := "ready"
	components := gin.H{}

	if s.db == nil {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
		components["database"] = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			statusCode = http.StatusServiceUnavailable
			status = "not_ready"
			components["database"] = "error"
		} else {
			components["database"] = "ok"
		}
	}

	c.JSON(statusCode, gin.H{"status": status, "components": components})
}
