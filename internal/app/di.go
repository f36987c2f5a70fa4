// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/allisson/shop-events/internal/broker"
	"github.com/allisson/shop-events/internal/config"
	"github.com/allisson/shop-events/internal/database"
	"github.com/allisson/shop-events/internal/event"
	"github.com/allisson/shop-events/internal/http"
	inboxRepository "github.com/allisson/shop-events/internal/inbox/repository"
	inboxUsecase "github.com/allisson/shop-events/internal/inbox/usecase"
	"github.com/allisson/shop-events/internal/metrics"
	orderRepository "github.com/allisson/shop-events/internal/order/repository"
	orderUsecase "github.com/allisson/shop-events/internal/order/usecase"
	outboxRepository "github.com/allisson/shop-events/internal/outbox/repository"
	outboxUsecase "github.com/allisson/shop-events/internal/outbox/usecase"
	paymentRepository "github.com/allisson/shop-events/internal/payment/repository"
	paymentUsecase "github.com/allisson/shop-events/internal/payment/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	rabbitMQ        *broker.RabbitMQ
	metricsProvider *metrics.Provider

	// Managers
	txManager        database.TxManager
	messagingMetrics metrics.MessagingMetrics

	// Repositories
	outboxRepo  outboxUsecase.OutboxMessageRepository
	inboxRepo   inboxUsecase.InboxMessageRepository
	orderRepo   orderUsecase.OrderRepository
	paymentRepo paymentUsecase.PaymentRepository

	// Use Cases and Workers
	outboxWriter    *outboxUsecase.Writer
	outboxPublisher *outboxUsecase.Publisher
	inboxConsumer   *inboxUsecase.Consumer
	orderUseCase    orderUsecase.UseCase
	paymentUseCase  paymentUsecase.UseCase

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                   sync.Mutex
	loggerInit           sync.Once
	dbInit               sync.Once
	rabbitMQInit         sync.Once
	metricsProviderInit  sync.Once
	txManagerInit        sync.Once
	messagingMetricsInit sync.Once
	outboxRepoInit       sync.Once
	inboxRepoInit        sync.Once
	orderRepoInit        sync.Once
	paymentRepoInit      sync.Once
	outboxWriterInit     sync.Once
	outboxPublisherInit  sync.Once
	inboxConsumerInit    sync.Once
	orderUseCaseInit     sync.Once
	paymentUseCaseInit   sync.Once
	httpServerInit       sync.Once
	metricsServerInit    sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// RabbitMQ returns the broker connection shared by the relay and the consumer.
func (c *Container) RabbitMQ() (*broker.RabbitMQ, error) {
	var err error
	c.rabbitMQInit.Do(func() {
		c.rabbitMQ, err = c.initRabbitMQ()
		if err != nil {
			c.initErrors["rabbitMQ"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rabbitMQ"]; exists {
		return nil, storedErr
	}
	return c.rabbitMQ, nil
}

// MetricsProvider returns the metrics provider instance.
// Returns nil provider when metrics are disabled in configuration.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// MessagingMetrics returns the messaging metrics recorder.
// It falls back to a no-op implementation when metrics are disabled.
func (c *Container) MessagingMetrics() (metrics.MessagingMetrics, error) {
	var err error
	c.messagingMetricsInit.Do(func() {
		c.messagingMetrics, err = c.initMessagingMetrics()
		if err != nil {
			c.initErrors["messagingMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["messagingMetrics"]; exists {
		return nil, storedErr
	}
	return c.messagingMetrics, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// OutboxRepository returns the outbox message repository instance.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxMessageRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// InboxRepository returns the inbox message repository instance.
func (c *Container) InboxRepository() (inboxUsecase.InboxMessageRepository, error) {
	var err error
	c.inboxRepoInit.Do(func() {
		c.inboxRepo, err = c.initInboxRepository()
		if err != nil {
			c.initErrors["inboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["inboxRepo"]; exists {
		return nil, storedErr
	}
	return c.inboxRepo, nil
}

// OrderRepository returns the order repository instance.
func (c *Container) OrderRepository() (orderUsecase.OrderRepository, error) {
	var err error
	c.orderRepoInit.Do(func() {
		c.orderRepo, err = c.initOrderRepository()
		if err != nil {
			c.initErrors["orderRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderRepo"]; exists {
		return nil, storedErr
	}
	return c.orderRepo, nil
}

// PaymentRepository returns the payment repository instance.
func (c *Container) PaymentRepository() (paymentUsecase.PaymentRepository, error) {
	var err error
	c.paymentRepoInit.Do(func() {
		c.paymentRepo, err = c.initPaymentRepository()
		if err != nil {
			c.initErrors["paymentRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["paymentRepo"]; exists {
		return nil, storedErr
	}
	return c.paymentRepo, nil
}

// OutboxWriter returns the outbox writer used by the business use cases.
func (c *Container) OutboxWriter() (*outboxUsecase.Writer, error) {
	var err error
	c.outboxWriterInit.Do(func() {
		var outboxRepo outboxUsecase.OutboxMessageRepository
		outboxRepo, err = c.OutboxRepository()
		if err != nil {
			c.initErrors["outboxWriter"] = err
			return
		}
		c.outboxWriter = outboxUsecase.NewWriter(outboxRepo)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxWriter"]; exists {
		return nil, storedErr
	}
	return c.outboxWriter, nil
}

// OutboxPublisher returns the outbox relay worker instance.
func (c *Container) OutboxPublisher() (*outboxUsecase.Publisher, error) {
	var err error
	c.outboxPublisherInit.Do(func() {
		c.outboxPublisher, err = c.initOutboxPublisher()
		if err != nil {
			c.initErrors["outboxPublisher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxPublisher"]; exists {
		return nil, storedErr
	}
	return c.outboxPublisher, nil
}

// InboxConsumer returns the inbox consumer with all event handlers registered.
func (c *Container) InboxConsumer() (*inboxUsecase.Consumer, error) {
	var err error
	c.inboxConsumerInit.Do(func() {
		c.inboxConsumer, err = c.initInboxConsumer()
		if err != nil {
			c.initErrors["inboxConsumer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["inboxConsumer"]; exists {
		return nil, storedErr
	}
	return c.inboxConsumer, nil
}

// OrderUseCase returns the order use case instance.
func (c *Container) OrderUseCase() (orderUsecase.UseCase, error) {
	var err error
	c.orderUseCaseInit.Do(func() {
		c.orderUseCase, err = c.initOrderUseCase()
		if err != nil {
			c.initErrors["orderUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderUseCase"]; exists {
		return nil, storedErr
	}
	return c.orderUseCase, nil
}

// PaymentUseCase returns the payment use case instance.
func (c *Container) PaymentUseCase() (paymentUsecase.UseCase, error) {
	var err error
	c.paymentUseCaseInit.Do(func() {
		c.paymentUseCase, err = c.initPaymentUseCase()
		if err != nil {
			c.initErrors["paymentUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["paymentUseCase"]; exists {
		return nil, storedErr
	}
	return c.paymentUseCase, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance.
// Returns nil server when metrics are disabled in configuration.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Shutdown metrics server if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Close broker connection if initialized
	if c.rabbitMQ != nil {
		if err := c.rabbitMQ.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("broker close: %w", err))
		}
	}

	// Shutdown metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initRabbitMQ dials the broker and declares the exchange and queue topology.
func (c *Container) initRabbitMQ() (*broker.RabbitMQ, error) {
	rabbitMQ, err := broker.NewRabbitMQ(broker.Config{
		URL:                c.config.BrokerURL,
		Exchange:           c.config.BrokerExchange,
		Queue:              c.config.BrokerQueue,
		BindingKey:         c.config.BrokerBindingKey,
		DeadLetterExchange: c.config.BrokerDeadLetterExchange,
		DeadLetterQueue:    c.config.BrokerDeadLetterQueue,
		PrefetchCount:      c.config.BrokerPrefetchCount,
		DeliveryLimit:      c.config.InboxMaxAttempts,
	}, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return rabbitMQ, nil
}

// initMessagingMetrics creates the messaging metrics recorder.
func (c *Container) initMessagingMetrics() (metrics.MessagingMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpMessagingMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for messaging metrics: %w", err)
	}

	messagingMetrics, err := metrics.NewMessagingMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging metrics: %w", err)
	}

	return messagingMetrics, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initOutboxRepository creates the outbox message repository instance.
func (c *Container) initOutboxRepository() (outboxUsecase.OutboxMessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return outboxRepository.NewMySQLOutboxMessageRepository(db), nil
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxMessageRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initInboxRepository creates the inbox message repository instance.
func (c *Container) initInboxRepository() (inboxUsecase.InboxMessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for inbox repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return inboxRepository.NewMySQLInboxMessageRepository(db), nil
	case "postgres":
		return inboxRepository.NewPostgreSQLInboxMessageRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOrderRepository creates the order repository instance.
func (c *Container) initOrderRepository() (orderUsecase.OrderRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for order repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return orderRepository.NewMySQLOrderRepository(db), nil
	case "postgres":
		return orderRepository.NewPostgreSQLOrderRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initPaymentRepository creates the payment repository instance.
func (c *Container) initPaymentRepository() (paymentUsecase.PaymentRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for payment repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return paymentRepository.NewMySQLPaymentRepository(db), nil
	case "postgres":
		return paymentRepository.NewPostgreSQLPaymentRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOutboxPublisher creates the outbox relay with all its dependencies.
func (c *Container) initOutboxPublisher() (*outboxUsecase.Publisher, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox publisher: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox publisher: %w", err)
	}

	rabbitMQ, err := c.RabbitMQ()
	if err != nil {
		return nil, fmt.Errorf("failed to get broker for outbox publisher: %w", err)
	}

	messagingMetrics, err := c.MessagingMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging metrics for outbox publisher: %w", err)
	}

	publisherConfig := outboxUsecase.Config{
		PollInterval:  c.config.OutboxPollInterval,
		BatchSize:     c.config.OutboxBatchSize,
		MaxAttempts:   c.config.OutboxMaxAttempts,
		RetryInterval: c.config.OutboxRetryInterval,
		PublishRate:   c.config.OutboxPublishRate,
	}

	return outboxUsecase.NewPublisher(
		publisherConfig,
		txManager,
		outboxRepo,
		rabbitMQ,
		messagingMetrics,
		c.Logger(),
	), nil
}

// initInboxConsumer creates the inbox consumer and registers the event
// handlers: the payment side reacts to order.created, the order side reacts to
// both payment outcomes.
func (c *Container) initInboxConsumer() (*inboxUsecase.Consumer, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for inbox consumer: %w", err)
	}

	inboxRepo, err := c.InboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox repository for inbox consumer: %w", err)
	}

	rabbitMQ, err := c.RabbitMQ()
	if err != nil {
		return nil, fmt.Errorf("failed to get broker for inbox consumer: %w", err)
	}

	messagingMetrics, err := c.MessagingMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging metrics for inbox consumer: %w", err)
	}

	orderUseCase, err := c.OrderUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get order use case for inbox consumer: %w", err)
	}

	paymentUseCase, err := c.PaymentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment use case for inbox consumer: %w", err)
	}

	consumer := inboxUsecase.NewConsumer(txManager, inboxRepo, rabbitMQ, messagingMetrics, c.Logger())
	consumer.Register(event.TypeOrderCreated, paymentUseCase.ProcessOrderCreated)
	consumer.Register(event.TypePaymentProcessed, orderUseCase.HandlePaymentProcessed)
	consumer.Register(event.TypePaymentFailed, orderUseCase.HandlePaymentFailed)

	return consumer, nil
}

// initOrderUseCase creates the order use case with all its dependencies.
func (c *Container) initOrderUseCase() (orderUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for order use case: %w", err)
	}

	orderRepo, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for order use case: %w", err)
	}

	outboxWriter, err := c.OutboxWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox writer for order use case: %w", err)
	}

	return orderUsecase.NewOrderUseCase(txManager, orderRepo, outboxWriter), nil
}

// initPaymentUseCase creates the payment use case with all its dependencies.
func (c *Container) initPaymentUseCase() (paymentUsecase.UseCase, error) {
	paymentRepo, err := c.PaymentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment repository for payment use case: %w", err)
	}

	outboxWriter, err := c.OutboxWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox writer for payment use case: %w", err)
	}

	// nil ChargeFunc approves every charge; a provider integration plugs in here.
	return paymentUsecase.NewPaymentUseCase(paymentRepo, outboxWriter, nil), nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	orderUseCase, err := c.OrderUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get order use case for http server: %w", err)
	}

	paymentUseCase, err := c.PaymentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment use case for http server: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for http server: %w", err)
	}

	inboxRepo, err := c.InboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox repository for http server: %w", err)
	}

	var extraMiddleware []gin.HandlerFunc
	extraMiddleware = append(extraMiddleware,
		http.CORSMiddleware(c.config.CORSEnabled, c.config.CORSAllowOrigins, logger))

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		extraMiddleware = append(extraMiddleware,
			metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace))
	}

	server := http.NewServer(
		db,
		c.config.ServerHost,
		c.config.ServerPort,
		logger,
		extraMiddleware...,
	)

	server.RegisterRoutes(
		http.NewOrderHandler(orderUseCase, logger),
		http.NewPaymentHandler(paymentUseCase, logger),
		http.NewMessagingHandler(outboxRepo, inboxRepo, logger),
	)

	return server, nil
}

// initMetricsServer creates the metrics server with all its dependencies.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
