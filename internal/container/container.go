// Package container wires the application together: database, repositories,
// services, mediator, bus endpoints, workers and the HTTP surface. Components
// are initialized in dependency order and torn down in reverse.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/dispatcher"
	"github.com/karl-run/spesialist/internal/application/mediator"
	"github.com/karl-run/spesialist/internal/config"
	"github.com/karl-run/spesialist/internal/infrastructure/bus"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
	"github.com/karl-run/spesialist/internal/infrastructure/worker"
	httpiface "github.com/karl-run/spesialist/internal/interfaces/http"
	"github.com/karl-run/spesialist/pkg/database"
)

// Container manages all application dependencies and lifecycle.
type Container struct {
	config    *config.Config
	logger    *zap.Logger
	transport bus.Transport
	source    bus.MessageSource

	// Infrastructure
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Application
	services   *ServiceBundle
	dispatcher dispatcher.Dispatcher
	mediator   *mediator.Mediator

	// Bus endpoints
	publisher *bus.Publisher
	consumer  *bus.Consumer

	// Workers and ops surface
	overvaker  *worker.KontekstOvervaker
	workers    *worker.Manager
	httpServer *httpiface.Server

	// Lifecycle
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration. The bus transport
// and message source are external collaborators and are injected; call
// Start() to initialize everything else.
func NewContainer(cfg *config.Config, transport bus.Transport, source bus.MessageSource, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if transport == nil || source == nil {
		return nil, fmt.Errorf("bus transport and source are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config:    cfg,
		logger:    logger,
		transport: transport,
		source:    source,
	}, nil
}

// Start initializes all components in dependency order and begins consuming
// from the bus.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	db, txManager, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db
	c.txManager = txManager
	c.repositories = ProvideRepositories(db.DB, c.logger)
	c.logger.Info("Database initialized")

	c.services = ProvideServices(c.repositories, c.txManager, &c.config.Automatisering, c.logger)
	c.logger.Info("Application services initialized")

	c.dispatcher = dispatcher.NewDispatcher(dispatcher.WithLogger(&loggerAdapter{c.logger}))
	c.publisher = bus.NewPublisher(c.transport, c.logger)
	registerObservers(c.dispatcher, c.publisher, c.logger)

	c.mediator = ProvideMediator(c.repositories, c.services, c.txManager, c.publisher, c.dispatcher, c.logger)
	c.consumer = bus.NewConsumer(c.source, c.mediator, c.logger)
	c.logger.Info("Mediator and bus endpoints initialized")

	c.overvaker = worker.NewKontekstOvervaker(worker.OvervakerConfig{
		PollInterval: c.config.Worker.PollInterval,
		StuckEtter:   c.config.Worker.StuckEtter,
		BatchSize:    c.config.Worker.BatchSize,
	}, c.repositories.Kontekst, c.logger)

	c.workers = worker.NewManager(c.logger)
	c.workers.Register(c.consumer)
	c.workers.Register(c.overvaker)
	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.logger.Info("Workers started")

	c.httpServer = httpiface.NewServer(
		httpiface.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
		},
		c.services.Oppgaver,
		c.services.Totrinnsvurdering,
		c.repositories.Kontekst,
		c.overvaker,
		c.config.Worker.StuckEtter,
		&loggerAdapter{c.logger},
	)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}
	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		c.workers.StopAll()
		c.logger.Info("Workers stopped")
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return fmt.Errorf("container closed with %d errors", len(errs))
	}
	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.db != nil {
		if err := c.db.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.workers != nil && c.workers.IsRunning() {
		status.Components["workers"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["workers"] = ComponentHealth{Healthy: false, Message: "not running"}
		status.Overall = false
	}

	return status
}

// HTTPServer returns the operational HTTP server; the caller runs it.
func (c *Container) HTTPServer() *httpiface.Server {
	return c.httpServer
}

// Mediator returns the inbound hendelse handler.
func (c *Container) Mediator() *mediator.Mediator {
	return c.mediator
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// loggerAdapter adapts zap.Logger to the keysAndValues-style Logger
// interfaces the application packages declare.
type loggerAdapter struct {
	logger *zap.Logger
}

func (a *loggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, toZapFields(keysAndValues...)...)
}

func (a *loggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, toZapFields(keysAndValues...)...)
}

func toZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
