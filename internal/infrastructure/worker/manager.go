package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a background process with a lifecycle managed by the Manager.
type Worker interface {
	Start(ctx context.Context) error
	Stop()
	Name() string
}

// Manager starts and stops a set of workers as one unit.
type Manager struct {
	workers []Worker
	logger  *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
}

// NewManager creates a new worker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a worker to be managed
func (m *Manager) Register(worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, worker)
	m.logger.Info("Worker registrert", zap.String("worker", worker.Name()))
}

// StartAll starts every registered worker. A worker that fails to start is
// logged and skipped; the rest still come up.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("workers kjører allerede")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.isRunning = true
	m.mu.Unlock()

	for _, worker := range m.workers {
		if err := worker.Start(runCtx); err != nil {
			m.logger.Error("Kunne ikke starte worker",
				zap.String("worker", worker.Name()), zap.Error(err))
			continue
		}
		m.logger.Info("Worker startet", zap.String("worker", worker.Name()))
	}
	return nil
}

// StopAll stops every worker and waits for them to finish.
func (m *Manager) StopAll() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	for _, worker := range m.workers {
		worker.Stop()
		m.logger.Info("Worker stoppet", zap.String("worker", worker.Name()))
	}
}

// IsRunning returns whether workers are running
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}
