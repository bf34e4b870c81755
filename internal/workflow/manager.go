// Package workflow drives jobs through the pipeline: it polls the queue,
// dispatches jobs to their stage handlers in bounded-parallel chunks, keeps
// heartbeats alive during long stages, and reclaims work left behind by a
// crash.
package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
)

// Discoverer runs one discovery sweep and reports how many jobs it enqueued.
type Discoverer interface {
	Run(ctx context.Context) (int, error)
}

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	discovery    Discoverer
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: pollInterval,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		lanes: make(map[laneKind]*laneState),
	}
}

// SetDiscovery attaches the periodic discovery sweep. Optional; without it
// the manager only processes jobs that already exist.
func (m *Manager) SetDiscovery(d Discoverer) {
	m.mu.Lock()
	m.discovery = d
	m.mu.Unlock()
}

// LastError returns the most recent stage or queue error.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Running reports whether the manager has been started.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
