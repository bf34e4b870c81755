package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || len(lane.statusOrder) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	discovery := m.discovery
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}
	if discovery != nil && m.cfg.Workflow.DiscoveryInterval > 0 {
		m.wg.Add(1)
		go m.runDiscovery(runCtx, discovery)
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if lane.runReclaimer {
			if err := m.heartbeat.ReclaimStaleJobs(ctx, logger, lane.processingStatuses); err != nil {
				logger.Warn("reclaim stale processing failed; stuck jobs may remain", logging.Error(err))
			}
		}

		jobs, err := m.store.ChunkForStatuses(ctx, m.chunkSize(), lane.statusOrder...)
		if err != nil {
			m.handleFetchError(ctx, logger, err)
			continue
		}
		if len(jobs) == 0 {
			m.waitForWorkOrShutdown(ctx)
			continue
		}

		if aborted := m.processChunk(ctx, lane, logger, jobs); aborted {
			logger.Warn("chunk aborted after too many failures",
				logging.Int("max_skips", m.cfg.Pipeline.MaxSkips))
			m.waitForWorkOrShutdown(ctx)
		}
	}
}

// processChunk runs each job in the chunk with bounded parallelism. It
// reports whether pervasive failures aborted the run early; already-failed
// jobs keep their state either way.
func (m *Manager) processChunk(ctx context.Context, lane *laneState, logger *slog.Logger, jobs []*queue.Job) bool {
	parallelism := m.cfg.Pipeline.ItemParallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	maxSkips := m.cfg.Pipeline.MaxSkips
	if maxSkips <= 0 {
		maxSkips = len(jobs) + 1
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		skips int
	)
	sem := make(chan struct{}, parallelism)

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		mu.Lock()
		tooMany := skips >= maxSkips
		mu.Unlock()
		if tooMany {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(job *queue.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := m.processJob(ctx, lane, logger, job); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				skips++
				mu.Unlock()
			}
		}(job)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return skips >= maxSkips
}

func (m *Manager) runDiscovery(ctx context.Context, discovery Discoverer) {
	defer m.wg.Done()
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String("component", "workflow-discovery"))

	interval := time.Duration(m.cfg.Workflow.DiscoveryInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		enqueued, err := discovery.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			logger.Error("discovery sweep failed", logging.Error(err))
			return
		}
		if enqueued > 0 {
			logger.Info("discovery sweep enqueued jobs", logging.Int("count", enqueued))
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func (m *Manager) chunkSize() int {
	if m.cfg.Pipeline.ChunkSize > 0 {
		return m.cfg.Pipeline.ChunkSize
	}
	return 10
}

func (m *Manager) handleFetchError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch queue chunk", logging.Error(err))
	retryInterval := time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second
	if retryInterval <= 0 {
		retryInterval = m.pollInterval
	}
	select {
	case <-ctx.Done():
	case <-time.After(retryInterval):
	}
}

func (m *Manager) waitForWorkOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
