package workflow

import (
	"context"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/stage"
)

// StatusSummary describes the manager's runtime state for diagnostics.
type StatusSummary struct {
	Running    bool
	LastError  string
	Stages     []stage.Health
	QueueStats map[queue.Status]int
}

// Status reports the manager state, stage readiness, and queue counts.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			lanes = append(lanes, lane)
		}
	}
	m.mu.RUnlock()

	for _, lane := range lanes {
		for _, stg := range lane.stages {
			summary.Stages = append(summary.Stages, stg.handler.HealthCheck(ctx))
		}
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("queue stats unavailable", logging.Error(err))
		}
	} else {
		summary.QueueStats = stats
	}
	return summary
}
