package workflow

import (
	"context"
	"errors"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, job *queue.Job, stageErr error) {
	logger := logging.WithContext(ctx, m.logger).With(logging.String("component", "workflow-manager"))

	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = stageName + " failed without error detail"
	}
	job.SetFailed(message)

	logger.Error("stage failed",
		logging.String("stage", stageName),
		logging.Int64("job_id", job.ID),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	if m.notifier != nil {
		if err := m.notifier.NotifyStageError(ctx, stageName, job.Title, stageErr); err != nil {
			logger.Warn("error notification failed", logging.Error(err))
		}
	}
}
