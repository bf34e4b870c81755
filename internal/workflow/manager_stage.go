package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

func (m *Manager) processJob(ctx context.Context, lane *laneState, laneLogger *slog.Logger, job *queue.Job) error {
	stg, ok := lane.stageForStatus(job.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(job.Status)))
		return nil
	}

	stageCtx := withStageContext(ctx, stg.name, job, uuid.NewString())
	stageLogger := logging.WithContext(stageCtx, laneLogger)

	if err := m.transitionToProcessing(stageCtx, stg, job); err != nil {
		stageLogger.Error("failed to transition job to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}
	return m.executeStage(stageCtx, stageLogger, stg, job)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, job *queue.Job) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("title", job.Title),
		logging.Int("attempted_retries", job.RetryCount),
	)

	retryLimit := m.cfg.Pipeline.RetryLimit
	for attempt := 0; ; attempt++ {
		err := m.runStageOnce(ctx, stg, job)
		if err == nil {
			break
		}
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return err
		}
		if services.IsRetryable(err) && attempt < retryLimit {
			job.RetryCount++
			job.SetProgress(job.ProgressStage, fmt.Sprintf("Retrying after error: %v", err), 0)
			if updateErr := m.store.Update(ctx, job); updateErr != nil {
				stageLogger.Warn("failed to persist retry state", logging.Error(updateErr))
			}
			delay := m.retryDelay(attempt)
			stageLogger.Warn("stage attempt failed; retrying",
				logging.Error(err),
				logging.Int("attempt", attempt+1),
				logging.Duration("backoff", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		m.handleStageFailure(ctx, stg.name, job, err)
		m.setLastError(err)
		return err
	}

	// Handlers that pick their own done status (the scorer) have already
	// moved the job out of processing.
	if job.Status == stg.processingStatus || job.Status == "" {
		if err := job.TransitionTo(stg.doneStatus); err != nil {
			m.handleStageFailure(ctx, stg.name, job, err)
			m.setLastError(err)
			return err
		}
	}
	job.LastHeartbeat = nil
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stageLogger.Info("stage completed",
		logging.String("next_status", string(job.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.notifyStageOutcome(ctx, job)
	return nil
}

func (m *Manager) runStageOnce(ctx context.Context, stg pipelineStage, job *queue.Job) error {
	if err := stg.handler.Prepare(ctx, job); err != nil {
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}
	return m.executeWithHeartbeat(ctx, stg.handler, job)
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, job *queue.Job) error {
	if err := job.TransitionTo(stg.processingStatus); err != nil {
		return err
	}
	now := time.Now().UTC()
	job.LastHeartbeat = &now
	job.ErrorMessage = ""
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	return nil
}

func (m *Manager) retryDelay(attempt int) time.Duration {
	base := m.cfg.Pipeline.RetryBaseSeconds
	if base <= 0 {
		base = 1
	}
	delay := time.Duration(base) * time.Second << attempt
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}

func (m *Manager) notifyStageOutcome(ctx context.Context, job *queue.Job) {
	if m.notifier == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger)
	switch job.Status {
	case queue.StatusPendingApproval:
		if err := m.notifier.NotifyReviewNeeded(ctx, job.Title, job.QualityScore, job.ReviewPriority); err != nil {
			logger.Warn("review notification failed", logging.Error(err))
		}
	case queue.StatusPublished:
		if err := m.notifier.NotifyPublished(ctx, job.Title, job.ContentID); err != nil {
			logger.Warn("publish notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String("component", fmt.Sprintf("workflow-%s-runner", lane.name)),
		logging.String("lane", lane.name),
	)
}

func withStageContext(ctx context.Context, stageName string, job *queue.Job, requestID string) context.Context {
	if job != nil {
		ctx = services.WithJobID(ctx, job.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
