package logging

import (
	"context"
	"log/slog"

	"clipforge/internal/services"
)

// WithContext returns a logger annotated with the job, stage, and request
// identifiers carried by the context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	if id, ok := services.JobIDFromContext(ctx); ok {
		logger = logger.With(Int64(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		logger = logger.With(String(FieldStage, stage))
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		logger = logger.With(String(FieldRequestID, requestID))
	}
	return logger
}
