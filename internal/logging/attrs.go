package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites can stay on this package.
type Attr = slog.Attr

// Shared field names. Stages must use these constants instead of ad-hoc keys
// so log queries work across the whole pipeline.
const (
	FieldComponent  = "component"
	FieldStage      = "stage"
	FieldJobID      = "job_id"
	FieldRequestID  = "request_id"
	FieldEventType  = "event_type"
	FieldProvider   = "provider"
	FieldErrorHint  = "error_hint"
	FieldSkipCount  = "skip_count"
	FieldRetryCount = "retry_count"
)

func String(key, value string) Attr             { return slog.String(key, value) }
func Int(key string, value int) Attr            { return slog.Int(key, value) }
func Int64(key string, value int64) Attr        { return slog.Int64(key, value) }
func Float64(key string, v float64) Attr        { return slog.Float64(key, v) }
func Bool(key string, value bool) Attr          { return slog.Bool(key, value) }
func Duration(key string, d time.Duration) Attr { return slog.Duration(key, d) }

// Error records an error under the conventional "error" key.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Args converts attrs into the variadic any form slog methods expect.
func Args(attrs ...Attr) []any {
	out := make([]any, len(attrs))
	for i, attr := range attrs {
		out[i] = attr
	}
	return out
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
