package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunKey is the standardized structured logging key for pipeline run keys.
	FieldRunKey = "run_key"
	// FieldStage is the standardized structured logging key for stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for run correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags log lines that mark pipeline lifecycle transitions.
	FieldEventType = "event_type"
)

type contextKey int

const (
	runKeyContextKey contextKey = iota
	stageContextKey
	correlationContextKey
)

// WithRunKey stores the pipeline run key on the context.
func WithRunKey(ctx context.Context, runKey string) context.Context {
	if runKey == "" {
		return ctx
	}
	return context.WithValue(ctx, runKeyContextKey, runKey)
}

// WithStage stores the active stage name on the context.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageContextKey, stage)
}

// WithCorrelationID stores a correlation identifier on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationContextKey, id)
}

// RunKeyFromContext extracts the run key previously stored with WithRunKey.
func RunKeyFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(runKeyContextKey).(string)
	return value, ok && value != ""
}

// StageFromContext extracts the stage name previously stored with WithStage.
func StageFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(stageContextKey).(string)
	return value, ok && value != ""
}

// CorrelationIDFromContext extracts the correlation id stored with WithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(correlationContextKey).(string)
	return value, ok && value != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if runKey, ok := RunKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunKey, runKey))
	}
	if stage, ok := StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, attr := range fields {
		args = append(args, attr)
	}
	return logger.With(args...)
}
