package logging

import (
	"context"
	"log/slog"

	"studyforge/internal/services"
)

// Standardized structured logging keys.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldProjectID     = "project_id"
	FieldJobType       = "job_type"
	FieldArtifactID    = "artifact_id"
	FieldStage         = "stage"
	FieldCorrelationID = "request_id"
	// FieldAlert flags conditions an operator should look at, such as a
	// bundle commit that failed after the handler succeeded.
	FieldAlert     = "alert"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if id, ok := services.ProjectIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProjectID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
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
	return logger.With(Args(fields...)...)
}
