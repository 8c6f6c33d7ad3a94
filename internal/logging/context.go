package logging

import (
	"context"
	"log/slog"

	"reelsmith/internal/services"
)

const (
	// FieldComponent names the package or service emitting the record.
	FieldComponent = "component"
	// FieldStoryID is the stories table primary key.
	FieldStoryID = "story_id"
	// FieldReelID is the ten character reel identifier.
	FieldReelID = "reel_id"
	// FieldStage is the pipeline stage (scrape, rewrite, render, publish).
	FieldStage = "stage"
	// FieldRequestID correlates every record of one CLI invocation.
	FieldRequestID = "request_id"
	// FieldEventType classifies notable records for filtering.
	FieldEventType = "event_type"
	// FieldDecisionType names the kind of decision a record explains.
	FieldDecisionType = "decision_type"
	// FieldErrorHint suggests the next step after a warning.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.StoryIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldStoryID, id))
	}
	if reelID, ok := services.ReelIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldReelID, reelID))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	return fields
}

// WithContext returns logger augmented with fields derived from ctx.
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
