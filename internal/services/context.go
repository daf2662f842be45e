package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	stageKey    contextKey = "stage"
	imageKey    contextKey = "image"
	templateKey contextKey = "template"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithImage annotates context with the 1-based image number being processed.
func WithImage(ctx context.Context, number int) context.Context {
	if number <= 0 {
		return ctx
	}
	return context.WithValue(ctx, imageKey, number)
}

// ImageFromContext extracts the 1-based image number if present.
func ImageFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(imageKey)
	switch val := v.(type) {
	case int:
		return val, val > 0
	case int64:
		return int(val), val > 0
	default:
		return 0, false
	}
}

// WithTemplate annotates context with the requirements template key.
func WithTemplate(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, templateKey, key)
}

// TemplateFromContext returns the template key if present.
func TemplateFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(templateKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
