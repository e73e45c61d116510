package services

import "context"

type contextKey string

const (
	stageKey   contextKey = "stage"
	runIDKey   contextKey = "run_id"
	releaseKey contextKey = "release"
)

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

// WithRunID annotates context with the identifier of the current pipeline run.
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

// WithRelease annotates context with the upstream version being packaged.
func WithRelease(ctx context.Context, version string) context.Context {
	if version == "" {
		return ctx
	}
	return context.WithValue(ctx, releaseKey, version)
}

// ReleaseFromContext returns the upstream version if present.
func ReleaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(releaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
