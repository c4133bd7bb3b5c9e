package services

import "context"

type contextKey string

const (
	batchIDKey contextKey = "batch_id"
	videoKey   contextKey = "video"
	trackKey   contextKey = "track"
)

// WithBatchID annotates context with the batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithVideo annotates context with the video currently being processed.
func WithVideo(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, videoKey, path)
}

// VideoFromContext returns the video path if present.
func VideoFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(videoKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTrack annotates context with the subtitle stream index.
func WithTrack(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, trackKey, index)
}

// TrackFromContext extracts the subtitle stream index if present.
func TrackFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(trackKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}
