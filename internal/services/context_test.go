package services_test

import (
	"context"
	"testing"

	"subforge/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithBatchID(ctx, "batch-1")
	ctx = services.WithVideo(ctx, "/videos/a.mkv")
	ctx = services.WithTrack(ctx, 3)

	if id, ok := services.BatchIDFromContext(ctx); !ok || id != "batch-1" {
		t.Fatalf("unexpected batch id: %v %v", id, ok)
	}
	if video, ok := services.VideoFromContext(ctx); !ok || video != "/videos/a.mkv" {
		t.Fatalf("unexpected video: %v %v", video, ok)
	}
	if track, ok := services.TrackFromContext(ctx); !ok || track != 3 {
		t.Fatalf("unexpected track: %v %v", track, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithBatchID(ctx, "")
	ctx = services.WithVideo(ctx, "")
	if _, ok := services.BatchIDFromContext(ctx); ok {
		t.Fatal("expected no batch id")
	}
	if _, ok := services.VideoFromContext(ctx); ok {
		t.Fatal("expected no video")
	}
	if _, ok := services.TrackFromContext(ctx); ok {
		t.Fatal("expected no track")
	}
}
