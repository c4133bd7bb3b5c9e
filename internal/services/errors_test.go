package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"subforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extract", "transcode", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "transcode", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestClassify(t *testing.T) {
	timeout := services.Wrap(services.ErrTimeout, "fonts", "merge", "timed out", nil)
	tests := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"nil", nil, services.KindNone},
		{"external", services.Wrap(services.ErrExternalTool, "render", "run", "", nil), services.KindExternalTool},
		{"missing", services.Wrap(services.ErrMissingDependency, "render", "locate", "", nil), services.KindMissingDependency},
		{"malformed", services.Wrap(services.ErrMalformedAsset, "fontname", "parse", "", nil), services.KindMalformedAsset},
		{"filesystem", services.Wrap(services.ErrFileSystem, "batch", "mkdir", "", nil), services.KindFileSystem},
		{"timeout wins", fmt.Errorf("%w: %w", services.ErrExternalTool, timeout), services.KindTimeout},
		{"unknown", errors.New("plain"), services.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	cmd := services.Command{Name: "ffmpeg", Args: []string{"-dump_attachment:t", "", "-i", "my video.mkv"}}
	got := cmd.String()
	want := `ffmpeg -dump_attachment:t "" -i "my video.mkv"`
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
