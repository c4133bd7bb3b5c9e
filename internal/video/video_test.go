package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"subforge/internal/media/ffprobe"
)

func probeFixture(t *testing.T) ffprobe.Result {
	t.Helper()
	result, err := ffprobe.Parse([]byte(`{"streams":[{"index":0,"codec_type":"video","width":1280,"height":720,"r_frame_rate":"25/1"},{"index":1,"codec_type":"subtitle","codec_name":"ass"}]}`))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return result
}

func TestOverrideDecoupledFromProbe(t *testing.T) {
	asset := NewAsset("/videos/a.mkv", probeFixture(t))
	if asset.Height() != 720 || asset.FPS() != 25 {
		t.Fatalf("unexpected probed values: %d %v", asset.Height(), asset.FPS())
	}
	changed := asset.WithOverride(Override{Height: 1080})
	if changed.Height() != 1080 || changed.FPS() != 25 {
		t.Fatalf("unexpected override values: %d %v", changed.Height(), changed.FPS())
	}
	if changed.ProbedHeight != 720 {
		t.Fatal("override must not change probed height")
	}
	if asset.Height() != 720 {
		t.Fatal("WithOverride must not mutate the original asset")
	}
	if asset.Stem() != "a" {
		t.Fatalf("unexpected stem %q", asset.Stem())
	}
}

func TestImportRejectsMissingAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mkv")
	bad := filepath.Join(dir, "broken.mkv")
	for _, path := range []string{good, bad} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fixture := probeFixture(t)
	importer := NewImporterWithProber(func(_ context.Context, path string) (ffprobe.Result, error) {
		if path == bad {
			return ffprobe.Result{}, errors.New("invalid data")
		}
		return fixture, nil
	}, nil)

	assets, errs := importer.Import(context.Background(), []string{good, good, filepath.Join(dir, "missing.mkv"), bad})
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if !assets[0].HasProbe() {
		t.Fatal("expected first asset to carry probe data")
	}
	if assets[1].HasProbe() || assets[1].ProbeErr == nil {
		t.Fatal("expected probe failure to be recorded on the asset")
	}
	if len(errs) != 2 {
		t.Fatalf("expected duplicate and missing errors, got %v", errs)
	}
	if !errors.Is(errs[0], ErrDuplicate) {
		t.Fatalf("expected duplicate error first, got %v", errs[0])
	}
}
