// Package video models the videos selected for a batch and their probed
// stream metadata.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subforge/internal/logging"
	"subforge/internal/media/ffprobe"
	"subforge/internal/services"
)

// ErrDuplicate reports a path that was already imported.
var ErrDuplicate = errors.New("video already in list")

// Override replaces probed geometry and frame rate for rendering. Zero fields
// keep the probed value.
type Override struct {
	Width  int
	Height int
	FPS    float64
}

// Asset is an imported video. Probe data is fixed at import; only the
// override can change afterwards.
type Asset struct {
	Path string
	Name string

	Probe    ffprobe.Result
	ProbeErr error
	probed   bool

	ProbedWidth  int
	ProbedHeight int
	ProbedFPS    float64

	override Override
}

// NewAsset builds an asset from an existing probe result.
func NewAsset(path string, probe ffprobe.Result) Asset {
	asset := Asset{Path: path, Name: filepath.Base(path), Probe: probe, probed: true}
	if stream, ok := probe.PrimaryVideo(); ok {
		asset.ProbedWidth = stream.Width
		asset.ProbedHeight = stream.Height
		asset.ProbedFPS = stream.FrameRate()
	}
	return asset
}

// HasProbe reports whether probe data is available.
func (a Asset) HasProbe() bool {
	return a.probed && a.ProbeErr == nil
}

// WithOverride returns a copy of the asset carrying o.
func (a Asset) WithOverride(o Override) Asset {
	a.override = o
	return a
}

// Override returns the current override.
func (a Asset) Override() Override {
	return a.override
}

// Width returns the override width, else the probed width.
func (a Asset) Width() int {
	if a.override.Width > 0 {
		return a.override.Width
	}
	return a.ProbedWidth
}

// Height returns the override height, else the probed height.
func (a Asset) Height() int {
	if a.override.Height > 0 {
		return a.override.Height
	}
	return a.ProbedHeight
}

// FPS returns the override frame rate, else the probed frame rate.
func (a Asset) FPS() float64 {
	if a.override.FPS > 0 {
		return a.override.FPS
	}
	return a.ProbedFPS
}

// Stem returns the file name without extension.
func (a Asset) Stem() string {
	return strings.TrimSuffix(a.Name, filepath.Ext(a.Name))
}

// Prober inspects a video file.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Importer turns user-selected paths into assets.
type Importer struct {
	probe  Prober
	logger *slog.Logger
	seen   map[string]struct{}
}

// NewImporter builds an importer that probes with the given ffprobe binary.
func NewImporter(ffprobeBinary string, logger *slog.Logger) *Importer {
	return NewImporterWithProber(func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, ffprobeBinary, path)
	}, logger)
}

// NewImporterWithProber builds an importer around a custom prober.
func NewImporterWithProber(probe Prober, logger *slog.Logger) *Importer {
	return &Importer{
		probe:  probe,
		logger: logging.NewComponentLogger(logger, "video"),
		seen:   make(map[string]struct{}),
	}
}

// Import resolves, de-duplicates and probes paths. Missing files and
// duplicates are reported in errs and left out; probe failures are kept as
// assets with ProbeErr set so the batch can report them.
func (i *Importer) Import(ctx context.Context, paths []string) (assets []Asset, errs []error) {
	for _, raw := range paths {
		path, err := filepath.Abs(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, services.Wrap(services.ErrFileSystem, "video", "import", raw, err))
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, services.Wrap(services.ErrFileSystem, "video", "import", path, err))
			continue
		}
		if info.IsDir() {
			errs = append(errs, services.Wrap(services.ErrValidation, "video", "import", path+" is a directory", nil))
			continue
		}
		key := strings.ToLower(path)
		if _, dup := i.seen[key]; dup {
			errs = append(errs, fmt.Errorf("%s: %w", path, ErrDuplicate))
			continue
		}
		i.seen[key] = struct{}{}

		probe, err := i.probe(ctx, path)
		if err != nil {
			logging.WarnWithContext(i.logger, "probe failed", "video_probe_failed",
				logging.String(logging.FieldVideo, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "video will be reported as failed"),
			)
			assets = append(assets, Asset{
				Path:     path,
				Name:     filepath.Base(path),
				ProbeErr: services.Wrap(services.ErrExternalTool, "video", "probe", path, err),
			})
			continue
		}
		asset := NewAsset(path, probe)
		i.logger.Debug("video imported",
			logging.String(logging.FieldVideo, path),
			logging.Int("subtitle_streams", len(probe.SubtitleStreams())),
			logging.Int("height", asset.ProbedHeight),
			logging.Float64("fps", asset.ProbedFPS),
		)
		assets = append(assets, asset)
	}
	return assets, errs
}
