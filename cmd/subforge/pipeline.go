package main

import (
	"fmt"
	"log/slog"

	"subforge/internal/batch"
	"subforge/internal/config"
	"subforge/internal/deps"
	"subforge/internal/extract"
	"subforge/internal/fonts"
	"subforge/internal/fontstore"
	"subforge/internal/history"
	"subforge/internal/render"
	"subforge/internal/services"
)

// pipeline holds the collaborators one extract invocation drives.
type pipeline struct {
	ffprobe string
	deps    batch.Deps
	history *history.Store
}

func (p *pipeline) Close() error {
	if p.history == nil {
		return nil
	}
	return p.history.Close()
}

// newPipeline resolves ffmpeg and ffprobe up front; the renderer and
// fontforge are located lazily by the steps that need them.
func newPipeline(cfg *config.Config, locator deps.Locator, logger *slog.Logger) (*pipeline, error) {
	ffmpeg, err := locator.Locate(deps.FFmpeg, cfg.Tools.FFmpeg)
	if err != nil {
		return nil, err
	}
	ffprobe, err := locator.Locate(deps.FFprobe, cfg.Tools.FFprobe)
	if err != nil {
		return nil, err
	}

	store, err := fontstore.Open(cfg.FontStore.Backend, services.ExecRunner)
	if err != nil {
		return nil, err
	}
	registrar := fontstore.NewRegistrar(store, cfg.FontStore.LockPath, logger)
	renderer := render.New(render.Config{
		Binary:        cfg.Tools.Renderer,
		Locator:       locator,
		SuccessMarker: cfg.Render.SuccessMarker,
		DefaultHeight: cfg.Render.DefaultHeight,
		DefaultFPS:    cfg.Render.DefaultFPS,
	}, registrar, logger)

	p := &pipeline{
		ffprobe: ffprobe,
		deps: batch.Deps{
			Extractor: extract.New(ffmpeg, renderer, logger),
			Fonts:     fonts.NewManager(ffmpeg, logger),
			Merger:    newMerger(cfg, locator, logger),
			Logger:    logger,
		},
	}
	if cfg.History.Enabled && cfg.Paths.HistoryDB != "" {
		hist, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		p.history = hist
		p.deps.Recorder = hist
	}
	return p, nil
}

func newMerger(cfg *config.Config, locator deps.Locator, logger *slog.Logger) *fonts.Merger {
	return fonts.NewMerger(fonts.MergeConfig{
		Binary:  cfg.Tools.FontForge,
		Locator: locator,
		Timeout: cfg.MergeTimeout(),
	}, logger)
}
