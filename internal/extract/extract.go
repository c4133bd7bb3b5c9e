package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"subforge/internal/ass"
	"subforge/internal/formats"
	"subforge/internal/logging"
	"subforge/internal/render"
	"subforge/internal/services"
)

// Method records how a track was produced.
type Method string

const (
	MethodCopy      Method = "copy"
	MethodTranscode Method = "transcode"
	MethodFallback  Method = "fallback-copy"
	MethodRender    Method = "render"
)

// Options control a single track extraction.
type Options struct {
	// Target is the requested format; formats.Original keeps the source format.
	Target string
	// OutputDir receives the subtitle; empty writes next to the video.
	OutputDir string

	CleanHeader bool
	// SetPlayRes stamps PlayResX/PlayResY into ASS produced from SRT.
	SetPlayRes bool
	PlayResX   int
	PlayResY   int
	// ResolveNames rewrites subset font names in produced ASS files.
	ResolveNames bool

	// FontsDir holds the video's fonts for the bitmap renderer.
	FontsDir string
	Height   int
	FPS      float64
}

// TrackResult is the outcome of one track.
type TrackResult struct {
	Stream SubtitleStream
	Path   string
	Format string
	Method Method
	// Mapping holds the subset names found in the produced file.
	Mapping ass.SubsetMap
	// Err is the extraction failure when Path is empty.
	Err error
	// PostErr reports a failed post-processing step on an extracted file.
	PostErr error
}

// OK reports whether a subtitle file was produced.
func (r TrackResult) OK() bool {
	return r.Path != ""
}

type bitmapRenderer interface {
	Locate() (string, error)
	Render(ctx context.Context, req render.Request) error
}

// Orchestrator extracts subtitle tracks.
type Orchestrator struct {
	ffmpeg   string
	renderer bitmapRenderer
	run      services.CommandRunner
	logger   *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(run services.CommandRunner) Option {
	return func(o *Orchestrator) {
		if run != nil {
			o.run = run
		}
	}
}

// New constructs an Orchestrator. renderer may be nil, in which case bitmap
// targets fail with a missing dependency.
func New(ffmpeg string, renderer *render.Renderer, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ffmpeg: ffmpeg,
		run:    services.ExecRunner,
		logger: logging.NewComponentLogger(logger, "extract"),
	}
	if renderer != nil {
		o.renderer = renderer
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExtractTrack produces one subtitle file for stream. Failures are reported
// in the result; no partial files are left behind.
func (o *Orchestrator) ExtractTrack(ctx context.Context, video string, stream SubtitleStream, opts Options) TrackResult {
	ctx = services.WithTrack(ctx, stream.Index)
	logger := logging.WithContext(ctx, o.logger)

	target := formats.Resolve(opts.Target, stream.Codec)
	source := stream.SourceFormat()
	outDir := opts.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(video)
	}
	result := TrackResult{Stream: stream}

	switch {
	case source == target:
		path := filepath.Join(outDir, OutputName(video, stream, target))
		if err := o.ffmpegTrack(ctx, video, stream, "copy", path); err != nil {
			result.Err = err
			o.logFailure(logger, stream, err)
			return result
		}
		result.Path, result.Format, result.Method = path, target, MethodCopy
	case target == formats.Bitmap:
		return o.renderTrack(ctx, video, stream, outDir, opts)
	default:
		path := filepath.Join(outDir, OutputName(video, stream, target))
		err := o.ffmpegTrack(ctx, video, stream, target, path)
		if err == nil {
			result.Path, result.Format, result.Method = path, target, MethodTranscode
			break
		}
		logging.WarnWithContext(logger, "transcode failed, retrying as stream copy", "subtitle_transcode_failed",
			logging.String("target", target),
			logging.String("fallback", source),
			logging.Error(err),
			logging.String(logging.FieldImpact, "subtitle kept in its source format"),
		)
		fallback := filepath.Join(outDir, OutputName(video, stream, source))
		if copyErr := o.ffmpegTrack(ctx, video, stream, "copy", fallback); copyErr != nil {
			result.Err = errors.Join(err, copyErr)
			o.logFailure(logger, stream, result.Err)
			return result
		}
		result.Path, result.Format, result.Method = fallback, source, MethodFallback
	}

	result.Mapping, result.PostErr = o.postProcess(ctx, result, opts)
	logger.Info("subtitle track extracted",
		logging.String("output", filepath.Base(result.Path)),
		logging.String("method", string(result.Method)),
		logging.String("codec", stream.Codec),
	)
	return result
}

func (o *Orchestrator) renderTrack(ctx context.Context, video string, stream SubtitleStream, outDir string, opts Options) TrackResult {
	logger := logging.WithContext(ctx, o.logger)
	result := TrackResult{Stream: stream}
	fail := func(err error) TrackResult {
		result.Err = err
		o.logFailure(logger, stream, err)
		return result
	}

	if o.renderer == nil {
		return fail(services.Wrap(services.ErrMissingDependency, "extract", "render", "no bitmap renderer configured", nil))
	}
	if _, err := o.renderer.Locate(); err != nil {
		return fail(err)
	}

	tempDir, err := os.MkdirTemp("", "subforge-ass-")
	if err != nil {
		return fail(services.Wrap(services.ErrFileSystem, "extract", "create intermediate dir", "", err))
	}
	defer os.RemoveAll(tempDir)

	intermediate := o.ExtractTrack(ctx, video, stream, Options{Target: formats.ASS, OutputDir: tempDir})
	if !intermediate.OK() {
		return fail(intermediate.Err)
	}

	output := filepath.Join(outDir, OutputName(video, stream, formats.Bitmap))
	err = o.renderer.Render(ctx, render.Request{
		Subtitle: intermediate.Path,
		FontsDir: opts.FontsDir,
		Height:   opts.Height,
		FPS:      opts.FPS,
		Output:   output,
	})
	if err != nil {
		return fail(err)
	}
	result.Path, result.Format, result.Method = output, formats.Bitmap, MethodRender
	return result
}

func (o *Orchestrator) ffmpegTrack(ctx context.Context, video string, stream SubtitleStream, codec, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return services.Wrap(services.ErrFileSystem, "extract", "create output dir", filepath.Dir(output), err)
	}
	cmd := services.Command{
		Name: o.ffmpeg,
		Args: []string{
			"-y",
			"-i", video,
			"-map", "0:" + strconv.Itoa(stream.Index),
			"-c:s", codec,
			output,
		},
	}
	o.logger.Debug("running ffmpeg", logging.String("command", cmd.String()))
	if _, err := o.run(ctx, cmd); err != nil {
		removePartial(output)
		return services.Wrap(services.ErrExternalTool, "extract", "ffmpeg -c:s "+codec, filepath.Base(output), err)
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		removePartial(output)
		return services.Wrap(services.ErrExternalTool, "extract", "ffmpeg -c:s "+codec, fmt.Sprintf("%s was not written", filepath.Base(output)), err)
	}
	return nil
}

// postProcess applies the styled-text steps. The first failing step is
// returned; later steps still run.
func (o *Orchestrator) postProcess(ctx context.Context, result TrackResult, opts Options) (ass.SubsetMap, error) {
	if !formats.IsStyled(result.Format) {
		return nil, nil
	}
	logger := logging.WithContext(ctx, o.logger)
	var firstErr error
	note := func(step string, err error) {
		logging.WarnWithContext(logger, "subtitle post-processing failed", "subtitle_postprocess_failed",
			logging.String("step", step),
			logging.String("output", filepath.Base(result.Path)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "subtitle kept without this adjustment"),
		)
		if firstErr == nil {
			firstErr = err
		}
	}

	if opts.CleanHeader {
		if err := ass.CleanHeaderFile(result.Path); err != nil {
			note("clean_header", err)
		}
	}
	if opts.SetPlayRes && result.Method == MethodTranscode && result.Stream.SourceFormat() == formats.SRT {
		if err := ass.SetPlayResFile(result.Path, opts.PlayResX, opts.PlayResY); err != nil {
			note("play_res", err)
		}
	}
	var mapping ass.SubsetMap
	if opts.ResolveNames {
		resolved, err := ass.ResolveFile(result.Path)
		if err != nil {
			note("resolve_names", err)
		} else {
			mapping = resolved
		}
	}
	return mapping, firstErr
}

func (o *Orchestrator) logFailure(logger *slog.Logger, stream SubtitleStream, err error) {
	logging.ErrorWithContext(logger, "subtitle track failed", "subtitle_track_failed",
		logging.String("codec", stream.Codec),
		logging.String("language", stream.Language),
		logging.Error(err),
	)
}

func removePartial(path string) {
	_ = os.Remove(path)
}
