package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"subforge/internal/ass"
	"subforge/internal/extract"
	"subforge/internal/fonts"
	"subforge/internal/formats"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/video"
)

const queueSize = 8

// ErrClosed is returned by RunBatch after Close.
var ErrClosed = errors.New("batch coordinator closed")

// Deps are the collaborators a Coordinator drives.
type Deps struct {
	Extractor TrackExtractor
	Fonts     FontCollector
	Merger    FontMerger
	// Recorder is optional.
	Recorder Recorder
	Logger   *slog.Logger
}

// Coordinator processes batches one at a time on a background worker.
type Coordinator struct {
	deps     Deps
	logger   *slog.Logger
	registry *fonts.NameRegistry
	newID    func() string

	tasks chan *Run

	mu      sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a Coordinator. Call Start before RunBatch.
func New(deps Deps) *Coordinator {
	return &Coordinator{
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "batch"),
		registry: fonts.NewNameRegistry(),
		newID:    uuid.NewString,
		tasks:    make(chan *Run, queueSize),
	}
}

// Start launches the worker. Cancelling ctx aborts the batch in progress.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.running {
		return errors.New("batch coordinator already running")
	}
	workerCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.wg.Add(1)
	go c.work(workerCtx)
	return nil
}

// Close stops accepting batches, lets queued batches finish and waits for
// the worker to exit.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.tasks)
	cancel := c.cancel
	c.mu.Unlock()

	c.wg.Wait()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Run is a queued or running batch.
type Run struct {
	id       string
	ctx      context.Context
	videos   []video.Asset
	opts     Options
	outcomes chan VideoOutcome
	done     chan struct{}
	summary  Summary
}

// ID returns the batch identifier.
func (r *Run) ID() string {
	return r.id
}

// Outcomes streams one outcome per video in selection order. The channel is
// buffered for every video and closed once the last video is done, so
// callers may ignore it.
func (r *Run) Outcomes() <-chan VideoOutcome {
	return r.outcomes
}

// Wait blocks until the batch, including the merge phase, has finished.
func (r *Run) Wait() Summary {
	<-r.done
	return r.summary
}

// Done is closed when the batch has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// RunBatch validates the request and queues it. It returns as soon as the
// batch is queued.
func (c *Coordinator) RunBatch(ctx context.Context, videos []video.Asset, opts Options) (*Run, error) {
	if len(videos) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "run", "no videos selected", nil)
	}
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	if !formats.ValidTarget(opts.Format) {
		return nil, services.Wrap(services.ErrValidation, "batch", "run", fmt.Sprintf("unsupported format %q", opts.Format), nil)
	}
	if opts.FontMode == "" {
		opts.FontMode = fonts.ModeEmbed
	}
	if _, err := fonts.ParseMode(string(opts.FontMode)); err != nil {
		return nil, err
	}

	run := &Run{
		id:       c.newID(),
		ctx:      ctx,
		videos:   append([]video.Asset(nil), videos...),
		opts:     opts,
		outcomes: make(chan VideoOutcome, len(videos)),
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if !c.running {
		return nil, errors.New("batch coordinator not started")
	}
	select {
	case c.tasks <- run:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.logger.Info("batch queued", logging.String(logging.FieldBatchID, run.id), logging.Int("videos", len(videos)))
	return run, nil
}

func (c *Coordinator) work(ctx context.Context) {
	defer c.wg.Done()
	for run := range c.tasks {
		runCtx, cancel := context.WithCancel(run.ctx)
		stop := context.AfterFunc(ctx, cancel)
		c.process(runCtx, run)
		stop()
		cancel()
	}
}

func (c *Coordinator) process(ctx context.Context, run *Run) {
	defer close(run.done)
	defer close(run.outcomes)

	ctx = services.WithBatchID(ctx, run.id)
	logger := logging.WithContext(ctx, c.logger)
	summary := Summary{
		BatchID:   run.id,
		Options:   run.opts,
		FontsRoot: fontsRoot(run.opts, run.videos),
		Started:   time.Now(),
	}
	c.registry.Begin(run.id)
	c.record(ctx, "begin", func(r Recorder) error {
		return r.BeginBatch(ctx, run.id, run.opts, len(run.videos), summary.Started)
	})
	logger.Info("batch started",
		logging.Int("videos", len(run.videos)),
		logging.String("format", run.opts.Format),
		logging.String("font_mode", string(run.opts.FontMode)),
	)

	collected := false
	for i, asset := range run.videos {
		outcome, didCollect := c.processVideo(ctx, i+1, asset, run.opts, summary.FontsRoot)
		collected = collected || didCollect
		summary.Outcomes = append(summary.Outcomes, outcome)
		c.record(ctx, "outcome", func(r Recorder) error { return r.RecordOutcome(ctx, run.id, outcome) })
		run.outcomes <- outcome
	}

	if run.opts.FontMode == fonts.ModeMerge && run.opts.Format != formats.Bitmap && collected && c.deps.Merger != nil {
		report, err := c.deps.Merger.Merge(ctx, summary.FontsRoot, c.registry)
		summary.Merge = &report
		summary.MergeErr = err
		if err != nil {
			logging.ErrorWithContext(logger, "font merge phase failed", "font_merge_phase_failed",
				logging.String("root", summary.FontsRoot),
				logging.Error(err),
			)
		}
	}
	if err := c.registry.Reset(); err != nil {
		logger.Warn("font name registry reset skipped", logging.Error(err))
	}

	summary.Finished = time.Now()
	counts := summary.Counts()
	logger.Info("batch finished",
		logging.Int("success", counts[StatusSuccess]),
		logging.Int("partial", counts[StatusPartial]),
		logging.Int("fail", counts[StatusFail]),
		logging.Duration("elapsed", summary.Finished.Sub(summary.Started)),
	)
	c.record(ctx, "finish", func(r Recorder) error { return r.FinishBatch(context.WithoutCancel(ctx), summary) })
	run.summary = summary
}

func (c *Coordinator) processVideo(ctx context.Context, seq int, asset video.Asset, opts Options, root string) (outcome VideoOutcome, collected bool) {
	ctx = services.WithVideo(ctx, asset.Path)
	logger := logging.WithContext(ctx, c.logger)
	outcome = VideoOutcome{Seq: seq, Video: asset.Path}
	defer func() {
		if outcome.Err == nil {
			outcome.Status = aggregate(outcome.Tracks, outcome.FontErrs)
		} else {
			outcome.Status = StatusFail
		}
		logger.Info("video processed",
			logging.String("status", string(outcome.Status)),
			logging.Int("tracks", len(outcome.Tracks)),
			logging.Int("outputs", len(outcome.Outputs())),
		)
	}()

	if !asset.HasProbe() {
		outcome.Err = asset.ProbeErr
		if outcome.Err == nil {
			outcome.Err = services.Wrap(services.ErrValidation, "batch", "video", "missing probe data", nil)
		}
		logging.WarnWithContext(logger, "skipping video without probe data", "video_probe_missing", logging.Error(outcome.Err))
		return outcome, false
	}
	streams := extract.Streams(asset.Probe)
	if len(streams) == 0 {
		outcome.Err = services.Wrap(services.ErrValidation, "batch", "video", "no subtitle streams", nil)
		logging.WarnWithContext(logger, "skipping video without subtitles", "video_no_subtitles", logging.Error(outcome.Err))
		return outcome, false
	}

	hasStyled := false
	for _, stream := range streams {
		hasStyled = hasStyled || stream.IsStyled()
	}
	target := opts.Format
	embed := opts.FontMode == fonts.ModeEmbed
	styledTarget := formats.IsStyled(target) || (target == formats.Original && hasStyled)

	var fontsDir string
	if (embed && formats.IsStyled(target)) || target == formats.Bitmap || (target == formats.Original && embed && hasStyled) {
		dir, cleanup, err := c.deps.Fonts.TempFonts(ctx, asset.Path)
		if err != nil {
			outcome.FontErrs = append(outcome.FontErrs, err)
			logging.WarnWithContext(logger, "temporary font extraction failed", "font_extract_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "subtitles produced without their fonts"),
			)
		} else {
			fontsDir = dir
			defer cleanup()
		}
	}

	playResX, playResY := asset.Width(), asset.Height()
	if playResX <= 0 || playResY <= 0 {
		playResX, playResY = opts.PlayResX, opts.PlayResY
	}
	mapping := make(ass.SubsetMap)
	for _, stream := range streams {
		result := c.deps.Extractor.ExtractTrack(ctx, asset.Path, stream, extract.Options{
			Target:       target,
			OutputDir:    opts.OutputDir,
			CleanHeader:  opts.CleanHeader,
			SetPlayRes:   opts.SetPlayRes,
			PlayResX:     playResX,
			PlayResY:     playResY,
			ResolveNames: opts.FontMode.ResolvesNames(),
			FontsDir:     fontsDir,
			Height:       asset.Height(),
			FPS:          asset.FPS(),
		})
		outcome.Tracks = append(outcome.Tracks, result)
		if result.PostErr != nil {
			outcome.FontErrs = append(outcome.FontErrs, result.PostErr)
		}
		mapping.Merge(result.Mapping)
	}

	if target == formats.Bitmap {
		return outcome, false
	}

	if opts.FontMode == fonts.ModeMerge && styledTarget {
		_, report, err := c.deps.Fonts.CollectVideoFonts(ctx, asset.Path, root, seq, mapping, c.registry)
		if err != nil {
			outcome.FontErrs = append(outcome.FontErrs, err)
			logging.WarnWithContext(logger, "font collection failed", "font_collect_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "video fonts missing from merge"),
			)
		} else {
			collected = true
			if err := report.Err(); err != nil {
				outcome.FontErrs = append(outcome.FontErrs, err)
			}
		}
	}

	if embed && fontsDir != "" {
		for _, track := range outcome.Tracks {
			if !track.OK() || !formats.IsStyled(track.Format) {
				continue
			}
			count, err := ass.EmbedFontDir(track.Path, fontsDir)
			if err != nil {
				outcome.FontErrs = append(outcome.FontErrs, err)
				logging.WarnWithContext(logger, "font embedding failed", "font_embed_failed",
					logging.String("output", filepath.Base(track.Path)),
					logging.Error(err),
				)
				continue
			}
			logger.Debug("fonts embedded", logging.String("output", filepath.Base(track.Path)), logging.Int("fonts", count))
		}
	}
	return outcome, collected
}

func (c *Coordinator) record(ctx context.Context, step string, fn func(Recorder) error) {
	if c.deps.Recorder == nil {
		return
	}
	if err := fn(c.deps.Recorder); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "batch history write failed", "history_write_failed",
			logging.String("step", step),
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch missing from history"),
		)
	}
}

// fontsRoot picks where collected fonts go: the explicit option, the output
// directory, or the first video's directory.
func fontsRoot(opts Options, videos []video.Asset) string {
	switch {
	case strings.TrimSpace(opts.FontsRoot) != "":
		return opts.FontsRoot
	case strings.TrimSpace(opts.OutputDir) != "":
		return filepath.Join(opts.OutputDir, "Fonts")
	case len(videos) > 0:
		return filepath.Join(filepath.Dir(videos[0].Path), "Fonts")
	}
	return "Fonts"
}
