package fonts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"subforge/internal/ass"
	"subforge/internal/fileutil"
	"subforge/internal/fontname"
	"subforge/internal/logging"
	"subforge/internal/services"
)

// benignDumpMessage is printed by ffmpeg when only attachments were dumped
// and no output file was given.
const benignDumpMessage = "At least one output file must be specified"

// Manager dumps and renames the fonts attached to videos.
type Manager struct {
	ffmpeg string
	run    services.CommandRunner
	logger *slog.Logger
}

type options struct {
	run services.CommandRunner
}

// Option customizes a Manager or Merger.
type Option func(*options)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(run services.CommandRunner) Option {
	return func(o *options) {
		if run != nil {
			o.run = run
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{run: services.ExecRunner}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewManager constructs a Manager that runs the given ffmpeg binary.
func NewManager(ffmpeg string, logger *slog.Logger, opts ...Option) *Manager {
	return &Manager{
		ffmpeg: ffmpeg,
		run:    applyOptions(opts).run,
		logger: logging.NewComponentLogger(logger, "fonts"),
	}
}

// ExtractAttachments dumps every attachment of video into dir, removes the
// files that are not fonts and renames the rest to the part of their name
// before the first ".". The final paths are returned sorted.
func (m *Manager) ExtractAttachments(ctx context.Context, video, dir string) ([]string, error) {
	logger := logging.WithContext(ctx, m.logger)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "fonts", "prepare attachment dir", dir, err)
	}
	cmd := services.Command{
		Name: m.ffmpeg,
		Args: []string{"-dump_attachment:t", "", "-i", video},
		Dir:  dir,
	}
	output, err := m.run(ctx, cmd)
	if err != nil {
		if !strings.Contains(string(output), benignDumpMessage) && !strings.Contains(err.Error(), benignDumpMessage) {
			return nil, services.Wrap(services.ErrExternalTool, "fonts", "dump attachments", filepath.Base(video), err)
		}
		logger.Debug("ignoring ffmpeg missing-output diagnostic after attachment dump")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "fonts", "list attachments", dir, err)
	}
	var fonts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !ass.IsFontFile(entry.Name()) {
			if err := os.Remove(path); err != nil {
				logger.Debug("failed to remove non-font attachment", logging.String("path", path), logging.Error(err))
			}
			continue
		}
		target := filepath.Join(dir, frontName(entry.Name())+filepath.Ext(entry.Name()))
		if target != path {
			if target, err = fileutil.UniquePath(dir, filepath.Base(target)); err != nil {
				return nil, services.Wrap(services.ErrFileSystem, "fonts", "rename attachment", entry.Name(), err)
			}
			if err := os.Rename(path, target); err != nil {
				return nil, services.Wrap(services.ErrFileSystem, "fonts", "rename attachment", entry.Name(), err)
			}
		}
		fonts = append(fonts, target)
	}
	sort.Strings(fonts)
	logger.Info("font attachments extracted",
		logging.String("video", filepath.Base(video)),
		logging.Int("fonts", len(fonts)),
	)
	return fonts, nil
}

// TempFonts extracts a video's fonts into a fresh temporary directory. The
// returned cleanup removes it and is safe to call more than once.
func (m *Manager) TempFonts(ctx context.Context, video string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "subforge-fonts-")
	if err != nil {
		return "", func() {}, services.Wrap(services.ErrFileSystem, "fonts", "create temp dir", "", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	if _, err := m.ExtractAttachments(ctx, video, dir); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return dir, cleanup, nil
}

// RenameReport summarizes RenameExtracted.
type RenameReport struct {
	Renamed []string
	// Skipped lists fonts that matched the subset map but could not be
	// renamed or rewritten.
	Skipped []string
	// Collisions lists fonts left under their subset name because another
	// font already took the real name.
	Collisions []string
}

// Err reports name collisions as a file system error. Malformed fonts that
// were skipped are not errors.
func (r RenameReport) Err() error {
	if len(r.Collisions) == 0 {
		return nil
	}
	names := make([]string, len(r.Collisions))
	for i, path := range r.Collisions {
		names[i] = filepath.Base(path)
	}
	return services.Wrap(services.ErrFileSystem, "fonts", "rename subset fonts",
		fmt.Sprintf("real font name already taken by another font: %s", strings.Join(names, ", ")), nil)
}

// RenameExtracted renames every font in dir whose subset identifier appears
// in mapping to "<real name><ext>", rewrites its name table and records the
// resulting snapshot in registry under the new path. Fonts that cannot be
// parsed keep their new file name and are reported as skipped. A font whose
// real name is already taken keeps its subset name and is reported as a
// collision.
func (m *Manager) RenameExtracted(ctx context.Context, dir string, mapping ass.SubsetMap, registry *NameRegistry) (RenameReport, error) {
	logger := logging.WithContext(ctx, m.logger)
	var report RenameReport
	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, services.Wrap(services.ErrFileSystem, "fonts", "list fonts", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !ass.IsFontFile(entry.Name()) {
			continue
		}
		subset := strings.ToUpper(frontName(entry.Name()))
		real, ok := mapping.Lookup(subset)
		if !ok {
			continue
		}
		source := filepath.Join(dir, entry.Name())
		target := filepath.Join(dir, safeFileName(real)+filepath.Ext(entry.Name()))
		if target != source {
			taken, err := fileutil.Exists(target)
			if err == nil && taken {
				logging.WarnWithContext(logger, "font rename collision", "font_rename_collision",
					logging.String("font", entry.Name()),
					logging.String("target", filepath.Base(target)),
					logging.String(logging.FieldErrorHint, "two subsets share one real font name"),
					logging.String(logging.FieldImpact, "font keeps its subset names"),
				)
				report.Skipped = append(report.Skipped, source)
				report.Collisions = append(report.Collisions, source)
				continue
			}
			if err := os.Rename(source, target); err != nil {
				logging.WarnWithContext(logger, "font rename failed", "font_rename_failed",
					logging.String("font", entry.Name()),
					logging.Error(err),
				)
				report.Skipped = append(report.Skipped, source)
				continue
			}
		}
		snap, err := fontname.RenameFile(target, subset, real)
		if err != nil {
			logging.WarnWithContext(logger, "font name table rewrite skipped", "font_malformed",
				logging.String("font", filepath.Base(target)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "font keeps its subset names"),
			)
			report.Skipped = append(report.Skipped, target)
			continue
		}
		if registry != nil {
			registry.Record(target, snap)
		}
		report.Renamed = append(report.Renamed, target)
		logger.Debug("subset font renamed", logging.String("subset", subset), logging.String("real", real))
	}
	logger.Info("subset fonts renamed",
		logging.Int("renamed", len(report.Renamed)),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("collisions", len(report.Collisions)),
	)
	return report, nil
}

// CollectVideoFonts extracts a video's fonts into fontsRoot/<seq>_<stem>,
// replacing any previous contents, and renames them with mapping.
func (m *Manager) CollectVideoFonts(ctx context.Context, video, fontsRoot string, seq int, mapping ass.SubsetMap, registry *NameRegistry) (string, RenameReport, error) {
	dir := VideoFontsDir(fontsRoot, seq, video)
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return dir, RenameReport{}, services.Wrap(services.ErrFileSystem, "fonts", "reset video fonts dir", dir, err)
	}
	if _, err := m.ExtractAttachments(ctx, video, dir); err != nil {
		return dir, RenameReport{}, err
	}
	report, err := m.RenameExtracted(ctx, dir, mapping, registry)
	return dir, report, err
}

// VideoFontsDir names the per-video collection directory.
func VideoFontsDir(fontsRoot string, seq int, video string) string {
	return filepath.Join(fontsRoot, fmt.Sprintf("%d_%s", seq, fileutil.Stem(video)))
}

// frontName returns the part of a file name before its first ".".
func frontName(name string) string {
	front, _, _ := strings.Cut(name, ".")
	return front
}

func safeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}
