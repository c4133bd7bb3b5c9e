package fonts

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"subforge/internal/ass"
	"subforge/internal/deps"
	"subforge/internal/fileutil"
	"subforge/internal/fontname"
	"subforge/internal/logging"
	"subforge/internal/services"
)

// MergeMarker is printed by the generated script once the merged font has
// been written.
const MergeMarker = "subforge: merge completed"

// DefaultMergeTimeout bounds a single fontforge run.
const DefaultMergeTimeout = 600 * time.Second

//go:embed merge_script.py.tmpl
var mergeScriptSource string

var mergeScript = template.Must(template.New("merge").Funcs(template.FuncMap{
	"py": pyString,
}).Parse(mergeScriptSource))

var videoDirPattern = regexp.MustCompile(`^(\d+)_`)

// MergeConfig carries the outline merger settings.
type MergeConfig struct {
	// Binary is the configured fontforge path; empty searches the usual places.
	Binary  string
	Locator deps.Locator
	Timeout time.Duration
}

// Merger combines the per-video subset fonts of a fonts root.
type Merger struct {
	cfg    MergeConfig
	run    services.CommandRunner
	logger *slog.Logger
}

// NewMerger constructs a Merger.
func NewMerger(cfg MergeConfig, logger *slog.Logger, opts ...Option) *Merger {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMergeTimeout
	}
	return &Merger{
		cfg:    cfg,
		run:    applyOptions(opts).run,
		logger: logging.NewComponentLogger(logger, "fonts"),
	}
}

// GroupResult describes one merged or copied font.
type GroupResult struct {
	Base   string
	Inputs []string
	Output string
	Merged bool
	Err    error
}

// OK reports whether the group produced a root-level font.
func (g GroupResult) OK() bool {
	return g.Err == nil && g.Output != ""
}

// MergeReport summarizes a merge phase.
type MergeReport struct {
	Root   string
	Groups []GroupResult
	// Cleaned is set when the per-video directories were removed.
	Cleaned bool
}

// Failed returns the groups that produced no font.
func (r MergeReport) Failed() []GroupResult {
	var out []GroupResult
	for _, g := range r.Groups {
		if !g.OK() {
			out = append(out, g)
		}
	}
	return out
}

type videoDir struct {
	seq  int
	path string
}

type fontGroup struct {
	base  string
	ext   string
	files []string
}

// Merge flattens root: fonts that appear in a single per-video directory are
// copied, fonts that appear in several are merged with fontforge and get the
// name table of the first occurrence back. A failing group is logged and
// never stops the others. The returned error covers only problems reading
// root itself.
func (m *Merger) Merge(ctx context.Context, root string, registry *NameRegistry) (MergeReport, error) {
	logger := logging.WithContext(ctx, m.logger)
	report := MergeReport{Root: root}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return report, nil
		}
		return report, services.Wrap(services.ErrFileSystem, "fonts", "read fonts root", root, err)
	}

	var dirs []videoDir
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if !entry.IsDir() {
			if ass.IsFontFile(entry.Name()) {
				if err := os.Remove(path); err != nil {
					logger.Debug("failed to remove stale font", logging.String("path", path), logging.Error(err))
				}
			}
			continue
		}
		match := videoDirPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		seq, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		dirs = append(dirs, videoDir{seq: seq, path: path})
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		if dirs[i].seq != dirs[j].seq {
			return dirs[i].seq < dirs[j].seq
		}
		return dirs[i].path < dirs[j].path
	})

	groups, err := groupFonts(dirs)
	if err != nil {
		return report, err
	}
	if len(groups) == 0 {
		logger.Info("no collected fonts to merge", logging.String("root", root))
		return report, nil
	}

	fontforge := ""
	var locateErr error
	for _, group := range groups {
		if len(group.files) > 1 && fontforge == "" && locateErr == nil {
			fontforge, locateErr = m.cfg.Locator.Locate(deps.FontForge, m.cfg.Binary)
		}
	}

	for _, group := range groups {
		result := GroupResult{Base: group.base, Inputs: group.files, Merged: len(group.files) > 1}
		switch {
		case len(group.files) == 1:
			result.Output, result.Err = copyGroup(root, group)
		case locateErr != nil:
			result.Err = locateErr
		default:
			result.Output, result.Err = m.mergeGroup(ctx, fontforge, root, group, registry)
		}
		if result.Err != nil {
			logging.WarnWithContext(logger, "font group failed", "font_merge_failed",
				logging.String("font", group.base),
				logging.Int("inputs", len(group.files)),
				logging.Error(result.Err),
				logging.String(logging.FieldImpact, "font missing from merged fonts directory"),
			)
		}
		report.Groups = append(report.Groups, result)
	}

	if len(report.Failed()) == 0 {
		for _, dir := range dirs {
			if err := os.RemoveAll(dir.path); err != nil {
				logger.Debug("failed to remove collection dir", logging.String("path", dir.path), logging.Error(err))
			}
		}
		report.Cleaned = true
	}
	logger.Info("font merge phase complete",
		logging.String("root", root),
		logging.Int("groups", len(report.Groups)),
		logging.Int("failed", len(report.Failed())),
	)
	return report, nil
}

func groupFonts(dirs []videoDir) ([]fontGroup, error) {
	index := make(map[string]int)
	var groups []fontGroup
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir.path)
		if err != nil {
			return nil, services.Wrap(services.ErrFileSystem, "fonts", "read collection dir", dir.path, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !ass.IsFontFile(entry.Name()) {
				continue
			}
			base := fileutil.Stem(entry.Name())
			path := filepath.Join(dir.path, entry.Name())
			i, ok := index[base]
			if !ok {
				index[base] = len(groups)
				groups = append(groups, fontGroup{base: base, ext: filepath.Ext(entry.Name())})
				i = len(groups) - 1
			}
			groups[i].files = append(groups[i].files, path)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].base < groups[j].base })
	return groups, nil
}

func copyGroup(root string, group fontGroup) (string, error) {
	target, err := fileutil.UniquePath(root, group.base+group.ext)
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "fonts", "copy font", group.base, err)
	}
	if err := fileutil.CopyFile(group.files[0], target); err != nil {
		return "", services.Wrap(services.ErrFileSystem, "fonts", "copy font", group.base, err)
	}
	return target, nil
}

func (m *Merger) mergeGroup(ctx context.Context, fontforge, root string, group fontGroup, registry *NameRegistry) (string, error) {
	target, err := fileutil.UniquePath(root, group.base+group.ext)
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "fonts", "merge", group.base, err)
	}
	script, err := writeMergeScript(target, group.files)
	if err != nil {
		return "", err
	}
	defer os.Remove(script)

	runCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	cmd := services.Command{Name: fontforge, Args: []string{"-lang=py", "-script", script}}
	output, runErr := m.run(runCtx, cmd)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		_ = os.Remove(target)
		return "", fmt.Errorf("%w: %w", services.ErrTimeout,
			services.Wrap(services.ErrExternalTool, "fonts", "merge", fmt.Sprintf("%s exceeded %s", group.base, m.cfg.Timeout), runCtx.Err()))
	}
	if runErr != nil || !bytes.Contains(output, []byte(MergeMarker)) {
		_ = os.Remove(target)
		if runErr == nil {
			runErr = errors.New(lastLine(output))
		}
		return "", services.Wrap(services.ErrExternalTool, "fonts", "merge", group.base, runErr)
	}

	snap, ok := registry.Lookup(group.files[0])
	if !ok {
		snap = fontname.SynthesizeSnapshot(group.base)
	}
	if err := fontname.RestoreFile(target, snap); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return target, nil
}

type mergeScriptData struct {
	Output string
	Inputs []string
	Marker string
}

func writeMergeScript(output string, inputs []string) (string, error) {
	var buf bytes.Buffer
	if err := mergeScript.Execute(&buf, mergeScriptData{Output: output, Inputs: inputs, Marker: MergeMarker}); err != nil {
		return "", fmt.Errorf("render merge script: %w", err)
	}
	file, err := os.CreateTemp("", "subforge-merge-*.py")
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "fonts", "write merge script", "", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", services.Wrap(services.ErrFileSystem, "fonts", "write merge script", file.Name(), err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", services.Wrap(services.ErrFileSystem, "fonts", "write merge script", file.Name(), err)
	}
	return file.Name(), nil
}

// pyString quotes s as a Python string literal. JSON escapes are a subset of
// Python's.
func pyString(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	line := strings.TrimSpace(lines[len(lines)-1])
	if line == "" {
		return "merge marker missing from fontforge output"
	}
	return line
}
