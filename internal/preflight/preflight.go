package preflight

import (
	"path/filepath"
	"strings"

	"subforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks every directory the configuration writes to. outputDir and
// fontsRoot are the effective values after CLI overrides; empty values are
// skipped.
func RunAll(cfg *config.Config, outputDir, fontsRoot string) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	if cfg.Paths.LogDir != "" {
		results = append(results, EnsureDirectory("Log directory", cfg.Paths.LogDir))
	}
	if strings.TrimSpace(outputDir) != "" {
		results = append(results, EnsureDirectory("Output directory", outputDir))
	}
	if strings.TrimSpace(fontsRoot) != "" {
		results = append(results, EnsureDirectory("Fonts directory", fontsRoot))
	}
	if cfg.History.Enabled && cfg.Paths.HistoryDB != "" {
		results = append(results, EnsureDirectory("History directory", filepath.Dir(cfg.Paths.HistoryDB)))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
