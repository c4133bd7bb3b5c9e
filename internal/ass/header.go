package ass

import (
	"fmt"
	"strings"
)

var canonicalScriptInfo = []string{
	"Title: Untitled",
	"ScriptType: v4.00+",
	"Collisions: Normal",
	"PlayDepth: 0",
}

// CleanHeader replaces every field of the [Script Info] section with the
// canonical Title/ScriptType/Collisions/PlayDepth set. Comment and blank lines
// keep their order, trailing blank lines are dropped, and exactly one blank
// line separates the section from whatever follows. Applying it twice gives
// the same result as applying it once.
func CleanHeader(text string) string {
	return rewriteScriptInfo(text, func(body []string) []string {
		kept := make([]string, 0, len(body)+len(canonicalScriptInfo))
		for _, line := range body {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, ";") {
				kept = append(kept, line)
			}
		}
		kept = trimTrailingBlank(kept)
		return append(kept, canonicalScriptInfo...)
	})
}

// SetPlayRes sets PlayResX and PlayResY in [Script Info], replacing existing
// values or appending them at the end of the section.
func SetPlayRes(text string, width, height int) string {
	return rewriteScriptInfo(text, func(body []string) []string {
		out := make([]string, 0, len(body)+2)
		foundX, foundY := false, false
		for _, line := range trimTrailingBlank(body) {
			lower := strings.ToLower(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(lower, "playresx:"):
				out = append(out, fmt.Sprintf("PlayResX: %d", width))
				foundX = true
			case strings.HasPrefix(lower, "playresy:"):
				out = append(out, fmt.Sprintf("PlayResY: %d", height))
				foundY = true
			default:
				out = append(out, line)
			}
		}
		if !foundX {
			out = append(out, fmt.Sprintf("PlayResX: %d", width))
		}
		if !foundY {
			out = append(out, fmt.Sprintf("PlayResY: %d", height))
		}
		return out
	})
}

// CleanHeaderFile applies CleanHeader to the file at path.
func CleanHeaderFile(path string) error {
	return rewriteFile(path, CleanHeader)
}

// SetPlayResFile applies SetPlayRes to the file at path.
func SetPlayResFile(path string, width, height int) error {
	return rewriteFile(path, func(text string) string {
		return SetPlayRes(text, width, height)
	})
}

// rewriteScriptInfo hands the lines between "[Script Info]" and the next
// section header to fn, then terminates the section with one blank line.
// Text without a [Script Info] section only has its line endings normalized.
func rewriteScriptInfo(text string, fn func(body []string) []string) string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines)+len(canonicalScriptInfo)+1)
	for i := 0; i < len(lines); i++ {
		if !isScriptInfo(lines[i]) {
			out = append(out, lines[i])
			continue
		}
		end := i + 1
		for end < len(lines) && !isSectionHeader(lines[end]) {
			end++
		}
		out = append(out, "[Script Info]")
		body := fn(append([]string(nil), lines[i+1:end]...))
		out = append(out, trimTrailingBlank(body)...)
		out = append(out, "")
		i = end - 1
	}
	if len(out) == 0 {
		return ""
	}
	return joinLines(out)
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return lines
}
