package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"subforge/internal/batch"
	"subforge/internal/deps"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(line, statusKindColor(kind), colorize)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func outcomeKind(status batch.Status) statusKind {
	switch status {
	case batch.StatusSuccess:
		return statusOK
	case batch.StatusPartial:
		return statusWarn
	default:
		return statusError
	}
}

// outcomeLines renders one video outcome as it arrives: a status line and
// an indented line per failure.
func outcomeLines(outcome batch.VideoOutcome, colorize bool) []string {
	kind := outcomeKind(outcome.Status)
	ok := len(outcome.Outputs())
	message := fmt.Sprintf("%d/%d tracks", ok, len(outcome.Tracks))
	label := fmt.Sprintf("#%d %s", outcome.Seq, filepath.Base(outcome.Video))
	lines := []string{renderStatusLine(label, kind, strings.ToUpper(string(outcome.Status))+" "+message, colorize)}

	if outcome.Err != nil {
		lines = append(lines, paint(statusIndent+statusIndent+outcome.Err.Error(), ansiRed, colorize))
	}
	for _, track := range outcome.Tracks {
		if track.Err != nil {
			lines = append(lines, paint(fmt.Sprintf("%s%strack %d: %v", statusIndent, statusIndent, track.Stream.Index, track.Err), ansiRed, colorize))
		}
	}
	for _, err := range outcome.FontErrs {
		lines = append(lines, paint(statusIndent+statusIndent+"fonts: "+err.Error(), ansiYellow, colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	for _, dep := range statuses {
		if dep.Available {
			lines = append(lines, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (%s)", dep.Path), colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
			if dep.Description != "" {
				detail += "; needed for " + strings.ToLower(dep.Description)
			}
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	required, optional := deps.Missing(statuses)
	if missing := append(required, optional...); len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
