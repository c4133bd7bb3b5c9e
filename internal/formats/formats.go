// Package formats maps container subtitle codec names to output subtitle
// formats.
package formats

import (
	"slices"
	"strings"
)

const (
	ASS      = "ass"
	SSA      = "ssa"
	SRT      = "srt"
	VTT      = "vtt"
	SUB      = "sub"
	Bitmap   = "sup"
	Original = "original"
)

var codecFormats = map[string]string{
	"ass":               ASS,
	"ssa":               ASS,
	"subrip":            SRT,
	"webvtt":            VTT,
	"dvd_subtitle":      SUB,
	"microdvd":          SUB,
	"hdmv_pgs_subtitle": Bitmap,
	"mov_text":          SRT,
}

var targets = []string{ASS, SRT, SSA, Bitmap, Original}

// Map returns the output format for a source codec. Codecs without an entry
// map to their own (lower-cased) name.
func Map(codec string) string {
	key := strings.ToLower(strings.TrimSpace(codec))
	if format, ok := codecFormats[key]; ok {
		return format
	}
	return key
}

// IsStyled reports whether format carries ASS styling (and therefore fonts).
func IsStyled(format string) bool {
	switch strings.ToLower(format) {
	case ASS, SSA:
		return true
	}
	return false
}

// IsText reports whether format is a text subtitle format.
func IsText(format string) bool {
	switch strings.ToLower(format) {
	case ASS, SSA, SRT, VTT:
		return true
	}
	return false
}

// SupportedTargets lists the target formats a batch accepts.
func SupportedTargets() []string {
	return slices.Clone(targets)
}

// ValidTarget reports whether target is accepted by a batch.
func ValidTarget(target string) bool {
	return slices.Contains(targets, strings.ToLower(strings.TrimSpace(target)))
}

// Resolve turns a batch target into the format for a specific codec:
// Original becomes the mapped source format, everything else is returned as is.
func Resolve(target, codec string) string {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == Original {
		return Map(codec)
	}
	return target
}
