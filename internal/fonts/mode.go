package fonts

import (
	"fmt"
	"strings"

	"subforge/internal/services"
)

// Mode selects what happens to the fonts of styled subtitle tracks.
type Mode string

const (
	// ModeEmbed embeds the video's fonts into every produced ASS file.
	ModeEmbed Mode = "embed"
	// ModeMerge resolves subset names and collects renamed fonts per video
	// for the cross-video merge.
	ModeMerge Mode = "merge"
	// ModeRestore only resolves subset names inside the subtitles.
	ModeRestore Mode = "restore"
	// ModeNone leaves fonts alone.
	ModeNone Mode = "none"
)

// ParseMode accepts the mode names plus the aliases "subset-merge" and
// "name-restore".
func ParseMode(value string) (Mode, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", "-")
	switch normalized {
	case "", string(ModeEmbed):
		return ModeEmbed, nil
	case string(ModeMerge), "subset-merge":
		return ModeMerge, nil
	case string(ModeRestore), "name-restore":
		return ModeRestore, nil
	case string(ModeNone):
		return ModeNone, nil
	}
	return "", services.Wrap(services.ErrValidation, "fonts", "parse mode", fmt.Sprintf("unknown font mode %q", value), nil)
}

// ResolvesNames reports whether subset names are resolved in produced ASS
// files.
func (m Mode) ResolvesNames() bool {
	return m == ModeMerge || m == ModeRestore
}
