package fontname

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/google/renameio/v2/maybe"
	"github.com/mozillazg/go-pinyin"

	"subforge/internal/services"
)

// Snapshot is a captured naming table: name ID -> platform ID -> encoded value.
// Restoring it into another font reproduces the names a renamed subset had.
type Snapshot map[uint16]map[uint16][]byte

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for nameID, platforms := range s {
		inner := make(map[uint16][]byte, len(platforms))
		for platform, value := range platforms {
			inner[platform] = append([]byte(nil), value...)
		}
		out[nameID] = inner
	}
	return out
}

// Text decodes the value stored for nameID, preferring the Windows platform.
func (s Snapshot) Text(nameID uint16) string {
	platforms, ok := s[nameID]
	if !ok {
		return ""
	}
	for _, platform := range []uint16{PlatformWindows, PlatformUnicode, PlatformMacintosh} {
		if value, ok := platforms[platform]; ok {
			return Record{PlatformID: platform, Value: value}.Decode()
		}
	}
	return ""
}

var nonPostScript = regexp.MustCompile(`[^A-Za-z0-9_\-]`)

var pinyinArgs = func() pinyin.Args {
	args := pinyin.NewArgs()
	args.Fallback = func(r rune, _ pinyin.Args) []string {
		return []string{string(r)}
	}
	return args
}()

// PostScriptName returns the ASCII identifier used for PostScript and English
// name records: Han characters become toneless pinyin, spaces become
// underscores, and anything outside [A-Za-z0-9_-] is removed.
func PostScriptName(name string) string {
	ascii := strings.Join(pinyin.LazyConvert(name, &pinyinArgs), "")
	ascii = strings.ReplaceAll(ascii, " ", "_")
	return nonPostScript.ReplaceAllString(ascii, "")
}

// Rename replaces every name record whose text contains oldName. PostScript
// records and English-locale records receive PostScriptName(newName), other
// locales receive newName itself. Records for family, full name and the
// typographic family/subfamily IDs are added in Simplified Chinese when no
// Windows or Macintosh record of that ID already holds newName. The
// resulting table is returned as a Snapshot.
func (f *Font) Rename(oldName, newName string) Snapshot {
	ascii := PostScriptName(newName)
	outlineNames := f.outlineNamesSupported()

	for i := range f.records {
		rec := &f.records[i]
		text := rec.Decode()
		if oldName == "" || text == "" || !strings.Contains(text, oldName) {
			continue
		}
		value := newName
		switch {
		case rec.NameID == NamePostScript:
			value = ascii
		case outlineNames && rec.english():
			value = ascii
		}
		encoded, ok := encodeValue(rec.PlatformID, value)
		if !ok {
			encoded, _ = encodeValue(rec.PlatformID, ascii)
		}
		rec.Value = encoded
	}

	for _, nameID := range []uint16{NameFamily, NameFull, NameTypographicFamily, NameTypographicSubfamily} {
		if f.hasNameContaining(nameID, newName) {
			continue
		}
		encoded, _ := encodeValue(PlatformWindows, newName)
		f.records = append(f.records, Record{
			PlatformID: PlatformWindows,
			EncodingID: EncodingWindowsUnicodeBMP,
			LanguageID: LanguageChineseChina,
			NameID:     nameID,
			Value:      encoded,
		})
	}

	return f.Snapshot()
}

func (f *Font) hasNameContaining(nameID uint16, text string) bool {
	for _, rec := range f.records {
		if rec.NameID != nameID {
			continue
		}
		if rec.PlatformID != PlatformWindows && rec.PlatformID != PlatformMacintosh {
			continue
		}
		if strings.Contains(rec.Decode(), text) {
			return true
		}
	}
	return false
}

// Snapshot captures the naming table. When several records share a name ID
// and platform the last one wins.
func (f *Font) Snapshot() Snapshot {
	snap := make(Snapshot)
	for _, rec := range f.records {
		platforms, ok := snap[rec.NameID]
		if !ok {
			platforms = make(map[uint16][]byte)
			snap[rec.NameID] = platforms
		}
		platforms[rec.PlatformID] = append([]byte(nil), rec.Value...)
	}
	return snap
}

// Restore replaces the whole naming table with the snapshot. Windows and
// Unicode records are written as encoding 1 / Simplified Chinese; Macintosh
// records as Roman / English.
func (f *Font) Restore(snap Snapshot) {
	nameIDs := make([]int, 0, len(snap))
	for nameID := range snap {
		nameIDs = append(nameIDs, int(nameID))
	}
	sort.Ints(nameIDs)

	records := make([]Record, 0, len(snap)*2)
	for _, id := range nameIDs {
		nameID := uint16(id)
		platforms := snap[nameID]
		platformIDs := make([]int, 0, len(platforms))
		for platform := range platforms {
			platformIDs = append(platformIDs, int(platform))
		}
		sort.Ints(platformIDs)
		for _, p := range platformIDs {
			platform := uint16(p)
			rec := Record{
				PlatformID: platform,
				EncodingID: EncodingWindowsUnicodeBMP,
				LanguageID: LanguageChineseChina,
				NameID:     nameID,
				Value:      append([]byte(nil), platforms[platform]...),
			}
			if platform == PlatformMacintosh {
				rec.EncodingID = 0
				rec.LanguageID = LanguageMacintoshEnglish
			}
			records = append(records, rec)
		}
	}
	f.records = records
}

// SynthesizeSnapshot builds family, full and PostScript names from a base
// name, for merged fonts whose source names were never captured.
func SynthesizeSnapshot(base string) Snapshot {
	encode := func(s string) []byte {
		out, _ := encodeValue(PlatformWindows, s)
		return out
	}
	ps := PostScriptName(base)
	if ps == "" {
		ps = strings.ReplaceAll(base, " ", "_")
	}
	return Snapshot{
		NameFamily:     {PlatformWindows: encode(base)},
		NameFull:       {PlatformWindows: encode(base)},
		NamePostScript: {PlatformWindows: encode(ps)},
	}
}

// RenameFile rewrites the font at path in place and returns the snapshot.
func RenameFile(path, oldName, newName string) (Snapshot, error) {
	font, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	snap := font.Rename(oldName, newName)
	if err := writeFont(path, font); err != nil {
		return nil, err
	}
	return snap, nil
}

// RestoreFile writes snap into the font at path.
func RestoreFile(path string, snap Snapshot) error {
	font, err := ParseFile(path)
	if err != nil {
		return err
	}
	font.Restore(snap)
	return writeFont(path, font)
}

func writeFont(path string, font *Font) error {
	data, err := font.Bytes()
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := maybe.WriteFile(path, data, mode); err != nil {
		return services.Wrap(services.ErrFileSystem, "fontname", "write", path, err)
	}
	return nil
}
