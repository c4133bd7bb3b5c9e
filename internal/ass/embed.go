package ass

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"subforge/internal/services"
)

const (
	fontsHeader   = "[Fonts]"
	fontEntryHead = "fontname: "
	encodedLine   = 80
)

// Font is one embedded font: the file name from its "fontname:" header and
// the decoded payload.
type Font struct {
	Name string
	Data []byte
}

// EncodeFont turns font bytes into the printable [Fonts] payload. Each 3-byte
// group becomes four 6-bit values offset by 33. A final partial group is zero
// padded and only its significant characters are written. Lines are wrapped
// at 80 characters.
func EncodeFont(data []byte) string {
	chars := make([]byte, 0, (len(data)+2)/3*4)
	for i := 0; i < len(data); i += 3 {
		var group [3]byte
		n := copy(group[:], data[i:])
		values := [4]byte{
			group[0] >> 2,
			(group[0]&0x03)<<4 | group[1]>>4,
			(group[1]&0x0F)<<2 | group[2]>>6,
			group[2] & 0x3F,
		}
		for _, v := range values[:n+1] {
			chars = append(chars, v+33)
		}
	}
	var b strings.Builder
	for start := 0; start < len(chars); start += encodedLine {
		end := min(start+encodedLine, len(chars))
		if start > 0 {
			b.WriteByte('\n')
		}
		b.Write(chars[start:end])
	}
	return b.String()
}

// DecodeFont reverses EncodeFont. Line breaks are ignored; a trailing group
// of n characters yields n*3/4 bytes.
func DecodeFont(text string) ([]byte, error) {
	chars := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\n' || c == '\r':
			continue
		case c < 33 || c > 33+63:
			return nil, services.Wrap(services.ErrMalformedAsset, "ass", "decode font", fmt.Sprintf("invalid character %q at offset %d", c, i), nil)
		}
		chars = append(chars, c-33)
	}
	if len(chars)%4 == 1 {
		return nil, services.Wrap(services.ErrMalformedAsset, "ass", "decode font", "truncated payload", nil)
	}
	out := make([]byte, 0, len(chars)*3/4)
	for i := 0; i < len(chars); i += 4 {
		var v [4]byte
		n := copy(v[:], chars[i:])
		group := [3]byte{
			v[0]<<2 | v[1]>>4,
			v[1]<<4 | v[2]>>2,
			v[2]<<6 | v[3],
		}
		out = append(out, group[:n*3/4]...)
	}
	return out, nil
}

// EmbedFonts writes fonts into the [Fonts] section. An existing section is
// replaced; otherwise the section goes before the first styles or events
// header, or at the top of the file when neither exists.
func EmbedFonts(text string, fonts []Font) string {
	if len(fonts) == 0 {
		return text
	}
	block := make([]string, 0, len(fonts)*2+2)
	block = append(block, fontsHeader)
	for _, font := range fonts {
		block = append(block, fontEntryHead+font.Name)
		if encoded := EncodeFont(font.Data); encoded != "" {
			block = append(block, strings.Split(encoded, "\n")...)
		}
	}
	block = append(block, "")

	lines := splitLines(text)
	if start, end, ok := findSection(lines, fontsHeader); ok {
		out := append([]string(nil), lines[:start]...)
		out = append(out, block...)
		out = append(out, lines[end:]...)
		return joinLines(out)
	}
	insert := 0
	for i, line := range lines {
		if isStylesOrEvents(line) {
			insert = i
			break
		}
	}
	out := append([]string(nil), lines[:insert]...)
	out = append(out, block...)
	out = append(out, lines[insert:]...)
	return joinLines(out)
}

// EmbeddedFonts decodes every font in the [Fonts] section of text.
func EmbeddedFonts(text string) ([]Font, error) {
	lines := splitLines(text)
	start, end, ok := findSection(lines, fontsHeader)
	if !ok {
		return nil, nil
	}
	var fonts []Font
	var name string
	var payload strings.Builder
	flush := func() error {
		if name == "" {
			return nil
		}
		data, err := DecodeFont(payload.String())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fonts = append(fonts, Font{Name: name, Data: data})
		payload.Reset()
		return nil
	}
	for _, line := range lines[start+1 : end] {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, fontEntryHead):
			if err := flush(); err != nil {
				return nil, err
			}
			name = strings.TrimSpace(strings.TrimPrefix(trimmed, fontEntryHead))
		case name != "":
			payload.WriteString(trimmed)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return fonts, nil
}

// EmbedFontDir embeds every .ttf/.otf/.ttc file of dir into the subtitle at
// path and returns how many fonts were written.
func EmbedFontDir(path, dir string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, services.Wrap(services.ErrFileSystem, "ass", "embed fonts", path, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, services.Wrap(services.ErrFileSystem, "ass", "embed fonts", dir, err)
	}
	var fonts []Font
	for _, entry := range entries {
		if entry.IsDir() || !IsFontFile(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return 0, services.Wrap(services.ErrFileSystem, "ass", "embed fonts", entry.Name(), err)
		}
		fonts = append(fonts, Font{Name: entry.Name(), Data: data})
	}
	if len(fonts) == 0 {
		return 0, nil
	}
	sort.Slice(fonts, func(i, j int) bool { return fonts[i].Name < fonts[j].Name })
	if err := rewriteFile(path, func(text string) string { return EmbedFonts(text, fonts) }); err != nil {
		return 0, err
	}
	return len(fonts), nil
}

// IsFontFile reports whether name has a font container extension.
func IsFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf", ".ttc":
		return true
	}
	return false
}

func isStylesOrEvents(line string) bool {
	switch strings.TrimSpace(line) {
	case "[V4+ Styles]", "[V4 Styles]", "[Events]":
		return true
	}
	return false
}

// findSection returns the header index of the named section and the index of
// the next section header (or len(lines)).
func findSection(lines []string, header string) (int, int, bool) {
	for i, line := range lines {
		if !strings.EqualFold(strings.TrimSpace(line), header) {
			continue
		}
		end := i + 1
		for end < len(lines) && !isSectionHeader(lines[end]) {
			end++
		}
		return i, end, true
	}
	return 0, 0, false
}
