package fontname

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/sfnt"
)

// DisplayName returns the name a font store lists the font under: the full
// name, else the family name, else the file stem.
func DisplayName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(path)
	if err != nil {
		return stem
	}
	if name := sfntDisplayName(data); name != "" {
		return name
	}
	// x/image rejects fonts missing tables it needs for rendering; the naming
	// table alone is enough here.
	if font, err := Parse(data); err == nil {
		for _, id := range []uint16{NameFull, NameFamily} {
			if name := strings.TrimSpace(font.Name(id)); name != "" {
				return name
			}
		}
	}
	return stem
}

func sfntDisplayName(data []byte) string {
	var font *sfnt.Font
	if collection, err := sfnt.ParseCollection(data); err == nil && collection.NumFonts() > 0 {
		font, _ = collection.Font(0)
	}
	if font == nil {
		return ""
	}
	var buf sfnt.Buffer
	for _, id := range []sfnt.NameID{sfnt.NameIDFull, sfnt.NameIDFamily} {
		if name, err := font.Name(&buf, id); err == nil && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return ""
}
