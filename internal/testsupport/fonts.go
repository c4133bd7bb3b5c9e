package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"subforge/internal/fontname"
)

// FontBytes returns a real TrueType font whose names are rewritten from "Go"
// to family. An empty family returns Go Regular unchanged.
func FontBytes(t testing.TB, family string) []byte {
	t.Helper()

	if family == "" {
		return append([]byte(nil), goregular.TTF...)
	}
	font, err := fontname.Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("parse go regular: %v", err)
	}
	font.Rename("Go", family)
	data, err := font.Bytes()
	if err != nil {
		t.Fatalf("serialize font %q: %v", family, err)
	}
	return data
}

// WriteFont writes FontBytes(family) to dir/name and returns the path.
func WriteFont(t testing.TB, dir, name, family string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, FontBytes(t, family), 0o644); err != nil {
		t.Fatalf("write font %s: %v", path, err)
	}
	return path
}
