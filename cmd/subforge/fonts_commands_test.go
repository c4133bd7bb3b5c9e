package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subforge/internal/ass"
	"subforge/internal/fontname"
	"subforge/internal/testsupport"
)

const sampleSubtitle = "[Script Info]\n" +
	"; Font subset: QWERTY12 - Source Han\n" +
	"Title: junk\n" +
	"Original Script: someone\n" +
	"\n" +
	"[V4+ Styles]\n" +
	"Style: Default,QWERTY12,60,&H00FFFFFF\n" +
	"\n" +
	"[Events]\n" +
	"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,{\\fnQWERTY12}Hello\n"

func writeSubtitle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.ass")
	if err := os.WriteFile(path, []byte(sampleSubtitle), 0o644); err != nil {
		t.Fatalf("write subtitle: %v", err)
	}
	return path
}

func TestFontsNamesAndRename(t *testing.T) {
	dir := t.TempDir()
	font := testsupport.WriteFont(t, dir, "subset.ttf", "QWERTY12")

	out, _, err := runCLI(t, []string{"fonts", "names", font}, "")
	if err != nil {
		t.Fatalf("fonts names: %v", err)
	}
	requireContains(t, out, "QWERTY12")

	out, _, err = runCLI(t, []string{"fonts", "rename", font, "QWERTY12", "Real"}, "")
	if err != nil {
		t.Fatalf("fonts rename: %v", err)
	}
	requireContains(t, out, `family "Real"`)

	parsed, err := fontname.ParseFile(font)
	if err != nil {
		t.Fatalf("parse renamed font: %v", err)
	}
	if got := parsed.Name(fontname.NameFamily); got != "Real" {
		t.Fatalf("family = %q, want Real", got)
	}
}

func TestFontsEmbedAndUnpackRoundTrip(t *testing.T) {
	subtitle := writeSubtitle(t)
	fontDir := t.TempDir()
	testsupport.WriteFont(t, fontDir, "Real.ttf", "Real")
	want, err := os.ReadFile(filepath.Join(fontDir, "Real.ttf"))
	if err != nil {
		t.Fatalf("read font: %v", err)
	}

	out, _, err := runCLI(t, []string{"fonts", "embed", subtitle, fontDir}, "")
	if err != nil {
		t.Fatalf("fonts embed: %v", err)
	}
	requireContains(t, out, "Embedded 1 fonts")

	unpackDir := filepath.Join(t.TempDir(), "unpacked")
	out, _, err = runCLI(t, []string{"fonts", "unpack", subtitle, unpackDir}, "")
	if err != nil {
		t.Fatalf("fonts unpack: %v", err)
	}
	requireContains(t, out, "Real.ttf")
	got, err := os.ReadFile(filepath.Join(unpackDir, "Real.ttf"))
	if err != nil {
		t.Fatalf("read unpacked font: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("unpacked font differs from the embedded one")
	}
}

func TestFontsUnpackWithoutFonts(t *testing.T) {
	subtitle := writeSubtitle(t)
	out, _, err := runCLI(t, []string{"fonts", "unpack", subtitle, t.TempDir()}, "")
	if err != nil {
		t.Fatalf("fonts unpack: %v", err)
	}
	requireContains(t, out, "No embedded fonts")
}

func TestFontsResolveAndCleanHeader(t *testing.T) {
	subtitle := writeSubtitle(t)

	out, _, err := runCLI(t, []string{"fonts", "resolve", subtitle}, "")
	if err != nil {
		t.Fatalf("fonts resolve: %v", err)
	}
	requireContains(t, out, "Source Han")

	out, _, err = runCLI(t, []string{"fonts", "clean-header", "--width", "1280", "--height", "720", subtitle}, "")
	if err != nil {
		t.Fatalf("fonts clean-header: %v", err)
	}
	requireContains(t, out, "Cleaned episode.ass")

	text, err := ass.ReadFile(subtitle)
	if err != nil {
		t.Fatalf("read subtitle: %v", err)
	}
	for _, want := range []string{"Style: Default,Source Han,", "\\fnSource Han", "Title: Untitled", "PlayResX: 1280", "PlayResY: 720"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in subtitle:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Original Script") {
		t.Fatalf("header junk survived:\n%s", text)
	}
}

func TestFontsCleanHeaderNeedsBothDimensions(t *testing.T) {
	subtitle := writeSubtitle(t)
	if _, _, err := runCLI(t, []string{"fonts", "clean-header", "--width", "1280", subtitle}, ""); err == nil {
		t.Fatal("expected error when only --width is given")
	}
}

func TestFontsMergeCopiesSingleFonts(t *testing.T) {
	env := setupCLITestEnv(t)
	root := filepath.Join(t.TempDir(), "Fonts")
	testsupport.WriteFont(t, filepath.Join(root, "1_movie"), "Solo.ttf", "Solo")

	out, _, err := runCLI(t, []string{"fonts", "merge", root}, env.configPath)
	if err != nil {
		t.Fatalf("fonts merge: %v\n%s", err, out)
	}
	requireContains(t, out, "copied")
	if _, err := os.Stat(filepath.Join(root, "Solo.ttf")); err != nil {
		t.Fatalf("expected merged output: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "1_movie")); !os.IsNotExist(err) {
		t.Fatalf("per-video folder should be removed, stat err = %v", err)
	}
}
