package fonts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"subforge/internal/ass"
	"subforge/internal/fontname"
	"subforge/internal/fonts"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/testsupport"
)

// dumpRunner imitates ffmpeg -dump_attachment by writing files into the
// command's working directory and failing with the missing-output message.
func dumpRunner(t *testing.T, files map[string][]byte, calls *[]services.Command) services.CommandRunner {
	t.Helper()
	return func(_ context.Context, cmd services.Command) ([]byte, error) {
		if calls != nil {
			*calls = append(*calls, cmd)
		}
		for name, data := range files {
			if err := os.WriteFile(filepath.Join(cmd.Dir, name), data, 0o644); err != nil {
				return nil, err
			}
		}
		out := []byte("At least one output file must be specified\n")
		return out, errors.New("exit status 1: At least one output file must be specified")
	}
}

func TestExtractAttachmentsKeepsFontsOnly(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "attachments")
	var calls []services.Command
	files := map[string][]byte{
		"ABCDEF.subset.ttf": testsupport.FontBytes(t, "ABCDEF"),
		"Title.OTF":         testsupport.FontBytes(t, ""),
		"cover.jpg":         []byte("jpeg"),
		"notes.txt":         []byte("hello"),
	}
	m := fonts.NewManager("ffmpeg", logging.NewNop(), fonts.WithCommandRunner(dumpRunner(t, files, &calls)))

	got, err := m.ExtractAttachments(context.Background(), "/videos/movie.mkv", dir)
	if err != nil {
		t.Fatalf("ExtractAttachments: %v", err)
	}

	want := []string{filepath.Join(dir, "ABCDEF.ttf"), filepath.Join(dir, "Title.OTF")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fonts mismatch (-want +got):\n%s", diff)
	}
	for _, gone := range []string{"cover.jpg", "notes.txt", "ABCDEF.subset.ttf"} {
		if _, err := os.Stat(filepath.Join(dir, gone)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed, stat err=%v", gone, err)
		}
	}
	if len(calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(calls))
	}
	wantArgs := []string{"-dump_attachment:t", "", "-i", "/videos/movie.mkv"}
	if diff := cmp.Diff(wantArgs, calls[0].Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if calls[0].Dir != dir {
		t.Fatalf("working dir = %q, want %q", calls[0].Dir, dir)
	}
}

func TestExtractAttachmentsReportsRealFailures(t *testing.T) {
	run := func(context.Context, services.Command) ([]byte, error) {
		return []byte("movie.mkv: No such file or directory"), errors.New("exit status 1")
	}
	m := fonts.NewManager("ffmpeg", logging.NewNop(), fonts.WithCommandRunner(run))

	_, err := m.ExtractAttachments(context.Background(), "movie.mkv", t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestTempFontsCleanup(t *testing.T) {
	files := map[string][]byte{"Alpha.ttf": testsupport.FontBytes(t, "Alpha")}
	m := fonts.NewManager("ffmpeg", logging.NewNop(), fonts.WithCommandRunner(dumpRunner(t, files, nil)))

	dir, cleanup, err := m.TempFonts(context.Background(), "movie.mkv")
	if err != nil {
		t.Fatalf("TempFonts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Alpha.ttf")); err != nil {
		t.Fatalf("expected extracted font: %v", err)
	}
	cleanup()
	cleanup()
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp dir removed, stat err=%v", err)
	}
}

func TestRenameExtractedRecordsSnapshots(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFont(t, dir, "abcdef.ttf", "ABCDEF")
	testsupport.WriteFont(t, dir, "Unmapped.ttf", "Unmapped")
	if err := os.WriteFile(filepath.Join(dir, "QWERTY.ttf"), []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := fonts.NewNameRegistry()
	registry.Begin("batch-1")
	mapping := ass.SubsetMap{"ABCDEF": "Noto Sans", "QWERTY": "Broken"}
	m := fonts.NewManager("ffmpeg", logging.NewNop())

	report, err := m.RenameExtracted(context.Background(), dir, mapping, registry)
	if err != nil {
		t.Fatalf("RenameExtracted: %v", err)
	}

	renamed := filepath.Join(dir, "Noto Sans.ttf")
	if diff := cmp.Diff([]string{renamed}, report.Renamed); diff != "" {
		t.Fatalf("renamed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "Broken.ttf")}, report.Skipped); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, "Unmapped.ttf")); err != nil {
		t.Fatalf("unmapped font should be untouched: %v", err)
	}

	snap, ok := registry.Lookup(renamed)
	if !ok {
		t.Fatalf("expected snapshot for %s", renamed)
	}
	if got := snap.Text(fontname.NamePostScript); got != "Noto_Sans" {
		t.Fatalf("PostScript name = %q, want Noto_Sans", got)
	}

	font, err := fontname.ParseFile(renamed)
	if err != nil {
		t.Fatalf("parse renamed font: %v", err)
	}
	if diff := cmp.Diff(snap, font.Snapshot()); diff != "" {
		t.Fatalf("file and registry disagree (-registry +file):\n%s", diff)
	}
}

func TestRenameExtractedKeepsBothFontsOnNameCollision(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFont(t, dir, "AAAAAA.ttf", "AAAAAA")
	testsupport.WriteFont(t, dir, "BBBBBB.ttf", "BBBBBB")

	registry := fonts.NewNameRegistry()
	registry.Begin("batch-1")
	mapping := ass.SubsetMap{"AAAAAA": "Noto Sans", "BBBBBB": "Noto Sans"}
	m := fonts.NewManager("ffmpeg", logging.NewNop())

	report, err := m.RenameExtracted(context.Background(), dir, mapping, registry)
	if err != nil {
		t.Fatalf("RenameExtracted: %v", err)
	}

	renamed := filepath.Join(dir, "Noto Sans.ttf")
	kept := filepath.Join(dir, "BBBBBB.ttf")
	if diff := cmp.Diff([]string{renamed}, report.Renamed); diff != "" {
		t.Fatalf("renamed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{kept}, report.Collisions); diff != "" {
		t.Fatalf("collisions mismatch (-want +got):\n%s", diff)
	}
	if err := report.Err(); !errors.Is(err, services.ErrFileSystem) || !strings.Contains(err.Error(), "BBBBBB.ttf") {
		t.Fatalf("expected file system error naming BBBBBB.ttf, got %v", err)
	}

	first, err := fontname.ParseFile(renamed)
	if err != nil {
		t.Fatalf("parse renamed font: %v", err)
	}
	if got := first.Name(fontname.NamePostScript); got != "Noto_Sans" {
		t.Fatalf("renamed font PostScript name = %q, want Noto_Sans", got)
	}
	second, err := fontname.ParseFile(kept)
	if err != nil {
		t.Fatalf("colliding font was not kept: %v", err)
	}
	if got := second.Name(fontname.NameFamily); got != "BBBBBB" {
		t.Fatalf("colliding font family = %q, want BBBBBB", got)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one registry entry, got %d", registry.Len())
	}
	if err := (fonts.RenameReport{Skipped: []string{kept}}).Err(); err != nil {
		t.Fatalf("skipped malformed fonts should not be an error: %v", err)
	}
}

func TestCollectVideoFontsReplacesDirectory(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "1_movie", "Stale.ttf")
	testsupport.WriteFont(t, filepath.Dir(stale), "Stale.ttf", "Stale")

	files := map[string][]byte{"ABCDEF.ttf": testsupport.FontBytes(t, "ABCDEF")}
	m := fonts.NewManager("ffmpeg", logging.NewNop(), fonts.WithCommandRunner(dumpRunner(t, files, nil)))
	registry := fonts.NewNameRegistry()

	dir, report, err := m.CollectVideoFonts(context.Background(), "/videos/movie.mkv", root, 1, ass.SubsetMap{"ABCDEF": "Real"}, registry)
	if err != nil {
		t.Fatalf("CollectVideoFonts: %v", err)
	}
	if dir != filepath.Join(root, "1_movie") {
		t.Fatalf("dir = %q", dir)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected stale font removed, stat err=%v", err)
	}
	if len(report.Renamed) != 1 || registry.Len() != 1 {
		t.Fatalf("expected one renamed font, report=%+v registry=%d", report, registry.Len())
	}
}
