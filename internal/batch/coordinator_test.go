package batch_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"subforge/internal/ass"
	"subforge/internal/batch"
	"subforge/internal/extract"
	"subforge/internal/fontname"
	"subforge/internal/fonts"
	"subforge/internal/logging"
	"subforge/internal/media/ffprobe"
	"subforge/internal/services"
	"subforge/internal/testsupport"
	"subforge/internal/video"
)

const subsetSubtitle = `[Script Info]
; Font subset: ABCDEF - NotoSansCJK
ScriptType: v4.00+

[V4+ Styles]
Format: Name, Fontname, Fontsize
Style: Default,ABCDEF,48

[Events]
Format: Layer, Start, End, Style, Text
Dialogue: 0,0:00:01.00,0:00:02.00,Default,{\fnABCDEF}Hi
`

// fakeFFmpeg serves both attachment dumps and track extraction.
type fakeFFmpeg struct {
	mu          sync.Mutex
	attachments map[string]map[string][]byte
	failTracks  map[int]bool
	// subtitle overrides the extracted track contents.
	subtitle string
}

func (f *fakeFFmpeg) run(_ context.Context, cmd services.Command) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	input := ""
	for i, arg := range cmd.Args {
		if arg == "-i" && i+1 < len(cmd.Args) {
			input = cmd.Args[i+1]
		}
	}
	if cmd.Args[0] == "-dump_attachment:t" {
		for name, data := range f.attachments[input] {
			if err := os.WriteFile(filepath.Join(cmd.Dir, name), data, 0o644); err != nil {
				return nil, err
			}
		}
		return []byte("At least one output file must be specified"), errors.New("exit status 1")
	}
	for i, arg := range cmd.Args {
		if arg == "-map" && f.failTracks[trackIndex(cmd.Args[i+1])] {
			return []byte("Invalid data found"), errors.New("exit status 1")
		}
	}
	output := cmd.Args[len(cmd.Args)-1]
	text := subsetSubtitle
	if f.subtitle != "" {
		text = f.subtitle
	}
	return nil, os.WriteFile(output, []byte(text), 0o644)
}

func trackIndex(mapArg string) int {
	var idx int
	for _, r := range strings.TrimPrefix(mapArg, "0:") {
		idx = idx*10 + int(r-'0')
	}
	return idx
}

type fontforgeCall struct {
	Output string
	Inputs []string
}

type fakeFontForge struct {
	mu     sync.Mutex
	calls  []fontforgeCall
	output []byte
}

func (f *fakeFontForge) run(_ context.Context, cmd services.Command) ([]byte, error) {
	data, err := os.ReadFile(cmd.Args[len(cmd.Args)-1])
	if err != nil {
		return nil, err
	}
	var call fontforgeCall
	scanner := bufio.NewScanner(bytes.NewReader(data))
	inInputs := false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "OUTPUT = "):
			_ = json.Unmarshal([]byte(strings.TrimPrefix(line, "OUTPUT = ")), &call.Output)
		case line == "INPUTS = [":
			inInputs = true
		case line == "]":
			inInputs = false
		case inInputs:
			var input string
			_ = json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimSpace(line), ",")), &input)
			call.Inputs = append(call.Inputs, input)
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if err := os.WriteFile(call.Output, f.output, 0o644); err != nil {
		return nil, err
	}
	return []byte(fonts.MergeMarker + "\n"), nil
}

type recorder struct {
	mu       sync.Mutex
	begun    []string
	outcomes []batch.Status
	finished []batch.Summary
}

func (r *recorder) BeginBatch(_ context.Context, id string, _ batch.Options, _ int, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begun = append(r.begun, id)
	return nil
}

func (r *recorder) RecordOutcome(_ context.Context, _ string, outcome batch.VideoOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome.Status)
	return nil
}

func (r *recorder) FinishBatch(_ context.Context, summary batch.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, summary)
	return nil
}

// verifyNoLeaks checks for stray goroutines after every cleanup registered
// later (including the coordinator's Close) has run.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })
}

type harness struct {
	coordinator *batch.Coordinator
	ffmpeg      *fakeFFmpeg
	fontforge   *fakeFontForge
	recorder    *recorder
}

func newHarness(t *testing.T, ffmpeg *fakeFFmpeg) *harness {
	t.Helper()
	forge := &fakeFontForge{output: testsupport.FontBytes(t, "")}
	rec := &recorder{}
	binary := testsupport.WriteScript(t, filepath.Join(t.TempDir(), "fontforge"), "exit 0\n")
	logger := logging.NewNop()

	c := batch.New(batch.Deps{
		Extractor: extract.New("ffmpeg", nil, logger, extract.WithCommandRunner(ffmpeg.run)),
		Fonts:     fonts.NewManager("ffmpeg", logger, fonts.WithCommandRunner(ffmpeg.run)),
		Merger:    fonts.NewMerger(fonts.MergeConfig{Binary: binary}, logger, fonts.WithCommandRunner(forge.run)),
		Recorder:  rec,
		Logger:    logger,
	})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &harness{coordinator: c, ffmpeg: ffmpeg, fontforge: forge, recorder: rec}
}

func asset(path string, subtitles ...ffprobe.Stream) video.Asset {
	streams := []ffprobe.Stream{{Index: 0, CodecName: "h264", CodecType: "video", Width: 1920, Height: 1080, RFrameRate: "24000/1001"}}
	streams = append(streams, subtitles...)
	return video.NewAsset(path, ffprobe.Result{Streams: streams})
}

func assStream(index int) ffprobe.Stream {
	return ffprobe.Stream{Index: index, CodecName: "ass", CodecType: "subtitle", Tags: map[string]string{"language": "chi"}}
}

func collect(run *batch.Run) []batch.VideoOutcome {
	var out []batch.VideoOutcome
	for outcome := range run.Outcomes() {
		out = append(out, outcome)
	}
	return out
}

func TestMergeAcrossVideosRestoresFirstSnapshot(t *testing.T) {
	verifyNoLeaks(t)

	dir := t.TempDir()
	ep1 := filepath.Join(dir, "ep1.mkv")
	ep2 := filepath.Join(dir, "ep2.mkv")
	ffmpeg := &fakeFFmpeg{attachments: map[string]map[string][]byte{
		ep1: {"ABCDEF.ttf": testsupport.FontBytes(t, "ABCDEF")},
		ep2: {"ABCDEF.ttf": testsupport.FontBytes(t, "")},
	}}
	h := newHarness(t, ffmpeg)
	out := filepath.Join(dir, "out")

	run, err := h.coordinator.RunBatch(context.Background(),
		[]video.Asset{asset(ep1, assStream(2)), asset(ep2, assStream(2))},
		batch.Options{Format: "ass", FontMode: fonts.ModeMerge, OutputDir: out})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	outcomes := collect(run)
	summary := run.Wait()

	for _, outcome := range outcomes {
		if outcome.Status != batch.StatusSuccess {
			t.Fatalf("video %s: status %s err=%v fontErrs=%v", outcome.Video, outcome.Status, outcome.FirstErr(), outcome.FontErrs)
		}
	}

	root := filepath.Join(out, "Fonts")
	wantCalls := []fontforgeCall{{
		Output: filepath.Join(root, "NotoSansCJK.ttf"),
		Inputs: []string{
			filepath.Join(root, "1_ep1", "NotoSansCJK.ttf"),
			filepath.Join(root, "2_ep2", "NotoSansCJK.ttf"),
		},
	}}
	if diff := cmp.Diff(wantCalls, h.fontforge.calls); diff != "" {
		t.Fatalf("fontforge calls mismatch (-want +got):\n%s", diff)
	}

	source, err := fontname.Parse(testsupport.FontBytes(t, "ABCDEF"))
	if err != nil {
		t.Fatal(err)
	}
	want := source.Rename("ABCDEF", "NotoSansCJK")
	merged, err := fontname.ParseFile(filepath.Join(root, "NotoSansCJK.ttf"))
	if err != nil {
		t.Fatalf("parse merged font: %v", err)
	}
	if diff := cmp.Diff(want, merged.Snapshot()); diff != "" {
		t.Fatalf("merged font names mismatch (-want +got):\n%s", diff)
	}

	if summary.Merge == nil || len(summary.Merge.Failed()) != 0 || !summary.Merge.Cleaned {
		t.Fatalf("unexpected merge report %+v", summary.Merge)
	}
	if summary.FontsRoot != root {
		t.Fatalf("fonts root = %q, want %q", summary.FontsRoot, root)
	}

	text, err := ass.ReadFile(filepath.Join(out, "ep1.chi2.ass"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Style: Default,NotoSansCJK,48") {
		t.Fatalf("subset names not resolved:\n%s", text)
	}

	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()
	if diff := cmp.Diff([]string{run.ID()}, h.recorder.begun); diff != "" {
		t.Fatalf("recorded batches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]batch.Status{batch.StatusSuccess, batch.StatusSuccess}, h.recorder.outcomes); diff != "" {
		t.Fatalf("recorded outcomes mismatch (-want +got):\n%s", diff)
	}
	if len(h.recorder.finished) != 1 {
		t.Fatalf("expected one finished batch, got %d", len(h.recorder.finished))
	}
}

func TestMergeModeReportsFontNameCollision(t *testing.T) {
	verifyNoLeaks(t)

	dir := t.TempDir()
	movie := filepath.Join(dir, "movie.mkv")
	ffmpeg := &fakeFFmpeg{
		attachments: map[string]map[string][]byte{
			movie: {
				"AAAAAA.ttf": testsupport.FontBytes(t, "AAAAAA"),
				"BBBBBB.ttf": testsupport.FontBytes(t, "BBBBBB"),
			},
		},
		subtitle: strings.Replace(subsetSubtitle,
			"; Font subset: ABCDEF - NotoSansCJK\n",
			"; Font subset: AAAAAA - NotoSansCJK\n; Font subset: BBBBBB - NotoSansCJK\n", 1),
	}
	h := newHarness(t, ffmpeg)
	out := filepath.Join(dir, "out")

	run, err := h.coordinator.RunBatch(context.Background(),
		[]video.Asset{asset(movie, assStream(2))},
		batch.Options{Format: "ass", FontMode: fonts.ModeMerge, OutputDir: out})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	outcomes := collect(run)
	summary := run.Wait()

	if len(outcomes) != 1 || outcomes[0].Status != batch.StatusPartial {
		t.Fatalf("expected one partial outcome, got %+v", outcomes)
	}
	if len(outcomes[0].FontErrs) != 1 || !errors.Is(outcomes[0].FontErrs[0], services.ErrFileSystem) {
		t.Fatalf("expected a file system font error, got %v", outcomes[0].FontErrs)
	}

	root := filepath.Join(out, "Fonts")
	for _, name := range []string{"NotoSansCJK.ttf", "BBBBBB.ttf"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Fatalf("expected %s in fonts root: %v", name, err)
		}
	}
	if summary.Merge == nil || len(summary.Merge.Failed()) != 0 {
		t.Fatalf("unexpected merge report %+v", summary.Merge)
	}
}

func TestOutcomeAggregation(t *testing.T) {
	verifyNoLeaks(t)

	dir := t.TempDir()
	ffmpeg := &fakeFFmpeg{failTracks: map[int]bool{3: true, 5: true}}
	h := newHarness(t, ffmpeg)

	noProbe := video.Asset{Path: filepath.Join(dir, "broken.mkv"), Name: "broken.mkv", ProbeErr: services.Wrap(services.ErrExternalTool, "video", "probe", "broken", nil)}
	videos := []video.Asset{
		asset(filepath.Join(dir, "good.mkv"), assStream(2)),
		asset(filepath.Join(dir, "mixed.mkv"), assStream(2), assStream(3)),
		asset(filepath.Join(dir, "bad.mkv"), assStream(5)),
		asset(filepath.Join(dir, "silent.mkv")),
		noProbe,
	}
	run, err := h.coordinator.RunBatch(context.Background(), videos, batch.Options{Format: "original", FontMode: fonts.ModeNone})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	summary := run.Wait()

	var got []batch.Status
	for _, outcome := range summary.Outcomes {
		got = append(got, outcome.Status)
	}
	want := []batch.Status{batch.StatusSuccess, batch.StatusPartial, batch.StatusFail, batch.StatusFail, batch.StatusFail}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
	if summary.Merge != nil {
		t.Fatal("merge phase must not run outside merge mode")
	}
	if kind := summary.Outcomes[4].Kind(); kind != services.KindExternalTool {
		t.Fatalf("probe failure kind = %s", kind)
	}
	if kind := summary.Outcomes[3].Kind(); kind != services.KindValidation {
		t.Fatalf("no-subtitle kind = %s", kind)
	}
	for i, outcome := range summary.Outcomes {
		if outcome.Seq != i+1 {
			t.Fatalf("outcome %d has seq %d", i, outcome.Seq)
		}
	}
}

func TestEmbedModeEmbedsVideoFonts(t *testing.T) {
	verifyNoLeaks(t)

	dir := t.TempDir()
	ep := filepath.Join(dir, "ep.mkv")
	fontData := testsupport.FontBytes(t, "Alpha")
	ffmpeg := &fakeFFmpeg{attachments: map[string]map[string][]byte{ep: {"Alpha.ttf": fontData}}}
	h := newHarness(t, ffmpeg)

	run, err := h.coordinator.RunBatch(context.Background(), []video.Asset{asset(ep, assStream(2))},
		batch.Options{Format: "ass", FontMode: fonts.ModeEmbed})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	summary := run.Wait()
	if summary.Outcomes[0].Status != batch.StatusSuccess {
		t.Fatalf("unexpected outcome %+v", summary.Outcomes[0])
	}

	text, err := ass.ReadFile(filepath.Join(dir, "ep.chi2.ass"))
	if err != nil {
		t.Fatal(err)
	}
	embedded, err := ass.EmbeddedFonts(text)
	if err != nil {
		t.Fatalf("EmbeddedFonts: %v", err)
	}
	if len(embedded) != 1 || embedded[0].Name != "Alpha.ttf" || !bytes.Equal(embedded[0].Data, fontData) {
		t.Fatalf("unexpected embedded fonts %+v", embedded)
	}
	if _, err := os.Stat(filepath.Join(dir, "Fonts")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("embed mode must not collect fonts, stat err=%v", err)
	}
}

func TestRunBatchValidation(t *testing.T) {
	verifyNoLeaks(t)

	h := newHarness(t, &fakeFFmpeg{})
	a := asset(filepath.Join(t.TempDir(), "a.mkv"), assStream(2))

	if _, err := h.coordinator.RunBatch(context.Background(), nil, batch.Options{Format: "ass"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty batch err = %v", err)
	}
	if _, err := h.coordinator.RunBatch(context.Background(), []video.Asset{a}, batch.Options{Format: "vtt"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad format err = %v", err)
	}
	if _, err := h.coordinator.RunBatch(context.Background(), []video.Asset{a}, batch.Options{Format: "ass", FontMode: "shout"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad mode err = %v", err)
	}

	if err := h.coordinator.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := h.coordinator.RunBatch(context.Background(), []video.Asset{a}, batch.Options{Format: "ass"}); !errors.Is(err, batch.ErrClosed) {
		t.Fatalf("closed err = %v", err)
	}
}

func TestBatchesRunSequentially(t *testing.T) {
	verifyNoLeaks(t)

	dir := t.TempDir()
	h := newHarness(t, &fakeFFmpeg{})
	first, err := h.coordinator.RunBatch(context.Background(), []video.Asset{asset(filepath.Join(dir, "a.mkv"), assStream(2))}, batch.Options{Format: "ass", FontMode: fonts.ModeNone})
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.coordinator.RunBatch(context.Background(), []video.Asset{asset(filepath.Join(dir, "b.mkv"), assStream(2))}, batch.Options{Format: "ass", FontMode: fonts.ModeNone})
	if err != nil {
		t.Fatal(err)
	}
	s2 := second.Wait()
	select {
	case <-first.Done():
	default:
		t.Fatal("second batch finished before the first")
	}
	if first.ID() == second.ID() || s2.BatchID != second.ID() {
		t.Fatalf("unexpected batch ids %q %q %q", first.ID(), second.ID(), s2.BatchID)
	}
	if !s2.Started.After(first.Wait().Finished) && !s2.Started.Equal(first.Wait().Finished) {
		t.Fatal("batches overlapped")
	}
}
