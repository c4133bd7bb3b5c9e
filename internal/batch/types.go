package batch

import (
	"context"
	"time"

	"subforge/internal/ass"
	"subforge/internal/extract"
	"subforge/internal/fonts"
	"subforge/internal/services"
)

// Status is the aggregated result of one video.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFail    Status = "fail"
)

// Options are the per-batch settings chosen by the caller.
type Options struct {
	// Format is the target format or formats.Original.
	Format   string
	FontMode fonts.Mode

	CleanHeader bool
	SetPlayRes  bool
	// PlayResX and PlayResY are used when the video has no probed geometry.
	PlayResX int
	PlayResY int

	// OutputDir receives subtitles; empty writes next to each video.
	OutputDir string
	// FontsRoot overrides the collected Fonts tree location.
	FontsRoot string
}

// VideoOutcome is reported once per video in selection order.
type VideoOutcome struct {
	Seq    int
	Video  string
	Status Status
	Tracks []extract.TrackResult
	// FontErrs lists failed font steps (temp extraction, collection,
	// embedding) and post-processing failures.
	FontErrs []error
	// Err is set when the video could not be processed at all.
	Err error
}

// Outputs lists the produced subtitle files.
func (o VideoOutcome) Outputs() []string {
	var out []string
	for _, track := range o.Tracks {
		if track.OK() {
			out = append(out, track.Path)
		}
	}
	return out
}

// Summary is returned by Run.Wait.
type Summary struct {
	BatchID   string
	Options   Options
	FontsRoot string
	Outcomes  []VideoOutcome
	Merge     *fonts.MergeReport
	MergeErr  error
	Started   time.Time
	Finished  time.Time
}

// Counts tallies outcomes by status.
func (s Summary) Counts() map[Status]int {
	counts := map[Status]int{StatusSuccess: 0, StatusPartial: 0, StatusFail: 0}
	for _, outcome := range s.Outcomes {
		counts[outcome.Status]++
	}
	return counts
}

// Recorder persists batch progress. Recording failures are logged and never
// change an outcome.
type Recorder interface {
	BeginBatch(ctx context.Context, id string, opts Options, videos int, started time.Time) error
	RecordOutcome(ctx context.Context, batchID string, outcome VideoOutcome) error
	FinishBatch(ctx context.Context, summary Summary) error
}

// TrackExtractor produces one subtitle file per stream.
type TrackExtractor interface {
	ExtractTrack(ctx context.Context, video string, stream extract.SubtitleStream, opts extract.Options) extract.TrackResult
}

// FontCollector extracts video font attachments.
type FontCollector interface {
	TempFonts(ctx context.Context, video string) (string, func(), error)
	CollectVideoFonts(ctx context.Context, video, fontsRoot string, seq int, mapping ass.SubsetMap, registry *fonts.NameRegistry) (string, fonts.RenameReport, error)
}

// FontMerger flattens a collected Fonts tree.
type FontMerger interface {
	Merge(ctx context.Context, root string, registry *fonts.NameRegistry) (fonts.MergeReport, error)
}

func aggregate(tracks []extract.TrackResult, fontErrs []error) Status {
	ok := 0
	for _, track := range tracks {
		if track.OK() {
			ok++
		}
	}
	switch {
	case ok == 0:
		return StatusFail
	case ok == len(tracks) && len(fontErrs) == 0:
		return StatusSuccess
	default:
		return StatusPartial
	}
}

// FirstErr picks the error reported for a video in history and on the CLI.
func (o VideoOutcome) FirstErr() error {
	if o.Err != nil {
		return o.Err
	}
	for _, track := range o.Tracks {
		if track.Err != nil {
			return track.Err
		}
	}
	if len(o.FontErrs) > 0 {
		return o.FontErrs[0]
	}
	return nil
}

// Kind classifies FirstErr.
func (o VideoOutcome) Kind() services.Kind {
	return services.Classify(o.FirstErr())
}
