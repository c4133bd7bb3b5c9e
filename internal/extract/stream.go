package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"subforge/internal/formats"
	"subforge/internal/media/ffprobe"
)

// SubtitleStream is one subtitle track of a probed video.
type SubtitleStream struct {
	// Index is the absolute stream index used with -map 0:<index>.
	Index    int
	Language string
	Codec    string
}

// SourceFormat is the output format the stream's codec maps to.
func (s SubtitleStream) SourceFormat() string {
	return formats.Map(s.Codec)
}

// IsStyled reports whether the stream carries ASS styling.
func (s SubtitleStream) IsStyled() bool {
	return formats.IsStyled(s.Codec)
}

// Streams lists the subtitle streams of a probe result in stream order.
func Streams(probe ffprobe.Result) []SubtitleStream {
	var out []SubtitleStream
	for _, stream := range probe.SubtitleStreams() {
		out = append(out, SubtitleStream{
			Index:    stream.Index,
			Language: stream.Language(),
			Codec:    strings.ToLower(strings.TrimSpace(stream.CodecName)),
		})
	}
	return out
}

// OutputName returns "<stem>.<lang><index>.<format>" for video.
func OutputName(video string, stream SubtitleStream, format string) string {
	base := filepath.Base(video)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s.%s%d.%s", stem, stream.Language, stream.Index, format)
}
