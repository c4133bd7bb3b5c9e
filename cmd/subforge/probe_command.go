package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/deps"
	"subforge/internal/extract"
	"subforge/internal/formats"
	"subforge/internal/media/ffprobe"
)

type probeOutput struct {
	Path  string          `json:"path"`
	Probe json.RawMessage `json:"probe,omitempty"`
	Error string          `json:"error,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <video>...",
		Short: "List the subtitle tracks and attachments of videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			binary, err := ctx.locator(cfg).Locate(deps.FFprobe, cfg.Tools.FFprobe)
			if err != nil {
				return err
			}

			var results []probeOutput
			out := cmd.OutOrStdout()
			for _, path := range args {
				result, err := ffprobe.Inspect(cmd.Context(), binary, path)
				if asJSON {
					entry := probeOutput{Path: path}
					if err != nil {
						entry.Error = err.Error()
					} else {
						entry.Probe = json.RawMessage(result.RawJSON())
					}
					results = append(results, entry)
					continue
				}
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintln(out, renderProbeTable(path, result, cfg.Extract.Format))
			}
			if asJSON {
				return writeJSON(cmd, results)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw ffprobe output as JSON")
	return cmd
}

func renderProbeTable(path string, result ffprobe.Result, target string) string {
	streams := extract.Streams(result)
	rows := make([][]string, 0, len(streams))
	for _, stream := range streams {
		format := formats.Resolve(target, stream.Codec)
		rows = append(rows, []string{
			strconv.Itoa(stream.Index),
			stream.Codec,
			stream.Language,
			yesNo(stream.IsStyled()),
			extract.OutputName(path, stream, format),
		})
	}
	title := filepath.Base(path)
	if video, ok := result.PrimaryVideo(); ok {
		title += fmt.Sprintf(" (%dx%d @ %.3f fps)", video.Width, video.Height, video.FrameRate())
	}
	if seconds := result.DurationSeconds(); seconds > 0 {
		title += ", " + time.Duration(seconds*float64(time.Second)).Round(time.Second).String()
	}
	title += fmt.Sprintf(", %d attachments", result.AttachmentCount())
	return renderTable(title,
		[]string{"Stream", "Codec", "Language", "Styled", "Output"},
		rows,
		[]columnAlignment{alignRight},
	)
}
