package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"subforge/internal/batch"
	"subforge/internal/fonts"
	"subforge/internal/formats"
	"subforge/internal/preflight"
	"subforge/internal/video"
)

type extractFlags struct {
	format      string
	fontMode    string
	cleanHeader bool
	playRes     bool
	outputDir   string
	fontsDir    string
	width       int
	height      int
	fps         float64
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var flags extractFlags

	cmd := &cobra.Command{
		Use:   "extract <video>...",
		Short: "Extract every subtitle track of the given videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.loggerFor(cfg)

			opts, err := flags.options(cmd, cfg.Extract.Format, cfg.Extract.FontMode, cfg.Extract.CleanHeader, cfg.Extract.SetPlayRes)
			if err != nil {
				return err
			}
			opts.PlayResX = cfg.Extract.PlayResX
			opts.PlayResY = cfg.Extract.PlayResY
			opts.OutputDir = firstNonEmpty(flags.outputDir, cfg.Paths.OutputDir)
			opts.FontsRoot = firstNonEmpty(flags.fontsDir, cfg.Paths.FontsDir)

			if failed := preflight.Failed(preflight.RunAll(cfg, opts.OutputDir, opts.FontsRoot)); len(failed) > 0 {
				details := make([]string, 0, len(failed))
				for _, result := range failed {
					details = append(details, result.Name+": "+result.Detail)
				}
				return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			p, err := newPipeline(cfg, ctx.locator(cfg), logger)
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			assets, importErrs := video.NewImporter(p.ffprobe, logger).Import(runCtx, args)
			for _, importErr := range importErrs {
				fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, importErr.Error(), colorize))
			}
			if len(assets) == 0 {
				return errors.New("no videos to process")
			}
			override := video.Override{Width: flags.width, Height: flags.height, FPS: flags.fps}
			if override != (video.Override{}) {
				for i := range assets {
					assets[i] = assets[i].WithOverride(override)
				}
			}

			coordinator := batch.New(p.deps)
			if err := coordinator.Start(runCtx); err != nil {
				return err
			}
			defer coordinator.Close()

			run, err := coordinator.RunBatch(runCtx, assets, opts)
			if err != nil {
				return err
			}
			for outcome := range run.Outcomes() {
				for _, line := range outcomeLines(outcome, colorize) {
					fmt.Fprintln(out, line)
				}
			}
			summary := run.Wait()

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderSummaryTable(summary))
			if summary.Merge != nil && len(summary.Merge.Groups) > 0 {
				fmt.Fprintln(out, renderMergeTable(*summary.Merge))
			}
			if summary.MergeErr != nil {
				fmt.Fprintln(out, renderStatusLine("Font merge", statusError, summary.MergeErr.Error(), colorize))
			}

			if err := runCtx.Err(); err != nil {
				return err
			}
			if failed := summary.Counts()[batch.StatusFail]; failed > 0 {
				return fmt.Errorf("%d of %d videos failed", failed, len(summary.Outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Target format: "+strings.Join(formats.SupportedTargets(), ", "))
	cmd.Flags().StringVarP(&flags.fontMode, "font-mode", "m", "", "Font handling: embed, merge, restore or none")
	cmd.Flags().BoolVar(&flags.cleanHeader, "clean-header", false, "Strip ASS comments and garbage from [Script Info]")
	cmd.Flags().BoolVar(&flags.playRes, "play-res", false, "Stamp PlayResX/PlayResY into subtitles converted from SRT")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "Directory for extracted subtitles (default: next to each video)")
	cmd.Flags().StringVar(&flags.fontsDir, "fonts-dir", "", "Root of the collected Fonts tree")
	cmd.Flags().IntVar(&flags.width, "width", 0, "Override the probed video width")
	cmd.Flags().IntVar(&flags.height, "height", 0, "Override the probed video height")
	cmd.Flags().Float64Var(&flags.fps, "fps", 0, "Override the probed frame rate")
	return cmd
}

// options merges flags over the configured defaults. Boolean flags only
// apply when given explicitly.
func (f extractFlags) options(cmd *cobra.Command, format, fontMode string, cleanHeader, playRes bool) (batch.Options, error) {
	opts := batch.Options{
		Format:      firstNonEmpty(f.format, format),
		CleanHeader: cleanHeader,
		SetPlayRes:  playRes,
	}
	mode, err := fonts.ParseMode(firstNonEmpty(f.fontMode, fontMode))
	if err != nil {
		return batch.Options{}, err
	}
	opts.FontMode = mode
	if cmd.Flags().Changed("clean-header") {
		opts.CleanHeader = f.cleanHeader
	}
	if cmd.Flags().Changed("play-res") {
		opts.SetPlayRes = f.playRes
	}
	if f.width < 0 || f.height < 0 || f.fps < 0 {
		return batch.Options{}, errors.New("width, height and fps overrides must not be negative")
	}
	return opts, nil
}

func renderSummaryTable(summary batch.Summary) string {
	rows := make([][]string, 0, len(summary.Outcomes))
	for _, outcome := range summary.Outcomes {
		detail := ""
		if err := outcome.FirstErr(); err != nil {
			detail = err.Error()
		}
		rows = append(rows, []string{
			strconv.Itoa(outcome.Seq),
			filepath.Base(outcome.Video),
			string(outcome.Status),
			fmt.Sprintf("%d/%d", len(outcome.Outputs()), len(outcome.Tracks)),
			detail,
		})
	}
	counts := summary.Counts()
	title := fmt.Sprintf("Batch %s: %d success, %d partial, %d failed",
		shortID(summary.BatchID), counts[batch.StatusSuccess], counts[batch.StatusPartial], counts[batch.StatusFail])
	return renderTable(title,
		[]string{"#", "Video", "Status", "Tracks", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderMergeTable(report fonts.MergeReport) string {
	rows := make([][]string, 0, len(report.Groups))
	for _, group := range report.Groups {
		result := "copied"
		switch {
		case group.Err != nil:
			result = group.Err.Error()
		case group.Merged:
			result = "merged"
		}
		rows = append(rows, []string{
			group.Base,
			strconv.Itoa(len(group.Inputs)),
			filepath.Base(group.Output),
			result,
		})
	}
	title := "Fonts in " + report.Root
	if !report.Cleaned {
		title += " (per-video folders kept)"
	}
	return renderTable(title,
		[]string{"Font", "Inputs", "Output", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
