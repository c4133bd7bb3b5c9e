package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var batchID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batches, or the outcomes of one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled || cfg.Paths.HistoryDB == "" {
				return errors.New("batch history is disabled in the configuration")
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(batchID); id != "" {
				outcomes, err := store.Outcomes(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, outcomes)
				}
				fmt.Fprintln(out, renderOutcomeRecords(id, outcomes))
				return nil
			}

			batches, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, batches)
			}
			if len(batches) == 0 {
				fmt.Fprintln(out, "No batches recorded")
				return nil
			}
			fmt.Fprintln(out, renderBatchRecords(batches))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of batches to list")
	cmd.Flags().StringVar(&batchID, "batch", "", "Show the per-video outcomes of this batch")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func renderBatchRecords(batches []history.BatchRecord) string {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		finished := "running"
		if b.Finished() {
			finished = b.FinishedAt.Sub(b.StartedAt).Round(time.Second).String()
		}
		merge := "-"
		if b.MergeGroups > 0 || b.MergeError != "" {
			merge = fmt.Sprintf("%d groups, %d failed", b.MergeGroups, b.MergeFailed)
		}
		rows = append(rows, []string{
			b.ID,
			b.StartedAt.Local().Format(time.DateTime),
			b.Format,
			b.FontMode,
			strconv.Itoa(b.Videos),
			fmt.Sprintf("%d/%d/%d", b.Success, b.Partial, b.Failed),
			merge,
			finished,
		})
	}
	return renderTable("",
		[]string{"Batch", "Started", "Format", "Fonts", "Videos", "OK/Partial/Fail", "Merge", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func renderOutcomeRecords(batchID string, outcomes []history.OutcomeRecord) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		detail := o.ErrorMessage
		if o.ErrorKind != "" {
			detail = o.ErrorKind + ": " + detail
		}
		rows = append(rows, []string{
			strconv.Itoa(o.Seq),
			o.Video,
			o.Status,
			strconv.Itoa(len(o.Outputs)),
			detail,
		})
	}
	return renderTable("Batch "+batchID,
		[]string{"#", "Video", "Status", "Outputs", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}
