package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"quizsync/internal/journal"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No sync runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				finished := "-"
				if run.FinishedAt != nil {
					finished = run.FinishedAt.Local().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{
					run.ID[:8],
					string(run.Status),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					finished,
					strconv.Itoa(run.RecordsExtracted),
					strconv.Itoa(run.RowsAppended),
					strconv.Itoa(run.AttemptsCreated),
					strconv.Itoa(run.AttemptsSkipped),
					strconv.Itoa(run.RecordsDropped),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Status", "Started", "Finished", "Extracted", "Appended", "Created", "Skipped", "Dropped"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))

			if stats, err := store.Stats(cmd.Context()); err == nil && len(stats) > 0 {
				fmt.Fprintf(out, "\nAll runs: %d completed, %d partial, %d failed\n",
					stats[journal.StatusCompleted], stats[journal.StatusPartial], stats[journal.StatusFailed])
			}

			if partial, err := store.LastPartial(cmd.Context()); err == nil && partial != nil {
				fmt.Fprintf(out, "\nWarning: run %s left the ledger and CRM out of step (%s).\n",
					partial.ID[:8], partial.ErrorMessage)
				fmt.Fprintln(out, "Re-upload the affected workbooks; already-synced records are skipped.")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}
