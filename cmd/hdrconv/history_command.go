package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hdrconv/internal/conversion"
	"hdrconv/internal/history"
	"hdrconv/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		failedOnly bool
		olderThan  time.Duration
		clearAll   bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently finished conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			switch {
			case clearAll && olderThan > 0:
				return errors.New("--clear and --prune cannot be combined")
			case clearAll:
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d %s\n", removed, plural(removed, "entry", "entries"))
				return nil
			case olderThan > 0:
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d %s older than %s\n", removed, plural(removed, "entry", "entries"), olderThan)
				return nil
			}

			var statuses []conversion.Status
			if failedOnly {
				statuses = []conversion.Status{conversion.StatusFailed}
			}
			entries, err := store.List(cmd.Context(), limit, statuses...)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No conversions recorded yet (%s)\n", store.Path())
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(entries, time.Now()))

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: %d completed, %d failed, %d cancelled\n",
				stats[conversion.StatusCompleted], stats[conversion.StatusFailed], stats[conversion.StatusCancelled])
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed conversions")
	cmd.Flags().DurationVar(&olderThan, "prune", 0, "Remove entries older than this duration (e.g. 720h)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Remove every recorded entry")
	return cmd
}

func renderHistoryTable(entries []history.Entry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		result := textutil.Label(string(entry.Status))
		if entry.ErrorKind != conversion.KindNone && entry.Status != conversion.StatusCancelled {
			result = textutil.Label(string(entry.ErrorKind))
		}
		size := "-"
		if entry.OutputBytes > 0 {
			size = humanize.Bytes(uint64(entry.OutputBytes))
		}
		rows = append(rows, []string{
			humanize.RelTime(entry.FinishedAt, now, "ago", "from now"),
			filepath.Base(entry.InputPath),
			string(entry.Origin),
			result,
			size,
			entry.Elapsed.Round(time.Second).String(),
		})
	}
	return renderTable([]column{
		col("Finished"), col("File"), col("Via"), col("Result"), num("Size"), num("Time"),
	}, rows)
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
