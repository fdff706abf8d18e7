package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sandpile/internal/indexdb"
)

const barWidth = 40

func newReportCmd() *cobra.Command {
	var (
		dbPath string
		runID  string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise the cascades recorded in a sqlite index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("index: %w", err)
			}
			idx, err := indexdb.Open(dbPath, nil)
			if err != nil {
				return err
			}
			defer idx.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			sum, err := idx.Summarize(ctx, runID)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "index-db", "", "sqlite index written by --index-db")
	cmd.Flags().StringVar(&runID, "run", "", "run id (default: most recent run)")
	_ = cmd.MarkFlagRequired("index-db")
	return cmd
}

func printReport(w io.Writer, s indexdb.Summary) {
	r := s.Run
	fmt.Fprintf(w, "run %s  %dx%d  seed %d  started %s\n",
		r.ID, r.Width, r.Height, r.Seed, r.StartedAt.Format(time.RFC3339))
	if !r.EndedAt.IsZero() {
		fmt.Fprintf(w, "ended %s after %d ticks\n", r.EndedAt.Format(time.RFC3339), r.Ticks)
	}
	fmt.Fprintf(w, "cascades %d  mean %.2f  max %d\n", s.Count, s.Mean, s.Max)

	peak := 0
	for _, b := range s.Histogram {
		peak = max(peak, b.Count)
	}
	for _, b := range s.Histogram {
		n := 0
		if peak > 0 {
			n = (b.Count*barWidth + peak - 1) / peak
		}
		fmt.Fprintf(w, "%8d-%-8d %8d %s\n", b.Lo, b.Hi, b.Count, strings.Repeat("#", n))
	}
}
