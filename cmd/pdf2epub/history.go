// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2epub/internal/history"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [pdf]",
	Short: "List recorded conversions",
	Long: `History prints the most recent conversion runs from the ledger at
history.db_path, newest first. Pass a source path to see only its runs,
and --latest to show the most recent run of that source in detail.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("latest", false, "show only the most recent run of the given source")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	latest, _ := cmd.Flags().GetBool("latest")
	var src string
	if len(args) == 1 {
		src = args[0]
	}
	if latest && src == "" {
		return fmt.Errorf("--latest needs a source path")
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	if latest {
		run, err := store.Latest(cmd.Context(), src)
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Printf("No conversions recorded for %s\n", src)
			return nil
		}
		printRun(os.Stdout, run)
		return nil
	}

	runs, err := store.List(cmd.Context(), src, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No conversions recorded")
		return nil
	}
	return printRuns(os.Stdout, runs)
}

func printRuns(w io.Writer, runs []types.RunRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSOURCE\tSTATUS\tPAGES\tIMAGES\tVALID\tDURATION")
	for _, r := range runs {
		valid := "-"
		if r.Validated {
			valid = fmt.Sprint(r.Valid)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), filepath.Base(r.Source),
			r.Status, r.Pages, r.Images, valid, r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

// printRun prints every field of one run.
func printRun(w io.Writer, r *types.RunRecord) {
	fmt.Fprintf(w, "Run %d of %s\n", r.ID, r.Source)
	fmt.Fprintf(w, "  Output:   %s\n", r.Output)
	fmt.Fprintf(w, "  Status:   %s\n", r.Status)
	fmt.Fprintf(w, "  Started:  %s (%s)\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Pages:    %d, images: %d, characters: %d\n", r.Pages, r.Images, r.Chars)
	if r.Warnings > 0 {
		fmt.Fprintf(w, "  Warnings: %d\n", r.Warnings)
	}
	if r.Bytes > 0 {
		fmt.Fprintf(w, "  Size:     %d bytes\n", r.Bytes)
	}
	if r.Validated {
		fmt.Fprintf(w, "  Valid:    %t\n", r.Valid)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "  Error:    %s\n", r.Error)
	}
}
