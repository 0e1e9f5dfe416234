package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/w3c/speccheck/internal/config"
	"github.com/w3c/speccheck/internal/database"
	"github.com/w3c/speccheck/internal/model"
	"github.com/w3c/speccheck/internal/report"
)

// NewHistoryCmd creates the history command.
// This command inspects the run-history database populated by crawl and
// study runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [shortname]",
		Short: "Inspect past crawl and study runs",
		Long: `History lists the crawl and study runs recorded in the local database
and, given a spec shortname, shows how that spec's anomaly count evolved
across study runs.

Crawl and study runs are recorded automatically; use this command to see
whether a spec is getting better or worse over time.

Examples:
  # List all recorded runs
  speccheck history

  # List study runs only
  speccheck history --kind study

  # Show the anomaly trend for one spec
  speccheck history css-color-4

  # Re-print the report of a past study run
  speccheck history --show 12

  # Dump the most recent study file as JSON
  speccheck history --latest --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("kind", "k", "",
		"Filter run listing by kind (crawl or study)")
	cmd.Flags().Int64P("show", "s", 0,
		"Print the stored report of a study run by ID (see the listing for IDs)")
	cmd.Flags().BoolP("latest", "l", false,
		"Print the most recent study run")
	cmd.Flags().BoolP("json", "j", false,
		"Output stored reports as JSON instead of text")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	kind, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}
	latest, err := cmd.Flags().GetBool("latest")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// Fail cleanly when no run has ever been recorded
	dbOpts := database.DefaultOptions()
	dbOpts.CreateIfNotExists = false
	db, err := database.Open(config.XDGDataDir(), dbOpts)
	if err != nil {
		return fmt.Errorf("no run history found (run 'speccheck crawl' first): %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	switch {
	case showID != 0:
		study, err := db.GetStudyByID(ctx, showID)
		if err != nil {
			return fmt.Errorf("failed to load study %d: %w", showID, err)
		}
		if study == nil {
			return fmt.Errorf("no study run with ID %d", showID)
		}
		return printStudy(out, study, jsonOutput)

	case latest:
		study, err := db.GetLatestStudy(ctx)
		if err != nil {
			return fmt.Errorf("failed to load latest study: %w", err)
		}
		if study == nil {
			return errors.New("no study runs recorded yet")
		}
		return printStudy(out, study, jsonOutput)

	case len(args) == 1:
		return printTrend(ctx, out, db, args[0])

	default:
		return printRuns(ctx, out, db, kind)
	}
}

// printRuns lists recorded runs, newest first.
func printRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, kind string) error {
	runs, err := db.ListRuns(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tDATE\tCRAWLED\tERRORS\tSTUDIED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\n",
			run.ID, run.Kind, run.Timestamp.Format(time.DateTime),
			run.Crawled, run.Errors, run.Studied)
	}
	return tw.Flush()
}

// printTrend shows one spec's anomaly count across study runs.
func printTrend(ctx context.Context, out io.Writer, db *database.HistoryDB, shortname string) error {
	trend, err := db.SpecTrend(ctx, shortname)
	if err != nil {
		return fmt.Errorf("failed to load trend for %s: %w", shortname, err)
	}
	if len(trend) == 0 {
		fmt.Fprintf(out, "No study runs recorded for %q.\n", shortname)
		return nil
	}

	fmt.Fprintf(out, "Anomaly trend for %s (newest first):\n\n", shortname)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tDATE\tANOMALIES\tSTATUS")
	for _, e := range trend {
		status := "ok"
		switch {
		case e.Error != "":
			status = "crawl error"
		case !e.OK:
			status = "anomalous"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n",
			e.RunID, e.Timestamp.Format(time.DateTime), e.AnomalyCount, status)
	}
	return tw.Flush()
}

// printStudy re-prints a stored study file.
func printStudy(out io.Writer, study *model.StudyFile, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(study)
	}
	_, err := report.NewSimpleWriter(out, report.WithVerbose(true)).WriteStudy(study)
	return err
}
