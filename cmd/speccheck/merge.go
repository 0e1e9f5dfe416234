package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/w3c/speccheck/internal/log"
	"github.com/w3c/speccheck/internal/merger"
	"github.com/w3c/speccheck/internal/report"
)

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <new-crawl> <baseline-crawl>",
		Short: "Merge a new crawl file into a baseline crawl file",
		Long: `Merge folds a new crawl file into a baseline one. Every spec present in
the new crawl replaces its baseline entry; baseline entries with no match
in the new crawl are kept unchanged. The result carries the new crawl's
metadata with statistics recomputed over the merged set.

This mirrors what 'speccheck crawl --baseline' does, for the case where
both crawl files already exist.

Examples:
  # Merge and print to stdout
  speccheck merge new/crawl.json old/crawl.json

  # Merge into a file, also matching specs by normalized title
  speccheck merge --match-titles --output merged.json new/crawl.json old/crawl.json`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageError(fmt.Errorf("expected a new and a baseline crawl file, got %d argument(s)", len(args)))
			}
			return nil
		},
		RunE: runMergeCmd,
	}

	cmd.Flags().Bool("match-titles", false,
		"Also match specs across files by normalized title")
	cmd.Flags().StringP("output", "o", "",
		"Write merged crawl to specified file path (default: stdout)")

	return cmd
}

// runMergeCmd executes the merge command.
func runMergeCmd(cmd *cobra.Command, args []string) error {
	matchTitles, err := cmd.Flags().GetBool("match-titles")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	logger := log.NewLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	fresh, err := report.ReadCrawlFile(args[0])
	if err != nil {
		return inputError(fmt.Errorf("failed to read new crawl: %w", err))
	}
	baseline, err := report.ReadCrawlFile(args[1])
	if err != nil {
		return inputError(fmt.Errorf("failed to read baseline crawl: %w", err))
	}

	opts := []merger.Option{merger.WithLogger(logger)}
	if matchTitles {
		opts = append(opts, merger.WithTitleMatch())
	}
	merged := merger.New(opts...).MergeFiles(fresh, baseline)

	out := os.Stdout
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(filepath.Clean(outputPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if _, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteCrawl(merged); err != nil {
		return fmt.Errorf("failed to write merged crawl: %w", err)
	}
	return nil
}
