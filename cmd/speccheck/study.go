package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/w3c/speccheck/internal/analyzer"
	"github.com/w3c/speccheck/internal/config"
	"github.com/w3c/speccheck/internal/database"
	"github.com/w3c/speccheck/internal/log"
	"github.com/w3c/speccheck/internal/model"
	"github.com/w3c/speccheck/internal/registry"
	"github.com/w3c/speccheck/internal/report"
	"github.com/w3c/speccheck/internal/resolver"
)

// NewStudyCmd creates the study command.
func NewStudyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study [crawl-file]",
		Short: "Study a crawl file for cross-reference inconsistencies",
		Long: `Study analyzes a crawl file produced by 'speccheck crawl' and reports
per-spec anomalies: broken and evolving anchors, links without a matching
bibliography entry, inconsistent reference URLs, duplicated or unreferenced
Web IDL names, citations of outdated levels, and links through dated
snapshot URLs.

The whole corpus is the frame of reference: a link is only broken if the
target spec was crawled and lacks the anchor, and an IDL name is only
unknown if no crawled spec defines it.

Examples:
  # Study a crawl file and print a text report
  speccheck study crawl.json

  # Write the report as GitHub Flavored Markdown
  speccheck study --markdown --output report.md crawl.json

  # Write the report as JSON for further processing
  speccheck study --json crawl.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStudyCmd,
	}

	// Analysis flags
	cmd.Flags().IntP("parallelism", "p", 0,
		"Number of specs studied in parallel (default: number of CPUs)")
	cmd.Flags().String("webidl", "",
		"Shortname of the Web IDL spec used for the missing-reference check")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .speccheck in current or home directory)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON study file (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runStudyCmd executes the study command.
func runStudyCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageError(errors.New("no crawl file specified: pass a crawl file as argument"))
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return usageError(config.ErrConflictingReportFormats)
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	parallelism, err := cmd.Flags().GetInt("parallelism")
	if err != nil {
		return err
	}
	webIDL, err := cmd.Flags().GetString("webidl")
	if err != nil {
		return err
	}

	tables, err := loadResolverTables(cmd)
	if err != nil {
		return err
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	crawl, err := report.ReadCrawlFile(args[0])
	if err != nil {
		return inputError(fmt.Errorf("failed to read crawl file: %w", err))
	}

	// Rebuild the descriptor registry from the crawl file so link targets
	// resolve against exactly the corpus that was crawled.
	specs := make([]*model.SpecDescriptor, 0, len(crawl.Results))
	for _, r := range crawl.Results {
		if r.Spec != nil {
			specs = append(specs, r.Spec)
		}
	}
	reg, err := registry.FromDescriptors(specs)
	if err != nil {
		return inputError(fmt.Errorf("crawl file has no usable specs: %w", err))
	}

	opts := []analyzer.Option{analyzer.WithLogger(logger)}
	if parallelism > 0 {
		opts = append(opts, analyzer.WithParallelism(parallelism))
	}
	if webIDL != "" {
		opts = append(opts, analyzer.WithWebIDLShortname(webIDL))
	}

	res := resolver.New(reg, tables)
	study, err := analyzer.New(res, opts...).Study(ctx, crawl.Results)
	if err != nil {
		return fmt.Errorf("study failed: %w", err)
	}

	if err := outputStudy(study, outputPath, jsonOutput, markdownOutput); err != nil {
		return err
	}

	saveStudyToDB(ctx, study, logger)
	return nil
}

// loadResolverTables builds the resolver tables, extended with the aliases
// and outdated shortnames from the config file when one is present.
func loadResolverTables(cmd *cobra.Command) (*resolver.Tables, error) {
	tables := resolver.DefaultTables()

	configFilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicitConfigPath := configFilePath != ""
	configPath := config.FindConfigFile(configFilePath)
	if configPath == "" {
		if explicitConfigPath {
			return nil, fmt.Errorf("configuration file not found: %s", configFilePath)
		}
		return tables, nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	tables.ExtendAliases(file.Aliases)
	tables.ExtendOutdated(file.Outdated)
	return tables, nil
}

// outputStudy writes the study in the selected format, to a file when a
// path is given and to stdout otherwise.
func outputStudy(study *model.StudyFile, outputPath string, jsonOutput, markdownOutput bool) error {
	out := os.Stdout
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(filepath.Clean(outputPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	switch {
	case jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(true))
	}

	if _, err := w.WriteStudy(study); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveStudyToDB records the study in the run-history database.
// Best effort, matching crawl history.
func saveStudyToDB(ctx context.Context, study *model.StudyFile, logger *slog.Logger) {
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		logger.Error("failed to open history database", "error", err)
		return
	}
	defer db.Close()

	id, err := db.SaveStudy(ctx, study)
	if err != nil {
		logger.Error("failed to save study to history", "error", err)
		return
	}
	logger.Info("study recorded", "runID", id)
}
