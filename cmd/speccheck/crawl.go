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
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/w3c/speccheck/internal/config"
	"github.com/w3c/speccheck/internal/database"
	"github.com/w3c/speccheck/internal/extract"
	"github.com/w3c/speccheck/internal/fetch"
	"github.com/w3c/speccheck/internal/log"
	"github.com/w3c/speccheck/internal/merger"
	"github.com/w3c/speccheck/internal/model"
	"github.com/w3c/speccheck/internal/registry"
	"github.com/w3c/speccheck/internal/report"
	"github.com/w3c/speccheck/internal/scheduler"
)

// crawlFileName is the crawl result file written into the output directory.
const crawlFileName = "crawl.json"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [spec-list]",
		Short: "Crawl a list of specs and extract their structured facts",
		Long: `Crawl fetches every spec named in the YAML spec list, extracts the
structured facts that connect specs to each other (anchor IDs, term
definitions, outgoing links, normative and informative references, Web IDL),
and writes the result set as a JSON crawl file.

Specs are crawled in parallel with a hard per-spec timeout; a hung or
failing spec is recorded as an errored entry and never stalls the batch.
Responses are cached on disk, so re-crawling an unchanged corpus is cheap.

Examples:
  # Crawl a spec list into ./crawl.json
  speccheck crawl specs.yaml

  # Crawl editor's drafts instead of published versions
  speccheck crawl --nightly specs.yaml

  # Merge results into a previous crawl so specs missing from the new
  # list keep their old entries
  speccheck crawl --baseline old/crawl.json --out new specs.yaml

  # Raise parallelism and shorten the per-spec timeout
  speccheck crawl --concurrency 20 --timeout 30s specs.yaml

Configuration file (.speccheck) example:
  headers:
    Authorization: "Bearer token"
  aliases:
    html51: html
  outdated:
    - html52`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of specs crawled in parallel")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Hard per-spec timeout; a spec exceeding it is recorded as errored")
	cmd.Flags().BoolP("nightly", "N", false,
		"Crawl editor's drafts instead of latest published versions")
	cmd.Flags().String("cache-dir", "",
		"Directory for the on-disk response cache (default: XDG cache dir, empty string after --cache-dir= disables caching)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .speccheck in current or home directory)")

	// Output flags
	cmd.Flags().StringP("out", "o", ".",
		"Directory the crawl file is written to (created if needed)")
	cmd.Flags().StringP("baseline", "b", "",
		"Previous crawl file to merge new results into")
	cmd.Flags().BoolP("markdown", "m", false,
		"Also write a Markdown crawl summary next to the crawl file")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoSpecList) {
			return usageError(err)
		}
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// buildCrawlConfig creates a Config from cobra command flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	if len(args) > 0 {
		cfg.SpecListPath = args[0]
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.UseNightly, err = cmd.Flags().GetBool("nightly")
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir, err = cmd.Flags().GetString("cache-dir")
		if err != nil {
			return nil, err
		}
	}

	cfg.OutDir, err = cmd.Flags().GetString("out")
	if err != nil {
		return nil, err
	}

	cfg.BaselinePath, err = cmd.Flags().GetString("baseline")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	configFilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load fetch headers from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently continue if no file is found.
	explicitConfigPath := configFilePath != ""
	configPath := config.FindConfigFile(configFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Headers = file.Headers
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", configFilePath)
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always record runs in the XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg, err := registry.Load(cfg.SpecListPath)
	if err != nil {
		return inputError(fmt.Errorf("failed to load spec list: %w", err))
	}

	logger.Info("starting crawl",
		"specs", reg.Len(),
		"concurrency", cfg.Concurrency,
		"timeout", cfg.Timeout,
		"nightly", cfg.UseNightly,
	)

	client, err := fetch.NewClient(fetch.Options{
		CacheDir:    cfg.CacheDir,
		UserAgent:   cfg.UserAgent,
		Headers:     cfg.Headers,
		MaxBodySize: cfg.MaxBodySize,
		CheckRobots: true,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create fetch client: %w", err)
	}

	extractor := &extract.BasicExtractor{UseNightly: cfg.UseNightly}

	opts := []scheduler.Option{
		scheduler.WithConcurrency(cfg.Concurrency),
		scheduler.WithTimeout(cfg.Timeout),
		scheduler.WithLogger(logger),
	}

	// A spinner keeps long crawls legible on a terminal. Verbose logging
	// writes to the same stream, so the two are mutually exclusive.
	var sp *spinner.Spinner
	if !cfg.Verbose {
		sp = spinner.New(spinner.CharSets[9], 100*time.Millisecond,
			spinner.WithWriter(os.Stderr))
		sp.Suffix = fmt.Sprintf(" crawling 0/%d specs", reg.Len())
		opts = append(opts, scheduler.WithProgress(func(done, total int) {
			sp.Suffix = fmt.Sprintf(" crawling %d/%d specs", done, total)
		}))
	}

	sched := scheduler.New(extractor, client, opts...)

	startTime := time.Now()
	if sp != nil {
		sp.Start()
	}
	results, err := sched.Run(ctx, reg.Specs())
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return &exitError{code: exitCodeCrawlFatal, err: fmt.Errorf("crawl failed: %w", err)}
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Crawled %d specs in %s\n", len(results), elapsed.Round(time.Millisecond))

	// Record the URLs that were actually fetched as known variants of
	// their descriptors, so redirect targets and nightly URLs match on
	// later merges. This runs single-threaded after the crawl; resolution
	// itself never mutates the registry.
	for _, result := range results {
		if result.CrawledURL != "" {
			reg.RecordVersion(result.Spec, result.CrawledURL)
		}
	}

	file := model.NewCrawlFile("Crawl results", model.CrawlOptions{
		Concurrency:    cfg.Concurrency,
		TimeoutSeconds: int(cfg.Timeout.Seconds()),
		UseNightly:     cfg.UseNightly,
	}, results)

	// Merge into the baseline so specs absent from this run keep their
	// previous entries.
	if cfg.BaselinePath != "" {
		baseline, err := report.ReadCrawlFile(cfg.BaselinePath)
		if err != nil {
			return inputError(fmt.Errorf("failed to read baseline crawl: %w", err))
		}
		file = merger.New(merger.WithLogger(logger)).MergeFiles(file, baseline)
		logger.Info("merged baseline", "baseline", cfg.BaselinePath, "total", file.Stats.Crawled)
	}

	if err := writeCrawlOutputs(cfg, file); err != nil {
		return err
	}

	// Print a summary to stdout
	if _, err := report.NewSimpleWriter(os.Stdout).WriteCrawl(file); err != nil {
		logger.Error("failed to write crawl summary", "error", err)
	}

	if cfg.SaveToDB {
		saveCrawlToDB(ctx, cfg, file, logger)
	}

	return nil
}

// writeCrawlOutputs writes the crawl file, and optionally a Markdown
// summary, into the output directory.
func writeCrawlOutputs(cfg *config.Config, file *model.CrawlFile) error {
	if err := os.MkdirAll(cfg.OutDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(cfg.OutDir, crawlFileName)
	out, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create crawl file: %w", err)
	}
	if _, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteCrawl(file); err != nil {
		out.Close()
		return fmt.Errorf("failed to write crawl file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close crawl file: %w", err)
	}
	fmt.Printf("Crawl file written to %s\n", path)

	if cfg.MarkdownReport {
		mdPath := filepath.Join(cfg.OutDir, "crawl.md")
		md, err := os.OpenFile(filepath.Clean(mdPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create Markdown summary: %w", err)
		}
		if _, err := report.NewMarkdownWriter(md).WriteCrawl(file); err != nil {
			md.Close()
			return fmt.Errorf("failed to write Markdown summary: %w", err)
		}
		if err := md.Close(); err != nil {
			return fmt.Errorf("failed to close Markdown summary: %w", err)
		}
		fmt.Printf("Markdown summary written to %s\n", mdPath)
	}

	return nil
}

// saveCrawlToDB records the crawl in the run-history database.
// History is best effort: a database failure is logged but never fails a
// crawl that already produced its output files.
func saveCrawlToDB(ctx context.Context, cfg *config.Config, file *model.CrawlFile, logger *slog.Logger) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Error("failed to open history database", "error", err)
		return
	}
	defer db.Close()

	id, err := db.SaveCrawl(ctx, file)
	if err != nil {
		logger.Error("failed to save crawl to history", "error", err)
		return
	}
	logger.Info("crawl recorded", "runID", id, "dir", cfg.DBDir)
}
