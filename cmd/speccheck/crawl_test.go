package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/w3c/speccheck/internal/config"
	"github.com/w3c/speccheck/internal/log"
	"github.com/w3c/speccheck/internal/model"
	"github.com/w3c/speccheck/internal/report"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [spec-list]" {
			t.Errorf("expected use 'crawl [spec-list]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has concurrency flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("concurrency")
		if flag == nil {
			t.Fatal("expected concurrency flag")
		}
		if flag.Shorthand != "n" {
			t.Errorf("expected shorthand 'n', got %q", flag.Shorthand)
		}
	})

	t.Run("has timeout flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("timeout")
		if flag == nil {
			t.Fatal("expected timeout flag")
		}
		if flag.Shorthand != "t" {
			t.Errorf("expected shorthand 't', got %q", flag.Shorthand)
		}
	})

	t.Run("has nightly flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("nightly")
		if flag == nil {
			t.Fatal("expected nightly flag")
		}
		if flag.Shorthand != "N" {
			t.Errorf("expected shorthand 'N', got %q", flag.Shorthand)
		}
	})

	t.Run("has out flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("out")
		if flag == nil {
			t.Fatal("expected out flag")
		}
		if flag.DefValue != "." {
			t.Errorf("expected default '.', got %q", flag.DefValue)
		}
	})

	t.Run("has baseline flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("baseline")
		if flag == nil {
			t.Fatal("expected baseline flag")
		}
		if flag.Shorthand != "b" {
			t.Errorf("expected shorthand 'b', got %q", flag.Shorthand)
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("config")
		if flag == nil {
			t.Fatal("expected config flag")
		}
		if flag.Shorthand != "c" {
			t.Errorf("expected shorthand 'c', got %q", flag.Shorthand)
		}
	})

	t.Run("has no db-dir flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("db-dir")
		if flag != nil {
			t.Error("db-dir flag should not exist (always uses XDG data directory)")
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		cmd := NewCrawlCmd()
		if getVerboseFlag(cmd) {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		crawlCmd, _, err := root.Find([]string{"crawl"})
		if err != nil {
			t.Fatalf("failed to find crawl command: %v", err)
		}

		if !getVerboseFlag(crawlCmd) {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildCrawlConfig tests configuration building from flags.
func TestBuildCrawlConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := NewCrawlCmd()
		cfg, err := buildCrawlConfig(cmd, []string{"specs.yaml"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SpecListPath != "specs.yaml" {
			t.Errorf("expected spec list 'specs.yaml', got %q", cfg.SpecListPath)
		}
		if cfg.Concurrency != config.DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", cfg.Concurrency)
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("expected default timeout, got %s", cfg.Timeout)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir == "" {
			t.Error("expected non-empty DBDir")
		}
	})

	t.Run("no argument leaves spec list empty", func(t *testing.T) {
		cmd := NewCrawlCmd()
		cfg, err := buildCrawlConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SpecListPath != "" {
			t.Errorf("expected empty spec list, got %q", cfg.SpecListPath)
		}
	})

	t.Run("builds config with custom flags", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("concurrency", "20")
		_ = cmd.Flags().Set("timeout", "30s")
		_ = cmd.Flags().Set("nightly", "true")
		_ = cmd.Flags().Set("out", "results")
		_ = cmd.Flags().Set("baseline", "old.json")

		cfg, err := buildCrawlConfig(cmd, []string{"specs.yaml"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Concurrency != 20 {
			t.Errorf("expected concurrency 20, got %d", cfg.Concurrency)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %s", cfg.Timeout)
		}
		if !cfg.UseNightly {
			t.Error("expected UseNightly to be true")
		}
		if cfg.OutDir != "results" {
			t.Errorf("expected out dir 'results', got %q", cfg.OutDir)
		}
		if cfg.BaselinePath != "old.json" {
			t.Errorf("expected baseline 'old.json', got %q", cfg.BaselinePath)
		}
	})

	t.Run("loads headers from config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), ".speccheck")
		content := "headers:\n  Authorization: \"Bearer token\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", configPath)

		cfg, err := buildCrawlConfig(cmd, []string{"specs.yaml"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header, got %v", cfg.Headers)
		}
	})

	t.Run("errors on explicit missing config file", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))

		if _, err := buildCrawlConfig(cmd, []string{"specs.yaml"}); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})
}

// TestWriteCrawlOutputs tests crawl file and summary generation.
func TestWriteCrawlOutputs(t *testing.T) {
	t.Parallel()

	file := model.NewCrawlFile("Crawl results", model.CrawlOptions{Concurrency: 2, TimeoutSeconds: 30}, []*model.CrawlResult{
		{
			Spec: &model.SpecDescriptor{
				URL:       "https://www.w3.org/TR/hr-time-3/",
				Shortname: "hr-time-3",
			},
			Title: "High Resolution Time Level 3",
		},
	})

	t.Run("writes crawl file", func(t *testing.T) {
		t.Parallel()

		outDir := filepath.Join(t.TempDir(), "nested", "out")
		cfg := &config.Config{OutDir: outDir}

		if err := writeCrawlOutputs(cfg, file); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		loaded, err := report.ReadCrawlFile(filepath.Join(outDir, crawlFileName))
		if err != nil {
			t.Fatalf("failed to read written crawl file: %v", err)
		}
		if loaded.Stats.Crawled != 1 {
			t.Errorf("expected 1 crawled spec, got %d", loaded.Stats.Crawled)
		}
	})

	t.Run("writes Markdown summary when requested", func(t *testing.T) {
		t.Parallel()

		outDir := t.TempDir()
		cfg := &config.Config{OutDir: outDir, MarkdownReport: true}

		if err := writeCrawlOutputs(cfg, file); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(outDir, "crawl.md")); err != nil {
			t.Errorf("expected crawl.md to exist: %v", err)
		}
	})
}

// TestRunCrawl tests the crawl end to end against a local HTTP server.
func TestRunCrawl(t *testing.T) {
	t.Run("crawls a local spec corpus", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/spec/", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>Example API</title></head>
<body>
<h2 id="intro">Introduction</h2>
<dfn id="widget">widget</dfn>
<pre class="idl">interface Widget {};</pre>
</body></html>`)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		specList := filepath.Join(t.TempDir(), "specs.yaml")
		content := fmt.Sprintf("specs:\n  - url: %s/spec/\n    shortname: example-api\n", server.URL)
		if err := os.WriteFile(specList, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		outDir := t.TempDir()
		cfg := config.NewConfig()
		cfg.SpecListPath = specList
		cfg.OutDir = outDir
		cfg.CacheDir = ""
		cfg.SaveToDB = false
		cfg.Verbose = true // no spinner in tests
		cfg.Concurrency = 2
		cfg.Timeout = 10 * time.Second

		logger := log.NewLogger(os.Stderr, false)
		if err := runCrawl(context.Background(), cfg, logger); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		loaded, err := report.ReadCrawlFile(filepath.Join(outDir, crawlFileName))
		if err != nil {
			t.Fatalf("failed to read crawl file: %v", err)
		}
		if loaded.Stats.Crawled != 1 || loaded.Stats.Errors != 0 {
			t.Fatalf("expected 1 crawled spec with no errors, got %+v", loaded.Stats)
		}
		result := loaded.Results[0]
		if result.Title != "Example API" {
			t.Errorf("expected extracted title, got %q", result.Title)
		}
		if result.IDL == nil || len(result.IDL.Defined) != 1 || result.IDL.Defined[0] != "Widget" {
			t.Errorf("expected Widget in defined IDL names, got %+v", result.IDL)
		}
		// The fetched URL is folded into the descriptor's version set after
		// the crawl completes.
		if result.CrawledURL == "" || !slices.Contains(result.Spec.Versions, result.CrawledURL) {
			t.Errorf("expected crawled URL %q in version set %v", result.CrawledURL, result.Spec.Versions)
		}
	})

	t.Run("merges a baseline crawl", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/spec/", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<!DOCTYPE html><html><head><title>Example API</title></head><body></body></html>`)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		tmpDir := t.TempDir()

		baseline := model.NewCrawlFile("Crawl results", model.CrawlOptions{}, []*model.CrawlResult{
			{Spec: &model.SpecDescriptor{URL: "https://www.w3.org/TR/other-spec/", Shortname: "other-spec"}},
		})
		baselinePath := filepath.Join(tmpDir, "baseline.json")
		baselineFile, err := os.Create(baselinePath) //nolint:gosec // test-owned path
		if err != nil {
			t.Fatal(err)
		}
		if _, err := report.NewJSONWriter(baselineFile).WriteCrawl(baseline); err != nil {
			t.Fatal(err)
		}
		if err := baselineFile.Close(); err != nil {
			t.Fatal(err)
		}

		specList := filepath.Join(tmpDir, "specs.yaml")
		content := fmt.Sprintf("specs:\n  - url: %s/spec/\n    shortname: example-api\n", server.URL)
		if err := os.WriteFile(specList, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		outDir := filepath.Join(tmpDir, "out")
		cfg := config.NewConfig()
		cfg.SpecListPath = specList
		cfg.OutDir = outDir
		cfg.BaselinePath = baselinePath
		cfg.SaveToDB = false
		cfg.Verbose = true
		cfg.Timeout = 10 * time.Second

		logger := log.NewLogger(os.Stderr, false)
		if err := runCrawl(context.Background(), cfg, logger); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		loaded, err := report.ReadCrawlFile(filepath.Join(outDir, crawlFileName))
		if err != nil {
			t.Fatalf("failed to read crawl file: %v", err)
		}
		if loaded.Stats.Crawled != 2 {
			t.Errorf("expected merged set of 2 specs, got %d", loaded.Stats.Crawled)
		}
	})

	t.Run("missing spec list carries input exit code", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.SpecListPath = filepath.Join(t.TempDir(), "missing.yaml")
		cfg.SaveToDB = false

		logger := log.NewLogger(os.Stderr, false)
		err := runCrawl(context.Background(), cfg, logger)
		if err == nil {
			t.Fatal("expected error for missing spec list")
		}

		var exitErr *exitError
		if !errors.As(err, &exitErr) || exitErr.code != exitCodeInput {
			t.Errorf("expected input exit code, got %v", err)
		}
	})
}
