package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/w3c/speccheck/internal/model"
	"github.com/w3c/speccheck/internal/report"
)

// TestNewStudyCmd tests the study command creation.
func TestNewStudyCmd(t *testing.T) {
	t.Parallel()

	cmd := NewStudyCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "study [crawl-file]" {
			t.Errorf("expected use 'study [crawl-file]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has parallelism flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("parallelism")
		if flag == nil {
			t.Fatal("expected parallelism flag")
		}
		if flag.Shorthand != "p" {
			t.Errorf("expected shorthand 'p', got %q", flag.Shorthand)
		}
	})

	t.Run("has webidl flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("webidl") == nil {
			t.Fatal("expected webidl flag")
		}
	})

	t.Run("has output format flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"json", "markdown", "output"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestLoadResolverTables tests table extension from the config file.
func TestLoadResolverTables(t *testing.T) {
	t.Run("returns default tables without config file", func(t *testing.T) {
		cmd := NewStudyCmd()
		tables, err := loadResolverTables(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tables == nil {
			t.Fatal("expected non-nil tables")
		}
	})

	t.Run("extends tables from config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), ".speccheck")
		content := "aliases:\n  old-name: new-name\noutdated:\n  - stale-spec\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewStudyCmd()
		_ = cmd.Flags().Set("config", configPath)

		tables, err := loadResolverTables(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tables.Aliases["old-name"] != "new-name" {
			t.Errorf("expected alias extension, got %v", tables.Aliases["old-name"])
		}
		if !tables.Outdated["stale-spec"] {
			t.Error("expected outdated extension")
		}
	})

	t.Run("errors on explicit missing config file", func(t *testing.T) {
		cmd := NewStudyCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))

		if _, err := loadResolverTables(cmd); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})
}

// TestOutputStudy tests report generation in the supported formats.
func TestOutputStudy(t *testing.T) {
	t.Parallel()

	study := &model.StudyFile{
		Type:  model.FileTypeStudy,
		Title: "Study results",
		Stats: model.StudyStats{Crawled: 1, Studied: 1},
		Results: []model.StudyEntry{
			{
				Title:     "Example API",
				Shortname: "example-api",
				URL:       "https://www.w3.org/TR/example-api/",
				Report: &model.AnomalyReport{
					BrokenLinks: []string{"https://www.w3.org/TR/other/#gone"},
				},
			},
		},
	}
	study.Results[0].Report.Finalize()

	t.Run("writes JSON report to file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "reports", "study.json")
		if err := outputStudy(study, path, true, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		loaded, err := report.ReadStudyFile(path)
		if err != nil {
			t.Fatalf("failed to read study file: %v", err)
		}
		if loaded.Stats.Studied != 1 {
			t.Errorf("expected 1 studied spec, got %d", loaded.Stats.Studied)
		}
	})

	t.Run("writes Markdown report to file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "study.md")
		if err := outputStudy(study, path, false, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path) //nolint:gosec // test-owned path
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "example-api") {
			t.Errorf("expected shortname in Markdown report, got: %s", data)
		}
	})

	t.Run("writes text report to file by default", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "study.txt")
		if err := outputStudy(study, path, false, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path) //nolint:gosec // test-owned path
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "broken links") {
			t.Errorf("expected anomaly section in text report, got: %s", data)
		}
	})
}

// Note: runStudyCmd is not executed end to end here because it records the
// study in the history database under the XDG data directory, and the xdg
// library resolves that directory once at package initialization, so
// t.Setenv cannot redirect it to a temporary directory. The pieces around
// the database save are covered by TestLoadResolverTables, TestOutputStudy,
// the analyzer package tests, and the database package tests.
