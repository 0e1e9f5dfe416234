package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/w3c/speccheck/internal/database"
	"github.com/w3c/speccheck/internal/model"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history [shortname]" {
			t.Errorf("expected use 'history [shortname]', got %q", cmd.Use)
		}
	})

	t.Run("has kind flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("kind")
		if flag == nil {
			t.Fatal("expected kind flag")
		}
		if flag.Shorthand != "k" {
			t.Errorf("expected shorthand 'k', got %q", flag.Shorthand)
		}
	})

	t.Run("has show flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("show") == nil {
			t.Fatal("expected show flag")
		}
	})

	t.Run("has latest flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("latest") == nil {
			t.Fatal("expected latest flag")
		}
	})
}

// historyTestDB opens a history database in a temp directory with one crawl
// and one study run recorded.
func historyTestDB(t *testing.T) *database.HistoryDB {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	ctx := context.Background()

	crawl := model.NewCrawlFile("Crawl results", model.CrawlOptions{}, []*model.CrawlResult{
		{Spec: &model.SpecDescriptor{URL: "https://www.w3.org/TR/css-color-4/", Shortname: "css-color-4"}},
	})
	if _, err := db.SaveCrawl(ctx, crawl); err != nil {
		t.Fatalf("failed to save crawl: %v", err)
	}

	report := model.AnomalyReport{BrokenLinks: []string{"https://www.w3.org/TR/other/#gone"}}
	report.Finalize()
	study := &model.StudyFile{
		Type:  model.FileTypeStudy,
		Title: "Study results",
		Date:  time.Now().UTC(),
		Stats: model.StudyStats{Crawled: 1, Studied: 1},
		Results: []model.StudyEntry{
			{
				Title:     "CSS Color Module Level 4",
				Shortname: "css-color-4",
				URL:       "https://www.w3.org/TR/css-color-4/",
				Report:    &report,
			},
		},
	}
	if _, err := db.SaveStudy(ctx, study); err != nil {
		t.Fatalf("failed to save study: %v", err)
	}

	return db
}

// TestPrintRuns tests the run listing output.
func TestPrintRuns(t *testing.T) {
	db := historyTestDB(t)
	ctx := context.Background()

	t.Run("lists all runs", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printRuns(ctx, &buf, db, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "crawl") || !strings.Contains(output, "study") {
			t.Errorf("expected both run kinds in listing, got: %s", output)
		}
	})

	t.Run("filters by kind", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printRuns(ctx, &buf, db, "study"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "crawl") {
			t.Errorf("expected crawl runs filtered out, got: %s", output)
		}
		if !strings.Contains(output, "study") {
			t.Errorf("expected study runs kept, got: %s", output)
		}
	})
}

// TestPrintTrend tests the per-spec trend output.
func TestPrintTrend(t *testing.T) {
	db := historyTestDB(t)
	ctx := context.Background()

	t.Run("shows recorded trend", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printTrend(ctx, &buf, db, "css-color-4"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "css-color-4") {
			t.Errorf("expected shortname in output, got: %s", output)
		}
		if !strings.Contains(output, "anomalous") {
			t.Errorf("expected anomalous status, got: %s", output)
		}
	})

	t.Run("reports unknown spec", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printTrend(ctx, &buf, db, "no-such-spec"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No study runs recorded") {
			t.Errorf("expected no-runs message, got: %s", buf.String())
		}
	})
}

// TestPrintStudy tests re-printing a stored study.
func TestPrintStudy(t *testing.T) {
	db := historyTestDB(t)
	ctx := context.Background()

	study, err := db.GetLatestStudy(ctx)
	if err != nil {
		t.Fatalf("failed to load study: %v", err)
	}
	if study == nil {
		t.Fatal("expected a stored study")
	}

	t.Run("text output", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printStudy(&buf, study, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "css-color-4") {
			t.Errorf("expected shortname in report, got: %s", buf.String())
		}
	})

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printStudy(&buf, study, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"type": "study"`) {
			t.Errorf("expected JSON study document, got: %s", buf.String())
		}
	})
}

// Note: runHistoryCmd is not executed end to end here because it opens the
// database under the XDG data directory, and the xdg library resolves that
// directory once at package initialization, so t.Setenv cannot redirect it
// to a temporary directory. The helpers it dispatches to are covered above
// against a database in a temp directory.
