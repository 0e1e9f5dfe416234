package merger

import (
	"encoding/json"
	"testing"

	"github.com/w3c/speccheck/internal/model"
)

func result(url, shortname, title string) *model.CrawlResult {
	return &model.CrawlResult{
		Spec: &model.SpecDescriptor{
			URL:       url,
			Shortname: shortname,
		},
		CrawledURL: url,
		Title:      title,
	}
}

func TestMergerMerge(t *testing.T) {
	t.Parallel()

	t.Run("fresh entry replaces its URL counterpart", func(t *testing.T) {
		t.Parallel()

		baseline := []*model.CrawlResult{
			result("https://www.w3.org/TR/css-color-4/", "css-color-4", "CSS Color 4 (old crawl)"),
			result("https://www.w3.org/TR/fetch/", "fetch", "Fetch"),
		}
		fresh := []*model.CrawlResult{
			result("https://www.w3.org/TR/css-color-4/", "css-color-4", "CSS Color Module Level 4"),
		}

		merged := New().Merge(fresh, baseline)
		if len(merged) != 2 {
			t.Fatalf("got %d entries, want 2", len(merged))
		}
		for _, r := range merged {
			if r.Spec.Shortname == "css-color-4" && r.Title != "CSS Color Module Level 4" {
				t.Errorf("css-color-4 title = %q, want the fresh entry", r.Title)
			}
		}
	})

	t.Run("unmatched fresh entries are appended", func(t *testing.T) {
		t.Parallel()

		baseline := []*model.CrawlResult{
			result("https://www.w3.org/TR/fetch/", "fetch", "Fetch"),
		}
		fresh := []*model.CrawlResult{
			result("https://www.w3.org/TR/css-fonts-4/", "css-fonts-4", "CSS Fonts Module Level 4"),
		}

		merged := New().Merge(fresh, baseline)
		if len(merged) != 2 {
			t.Fatalf("got %d entries, want 2", len(merged))
		}
	})

	t.Run("matches on shortname when URLs moved", func(t *testing.T) {
		t.Parallel()

		baseline := []*model.CrawlResult{
			result("https://www.w3.org/TR/old-home/", "css-color-4", "CSS Color Module Level 4"),
		}
		fresh := []*model.CrawlResult{
			result("https://drafts.csswg.org/css-color-4/", "css-color-4", "CSS Color Module Level 4"),
		}

		merged := New().Merge(fresh, baseline)
		if len(merged) != 1 {
			t.Fatalf("got %d entries, want 1 (shortname match should replace)", len(merged))
		}
		if merged[0].URL() != "https://drafts.csswg.org/css-color-4/" {
			t.Errorf("merged URL = %s, want the fresh entry", merged[0].URL())
		}
	})

	t.Run("matches on overlapping version sets", func(t *testing.T) {
		t.Parallel()

		base := result("https://www.w3.org/TR/mediaqueries-5/", "mediaqueries-5", "Media Queries Level 5")
		base.Spec.AddVersion("https://www.w3.org/TR/2020/WD-mediaqueries-5-20200303/")

		entry := result("https://drafts.csswg.org/mediaqueries-5/", "mq-5", "Media Queries Level 5")
		entry.Spec.AddVersion("https://www.w3.org/TR/2020/WD-mediaqueries-5-20200303/")

		merged := New().Merge([]*model.CrawlResult{entry}, []*model.CrawlResult{base})
		if len(merged) != 1 {
			t.Fatalf("got %d entries, want 1 (version overlap should replace)", len(merged))
		}
	})

	t.Run("title match only when enabled", func(t *testing.T) {
		t.Parallel()

		baseline := []*model.CrawlResult{
			result("https://www.w3.org/TR/old-url/", "old-name", "Web  Animations"),
		}
		fresh := []*model.CrawlResult{
			result("https://www.w3.org/TR/web-animations-1/", "web-animations-1", "web animations"),
		}

		if merged := New().Merge(fresh, baseline); len(merged) != 2 {
			t.Errorf("without title match: got %d entries, want 2", len(merged))
		}
		if merged := New(WithTitleMatch()).Merge(fresh, baseline); len(merged) != 1 {
			t.Errorf("with title match: got %d entries, want 1", len(merged))
		}
	})

	t.Run("empty titles never match", func(t *testing.T) {
		t.Parallel()

		baseline := []*model.CrawlResult{
			result("https://www.w3.org/TR/a/", "a", ""),
		}
		fresh := []*model.CrawlResult{
			result("https://www.w3.org/TR/b/", "b", ""),
		}
		if merged := New(WithTitleMatch()).Merge(fresh, baseline); len(merged) != 2 {
			t.Errorf("got %d entries, want 2 (empty titles must not match)", len(merged))
		}
	})

	t.Run("output is sorted by URL", func(t *testing.T) {
		t.Parallel()

		baseline := []*model.CrawlResult{
			result("https://www.w3.org/TR/zzz/", "zzz", "Z"),
			result("https://www.w3.org/TR/mmm/", "mmm", "M"),
		}
		fresh := []*model.CrawlResult{
			result("https://www.w3.org/TR/aaa/", "aaa", "A"),
		}
		merged := New().Merge(fresh, baseline)
		for i := 1; i < len(merged); i++ {
			if merged[i-1].URL() > merged[i].URL() {
				t.Fatalf("output not sorted: %s before %s", merged[i-1].URL(), merged[i].URL())
			}
		}
	})

	t.Run("merging a set with itself is the identity", func(t *testing.T) {
		t.Parallel()

		set := []*model.CrawlResult{
			result("https://www.w3.org/TR/css-color-4/", "css-color-4", "CSS Color Module Level 4"),
			result("https://www.w3.org/TR/fetch/", "fetch", "Fetch"),
			result("https://www.w3.org/TR/hr-time-3/", "hr-time-3", "High Resolution Time"),
		}
		model.SortResults(set)

		merged := New().Merge(set, set)
		if len(merged) != len(set) {
			t.Fatalf("got %d entries, want %d", len(merged), len(set))
		}
		want, err := json.Marshal(set)
		if err != nil {
			t.Fatal(err)
		}
		got, err := json.Marshal(merged)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(want) {
			t.Error("self-merge should reproduce the input set")
		}
	})
}

func TestMergerMergeFiles(t *testing.T) {
	t.Parallel()

	errored := result("https://www.w3.org/TR/broken/", "broken", "")
	errored.Error = "dial tcp: connection refused"

	fresh := &model.CrawlFile{
		Type:  model.FileTypeCrawl,
		Title: "weekly crawl",
		Results: []*model.CrawlResult{
			result("https://www.w3.org/TR/fetch/", "fetch", "Fetch"),
			errored,
		},
		Stats: model.CrawlStats{Crawled: 99, Errors: 99}, // stale on purpose
	}
	baseline := &model.CrawlFile{
		Type: model.FileTypeCrawl,
		Results: []*model.CrawlResult{
			result("https://www.w3.org/TR/css-color-4/", "css-color-4", "CSS Color Module Level 4"),
		},
	}

	merged := New().MergeFiles(fresh, baseline)
	if merged.Stats.Crawled != 3 {
		t.Errorf("Stats.Crawled = %d, want 3 (recomputed, not copied)", merged.Stats.Crawled)
	}
	if merged.Stats.Errors != 1 {
		t.Errorf("Stats.Errors = %d, want 1", merged.Stats.Errors)
	}
	if merged.Title != "weekly crawl" {
		t.Errorf("Title = %q, want the fresh run's metadata", merged.Title)
	}
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		same bool
	}{
		{name: "case folding", a: "CSS Color", b: "css color", same: true},
		{name: "whitespace collapse", a: "CSS  Color\n", b: "CSS Color", same: true},
		{name: "compatibility normalization", a: "CSS Color", b: "CSS Color", same: true},
		{name: "different titles", a: "CSS Color", b: "CSS Fonts", same: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeTitle(tt.a) == normalizeTitle(tt.b); got != tt.same {
				t.Errorf("normalizeTitle(%q) == normalizeTitle(%q) = %v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}
