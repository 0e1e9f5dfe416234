// Package merger combines a fresh crawl result set with a baseline set.
//
// The matching rule is a deliberately permissive union: two entries denote
// the same spec when any one of several keys agrees (canonical URL, crawled
// URL, release URL, shortname, overlapping version sets, optionally the
// normalized title). Treating two ambiguous entries as the same spec and
// overwriting is preferred over accumulating duplicate stale entries.
package merger

import (
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/w3c/speccheck/internal/model"
)

// Merger merges crawl result sets spec-by-spec.
type Merger struct {
	matchTitles bool
	logger      *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithTitleMatch enables the optional title predicate: two entries with the
// same normalized non-empty title count as the same spec. Useful when a spec
// changed URL but kept its title.
func WithTitleMatch() Option {
	return func(m *Merger) { m.matchTitles = true }
}

// WithLogger sets the structured logger for replacement decisions.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Merger.
func New(opts ...Option) *Merger {
	m := &Merger{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge combines fresh results with a baseline set. Every fresh entry
// replaces its counterpart in the baseline (first matching baseline entry
// wins); baseline entries without a counterpart are preserved unchanged, and
// fresh entries without a counterpart are appended. The output is sorted by
// URL so repeated merges of identical inputs are byte-for-byte reproducible.
//
// Neither input slice is modified.
func (m *Merger) Merge(fresh, baseline []*model.CrawlResult) []*model.CrawlResult {
	merged := make([]*model.CrawlResult, len(baseline))
	copy(merged, baseline)
	replaced := make([]bool, len(merged))

	for _, entry := range fresh {
		index := -1
		for i, base := range merged {
			if replaced[i] {
				continue
			}
			if m.sameSpec(entry, base) {
				index = i
				break
			}
		}
		if index < 0 {
			m.logger.Debug("new spec entry", "url", entry.URL())
			merged = append(merged, entry)
			replaced = append(replaced, true)
			continue
		}
		m.logger.Debug("replacing baseline entry",
			"url", merged[index].URL(), "with", entry.URL())
		merged[index] = entry
		replaced[index] = true
	}

	model.SortResults(merged)
	return merged
}

// MergeFiles merges a fresh crawl file into a baseline crawl file, keeping
// the fresh run's metadata and recomputing stats from the merged set.
func (m *Merger) MergeFiles(fresh, baseline *model.CrawlFile) *model.CrawlFile {
	var base []*model.CrawlResult
	if baseline != nil {
		base = baseline.Results
	}
	merged := m.Merge(fresh.Results, base)
	return &model.CrawlFile{
		Type:        model.FileTypeCrawl,
		Title:       fresh.Title,
		Description: fresh.Description,
		Date:        fresh.Date,
		Options:     fresh.Options,
		Stats:       model.ComputeStats(merged),
		Results:     merged,
	}
}

// sameSpec reports whether two entries denote the same spec. Predicates are
// tried in order and any single hit is enough.
func (m *Merger) sameSpec(a, b *model.CrawlResult) bool {
	if urlsEqual(a.URL(), b.URL()) {
		return true
	}
	if urlsEqual(a.CrawledURL, b.CrawledURL) ||
		urlsEqual(a.CrawledURL, b.URL()) ||
		urlsEqual(a.URL(), b.CrawledURL) {
		return true
	}
	sa, sb := a.Spec, b.Spec
	if sa != nil && sb != nil {
		if urlsEqual(sa.ReleaseURL, sb.ReleaseURL) || urlsEqual(sa.ReleaseURL, sb.URL) || urlsEqual(sa.URL, sb.ReleaseURL) {
			return true
		}
		if sa.Shortname != "" && sa.Shortname == sb.Shortname {
			return true
		}
		if versionsOverlap(sa, sb) {
			return true
		}
	}
	if m.matchTitles {
		ta, tb := normalizeTitle(a.Title), normalizeTitle(b.Title)
		if ta != "" && ta == tb {
			return true
		}
	}
	return false
}

// urlsEqual compares two URLs, never matching on emptiness.
func urlsEqual(a, b string) bool {
	return a != "" && a == b
}

// versionsOverlap reports whether the version URL sets of two descriptors
// share at least one URL. Each descriptor's canonical, release, and nightly
// URLs count as part of its set.
func versionsOverlap(a, b *model.SpecDescriptor) bool {
	for _, v := range a.Versions {
		if b.HasVersion(v) {
			return true
		}
	}
	for _, v := range b.Versions {
		if a.HasVersion(v) {
			return true
		}
	}
	return false
}

var titleCaser = cases.Fold()

// normalizeTitle prepares a title for comparison: Unicode normalization,
// case folding, and whitespace collapsing. Titles differing only in
// formatting artifacts compare equal.
func normalizeTitle(title string) string {
	folded := titleCaser.String(norm.NFKC.String(title))
	return strings.Join(strings.Fields(folded), " ")
}
