package model

import "time"

// File type markers for the two on-disk result formats.
const (
	FileTypeCrawl = "crawl"
	FileTypeStudy = "study"
)

// CrawlOptions records the effective crawl settings in the crawl file so a
// run can be reproduced.
type CrawlOptions struct {
	// Concurrency is the number of extraction units run in parallel.
	Concurrency int `json:"concurrency"`

	// TimeoutSeconds is the per-spec hard timeout.
	TimeoutSeconds int `json:"timeout_seconds"`

	// UseNightly is true when editor's drafts were crawled instead of
	// published versions.
	UseNightly bool `json:"use_nightly,omitempty"`
}

// CrawlStats summarizes a crawl run. Counts are always recomputed from the
// final result set, never copied from inputs, so a merge cannot carry stale
// statistics forward.
type CrawlStats struct {
	// Crawled is the total number of results in the set.
	Crawled int `json:"crawled"`

	// Errors is the number of results carrying a terminal error.
	Errors int `json:"errors"`
}

// CrawlFile is the JSON crawl result file: one entry per spec, sorted by URL.
type CrawlFile struct {
	Type        string         `json:"type"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Date        time.Time      `json:"date"`
	Options     CrawlOptions   `json:"options"`
	Stats       CrawlStats     `json:"stats"`
	Results     []*CrawlResult `json:"results"`
}

// NewCrawlFile assembles a crawl file from a result set, sorting the results
// by URL and computing stats.
func NewCrawlFile(title string, opts CrawlOptions, results []*CrawlResult) *CrawlFile {
	SortResults(results)
	return &CrawlFile{
		Type:    FileTypeCrawl,
		Title:   title,
		Date:    time.Now().UTC(),
		Options: opts,
		Stats:   ComputeStats(results),
		Results: results,
	}
}

// ComputeStats counts crawled and errored entries in a result set.
func ComputeStats(results []*CrawlResult) CrawlStats {
	stats := CrawlStats{Crawled: len(results)}
	for _, r := range results {
		if r.Errored() {
			stats.Errors++
		}
	}
	return stats
}

// StudyStats extends crawl stats with the number of specs actually studied.
type StudyStats struct {
	Crawled int `json:"crawled"`
	Errors  int `json:"errors"`

	// Studied is the number of specs a report was produced for.
	Studied int `json:"studied"`
}

// StudyEntry pairs one spec with its anomaly report in the study file.
type StudyEntry struct {
	Title     string         `json:"title,omitempty"`
	Shortname string         `json:"shortname"`
	URL       string         `json:"url"`
	Report    *AnomalyReport `json:"report"`
}

// StudyFile is the JSON anomaly report file for a whole corpus.
type StudyFile struct {
	Type        string       `json:"type"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Date        time.Time    `json:"date"`
	Stats       StudyStats   `json:"stats"`
	Results     []StudyEntry `json:"results"`
}
