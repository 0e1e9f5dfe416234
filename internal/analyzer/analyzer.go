package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/w3c/speccheck/internal/model"
	"github.com/w3c/speccheck/internal/resolver"
)

// ErrEmptyCorpus is returned when Study is called with no results.
var ErrEmptyCorpus = errors.New("analyzer: empty corpus")

// defaultWebIDLShortname identifies the canonical WebIDL specification in
// the registry. Every spec defining IDL content is expected to cite it.
const defaultWebIDLShortname = "webidl"

// Analyzer studies a crawl corpus against an identity resolver.
type Analyzer struct {
	resolver *resolver.Resolver
	limit    int
	logger   *slog.Logger
	webIDL   string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithParallelism bounds the number of specs studied concurrently.
// Defaults to the number of CPUs.
func WithParallelism(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.limit = n
		}
	}
}

// WithLogger sets the structured logger for study progress.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithWebIDLShortname overrides the shortname of the canonical WebIDL spec.
func WithWebIDLShortname(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.webIDL = name
		}
	}
}

// New creates an Analyzer over the given resolver.
func New(res *resolver.Resolver, opts ...Option) *Analyzer {
	a := &Analyzer{
		resolver: res,
		limit:    runtime.NumCPU(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		webIDL:   defaultWebIDLShortname,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Study produces one anomaly report per corpus entry. Errored specs appear
// in the output with only their crawl error set; they contribute no
// definitions to the corpus indexes and are never OK.
func (a *Analyzer) Study(ctx context.Context, results []*model.CrawlResult) (*model.StudyFile, error) {
	if len(results) == 0 {
		return nil, ErrEmptyCorpus
	}

	c := buildCorpus(results)
	entries := make([]model.StudyEntry, len(results))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, result := range results {
		i, result := i, result
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report := a.studySpec(result, c)
			entries[i] = model.StudyEntry{
				Title:     result.Title,
				Shortname: shortnameOf(result),
				URL:       result.URL(),
				Report:    report,
			}
			if !report.OK {
				a.logger.Debug("anomalies found",
					"url", result.URL(), "count", report.AnomalyCount())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].URL < entries[j].URL })

	stats := model.StudyStats{Crawled: len(results)}
	for _, e := range entries {
		if e.Report.Error != "" {
			stats.Errors++
		} else {
			stats.Studied++
		}
	}
	return &model.StudyFile{
		Type:    model.FileTypeStudy,
		Date:    time.Now().UTC(),
		Stats:   stats,
		Results: entries,
	}, nil
}
