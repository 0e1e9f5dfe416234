package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/w3c/speccheck/internal/config"
	"github.com/w3c/speccheck/internal/extract"
	"github.com/w3c/speccheck/internal/model"
)

// ErrNoSpecs is returned when Run is called with an empty work list.
var ErrNoSpecs = errors.New("scheduler: no specs to crawl")

// Scheduler coordinates concurrent extraction of a list of specs.
type Scheduler struct {
	extractor   extract.Extractor
	proxy       *FetchProxy
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
	onComplete  func(done, total int)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency sets the maximum number of in-flight extraction units.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTimeout sets the hard per-unit timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the structured logger used for progress and discard events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProgress registers a callback invoked after each unit resolves, with
// the number of resolved units and the total. It is called from the
// scheduler loop, never concurrently.
func WithProgress(fn func(done, total int)) Option {
	return func(s *Scheduler) {
		s.onComplete = fn
	}
}

// New creates a Scheduler that extracts documents with extractor and routes
// all fetches through a proxy owning fetcher.
func New(extractor extract.Extractor, fetcher extract.Fetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		extractor:   extractor,
		concurrency: config.DefaultConcurrency,
		timeout:     config.DefaultTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.proxy = newFetchProxy(fetcher, s.logger)
	return s
}

// Run crawls every spec in the work list and returns exactly one result per
// input, in input order. An individual failure, panic, or timeout yields an
// errored result for that spec; Run itself fails only when the work list is
// empty or the context is cancelled before any work starts.
func (s *Scheduler) Run(ctx context.Context, specs []*model.SpecDescriptor) ([]*model.CrawlResult, error) {
	if len(specs) == 0 {
		return nil, ErrNoSpecs
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proxyCtx, stopProxy := context.WithCancel(context.Background())
	defer stopProxy()
	go s.proxy.serve(proxyCtx)

	total := len(specs)
	results := make([]*model.CrawlResult, total)
	resolved := make([]bool, total)

	// Each unit sends one completion, plus at most one late completion after
	// a timeout. Sizing the channel for both means no sender ever blocks,
	// even for completions arriving after the loop below has exited.
	completions := make(chan completion, 2*total)

	cursor := 0
	inflight := 0
	done := 0

	launch := func() {
		spec := specs[cursor]
		index := cursor
		cursor++
		inflight++
		s.logger.Debug("unit started", "url", spec.URL, "index", index)
		go s.runUnit(ctx, index, spec, completions)
	}

	for inflight < s.concurrency && cursor < total {
		launch()
	}

	for done < total {
		c := <-completions
		if resolved[c.index] {
			// Late completion from a unit already resolved by timeout.
			s.logger.Warn("discarding late completion",
				"url", specs[c.index].URL, "state", c.state.String())
			continue
		}
		resolved[c.index] = true
		results[c.index] = c.result
		inflight--
		done++

		if c.state == unitSucceeded {
			s.logger.Debug("unit succeeded", "url", specs[c.index].URL)
		} else {
			s.logger.Warn("unit resolved with error",
				"url", specs[c.index].URL, "state", c.state.String(), "error", c.result.Error)
		}
		if s.onComplete != nil {
			s.onComplete(done, total)
		}

		if cursor < total {
			launch()
		}
	}
	return results, nil
}
