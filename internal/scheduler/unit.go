package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/w3c/speccheck/internal/model"
)

// unitState tracks the lifecycle of a single extraction unit.
type unitState int

const (
	unitPending unitState = iota
	unitRunning
	unitSucceeded
	unitFailed
	unitTimedOut
)

// String implements the fmt.Stringer interface.
func (s unitState) String() string {
	switch s {
	case unitPending:
		return "pending"
	case unitRunning:
		return "running"
	case unitSucceeded:
		return "succeeded"
	case unitFailed:
		return "failed"
	case unitTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// completion is the signal a unit delivers back to the scheduler loop.
// index identifies the work-list position so results keep input order.
type completion struct {
	index  int
	state  unitState
	result *model.CrawlResult
}

// runUnit executes one extraction inside its error boundary and reports the
// outcome on completions. It sends a first completion as soon as the unit
// resolves (result, error, or timeout) and, when the unit was resolved by
// timeout, forwards the eventual late outcome too so the scheduler loop can
// log and discard it.
func (s *Scheduler) runUnit(ctx context.Context, index int, spec *model.SpecDescriptor, completions chan<- completion) {
	unitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	inner := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("extraction panicked",
					"url", spec.URL, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
				inner <- completion{
					index:  index,
					state:  unitFailed,
					result: erroredResult(spec, fmt.Sprintf("panic during extraction: %v", r)),
				}
			}
		}()

		result, err := s.extractor.Extract(unitCtx, spec, s.proxy)
		if err != nil {
			inner <- completion{index: index, state: unitFailed, result: erroredResult(spec, err.Error())}
			return
		}
		inner <- completion{index: index, state: unitSucceeded, result: result}
	}()

	select {
	case c := <-inner:
		completions <- c
	case <-unitCtx.Done():
		state := unitTimedOut
		msg := fmt.Sprintf("crawl timeout after %s", s.timeout)
		if ctx.Err() != nil {
			// The whole batch was cancelled, not just this unit.
			state = unitFailed
			msg = "crawl cancelled"
		}
		completions <- completion{index: index, state: state, result: erroredResult(spec, msg)}

		// The in-flight extraction still holds this unit's goroutine. Its
		// context is cancelled so it unwinds promptly; forward whatever it
		// eventually reports so the loop can account for the late arrival.
		c := <-inner
		completions <- c
	}
}

// erroredResult synthesizes the errored crawl result for a spec whose
// extraction did not produce one itself.
func erroredResult(spec *model.SpecDescriptor, msg string) *model.CrawlResult {
	return &model.CrawlResult{
		Spec:  spec,
		Error: msg,
	}
}
