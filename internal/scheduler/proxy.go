package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/w3c/speccheck/internal/fetch"
)

// fetchRequest travels from an extraction unit to the proxy service loop.
// The correlation id ties a reply back to the request in logs; each request
// carries its own reply channel so replies cannot be misdelivered.
type fetchRequest struct {
	id    uint64
	ctx   context.Context
	url   string
	reply chan fetchReply
}

type fetchReply struct {
	resp *fetch.Response
	err  error
}

// FetchProxy is the single owner of the underlying fetcher. Units submit
// requests over a channel and the service loop performs fetches one at a
// time, which serializes cache access and keeps one point of traffic
// control regardless of how many units are in flight.
type FetchProxy struct {
	fetcher  extractFetcher
	requests chan fetchRequest
	logger   *slog.Logger
	nextID   atomic.Uint64
}

// extractFetcher mirrors extract.Fetcher without importing it back, keeping
// the dependency direction proxy -> fetch only.
type extractFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

func newFetchProxy(fetcher extractFetcher, logger *slog.Logger) *FetchProxy {
	return &FetchProxy{
		fetcher:  fetcher,
		requests: make(chan fetchRequest),
		logger:   logger,
	}
}

// serve runs the proxy service loop until ctx is cancelled. It must be
// running for Fetch to make progress.
func (p *FetchProxy) serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.requests:
			resp, err := p.fetcher.Fetch(req.ctx, req.url)
			if err != nil {
				p.logger.Debug("proxied fetch failed", "id", req.id, "url", req.url, "error", err)
			}
			req.reply <- fetchReply{resp: resp, err: err}
		}
	}
}

// Fetch implements the extract.Fetcher interface by relaying the request to
// the service loop. It honors ctx both while enqueueing and while waiting
// for the reply, so a timed-out unit stops waiting immediately even when
// the loop is busy with another request.
func (p *FetchProxy) Fetch(ctx context.Context, url string) (*fetch.Response, error) {
	req := fetchRequest{
		id:    p.nextID.Add(1),
		ctx:   ctx,
		url:   url,
		reply: make(chan fetchReply, 1),
	}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case rep := <-req.reply:
		return rep.resp, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
