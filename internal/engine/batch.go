package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AnalyzeBatch runs reqs with at most workers analyses in flight (unbounded
// when workers <= 0). Responses are returned in request order.
func (e *Engine) AnalyzeBatch(ctx context.Context, reqs []Request, workers int) []*Response {
	out := make([]*Response, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, req := range reqs {
		g.Go(func() error {
			out[i] = e.Analyze(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
