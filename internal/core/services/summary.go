package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SummaryStrategy decides how per-cluster summary calls are scheduled.
// Run calls fn once for every index in [0, n). Each fn writes only its own
// result slot, so the output order never depends on the strategy.
type SummaryStrategy interface {
	Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error
}

// SequentialStrategy summarises one cluster at a time.
type SequentialStrategy struct{}

// Run calls fn for each index in order.
func (SequentialStrategy) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	for i := 0; i < n; i++ {
		fn(ctx, i)
	}
	return nil
}

// ParallelStrategy summarises up to Limit clusters at once.
type ParallelStrategy struct {
	Limit int
}

// Run calls fn for each index with bounded concurrency.
func (p ParallelStrategy) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	if p.Limit > 0 {
		g.SetLimit(p.Limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}
	return g.Wait()
}

// StrategyFor returns the strategy for a configured concurrency.
func StrategyFor(concurrency int) SummaryStrategy {
	if concurrency <= 1 {
		return SequentialStrategy{}
	}
	return ParallelStrategy{Limit: concurrency}
}
