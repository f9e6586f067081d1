// Package tasks runs independent per-item operations with bounded concurrency
// and reports every item's outcome instead of stopping at the first failure.
package tasks

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of running the task for one item.
type Outcome[K any] struct {
	Item K
	Err  error
}

// OK reports whether the item succeeded.
func (o Outcome[K]) OK() bool {
	return o.Err == nil
}

// Run calls fn for every item with at most limit calls in flight. Outcomes are
// returned in input order. A failing item never cancels the others; only ctx
// cancellation does, in which case items not yet started report ctx.Err().
func Run[K any](ctx context.Context, items []K, limit int, fn func(context.Context, K) error) []Outcome[K] {
	outcomes := make([]Outcome[K], len(items))
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		i, item := i, item
		outcomes[i].Item = item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			outcomes[i].Err = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Tally counts successes and failures.
func Tally[K any](outcomes []Outcome[K]) (succeeded, failed int) {
	for _, o := range outcomes {
		if o.OK() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
