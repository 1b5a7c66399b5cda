// Package memory implements the single-node aggregation backend: one
// synchronous pass per view, no shared state, no goroutines.
package memory

import (
	"context"

	"retailetl/internal/aggregate"
	"retailetl/internal/dataset"
	"retailetl/internal/schema"
)

// Engine is the in-memory aggregation backend.
type Engine struct{}

// New returns the in-memory engine.
func New() *Engine { return &Engine{} }

// Aggregate computes every applicable view sequentially. Output rows keep
// first-seen group order except sales_by_date, which is post-sorted
// ascending by date as the contract requires.
func (e *Engine) Aggregate(ctx context.Context, d *schema.Dataset) (map[string]*dataset.Table, error) {
	out := make(map[string]*dataset.Table)
	for _, view := range aggregate.Views(d) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := view.Validate(d); err != nil {
			return nil, err
		}
		p := aggregate.NewPartial(view)
		for i := range d.Tx {
			p.Add(&d.Tx[i])
		}
		t := p.Table()
		if view.SortAsc {
			aggregate.SortRows(t, view.Keys)
		}
		out[view.Name] = t
	}
	return out, nil
}
