package cluster

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"retailetl/internal/aggregate"
	"retailetl/internal/dataset"
	"retailetl/internal/schema"
)

// Engine aggregates within a Context's worker pool.
type Engine struct {
	cc *Context
}

// New returns an engine bound to cc. The engine is stateless across runs;
// all per-run state lives on the stack of Aggregate.
func New(cc *Context) *Engine { return &Engine{cc: cc} }

// Aggregate computes every applicable view in three steps:
//
//  1. map/combine: the dataset is split into one contiguous shard per
//     worker; each worker folds its rows into per-view partials keyed by
//     xxh3(group key) mod partitions.
//  2. merge: per view, the workers' partials are folded partition by
//     partition. Sum/count/avg states merge associatively, so the result
//     matches a single sequential pass.
//  3. finalize: partials become tables; every view is sorted ascending by
//     its key columns so output is deterministic across runs.
//
// The first worker error cancels the group and fails the whole stage; the
// engine never retries.
func (e *Engine) Aggregate(ctx context.Context, d *schema.Dataset) (map[string]*dataset.Table, error) {
	if err := e.cc.check(); err != nil {
		return nil, err
	}
	views := aggregate.Views(d)
	for _, v := range views {
		if err := v.Validate(d); err != nil {
			return nil, err
		}
	}

	var (
		jobID      = uuid.NewString()
		workers    = e.cc.Workers()
		partitions = e.cc.Partitions()
		start      = time.Now()
	)
	if workers > len(d.Tx) && len(d.Tx) > 0 {
		workers = len(d.Tx)
	}
	if workers == 0 {
		workers = 1
	}
	log.Printf("cluster: job=%s rows=%d views=%d workers=%d partitions=%d",
		jobID, len(d.Tx), len(views), workers, partitions)

	// partials[w][v][p] is worker w's accumulator for view v, partition p.
	partials := make([][][]*aggregate.Partial, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * len(d.Tx) / workers
		hi := (w + 1) * len(d.Tx) / workers
		shard := d.Tx[lo:hi]
		out := make([][]*aggregate.Partial, len(views))
		for vi, v := range views {
			out[vi] = make([]*aggregate.Partial, partitions)
			for p := range out[vi] {
				out[vi][p] = aggregate.NewPartial(v)
			}
		}
		partials[w] = out

		g.Go(func() error {
			e.cc.acquire()
			defer e.cc.release()
			for i := range shard {
				if i%4096 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				for vi, v := range views {
					key, vals := v.GroupKey(&shard[i])
					p := int(xxh3.HashString(key) % uint64(partitions))
					out[vi][p].AddKeyed(key, vals, &shard[i])
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge phase: views are independent, so each merges in its own slot.
	tables := make([]*dataset.Table, len(views))
	mg, mctx := errgroup.WithContext(ctx)
	for vi, v := range views {
		mg.Go(func() error {
			e.cc.acquire()
			defer e.cc.release()
			select {
			case <-mctx.Done():
				return mctx.Err()
			default:
			}
			final := aggregate.NewPartial(v)
			for p := 0; p < partitions; p++ {
				for w := 0; w < workers; w++ {
					final.Merge(partials[w][vi][p])
				}
			}
			t := final.Table()
			aggregate.SortRows(t, v.Keys)
			tables[vi] = t
			return nil
		})
	}
	if err := mg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*dataset.Table, len(views))
	for vi, v := range views {
		out[v.Name] = tables[vi]
	}
	log.Printf("cluster: job=%s done in %s", jobID, time.Since(start).Truncate(time.Millisecond))
	return out, nil
}
