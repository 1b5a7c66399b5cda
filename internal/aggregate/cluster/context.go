// Package cluster implements the distributed-style aggregation backend: the
// dataset is sharded across a bounded worker pool, each worker combines
// rows into hash-partitioned partial aggregates, and a merge phase folds
// the partials per partition. The reduced values are identical to the
// memory backend's by construction; only row order differs.
package cluster

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// Context is the compute context the engine runs within. It owns the worker
// slots for a run and is acquired by the caller before the pipeline's first
// stage and released unconditionally after the last, even on failure.
type Context struct {
	workers    int
	partitions int
	sem        chan struct{}
	closed     atomic.Bool
}

// NewContext returns a compute context with the given worker and shuffle
// partition counts. Non-positive values fall back to GOMAXPROCS workers and
// 2x workers partitions.
func NewContext(workers, partitions int) *Context {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if partitions <= 0 {
		partitions = 2 * workers
	}
	return &Context{
		workers:    workers,
		partitions: partitions,
		sem:        make(chan struct{}, workers),
	}
}

// Workers returns the worker slot count.
func (c *Context) Workers() int { return c.workers }

// Partitions returns the shuffle partition count.
func (c *Context) Partitions() int { return c.partitions }

// Close releases the context. Further Aggregate calls fail. Close is
// idempotent and never blocks on in-flight work; cancellation of running
// jobs is the caller's responsibility via their context.Context.
func (c *Context) Close() error {
	c.closed.Store(true)
	return nil
}

// acquire takes a worker slot; release returns it.
func (c *Context) acquire() { c.sem <- struct{}{} }
func (c *Context) release() { <-c.sem }

func (c *Context) check() error {
	if c.closed.Load() {
		return fmt.Errorf("cluster: compute context is closed")
	}
	return nil
}
