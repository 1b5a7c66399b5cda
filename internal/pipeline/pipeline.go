// Package pipeline orchestrates the full run: generate fixtures, convert
// JSON to CSV, then load, normalize, aggregate and persist.
//
// Each stage is timed and metered; the first failure halts remaining
// stages and surfaces as a StageError so callers always see the failing
// stage name together with the underlying error kind. Artifacts already
// flushed by earlier stages stay on disk. The pipeline holds no state
// between runs and is safe to re-invoke.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"retailetl/internal/aggregate"
	"retailetl/internal/aggregate/cluster"
	"retailetl/internal/aggregate/memory"
	"retailetl/internal/config"
	"retailetl/internal/convert"
	"retailetl/internal/datagen"
	"retailetl/internal/dataset"
	"retailetl/internal/metrics"
	"retailetl/internal/schema"
	"retailetl/internal/sink"
	"retailetl/internal/source"
	"retailetl/internal/transform"
)

// Stage names, in execution order.
const (
	StageGenerate  = "generate"
	StageConvert   = "convert"
	StageSource    = "source"
	StageNormalize = "normalize"
	StageAggregate = "aggregate"
	StageSink      = "sink"
)

// CleanedArtifact is the name of the persisted normalized dataset.
const CleanedArtifact = "cleaned_data"

// StageError wraps a stage failure with the stage's name.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Run executes the complete pipeline described by cfg.
func Run(ctx context.Context, cfg config.Config) error {
	start := time.Now()
	log.Printf("pipeline: job=%s backend=%s starting", cfg.Job, cfg.Backend)

	err := step(cfg.Job, StageGenerate, func() error {
		return datagen.Generate(datagen.Options{
			NumFiles:       cfg.NumFiles,
			RecordsPerFile: cfg.RecordsPerFile,
			Seed:           cfg.Seed,
		}, cfg.RawDir)
	})
	if err != nil {
		return err
	}
	metrics.RecordRows(cfg.Job, "generated", int64(cfg.NumFiles)*int64(cfg.RecordsPerFile))

	if err := step(cfg.Job, StageConvert, func() error {
		return convert.Dir(cfg.RawDir, cfg.ProcessedDir)
	}); err != nil {
		return err
	}

	if err := Transform(ctx, cfg); err != nil {
		return err
	}

	log.Printf("pipeline: job=%s completed in %s", cfg.Job, time.Since(start).Truncate(time.Millisecond))
	return nil
}

// Transform runs the core four stages (source, normalize, aggregate, sink)
// over cfg.ProcessedDir into cfg.OutputDir(). The cluster backend's compute
// context is acquired before the source stage and released unconditionally
// once the sink finishes, failure included.
func Transform(ctx context.Context, cfg config.Config) error {
	var engine aggregate.Engine
	switch cfg.Backend {
	case config.BackendCluster:
		cc := cluster.NewContext(cfg.Runtime.Workers, cfg.Runtime.Partitions)
		defer cc.Close()
		engine = cluster.New(cc)
	default:
		engine = memory.New()
	}
	return runTransform(ctx, cfg, engine)
}

func runTransform(ctx context.Context, cfg config.Config, engine aggregate.Engine) error {
	var (
		raw   *dataset.Table
		ds    *schema.Dataset
		views map[string]*dataset.Table
	)

	src := source.New(cfg.ProcessedDir, source.Options{TrimSpace: true})
	if err := step(cfg.Job, StageSource, func() (err error) {
		raw, err = src.Load(ctx)
		return err
	}); err != nil {
		return err
	}
	metrics.RecordRows(cfg.Job, "loaded", int64(raw.NumRows()))
	log.Printf("pipeline: loaded %d rows, %d columns", raw.NumRows(), len(raw.Columns))

	var n transform.Normalizer
	if err := step(cfg.Job, StageNormalize, func() (err error) {
		ds, err = n.Normalize(raw)
		return err
	}); err != nil {
		return err
	}
	metrics.RecordRows(cfg.Job, "normalized", int64(ds.Len()))

	if err := step(cfg.Job, StageAggregate, func() (err error) {
		views, err = engine.Aggregate(ctx, ds)
		return err
	}); err != nil {
		return err
	}
	log.Printf("pipeline: created %d aggregation views", len(views))

	return step(cfg.Job, StageSink, func() error {
		out := sink.New(cfg.OutputDir(), ',')
		if _, err := out.Persist(CleanedArtifact, ds.Table()); err != nil {
			return err
		}
		metrics.RecordArtifact(cfg.Job, CleanedArtifact)

		names := make([]string, 0, len(views))
		for name := range views {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := out.Persist(name, views[name]); err != nil {
				return err
			}
			metrics.RecordArtifact(cfg.Job, name)
		}
		return nil
	})
}

// step runs fn as the named stage, logging and metering its duration, and
// wraps any failure in a StageError.
func step(job, stage string, fn func() error) error {
	log.Printf("pipeline: starting stage %s", stage)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStage(job, stage, err, d)
	if err != nil {
		log.Printf("pipeline: stage %s failed after %s: %v", stage, d.Truncate(time.Millisecond), err)
		return &StageError{Stage: stage, Err: err}
	}
	log.Printf("pipeline: completed stage %s in %s", stage, d.Truncate(time.Millisecond))
	return nil
}
