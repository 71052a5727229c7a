// Package orchestrator runs a batch of search queries through the source
// adapters in three strictly ordered phases — native boards, first-party
// APIs, then aggregator APIs — with bounded concurrency inside each phase.
// Phase order is load-bearing: it is what gives a duplicate discovered via
// an aggregator lower priority than the same posting from a native source.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/dedup"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/source"
)

const defaultWorkers = 4

// ProgressFunc is invoked after each completed query with the source id and
// how many records it yielded. The orchestrator does not care what consumes
// it; pass nil to disable.
type ProgressFunc func(sourceID string, recordCount int)

// Orchestrator fans queries out to adapters and funnels the results through
// one dedup pass. Construct once at startup with the shared registries.
type Orchestrator struct {
	registry   *source.Registry
	deduper    *dedup.Deduper
	workers    int
	onProgress ProgressFunc
	debug      bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds per-phase concurrency.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.workers = n
		}
	}
}

// WithProgress registers a per-query completion callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// WithDebug enables debug-level logging of soft failures.
func WithDebug(debug bool) Option {
	return func(o *Orchestrator) { o.debug = debug }
}

// New constructs an Orchestrator.
func New(registry *source.Registry, deduper *dedup.Deduper, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		deduper:  deduper,
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FetchAll is the pipeline entry point: it runs every query, concatenates
// the results in phase order and deduplicates once. The returned records
// and statistics always reflect whatever was gathered — partial results are
// the expected steady state, not an error.
func (o *Orchestrator) FetchAll(ctx context.Context, queries []model.SearchQuery) ([]model.JobRecord, model.DedupStats) {
	result := o.Run(ctx, queries)
	return result.Unique, result.Stats
}

// Run is FetchAll plus the multi-source provenance map.
func (o *Orchestrator) Run(ctx context.Context, queries []model.SearchQuery) model.DedupResult {
	runID := uuid.New().String()[:8]
	log.Printf("[orchestrator] run %s: %d queries across %d workers", runID, len(queries), o.workers)

	phases := o.partition(queries)

	var all []model.JobRecord
	for kind := model.KindNative; kind <= model.KindAggregator; kind++ {
		phase := phases[kind]
		if len(phase) == 0 {
			continue
		}
		if ctx.Err() != nil {
			log.Printf("[orchestrator] run %s: cancelled before phase %d — keeping %d records", runID, kind.Phase(), len(all))
			break
		}
		records := o.runPhase(ctx, runID, kind, phase)
		all = append(all, records...)
	}

	result := o.deduper.Dedup(all)
	log.Printf("[orchestrator] run %s done — fetched=%d unique=%d duplicates=%d sources=%d",
		runID, result.Stats.OriginalCount, result.Stats.DedupedCount,
		result.Stats.DuplicatesRemoved, result.Stats.DistinctSources)
	return result
}

// partition splits queries into phases by adapter kind, preserving input
// order within each phase. Queries naming an unregistered source are
// dropped with a warning.
func (o *Orchestrator) partition(queries []model.SearchQuery) map[model.SourceKind][]model.SearchQuery {
	phases := make(map[model.SourceKind][]model.SearchQuery, 3)
	for _, q := range queries {
		adapter, ok := o.registry.Get(q.SourceID)
		if !ok {
			log.Printf("[orchestrator] no adapter registered for source %q — skipping query", q.SourceID)
			continue
		}
		phases[adapter.Kind()] = append(phases[adapter.Kind()], q)
	}
	return phases
}

// runPhase executes one phase's queries on a bounded worker pool and
// returns the results concatenated in query order. The pool drains fully
// before returning — the next phase never starts early.
func (o *Orchestrator) runPhase(ctx context.Context, runID string, kind model.SourceKind, queries []model.SearchQuery) []model.JobRecord {
	type task struct {
		index int
		query model.SearchQuery
	}

	tasks := make(chan task)
	perQuery := make([][]model.JobRecord, len(queries))

	workers := o.workers
	if workers > len(queries) {
		workers = len(queries)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				perQuery[t.index] = o.runQuery(ctx, runID, t.query)
			}
		}()
	}

	for i, q := range queries {
		tasks <- task{index: i, query: q}
	}
	close(tasks)
	wg.Wait()

	var records []model.JobRecord
	for _, batch := range perQuery {
		records = append(records, batch...)
	}
	log.Printf("[orchestrator] run %s: phase %d (%s) done — %d queries, %d records",
		runID, kind.Phase(), kind, len(queries), len(records))
	return records
}

// runQuery executes a single query, containing every failure at the query
// level. One source's failure never aborts the run.
func (o *Orchestrator) runQuery(ctx context.Context, runID string, q model.SearchQuery) []model.JobRecord {
	adapter, _ := o.registry.Get(q.SourceID)

	records, err := adapter.Fetch(ctx, q)
	if err != nil {
		var fe *source.FetchError
		switch {
		case errors.As(err, &fe) && fe.Reason == fetch.AuthFailed:
			// Surfaced distinctly: the fix is credential reconfiguration,
			// not another retry.
			log.Printf("[orchestrator] run %s: %s authentication failed — check credentials (%v)", runID, q.SourceID, fe.Err)
		case errors.As(err, &fe) && fe.Reason == fetch.RateLimited:
			if o.debug {
				log.Printf("[orchestrator] run %s: %s rate limited — query skipped", runID, q.SourceID)
			}
		default:
			log.Printf("[orchestrator] run %s: %s query %q failed: %v — continuing", runID, q.SourceID, q.Query, err)
		}
	}

	if o.onProgress != nil {
		o.onProgress(q.SourceID, len(records))
	}
	return records
}
