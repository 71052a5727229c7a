// Package source defines the adapter contract that isolates all site and
// API specific knowledge, plus one adapter per supported board. Adapters
// turn a search query into zero or more validated job records; a failing
// adapter reports a failure reason, it never raises into the pipeline.
package source

import (
	"context"
	"fmt"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
)

// Adapter is implemented once per source. Fetch returns the records for one
// query; a non-nil error is always a *FetchError explaining why the source
// yielded nothing. Records returned by an adapter always satisfy
// model.JobRecord.Valid — anything else is dropped at this boundary.
type Adapter interface {
	ID() string
	Kind() model.SourceKind
	Fetch(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error)
}

// FetchError reports why a source produced no usable response.
type FetchError struct {
	SourceID string
	Reason   fetch.FailureReason
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.SourceID, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.SourceID, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Registry maps source ids to adapters. Built once at startup; resolves the
// adapter for each query instead of branching on source-name strings.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry builds a Registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.adapters[a.ID()]; dup {
			continue
		}
		r.adapters[a.ID()] = a
		r.order = append(r.order, a.ID())
	}
	return r
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// IDs returns registered source ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// failure wraps a non-OK fetch result into a *FetchError.
func failure(sourceID string, res fetch.Result) error {
	return &FetchError{SourceID: sourceID, Reason: res.Reason, Err: res.Err}
}

// keepValid filters records that violate the adapter-boundary invariant.
func keepValid(records []model.JobRecord) []model.JobRecord {
	valid := records[:0]
	for _, r := range records {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	return valid
}
