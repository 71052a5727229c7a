package orchestrator_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/dedup"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/orchestrator"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/source"
)

type fakeAdapter struct {
	id    string
	kind  model.SourceKind
	fetch func(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error)
}

func (f *fakeAdapter) ID() string             { return f.id }
func (f *fakeAdapter) Kind() model.SourceKind { return f.kind }
func (f *fakeAdapter) Fetch(ctx context.Context, q model.SearchQuery) ([]model.JobRecord, error) {
	return f.fetch(ctx, q)
}

func staticAdapter(id string, kind model.SourceKind, records ...model.JobRecord) *fakeAdapter {
	return &fakeAdapter{id: id, kind: kind, fetch: func(context.Context, model.SearchQuery) ([]model.JobRecord, error) {
		return records, nil
	}}
}

func rec(title, company, src string) model.JobRecord {
	return model.JobRecord{Title: title, Company: company, URL: "https://x.example/" + src + "/" + title, Source: src}
}

func TestRun_NativeRecordOutranksAggregatorDuplicate(t *testing.T) {
	native := staticAdapter("board", model.KindNative, rec("Senior Gopher", "Acme", "board"))
	agg := staticAdapter("agg", model.KindAggregator, rec("Senior Gopher", "Acme", "linkedin"))

	orch := orchestrator.New(source.NewRegistry(native, agg), dedup.New(0.85))

	// Aggregator query listed first: phase order, not input order, decides
	// which record survives.
	result := orch.Run(context.Background(), []model.SearchQuery{
		{SourceID: "agg", Query: "gopher"},
		{SourceID: "board", Query: "gopher"},
	})

	require.Len(t, result.Unique, 1)
	require.Equal(t, "board", result.Unique[0].Source)

	key := dedup.IdentityKey(result.Unique[0])
	require.Equal(t, []string{"board", "linkedin"}, result.MultiSource[key])
}

func TestRun_ResultsConcatenatedInPhaseOrder(t *testing.T) {
	native := staticAdapter("board", model.KindNative, rec("Backend Engineer", "Stripe", "board"))
	api := staticAdapter("api", model.KindAPI, rec("Data Scientist", "Netflix", "api"))
	agg := staticAdapter("agg", model.KindAggregator, rec("Product Manager", "Airbnb", "other"))

	orch := orchestrator.New(source.NewRegistry(native, api, agg), dedup.New(0.85))

	result := orch.Run(context.Background(), []model.SearchQuery{
		{SourceID: "agg", Query: "q"},
		{SourceID: "api", Query: "q"},
		{SourceID: "board", Query: "q"},
	})

	require.Len(t, result.Unique, 3)
	require.Equal(t, "board", result.Unique[0].Source)
	require.Equal(t, "api", result.Unique[1].Source)
	require.Equal(t, "other", result.Unique[2].Source)
}

func TestRun_ConcurrencyIsBounded(t *testing.T) {
	var current, peak int32
	slow := &fakeAdapter{id: "slow", kind: model.KindNative, fetch: func(context.Context, model.SearchQuery) ([]model.JobRecord, error) {
		now := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil, nil
	}}

	orch := orchestrator.New(source.NewRegistry(slow), dedup.New(0.85), orchestrator.WithWorkers(2))

	queries := make([]model.SearchQuery, 8)
	for i := range queries {
		queries[i] = model.SearchQuery{SourceID: "slow", Query: fmt.Sprintf("q%d", i)}
	}
	orch.Run(context.Background(), queries)

	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2), "no more than the worker count may run at once")
}

func TestRun_OneFailingSourceDoesNotAbortSiblings(t *testing.T) {
	failing := &fakeAdapter{id: "down", kind: model.KindNative, fetch: func(context.Context, model.SearchQuery) ([]model.JobRecord, error) {
		return nil, &source.FetchError{SourceID: "down", Reason: fetch.NetworkFailed}
	}}
	healthy := staticAdapter("up", model.KindNative, rec("Backend Engineer", "Stripe", "up"))

	orch := orchestrator.New(source.NewRegistry(failing, healthy), dedup.New(0.85))

	result := orch.Run(context.Background(), []model.SearchQuery{
		{SourceID: "down", Query: "q"},
		{SourceID: "up", Query: "q"},
	})

	require.Len(t, result.Unique, 1)
	require.Equal(t, "up", result.Unique[0].Source)
	require.Equal(t, 1, result.Stats.OriginalCount)
}

func TestRun_ProgressCallbackPerQuery(t *testing.T) {
	adapter := staticAdapter("board", model.KindNative,
		rec("Backend Engineer", "Stripe", "board"),
		rec("Data Scientist", "Netflix", "board"),
	)

	var mu sync.Mutex
	counts := map[string][]int{}
	orch := orchestrator.New(source.NewRegistry(adapter), dedup.New(0.85),
		orchestrator.WithProgress(func(sourceID string, n int) {
			mu.Lock()
			counts[sourceID] = append(counts[sourceID], n)
			mu.Unlock()
		}),
	)

	orch.Run(context.Background(), []model.SearchQuery{
		{SourceID: "board", Query: "a"},
		{SourceID: "board", Query: "b"},
	})

	require.Equal(t, []int{2, 2}, counts["board"], "callback fires once per completed query")
}

func TestRun_UnregisteredSourceSkipped(t *testing.T) {
	adapter := staticAdapter("board", model.KindNative, rec("Backend Engineer", "Stripe", "board"))
	orch := orchestrator.New(source.NewRegistry(adapter), dedup.New(0.85))

	result := orch.Run(context.Background(), []model.SearchQuery{
		{SourceID: "nope", Query: "q"},
		{SourceID: "board", Query: "q"},
	})

	require.Len(t, result.Unique, 1)
}

func TestRun_CancelledContextReturnsPartialResult(t *testing.T) {
	adapter := staticAdapter("board", model.KindNative, rec("Backend Engineer", "Stripe", "board"))
	orch := orchestrator.New(source.NewRegistry(adapter), dedup.New(0.85))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := orch.Run(ctx, []model.SearchQuery{{SourceID: "board", Query: "q"}})
	require.Empty(t, result.Unique, "already-cancelled run starts no phases")
	require.Zero(t, result.Stats.OriginalCount)
}

func TestRun_EmptyQueryListIsNotAnError(t *testing.T) {
	orch := orchestrator.New(source.NewRegistry(), dedup.New(0.85))

	records, stats := orch.FetchAll(context.Background(), nil)
	require.Empty(t, records)
	require.Zero(t, stats.OriginalCount)
}
