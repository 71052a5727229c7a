package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/cache"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/config"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/ratelimit"
)

// testFetcher wires a Fetcher against miniredis with fast backoff.
func testFetcher(t *testing.T, windows map[string][]config.Window) *fetch.Fetcher {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	limits := ratelimit.NewRegistry(rdb,
		ratelimit.WithWindows(windows),
		ratelimit.WithPacing(0),
	)
	return fetch.New(cache.New(rdb, time.Hour), limits,
		fetch.WithMaxAttempts(3),
		fetch.WithBackoff(time.Millisecond, 2*time.Millisecond),
	)
}

func TestDo_TransientFailureIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := testFetcher(t, nil)
	res := f.Do(context.Background(), fetch.Request{SourceID: "test", Method: http.MethodGet, URL: srv.URL})

	require.Equal(t, fetch.OK, res.Reason)
	require.Equal(t, 2, res.Attempts)
	require.Equal(t, []byte("ok"), res.Body)
}

func TestDo_RetriesExhaustedIsNetworkFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := testFetcher(t, nil)
	res := f.Do(context.Background(), fetch.Request{SourceID: "test", Method: http.MethodGet, URL: srv.URL})

	require.Equal(t, fetch.NetworkFailed, res.Reason)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls), "all attempts should hit the network")
	require.Error(t, res.Err)
}

func TestDo_AuthFailureIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := testFetcher(t, nil)
	res := f.Do(context.Background(), fetch.Request{SourceID: "test", Method: http.MethodGet, URL: srv.URL})

	require.Equal(t, fetch.AuthFailed, res.Reason)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "401 must not be retried")
}

func TestDo_OtherClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := testFetcher(t, nil)
	res := f.Do(context.Background(), fetch.Request{SourceID: "test", Method: http.MethodGet, URL: srv.URL})

	require.Equal(t, fetch.NetworkFailed, res.Reason)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDo_CacheHitSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	f := testFetcher(t, nil)
	req := fetch.Request{SourceID: "test", Method: http.MethodGet, URL: srv.URL + "/search?q=go"}

	first := f.Do(context.Background(), req)
	require.Equal(t, fetch.OK, first.Reason)
	require.False(t, first.Cached)

	second := f.Do(context.Background(), req)
	require.Equal(t, fetch.OK, second.Reason)
	require.True(t, second.Cached)
	require.Equal(t, first.Body, second.Body)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "identical request within TTL must not hit the network")
}

func TestDo_RateLimitDenialSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	f := testFetcher(t, map[string][]config.Window{
		"test": {{Limit: 1, Interval: time.Minute}},
	})

	first := f.Do(context.Background(), fetch.Request{SourceID: "test", Method: http.MethodGet, URL: srv.URL + "/a"})
	require.Equal(t, fetch.OK, first.Reason)

	second := f.Do(context.Background(), fetch.Request{SourceID: "test", Method: http.MethodGet, URL: srv.URL + "/b"})
	require.Equal(t, fetch.RateLimited, second.Reason)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "denied request must not attempt network I/O")
	require.Zero(t, second.Attempts)
}

func TestDo_FailedFetchDoesNotPopulateCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := testFetcher(t, nil)
	req := fetch.Request{SourceID: "test", Method: http.MethodGet, URL: srv.URL}

	require.Equal(t, fetch.NetworkFailed, f.Do(context.Background(), req).Reason)

	// A second logical request goes back to the network — nothing was cached.
	f.Do(context.Background(), req)
	require.EqualValues(t, 6, atomic.LoadInt32(&calls))
}
