// jobradar — aggregates job postings from independent external boards into
// one deduplicated result stream. One batch per invocation by default;
// -daemon re-runs the batch on a cron interval and serves /health.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/cache"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/config"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/db"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/dedup"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/feed"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/fetch"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/filter"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/orchestrator"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/ratelimit"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/scheduler"
	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/source"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	titles := flag.String("titles", "software engineer", "comma-separated job titles to search")
	locations := flag.String("locations", "", "comma-separated locations (empty = unrestricted)")
	sources := flag.String("sources", "", "comma-separated source ids (empty = all registered)")
	gradeMin := flag.Int("grade-min", 0, "minimum pay grade filter (sources that support it)")
	gradeMax := flag.Int("grade-max", 0, "maximum pay grade filter (sources that support it)")
	orgs := flag.String("orgs", "", "comma-separated preferred organizations (sources that support it)")
	exclude := flag.String("exclude", "", "comma-separated red-flag terms — matching offers are discarded")
	daemon := flag.Bool("daemon", false, "run the batch on a cron interval instead of once")
	timeout := flag.Duration("timeout", 0, "optional whole-run timeout, e.g. 5m (0 = none)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[jobradar] Config error: %v", err)
	}

	ctx := context.Background()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[jobradar] Redis error: %v", err)
	}
	defer rdb.Close()

	var store *feed.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[jobradar] Postgres error: %v", err)
		}
		defer pool.Close()
		store = feed.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("[jobradar] Schema error: %v", err)
		}
	}

	responseCache := cache.New(rdb, cfg.CacheTTL)
	limits := ratelimit.NewRegistry(rdb, ratelimit.WithWindows(cfg.RateWindows))
	fetcher := fetch.New(responseCache, limits,
		fetch.WithMaxAttempts(cfg.FetchMaxAttempts),
		fetch.WithDebug(cfg.Debug),
	)

	registry := source.NewRegistry(
		source.NewRemoteOK(fetcher),
		source.NewWeWorkRemotely(fetcher),
		source.NewAdzuna(fetcher, cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry),
		source.NewUSAJobs(fetcher, cfg.USAJobsAPIKey, cfg.USAJobsEmail),
		source.NewJSearch(fetcher, cfg.JSearchAPIKey),
	)

	orch := orchestrator.New(registry, dedup.New(cfg.DedupThreshold),
		orchestrator.WithWorkers(cfg.PhaseWorkers),
		orchestrator.WithDebug(cfg.Debug),
		orchestrator.WithProgress(func(sourceID string, count int) {
			log.Printf("[jobradar] %-16s %d record(s)", sourceID, count)
		}),
	)

	var filters *model.SearchFilters
	if *gradeMin > 0 || *gradeMax > 0 || *orgs != "" {
		filters = &model.SearchFilters{
			GradeMin:      *gradeMin,
			GradeMax:      *gradeMax,
			Organizations: splitList(*orgs),
		}
	}

	buildQueries := func() []model.SearchQuery {
		ids := splitList(*sources)
		if len(ids) == 0 {
			ids = registry.IDs()
		}
		return queriesFor(ids, splitList(*titles), splitList(*locations), filters)
	}

	runBatch := func(ctx context.Context) {
		if *timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, *timeout)
			defer cancel()
		}

		result := orch.Run(ctx, buildQueries())

		kept, dropped := filter.Apply(result.Unique, splitList(*exclude))
		if dropped > 0 {
			log.Printf("[jobradar] %d offer(s) discarded by red-flag filter", dropped)
		}
		printSummary(result)

		if store != nil {
			runID := uuid.New().String()
			store.InsertRecords(ctx, runID, kept)
		}
	}

	if !*daemon {
		runBatch(ctx)
		return
	}

	sched := scheduler.New(cfg.ScrapeIntervalHours, runBatch)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[jobradar] Scheduler error: %v", err)
	}
	defer sched.Stop()

	go serveHealth(cfg.Port)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("[jobradar] Shutting down")
}

// queriesFor expands (source × title × location) into the run's query list.
func queriesFor(sourceIDs, titles, locations []string, filters *model.SearchFilters) []model.SearchQuery {
	if len(locations) == 0 {
		locations = []string{""}
	}
	var queries []model.SearchQuery
	for _, id := range sourceIDs {
		for _, title := range titles {
			for _, location := range locations {
				queries = append(queries, model.SearchQuery{
					SourceID: id,
					Query:    title,
					Location: location,
					Filters:  filters,
				})
			}
		}
	}
	return queries
}

func printSummary(result model.DedupResult) {
	fmt.Println("\n=== Aggregation Summary ===")
	fmt.Printf("Fetched:     %d\n", result.Stats.OriginalCount)
	fmt.Printf("Unique:      %d\n", result.Stats.DedupedCount)
	fmt.Printf("Duplicates:  %d\n", result.Stats.DuplicatesRemoved)
	fmt.Printf("Sources:     %d\n", result.Stats.DistinctSources)

	var multi []string
	for key, srcs := range result.MultiSource {
		if len(srcs) > 1 {
			multi = append(multi, fmt.Sprintf("  %s  ← %s", key, strings.Join(srcs, ", ")))
		}
	}
	if len(multi) > 0 {
		sort.Strings(multi)
		fmt.Println("Seen on multiple boards:")
		for _, line := range multi {
			fmt.Println(line)
		}
	}
}

func serveHealth(port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"service": "jobradar",
		})
	})

	addr := ":" + port
	log.Printf("[jobradar] Listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[jobradar] Fatal: %v", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
