// Package feed persists deduplicated records into the job_feed table as
// JSONB rows. Persistence is optional plumbing around the pipeline: the
// orchestrator's results are complete without it.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandedTamarasu-glitch/Job-Radar-sub003/internal/model"
)

// Store writes job records to postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the job_feed table if it does not exist. Clearing
// the table is always safe; it holds derived data only.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS job_feed (
		   id          BIGSERIAL PRIMARY KEY,
		   run_id      TEXT NOT NULL,
		   raw_data    JSONB NOT NULL,
		   source_url  TEXT NOT NULL,
		   status      TEXT NOT NULL DEFAULT 'PENDING',
		   created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		 )`)
	if err != nil {
		return fmt.Errorf("create job_feed: %w", err)
	}
	return nil
}

// InsertRecords inserts records for a run, skipping rows whose source URL
// is already in the feed. Individual insert failures are logged and the
// batch continues.
func (s *Store) InsertRecords(ctx context.Context, runID string, records []model.JobRecord) (inserted, duplicates int) {
	for _, rec := range records {
		rawJSON, err := json.Marshal(rec)
		if err != nil {
			log.Printf("[feed] json.Marshal error: %v", err)
			continue
		}

		tag, err := s.pool.Exec(ctx,
			`INSERT INTO job_feed (run_id, raw_data, source_url, status)
			 SELECT $1, $2::jsonb, $3, 'PENDING'
			 WHERE NOT EXISTS (
			   SELECT 1 FROM job_feed WHERE source_url = $3
			 )`,
			runID, string(rawJSON), rec.URL,
		)
		if err != nil {
			log.Printf("[feed] insert error: %v", err)
			continue
		}

		if tag.RowsAffected() == 0 {
			duplicates++
		} else {
			inserted++
		}
	}

	log.Printf("[feed] run %s — inserted=%d duplicates=%d", runID, inserted, duplicates)
	return inserted, duplicates
}
