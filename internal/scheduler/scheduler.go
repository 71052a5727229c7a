// Package scheduler wires up the cron job that periodically re-runs the
// aggregation batch in daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron around a batch run function.
type Scheduler struct {
	cron *cron.Cron
	spec string // cron spec, e.g. "@every 6h"
	run  func(ctx context.Context)
}

// New creates a Scheduler that invokes run every intervalHours hours.
func New(intervalHours int, run func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.DefaultLogger)),
		spec: fmt.Sprintf("@every %dh", intervalHours),
		run:  run,
	}
}

// Start registers the job and starts the scheduler. Also runs one batch
// immediately so the feed is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.run(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}
