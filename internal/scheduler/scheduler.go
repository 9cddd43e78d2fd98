// Package scheduler runs the pipeline's recurring jobs: daily generation,
// hourly publishing, weekly cleanup and the periodic health check.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dailydrip/newsforge/internal/config"
	"github.com/dailydrip/newsforge/internal/pipeline"
	"github.com/dailydrip/newsforge/internal/publish"
	"github.com/dailydrip/newsforge/internal/store"
)

// CleanupResult reports what a cleanup pass removed or converted.
type CleanupResult struct {
	FailedDeleted   int64 `json:"failed_deleted"`
	RejectedDeleted int64 `json:"rejected_deleted"`
	StaleFailed     int64 `json:"stale_failed"`
}

// Scheduler owns the cron instance and its job handles. It is constructed
// once at process start; Start and Stop manage the job registrations so a
// restart never leaks duplicate timers.
type Scheduler struct {
	cfg   *config.Config
	store *store.Store
	pipe  *pipeline.Pipeline
	pub   *publish.Service

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a scheduler over an already-wired pipeline and publisher.
func New(cfg *config.Config, st *store.Store, pipe *pipeline.Pipeline, pub *publish.Service) *Scheduler {
	return &Scheduler{cfg: cfg, store: st, pipe: pipe, pub: pub}
}

// Start registers and starts all jobs. Returns an error when already running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler already running")
	}

	c := cron.New()
	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"daily generation", s.cfg.Schedule.DailyGeneration, s.runDaily},
		{"hourly publishing", s.cfg.Schedule.HourlyPublish, s.runPublishing},
		{"weekly cleanup", s.cfg.Schedule.WeeklyCleanup, s.runCleanup},
		{"health check", s.cfg.Schedule.HealthCheck, s.runHealthCheck},
	}
	for _, j := range jobs {
		if _, err := c.AddFunc(j.spec, j.fn); err != nil {
			return fmt.Errorf("registering %s (%q): %w", j.name, j.spec, err)
		}
	}

	c.Start()
	s.cron = c
	log.Printf("Scheduler started with %d jobs", len(jobs))
	return nil
}

// Stop stops the cron and releases all job handles. Running jobs finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	log.Println("Scheduler stopped")
}

// Restart stops any existing jobs before registering fresh ones.
func (s *Scheduler) Restart() error {
	s.Stop()
	return s.Start()
}

// Running reports whether the cron is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// TriggerDaily runs the full daily-generation routine synchronously, for
// operator-initiated runs. The result shape matches the scheduled run.
func (s *Scheduler) TriggerDaily(ctx context.Context) *pipeline.Result {
	return s.pipe.RunDaily(ctx)
}

// TriggerGeneration runs generation for specific categories synchronously.
func (s *Scheduler) TriggerGeneration(ctx context.Context, categories []string, limit int) *pipeline.Result {
	return s.pipe.RunCategories(ctx, categories, limit)
}

func (s *Scheduler) runDaily() {
	log.Println("Scheduled daily generation starting")
	s.pipe.RunDaily(context.Background())
}

// runPublishing drains eligible records in fixed-size batches with a short
// delay between batches to avoid concentrating external calls.
func (s *Scheduler) runPublishing() {
	batchSize := s.cfg.Publishing.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	delay := time.Duration(s.cfg.Publishing.BatchDelaySecs) * time.Second

	published, errs := 0, 0
	for batch := 0; batch < 50; batch++ {
		result, err := s.pub.PublishEligible(time.Now(), batchSize)
		if err != nil {
			log.Printf("Publishing batch failed: %v", err)
			break
		}
		published += len(result.Articles)
		errs += len(result.Errors)

		if len(result.Articles)+len(result.Errors) < batchSize {
			break
		}
		time.Sleep(delay)
	}

	log.Printf("Hourly publishing complete: %d published, %d errors", published, errs)
}

func (s *Scheduler) runCleanup() {
	result, err := s.RunCleanup()
	if err != nil {
		log.Printf("Cleanup failed: %v", err)
		return
	}
	log.Printf("Cleanup complete: %d failed deleted, %d rejected deleted, %d stale pending failed",
		result.FailedDeleted, result.RejectedDeleted, result.StaleFailed)
}

// RunCleanup deletes old failed and rejected records and converts stale
// pending records to failed.
func (s *Scheduler) RunCleanup() (*CleanupResult, error) {
	now := time.Now()
	r := &CleanupResult{}

	var err error
	r.FailedDeleted, err = s.store.DeleteFailedBefore(now.AddDate(0, 0, -s.cfg.Cleanup.FailedRetentionDays))
	if err != nil {
		return nil, fmt.Errorf("deleting failed records: %w", err)
	}
	r.RejectedDeleted, err = s.store.DeleteRejectedBefore(now.AddDate(0, 0, -s.cfg.Cleanup.RejectedRetentionDays))
	if err != nil {
		return nil, fmt.Errorf("deleting rejected records: %w", err)
	}
	r.StaleFailed, err = s.store.FailStalePending(now.AddDate(0, 0, -s.cfg.Cleanup.StalePendingDays))
	if err != nil {
		return nil, fmt.Errorf("failing stale pending records: %w", err)
	}
	return r, nil
}

func (s *Scheduler) runHealthCheck() {
	warnings, err := s.HealthWarnings(time.Now())
	if err != nil {
		log.Printf("Health check failed: %v", err)
		return
	}
	if len(warnings) == 0 {
		log.Println("Health check: OK")
		return
	}
	for _, w := range warnings {
		log.Printf("Health warning: %s", w)
	}
}

// HealthWarnings inspects recent pipeline activity and returns any
// conditions an operator should look at.
func (s *Scheduler) HealthWarnings(now time.Time) ([]string, error) {
	h, err := s.store.GetHealth(now)
	if err != nil {
		return nil, err
	}

	var warnings []string

	attempts := h.GeneratedLast24h + h.FailedLast24h
	if attempts > 0 {
		failRate := float64(h.FailedLast24h) / float64(attempts)
		if failRate > 0.5 {
			warnings = append(warnings, fmt.Sprintf(
				"failure rate %.0f%% over the last 24h (%d of %d attempts)",
				failRate*100, h.FailedLast24h, attempts))
		}
	}

	if h.GeneratedLast24h == 0 {
		warnings = append(warnings, "no successful generations in the last 24h")
	} else if float64(h.LowQualityLast24h)/float64(h.GeneratedLast24h) > 0.6 {
		warnings = append(warnings, fmt.Sprintf(
			"%d of %d generations in the last 24h scored below the publishing threshold",
			h.LowQualityLast24h, h.GeneratedLast24h))
	}

	if h.StuckPending > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d records stuck in pending for more than 6 hours", h.StuckPending))
	}

	return warnings, nil
}
