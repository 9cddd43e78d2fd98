package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dailydrip/newsforge/internal/config"
	"github.com/dailydrip/newsforge/internal/pipeline"
	"github.com/dailydrip/newsforge/internal/publish"
	"github.com/dailydrip/newsforge/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Schedule: config.Schedule{
			DailyGeneration: "0 6 * * *",
			HourlyPublish:   "0 * * * *",
			WeeklyCleanup:   "0 3 * * 0",
			HealthCheck:     "0 */6 * * *",
		},
		Cleanup: config.Cleanup{
			FailedRetentionDays:   7,
			RejectedRetentionDays: 30,
			StalePendingDays:      7,
		},
		Publishing: config.Publishing{
			QualityThreshold: 70,
			BatchSize:        5,
			AuthorName:       "Daily Drip",
		},
	}
}

func newTestScheduler(t *testing.T, cfg *config.Config) (*Scheduler, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	pipe := pipeline.NewWithProvider(cfg, st, nil)
	pub := publish.New(st, cfg.Publishing.QualityThreshold, cfg.Publishing.AuthorName)
	return New(cfg, st, pipe, pub), st
}

func TestStartStopRestart(t *testing.T) {
	s, _ := newTestScheduler(t, testConfig())

	if s.Running() {
		t.Fatal("scheduler should not run before Start")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Running() {
		t.Fatal("expected scheduler to be running")
	}

	if err := s.Start(); err == nil {
		t.Error("expected second Start to fail")
	}

	s.Stop()
	if s.Running() {
		t.Error("expected scheduler to be stopped")
	}
	// Stop on a stopped scheduler is a no-op.
	s.Stop()

	if err := s.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if !s.Running() {
		t.Error("expected scheduler to run after Restart")
	}
	s.Stop()
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.HourlyPublish = "not a cron spec"
	s, _ := newTestScheduler(t, cfg)

	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if s.Running() {
		t.Error("scheduler must not run after failed Start")
	}
}

func TestRunCleanup(t *testing.T) {
	cfg := testConfig()
	// Future cutoffs so freshly written rows age out immediately.
	cfg.Cleanup.FailedRetentionDays = -1
	cfg.Cleanup.StalePendingDays = -1
	s, st := newTestScheduler(t, cfg)

	failedID, _ := st.InsertRecord(&store.ContentRecord{
		SourceURL: "https://example.com/f", Category: "space", OriginalTitle: "f",
	})
	st.MarkFailed(failedID, "boom")

	rejectedID, _ := st.InsertRecord(&store.ContentRecord{
		SourceURL: "https://example.com/r", Category: "space", OriginalTitle: "r",
	})
	st.MarkGenerated(rejectedID, store.GenerationUpdate{Title: "t", Content: "c", Score: 80})
	st.MarkRejected(rejectedID, "editor", "no")

	st.InsertRecord(&store.ContentRecord{
		SourceURL: "https://example.com/p", Category: "space", OriginalTitle: "p",
	})

	result, err := s.RunCleanup()
	if err != nil {
		t.Fatalf("RunCleanup: %v", err)
	}
	if result.FailedDeleted != 1 {
		t.Errorf("expected 1 failed record deleted, got %d", result.FailedDeleted)
	}
	if result.RejectedDeleted != 0 {
		t.Errorf("expected rejected record retained, got %d deleted", result.RejectedDeleted)
	}
	if result.StaleFailed != 1 {
		t.Errorf("expected 1 stale pending failed, got %d", result.StaleFailed)
	}

	if rec, _ := st.GetRecord(rejectedID); rec == nil {
		t.Error("rejected record inside retention should survive")
	}
}

func TestHealthWarningsEmptyStore(t *testing.T) {
	s, _ := newTestScheduler(t, testConfig())

	warnings, err := s.HealthWarnings(time.Now())
	if err != nil {
		t.Fatalf("HealthWarnings: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected only the no-generations warning, got %v", warnings)
	}
}

func TestHealthWarningsFailuresAndLowQuality(t *testing.T) {
	s, st := newTestScheduler(t, testConfig())

	for _, url := range []string{"https://example.com/w1", "https://example.com/w2"} {
		id, _ := st.InsertRecord(&store.ContentRecord{
			SourceURL: url, Category: "space", OriginalTitle: "t",
		})
		st.MarkFailed(id, "boom")
	}
	lowID, _ := st.InsertRecord(&store.ContentRecord{
		SourceURL: "https://example.com/w3", Category: "space", OriginalTitle: "t",
	})
	st.MarkGenerated(lowID, store.GenerationUpdate{Title: "t", Content: "c", Score: 40})

	warnings, err := s.HealthWarnings(time.Now())
	if err != nil {
		t.Fatalf("HealthWarnings: %v", err)
	}
	// Failure rate 2/3 and every generation below the threshold.
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
}

func TestTriggerGenerationNoCategories(t *testing.T) {
	s, _ := newTestScheduler(t, testConfig())

	result := s.TriggerGeneration(context.Background(), nil, 3)
	if result == nil {
		t.Fatal("expected a result")
	}
	if result.Scraped != 0 || result.Generated != 0 || result.Failed != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}
