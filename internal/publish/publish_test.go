package publish

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dailydrip/newsforge/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func insertGenerated(t *testing.T, st *store.Store, url string, score int) int64 {
	t.Helper()
	id, err := st.InsertRecord(&store.ContentRecord{
		SourceURL:     url,
		Category:      "space",
		OriginalTitle: "Original",
	})
	if err != nil || id == 0 {
		t.Fatalf("InsertRecord: id=%d err=%v", id, err)
	}
	ok, err := st.MarkGenerated(id, store.GenerationUpdate{
		Title:     "A Generated Title",
		Content:   "# Heading\n\nBody paragraph.",
		Excerpt:   "Body paragraph.",
		Tags:      []string{"rockets"},
		Score:     score,
		WordCount: 3,
		ReadTime:  1,
	})
	if err != nil || !ok {
		t.Fatalf("MarkGenerated: ok=%v err=%v", ok, err)
	}
	return id
}

func TestPublishEligible(t *testing.T) {
	st := openTestStore(t)
	svc := New(st, 70, "Daily Drip")

	highID := insertGenerated(t, st, "https://example.com/high", 90)
	insertGenerated(t, st, "https://example.com/low", 50)

	result, err := svc.PublishEligible(time.Now(), 0)
	if err != nil {
		t.Fatalf("PublishEligible: %v", err)
	}
	if len(result.Articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(result.Articles))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	a := result.Articles[0]
	if a.Author != "Daily Drip" {
		t.Errorf("unexpected author: %q", a.Author)
	}
	if !strings.Contains(a.BodyHTML, "<h1") {
		t.Errorf("expected rendered markdown heading, got %q", a.BodyHTML)
	}
	if a.RecordID != highID {
		t.Errorf("expected article linked to record %d, got %d", highID, a.RecordID)
	}

	// Category is appended to the tags when missing.
	joined := strings.Join(a.Tags, ",")
	if !strings.Contains(joined, "space") || !strings.Contains(joined, "rockets") {
		t.Errorf("unexpected tags: %v", a.Tags)
	}

	rec, _ := st.GetRecord(highID)
	if rec.Status != store.StatusPublished {
		t.Errorf("expected published record, got %q", rec.Status)
	}
	if rec.PublishedArticleID == nil || *rec.PublishedArticleID != a.ID {
		t.Error("expected record to point at the article")
	}
}

func TestPublishEligibleIdempotent(t *testing.T) {
	st := openTestStore(t)
	svc := New(st, 70, "Daily Drip")
	insertGenerated(t, st, "https://example.com/once", 90)

	first, err := svc.PublishEligible(time.Now(), 0)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(first.Articles) != 1 {
		t.Fatalf("expected 1 article on first pass, got %d", len(first.Articles))
	}

	second, err := svc.PublishEligible(time.Now(), 0)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(second.Articles) != 0 {
		t.Errorf("expected no articles on second pass, got %d", len(second.Articles))
	}

	articles, err := st.ListArticles("", 0, 0)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("expected exactly 1 article, got %d", len(articles))
	}
}

func TestPublishByIDsRejectsIneligible(t *testing.T) {
	st := openTestStore(t)
	svc := New(st, 70, "Daily Drip")

	goodID := insertGenerated(t, st, "https://example.com/good", 90)
	pendingID, _ := st.InsertRecord(&store.ContentRecord{
		SourceURL:     "https://example.com/pending",
		Category:      "space",
		OriginalTitle: "Pending",
	})

	_, err := svc.PublishByIDs([]int64{goodID, pendingID, 9999})
	if err == nil {
		t.Fatal("expected ineligible error")
	}
	var ie *IneligibleError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IneligibleError, got %T", err)
	}
	if len(ie.IDs) != 2 {
		t.Errorf("expected 2 ineligible IDs, got %v", ie.IDs)
	}

	// Nothing is published when any ID is ineligible.
	rec, _ := st.GetRecord(goodID)
	if rec.Status != store.StatusGenerated {
		t.Errorf("expected good record untouched, got %q", rec.Status)
	}
}

func TestPublishByIDsIgnoresQualityGate(t *testing.T) {
	st := openTestStore(t)
	svc := New(st, 70, "Daily Drip")

	lowID := insertGenerated(t, st, "https://example.com/low-manual", 40)

	result, err := svc.PublishByIDs([]int64{lowID})
	if err != nil {
		t.Fatalf("PublishByIDs: %v", err)
	}
	if len(result.Articles) != 1 {
		t.Fatalf("expected the low-scored record to publish manually, got %d articles", len(result.Articles))
	}

	rec, _ := st.GetRecord(lowID)
	if rec.Status != store.StatusPublished {
		t.Errorf("expected published, got %q", rec.Status)
	}
}

func TestPublishEligibleRespectsLimit(t *testing.T) {
	st := openTestStore(t)
	svc := New(st, 70, "Daily Drip")

	insertGenerated(t, st, "https://example.com/b1", 95)
	insertGenerated(t, st, "https://example.com/b2", 90)
	insertGenerated(t, st, "https://example.com/b3", 85)

	result, err := svc.PublishEligible(time.Now(), 2)
	if err != nil {
		t.Fatalf("PublishEligible: %v", err)
	}
	if len(result.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(result.Articles))
	}
	// Best first.
	if result.Articles[0].RecordID > result.Articles[1].RecordID {
		// IDs are insertion-ordered and scores are descending by insertion,
		// so the higher score publishes first.
		t.Errorf("expected best-first ordering, got %v then %v",
			result.Articles[0].RecordID, result.Articles[1].RecordID)
	}
}

func TestPublishBatchFailureIsolation(t *testing.T) {
	st := openTestStore(t)
	svc := New(st, 70, "Daily Drip")

	insertGenerated(t, st, "https://example.com/i1", 95)
	midID := insertGenerated(t, st, "https://example.com/i2", 90)
	insertGenerated(t, st, "https://example.com/i3", 85)

	records, err := svc.Eligible(time.Now(), 0)
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 eligible records, got %d", len(records))
	}

	// The middle record leaves generated before the batch reaches it.
	if ok, err := st.MarkRejected(midID, "editor", "pulled"); err != nil || !ok {
		t.Fatalf("MarkRejected: ok=%v err=%v", ok, err)
	}

	result := svc.publishAll(records)
	if len(result.Articles) != 2 {
		t.Fatalf("expected 2 articles despite the mid-batch failure, got %d", len(result.Articles))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "no longer in generated status") {
		t.Errorf("unexpected error: %q", result.Errors[0])
	}

	articles, err := st.ListArticles("", 0, 0)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if len(articles) != 2 {
		t.Errorf("expected the failed record's article rolled back, got %d articles", len(articles))
	}
}

func TestPublishLostRaceKeepsWinner(t *testing.T) {
	st := openTestStore(t)
	svc := New(st, 70, "Daily Drip")

	id := insertGenerated(t, st, "https://example.com/race", 90)

	records, err := svc.Eligible(time.Now(), 0)
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}

	// A concurrent run publishes the record while this batch holds a stale
	// copy of it.
	winnerArticle, err := st.InsertArticle(&store.Article{
		Title:       "Winner",
		Category:    "space",
		Author:      "Daily Drip",
		RecordID:    id,
		PublishedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}
	if ok, err := st.MarkPublished(id, winnerArticle, time.Now()); err != nil || !ok {
		t.Fatalf("MarkPublished: ok=%v err=%v", ok, err)
	}

	result := svc.publishAll(records)
	if len(result.Articles) != 0 {
		t.Fatalf("expected no articles from the losing run, got %d", len(result.Articles))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}

	// The winner's publish survives: status stays published, the article
	// link is untouched, and the loser's duplicate article is rolled back.
	rec, _ := st.GetRecord(id)
	if rec.Status != store.StatusPublished {
		t.Errorf("expected record to stay published, got %q", rec.Status)
	}
	if rec.PublishedArticleID == nil || *rec.PublishedArticleID != winnerArticle {
		t.Error("expected the winning article link to survive")
	}
	articles, err := st.ListArticles("", 0, 0)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != winnerArticle {
		t.Errorf("expected only the winning article, got %v", articles)
	}
}

func TestThresholdDefault(t *testing.T) {
	st := openTestStore(t)
	svc := New(st, 0, "Daily Drip")

	insertGenerated(t, st, "https://example.com/d1", 69)
	insertGenerated(t, st, "https://example.com/d2", 70)

	result, err := svc.PublishEligible(time.Now(), 0)
	if err != nil {
		t.Fatalf("PublishEligible: %v", err)
	}
	if len(result.Articles) != 1 {
		t.Errorf("expected only the record at the default threshold, got %d", len(result.Articles))
	}
}
