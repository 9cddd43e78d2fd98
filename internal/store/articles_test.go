package store

import (
	"fmt"
	"testing"
	"time"
)

func insertTestArticle(t *testing.T, st *Store, title, category string, publishedAt time.Time) int64 {
	t.Helper()
	recID := insertTestRecord(t, st, "https://example.com/src-"+title, category)
	id, err := st.InsertArticle(&Article{
		Title:        title,
		BodyMarkdown: "Body",
		BodyHTML:     "<p>Body</p>",
		Excerpt:      "Excerpt",
		Tags:         []string{category},
		Category:     category,
		Author:       "Daily Drip",
		RecordID:     recID,
		PublishedAt:  publishedAt,
	})
	if err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}
	return id
}

func TestInsertAndGetArticle(t *testing.T) {
	st := openTestDB(t)
	published := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	id := insertTestArticle(t, st, "Tides explained", "ocean", published)

	a, err := st.GetArticle(id)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if a == nil {
		t.Fatal("expected article")
	}
	if a.Title != "Tides explained" {
		t.Errorf("unexpected title: %q", a.Title)
	}
	if a.BodyHTML != "<p>Body</p>" {
		t.Errorf("unexpected body html: %q", a.BodyHTML)
	}
	if !a.PublishedAt.Equal(published) {
		t.Errorf("unexpected published_at: %v", a.PublishedAt)
	}
	if len(a.Tags) != 1 || a.Tags[0] != "ocean" {
		t.Errorf("unexpected tags: %v", a.Tags)
	}
}

func TestGetArticleNotFound(t *testing.T) {
	st := openTestDB(t)
	a, err := st.GetArticle(123)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Error("expected nil for missing article")
	}
}

func TestListArticlesNewestFirst(t *testing.T) {
	st := openTestDB(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		insertTestArticle(t, st, fmt.Sprintf("space-%d", i), "space", base.AddDate(0, 0, i))
	}
	insertTestArticle(t, st, "ocean-0", "ocean", base.AddDate(0, 0, 10))

	all, err := st.ListArticles("", 0, 0)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 articles, got %d", len(all))
	}
	if all[0].Title != "ocean-0" {
		t.Errorf("expected newest first, got %q", all[0].Title)
	}

	space, err := st.ListArticles("space", 2, 0)
	if err != nil {
		t.Fatalf("ListArticles space: %v", err)
	}
	if len(space) != 2 {
		t.Fatalf("expected 2 space articles, got %d", len(space))
	}
	if space[0].Title != "space-2" {
		t.Errorf("expected space-2 first, got %q", space[0].Title)
	}

	page2, err := st.ListArticles("space", 2, 2)
	if err != nil {
		t.Fatalf("ListArticles page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].Title != "space-0" {
		t.Errorf("unexpected second page: %v", page2)
	}
}

func TestDeleteArticle(t *testing.T) {
	st := openTestDB(t)
	id := insertTestArticle(t, st, "Doomed", "space", time.Now())

	if err := st.DeleteArticle(id); err != nil {
		t.Fatalf("DeleteArticle: %v", err)
	}
	a, err := st.GetArticle(id)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if a != nil {
		t.Error("expected article to be gone")
	}
}
