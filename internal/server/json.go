package server

import (
	"time"

	"github.com/dailydrip/newsforge/internal/store"
)

type recordJSON struct {
	ID              int64    `json:"id"`
	SourceURL       string   `json:"source_url"`
	SourceType      string   `json:"source_type"`
	Category        string   `json:"category"`
	OriginalTitle   string   `json:"original_title"`
	OriginalContent string   `json:"original_content,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`

	GeneratedTitle   string   `json:"generated_title,omitempty"`
	GeneratedContent string   `json:"generated_content,omitempty"`
	GeneratedExcerpt string   `json:"generated_excerpt,omitempty"`
	GeneratedTags    []string `json:"generated_tags,omitempty"`
	QualityScore     int      `json:"quality_score"`

	Status             string  `json:"status"`
	ScheduledPublishAt *string `json:"scheduled_publish_at,omitempty"`
	PublishedAt        *string `json:"published_at,omitempty"`
	PublishedArticleID *int64  `json:"published_article_id,omitempty"`

	WordCount         int     `json:"word_count"`
	ReadTimeMinutes   int     `json:"read_time_minutes"`
	SourcePublishDate *string `json:"source_publish_date,omitempty"`
	AuthorName        *string `json:"author_name,omitempty"`
	SourceWebsite     string  `json:"source_website,omitempty"`

	HumanReviewed bool    `json:"human_reviewed"`
	ReviewedBy    *string `json:"reviewed_by,omitempty"`
	ReviewNotes   *string `json:"review_notes,omitempty"`
	LastError     *string `json:"last_error,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type articleJSON struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	BodyHTML    string   `json:"body_html"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category"`
	Author      string   `json:"author"`
	RecordID    int64    `json:"record_id"`
	PublishedAt string   `json:"published_at"`
}

func toRecordJSON(rec store.ContentRecord) recordJSON {
	return recordJSON{
		ID:              rec.ID,
		SourceURL:       rec.SourceURL,
		SourceType:      rec.SourceType,
		Category:        rec.Category,
		OriginalTitle:   rec.OriginalTitle,
		OriginalContent: rec.OriginalContent,
		Keywords:        rec.Keywords,

		GeneratedTitle:   rec.GeneratedTitle,
		GeneratedContent: rec.GeneratedContent,
		GeneratedExcerpt: rec.GeneratedExcerpt,
		GeneratedTags:    rec.GeneratedTags,
		QualityScore:     rec.QualityScore,

		Status:             rec.Status,
		ScheduledPublishAt: timeString(rec.ScheduledPublishAt),
		PublishedAt:        timeString(rec.PublishedAt),
		PublishedArticleID: rec.PublishedArticleID,

		WordCount:         rec.WordCount,
		ReadTimeMinutes:   rec.ReadTimeMinutes,
		SourcePublishDate: timeString(rec.SourcePublishDate),
		AuthorName:        rec.AuthorName,
		SourceWebsite:     rec.SourceWebsite,

		HumanReviewed: rec.HumanReviewed,
		ReviewedBy:    rec.ReviewedBy,
		ReviewNotes:   rec.ReviewNotes,
		LastError:     rec.LastError,

		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toArticleJSON(a store.Article) articleJSON {
	return articleJSON{
		ID:          a.ID,
		Title:       a.Title,
		BodyHTML:    a.BodyHTML,
		Excerpt:     a.Excerpt,
		Tags:        a.Tags,
		Category:    a.Category,
		Author:      a.Author,
		RecordID:    a.RecordID,
		PublishedAt: a.PublishedAt.UTC().Format(time.RFC3339),
	}
}

func timeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
