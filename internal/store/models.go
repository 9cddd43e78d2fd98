package store

import "time"

// Content record lifecycle states.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusGenerated  = "generated"
	StatusPublished  = "published"
	StatusFailed     = "failed"
	StatusRejected   = "rejected"
)

// Source types for a content record.
const (
	SourceNews   = "news"
	SourceRSS    = "rss"
	SourceAPI    = "api"
	SourceManual = "manual"
)

// ContentRecord is one scraped article moving through the rewrite pipeline.
type ContentRecord struct {
	ID              int64
	SourceURL       string
	SourceType      string
	Category        string
	OriginalTitle   string
	OriginalContent string
	Keywords        []string

	GeneratedTitle   string
	GeneratedContent string
	GeneratedExcerpt string
	GeneratedTags    []string
	QualityScore     int

	Status             string
	ScheduledPublishAt *time.Time
	PublishedAt        *time.Time
	PublishedArticleID *int64

	WordCount         int
	ReadTimeMinutes   int
	SourcePublishDate *time.Time
	AuthorName        *string
	SourceWebsite     string

	HumanReviewed bool
	ReviewedBy    *string
	ReviewNotes   *string
	LastError     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Article is a published piece in the Daily Drip feed.
type Article struct {
	ID           int64
	Title        string
	BodyMarkdown string
	BodyHTML     string
	Excerpt      string
	Tags         []string
	Category     string
	Author       string
	RecordID     int64
	PublishedAt  time.Time
}

// ListFilter narrows and orders a record listing.
type ListFilter struct {
	Status   string
	Category string
	MinScore int
	SortBy   string // created_at, updated_at, quality_score, published_at
	SortDesc bool
	Limit    int
	Offset   int
}

// CategoryStat summarizes records in one category.
type CategoryStat struct {
	Category string
	Count    int
	AvgScore float64
}

// Summary contains aggregate pipeline statistics.
type Summary struct {
	Total             int
	Published         int
	ByStatus          map[string]int
	ByCategory        []CategoryStat
	RecentHighQuality []ContentRecord
}

// Health contains the metrics the periodic health check inspects.
type Health struct {
	CreatedLast24h    int
	GeneratedLast24h  int
	FailedLast24h     int
	LowQualityLast24h int
	StuckPending      int
}
