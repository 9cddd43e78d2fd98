package store

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS content_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_url TEXT UNIQUE NOT NULL,
    source_type TEXT NOT NULL DEFAULT 'rss',
    category TEXT NOT NULL,
    original_title TEXT NOT NULL,
    original_content TEXT,
    keywords TEXT,
    generated_title TEXT NOT NULL DEFAULT '',
    generated_content TEXT NOT NULL DEFAULT '',
    generated_excerpt TEXT NOT NULL DEFAULT '',
    generated_tags TEXT,
    quality_score INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK(status IN ('pending', 'in_progress', 'generated', 'published', 'failed', 'rejected')),
    scheduled_publish_at TEXT,
    published_at TEXT,
    published_article_id INTEGER REFERENCES published_articles(id),
    word_count INTEGER NOT NULL DEFAULT 0,
    read_time_minutes INTEGER NOT NULL DEFAULT 0,
    source_publish_date TEXT,
    author_name TEXT,
    source_website TEXT NOT NULL DEFAULT '',
    human_reviewed INTEGER NOT NULL DEFAULT 0,
    reviewed_by TEXT,
    review_notes TEXT,
    last_error TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS published_articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    body_markdown TEXT NOT NULL,
    body_html TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    tags TEXT,
    category TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    record_id INTEGER NOT NULL REFERENCES content_records(id),
    published_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_status ON content_records(status);
CREATE INDEX IF NOT EXISTS idx_records_category ON content_records(category);
CREATE INDEX IF NOT EXISTS idx_records_source_url ON content_records(source_url);
CREATE INDEX IF NOT EXISTS idx_records_eligibility
    ON content_records(status, quality_score, scheduled_publish_at);
CREATE INDEX IF NOT EXISTS idx_articles_category ON published_articles(category);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
