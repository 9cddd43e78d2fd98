package store

import (
	"database/sql"
)

const articleColumns = `id, title, body_markdown, body_html, excerpt, tags,
	category, author, record_id, published_at`

// InsertArticle inserts a published article and returns its ID.
func (s *Store) InsertArticle(a *Article) (int64, error) {
	result, err := s.conn.Exec(
		`INSERT INTO published_articles (title, body_markdown, body_html, excerpt,
			tags, category, author, record_id, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.BodyMarkdown, a.BodyHTML, a.Excerpt, marshalStrings(a.Tags),
		a.Category, a.Author, a.RecordID, fmtTime(a.PublishedAt),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetArticle returns a published article by ID, or nil when not found.
func (s *Store) GetArticle(id int64) (*Article, error) {
	row := s.conn.QueryRow(
		"SELECT "+articleColumns+" FROM published_articles WHERE id = ?", id,
	)
	a, err := scanArticle(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListArticles returns published articles, newest first. An empty category
// matches all categories.
func (s *Store) ListArticles(category string, limit, offset int) ([]Article, error) {
	query := "SELECT " + articleColumns + " FROM published_articles"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY published_at DESC"
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// DeleteArticle deletes a published article by ID.
func (s *Store) DeleteArticle(id int64) error {
	_, err := s.conn.Exec("DELETE FROM published_articles WHERE id = ?", id)
	return err
}

func scanArticle(scan func(...any) error) (*Article, error) {
	var (
		a           Article
		tags        *string
		publishedAt string
	)
	err := scan(&a.ID, &a.Title, &a.BodyMarkdown, &a.BodyHTML, &a.Excerpt,
		&tags, &a.Category, &a.Author, &a.RecordID, &publishedAt)
	if err != nil {
		return nil, err
	}
	a.Tags = unmarshalStrings(tags)
	a.PublishedAt = parseTime(publishedAt)
	return &a, nil
}
