package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const recordColumns = `id, source_url, source_type, category, original_title, original_content,
	keywords, generated_title, generated_content, generated_excerpt, generated_tags,
	quality_score, status, scheduled_publish_at, published_at, published_article_id,
	word_count, read_time_minutes, source_publish_date, author_name, source_website,
	human_reviewed, reviewed_by, review_notes, last_error, created_at, updated_at`

// InsertRecord inserts a new pending record. Returns the ID on success,
// 0 if a record with the same source URL already exists.
func (s *Store) InsertRecord(rec *ContentRecord) (int64, error) {
	now := fmtTime(time.Now())
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.SourceType == "" {
		rec.SourceType = SourceRSS
	}

	result, err := s.conn.Exec(
		`INSERT INTO content_records (source_url, source_type, category, original_title,
			original_content, keywords, status, word_count, read_time_minutes,
			source_publish_date, author_name, source_website, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SourceURL, rec.SourceType, rec.Category, rec.OriginalTitle,
		rec.OriginalContent, marshalStrings(rec.Keywords), rec.Status,
		rec.WordCount, rec.ReadTimeMinutes, fmtTimePtr(rec.SourcePublishDate),
		rec.AuthorName, rec.SourceWebsite, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, nil
		}
		return 0, err
	}
	return result.LastInsertId()
}

// SourceURLExists reports whether a record with the given source URL exists.
func (s *Store) SourceURLExists(url string) (bool, error) {
	var count int
	err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM content_records WHERE source_url = ?", url,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetRecord returns a single record by ID, or nil when not found.
func (s *Store) GetRecord(id int64) (*ContentRecord, error) {
	row := s.conn.QueryRow(
		"SELECT "+recordColumns+" FROM content_records WHERE id = ?", id,
	)
	rec, err := scanRecordRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteRecord deletes a record by ID.
func (s *Store) DeleteRecord(id int64) error {
	_, err := s.conn.Exec("DELETE FROM content_records WHERE id = ?", id)
	return err
}

var sortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"quality_score": "quality_score",
	"published_at":  "published_at",
}

// ListRecords returns records matching the filter plus the total match count.
func (s *Store) ListRecords(f ListFilter) ([]ContentRecord, int, error) {
	base := sq.Select().From("content_records")
	if f.Status != "" {
		base = base.Where(sq.Eq{"status": f.Status})
	}
	if f.Category != "" {
		base = base.Where(sq.Eq{"category": f.Category})
	}
	if f.MinScore > 0 {
		base = base.Where(sq.GtOrEq{"quality_score": f.MinScore})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building count query: %w", err)
	}
	var total int
	if err := s.conn.QueryRow(countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}

	q := base.Columns(recordColumns).OrderBy(col + " " + dir)
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	listSQL, listArgs, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building list query: %w", err)
	}

	rows, err := s.conn.Query(listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ClaimRecord atomically moves a pending record to in_progress.
// Returns false when the record was not pending (another run owns it).
func (s *Store) ClaimRecord(id int64) (bool, error) {
	result, err := s.conn.Exec(
		"UPDATE content_records SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		StatusInProgress, fmtTime(time.Now()), id, StatusPending,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// ReleaseClaim returns an in_progress record to pending.
func (s *Store) ReleaseClaim(id int64) error {
	_, err := s.conn.Exec(
		"UPDATE content_records SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		StatusPending, fmtTime(time.Now()), id, StatusInProgress,
	)
	return err
}

// GenerationUpdate carries the output of a successful rewrite.
type GenerationUpdate struct {
	Title     string
	Content   string
	Excerpt   string
	Tags      []string
	Score     int
	WordCount int
	ReadTime  int
}

// MarkGenerated stores generation output and the recomputed quality score.
// Only pending or in_progress records can transition to generated.
func (s *Store) MarkGenerated(id int64, u GenerationUpdate) (bool, error) {
	result, err := s.conn.Exec(
		`UPDATE content_records SET generated_title = ?, generated_content = ?,
			generated_excerpt = ?, generated_tags = ?, quality_score = ?,
			word_count = ?, read_time_minutes = ?,
			status = ?, last_error = NULL, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		u.Title, u.Content, u.Excerpt, marshalStrings(u.Tags), u.Score,
		u.WordCount, u.ReadTime,
		StatusGenerated, fmtTime(time.Now()), id, StatusPending, StatusInProgress,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// MarkFailed records a failure message and moves the record to failed.
// Published and rejected records cannot fail; returns false when the record
// was not in a failable status.
func (s *Store) MarkFailed(id int64, errMsg string) (bool, error) {
	result, err := s.conn.Exec(
		`UPDATE content_records SET status = ?, last_error = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?, ?)`,
		StatusFailed, errMsg, fmtTime(time.Now()), id,
		StatusPending, StatusInProgress, StatusGenerated,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// MarkRejected moves a generated record to rejected with review attribution.
func (s *Store) MarkRejected(id int64, reviewedBy, notes string) (bool, error) {
	result, err := s.conn.Exec(
		`UPDATE content_records SET status = ?, human_reviewed = 1, reviewed_by = ?,
			review_notes = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		StatusRejected, reviewedBy, notes, fmtTime(time.Now()), id, StatusGenerated,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// MarkPublished moves a generated record to published, pointing at the
// created article. Returns false when the record was not in generated
// status, which makes publishing idempotent per record.
func (s *Store) MarkPublished(id, articleID int64, publishedAt time.Time) (bool, error) {
	result, err := s.conn.Exec(
		`UPDATE content_records SET status = ?, published_at = ?,
			published_article_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		StatusPublished, fmtTime(publishedAt), articleID, fmtTime(time.Now()),
		id, StatusGenerated,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// SchedulePublish sets the earliest auto-publish time for a record.
func (s *Store) SchedulePublish(id int64, at time.Time) error {
	_, err := s.conn.Exec(
		"UPDATE content_records SET scheduled_publish_at = ?, updated_at = ? WHERE id = ?",
		fmtTime(at), fmtTime(time.Now()), id,
	)
	return err
}

// ReviewUpdate holds optional review-field changes. Nil fields are untouched.
type ReviewUpdate struct {
	Status        *string
	HumanReviewed *bool
	ReviewedBy    *string
	ReviewNotes   *string
}

// UpdateReview applies review-field changes to a record.
func (s *Store) UpdateReview(id int64, u ReviewUpdate) error {
	q := sq.Update("content_records").
		Set("updated_at", fmtTime(time.Now())).
		Where(sq.Eq{"id": id})
	if u.Status != nil {
		q = q.Set("status", *u.Status)
	}
	if u.HumanReviewed != nil {
		q = q.Set("human_reviewed", boolToInt(*u.HumanReviewed))
	}
	if u.ReviewedBy != nil {
		q = q.Set("reviewed_by", *u.ReviewedBy)
	}
	if u.ReviewNotes != nil {
		q = q.Set("review_notes", *u.ReviewNotes)
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building review update: %w", err)
	}
	_, err = s.conn.Exec(sqlStr, args...)
	return err
}

// UpdateGeneratedFields applies human edits to the generated output along
// with the recomputed quality score. Nil fields are untouched.
func (s *Store) UpdateGeneratedFields(id int64, title, content, excerpt *string, tags []string, score int) error {
	q := sq.Update("content_records").
		Set("quality_score", score).
		Set("updated_at", fmtTime(time.Now())).
		Where(sq.Eq{"id": id})
	if title != nil {
		q = q.Set("generated_title", *title)
	}
	if content != nil {
		q = q.Set("generated_content", *content)
	}
	if excerpt != nil {
		q = q.Set("generated_excerpt", *excerpt)
	}
	if tags != nil {
		q = q.Set("generated_tags", marshalStrings(tags))
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building edit update: %w", err)
	}
	_, err = s.conn.Exec(sqlStr, args...)
	return err
}

// EligibleForPublishing returns generated records past their scheduled time
// with a quality score at or above the threshold, best first, ties broken
// by age.
func (s *Store) EligibleForPublishing(threshold, limit int, now time.Time) ([]ContentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM content_records
		WHERE status = ?
		AND (scheduled_publish_at IS NULL OR scheduled_publish_at <= ?)
		AND quality_score >= ?
		ORDER BY quality_score DESC, created_at ASC`
	args := []any{StatusGenerated, fmtTime(now), threshold}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteFailedBefore deletes failed records last touched before the cutoff.
func (s *Store) DeleteFailedBefore(cutoff time.Time) (int64, error) {
	return s.deleteByStatusBefore(StatusFailed, cutoff)
}

// DeleteRejectedBefore deletes rejected records last touched before the cutoff.
func (s *Store) DeleteRejectedBefore(cutoff time.Time) (int64, error) {
	return s.deleteByStatusBefore(StatusRejected, cutoff)
}

func (s *Store) deleteByStatusBefore(status string, cutoff time.Time) (int64, error) {
	result, err := s.conn.Exec(
		"DELETE FROM content_records WHERE status = ? AND updated_at < ?",
		status, fmtTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// FailStalePending converts pending records created before the cutoff to
// failed rather than deleting them outright.
func (s *Store) FailStalePending(cutoff time.Time) (int64, error) {
	result, err := s.conn.Exec(
		`UPDATE content_records SET status = ?, last_error = 'stale', updated_at = ?
		WHERE status = ? AND created_at < ?`,
		StatusFailed, fmtTime(time.Now()), StatusPending, fmtTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanRecords(rows *sql.Rows) ([]ContentRecord, error) {
	var records []ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecordRow(row *sql.Row) (*ContentRecord, error) {
	return scanRecord(row.Scan)
}

func scanRecord(scan func(...any) error) (*ContentRecord, error) {
	var (
		rec                      ContentRecord
		keywords, tags           *string
		scheduledAt, publishedAt *string
		sourcePubDate            *string
		createdAt, updatedAt     string
		humanReviewed            int
	)
	err := scan(&rec.ID, &rec.SourceURL, &rec.SourceType, &rec.Category,
		&rec.OriginalTitle, &rec.OriginalContent, &keywords,
		&rec.GeneratedTitle, &rec.GeneratedContent, &rec.GeneratedExcerpt, &tags,
		&rec.QualityScore, &rec.Status, &scheduledAt, &publishedAt,
		&rec.PublishedArticleID, &rec.WordCount, &rec.ReadTimeMinutes,
		&sourcePubDate, &rec.AuthorName, &rec.SourceWebsite,
		&humanReviewed, &rec.ReviewedBy, &rec.ReviewNotes, &rec.LastError,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.Keywords = unmarshalStrings(keywords)
	rec.GeneratedTags = unmarshalStrings(tags)
	rec.ScheduledPublishAt = parseTimePtr(scheduledAt)
	rec.PublishedAt = parseTimePtr(publishedAt)
	rec.SourcePublishDate = parseTimePtr(sourcePubDate)
	rec.HumanReviewed = humanReviewed != 0
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

func marshalStrings(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func unmarshalStrings(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(*s), &values); err != nil {
		return nil
	}
	return values
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
