// Package publish converts eligible generated records into published
// Daily Drip articles, exactly once each.
package publish

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/dailydrip/newsforge/internal/store"
)

var md = goldmark.New()

// errRaceLost means another run moved the record out of generated while this
// one was rendering it. The record must not be marked failed: the usual cause
// is a concurrent publish, and published is terminal.
var errRaceLost = errors.New("record is no longer in generated status")

// IneligibleError reports manually supplied record IDs that are not in
// generated status. Nothing is published when this is returned.
type IneligibleError struct {
	IDs []int64
}

func (e *IneligibleError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "records not eligible for publishing: " + strings.Join(parts, ", ")
}

// Result holds the outcome of a publishing pass.
type Result struct {
	Articles []store.Article
	Errors   []string
}

// Service publishes generated content records.
type Service struct {
	store     *store.Store
	threshold int
	author    string
}

// New creates a publishing service. author attributes published articles to
// the system account.
func New(st *store.Store, qualityThreshold int, author string) *Service {
	if qualityThreshold <= 0 {
		qualityThreshold = 70
	}
	return &Service{store: st, threshold: qualityThreshold, author: author}
}

// Eligible returns records ready for automatic publishing: generated, past
// any scheduled time, at or above the quality threshold, best first.
func (s *Service) Eligible(now time.Time, limit int) ([]store.ContentRecord, error) {
	return s.store.EligibleForPublishing(s.threshold, limit, now)
}

// PublishEligible publishes up to limit eligible records. A failure on one
// record marks that record failed and moves on; the rest of the batch is
// unaffected.
func (s *Service) PublishEligible(now time.Time, limit int) (*Result, error) {
	records, err := s.Eligible(now, limit)
	if err != nil {
		return nil, fmt.Errorf("querying eligible records: %w", err)
	}
	return s.publishAll(records), nil
}

// PublishByIDs publishes an explicit ID list, ignoring the scheduled-time
// and quality gates. Every ID must reference a record in generated status;
// otherwise nothing is published and the offending IDs are reported.
func (s *Service) PublishByIDs(ids []int64) (*Result, error) {
	var records []store.ContentRecord
	var ineligible []int64

	for _, id := range ids {
		rec, err := s.store.GetRecord(id)
		if err != nil {
			return nil, fmt.Errorf("loading record %d: %w", id, err)
		}
		if rec == nil || rec.Status != store.StatusGenerated {
			ineligible = append(ineligible, id)
			continue
		}
		records = append(records, *rec)
	}

	if len(ineligible) > 0 {
		return nil, &IneligibleError{IDs: ineligible}
	}
	return s.publishAll(records), nil
}

func (s *Service) publishAll(records []store.ContentRecord) *Result {
	r := &Result{}
	for _, rec := range records {
		article, err := s.publishRecord(&rec)
		if err != nil {
			log.Printf("Publishing record %d failed: %v", rec.ID, err)
			if !errors.Is(err, errRaceLost) {
				s.store.MarkFailed(rec.ID, err.Error())
			}
			r.Errors = append(r.Errors, fmt.Sprintf("record %d: %v", rec.ID, err))
			continue
		}
		log.Printf("Published record %d as article %d: %s", rec.ID, article.ID, article.Title)
		r.Articles = append(r.Articles, *article)
	}
	return r
}

func (s *Service) publishRecord(rec *store.ContentRecord) (*store.Article, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(rec.GeneratedContent), &buf); err != nil {
		return nil, fmt.Errorf("rendering body: %w", err)
	}

	now := time.Now()
	article := &store.Article{
		Title:        rec.GeneratedTitle,
		BodyMarkdown: rec.GeneratedContent,
		BodyHTML:     buf.String(),
		Excerpt:      rec.GeneratedExcerpt,
		Tags:         withCategoryTag(rec.GeneratedTags, rec.Category),
		Category:     rec.Category,
		Author:       s.author,
		RecordID:     rec.ID,
		PublishedAt:  now,
	}

	articleID, err := s.store.InsertArticle(article)
	if err != nil {
		return nil, fmt.Errorf("creating article: %w", err)
	}
	article.ID = articleID

	ok, err := s.store.MarkPublished(rec.ID, articleID, now)
	if err != nil {
		return nil, fmt.Errorf("marking published: %w", err)
	}
	if !ok {
		// Lost a race: roll back the article created above.
		s.store.DeleteArticle(articleID)
		return nil, fmt.Errorf("record %d: %w", rec.ID, errRaceLost)
	}

	return article, nil
}

func withCategoryTag(tags []string, category string) []string {
	for _, t := range tags {
		if strings.EqualFold(t, category) {
			return tags
		}
	}
	return append(append([]string{}, tags...), category)
}
