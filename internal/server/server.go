// Package server exposes the pipeline's operations to the rest of the
// application as a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dailydrip/newsforge/internal/publish"
	"github.com/dailydrip/newsforge/internal/scheduler"
	"github.com/dailydrip/newsforge/internal/score"
	"github.com/dailydrip/newsforge/internal/store"
)

// Server is the HTTP API over the content pipeline.
type Server struct {
	store *store.Store
	sched *scheduler.Scheduler
	pub   *publish.Service
	mux   *http.ServeMux

	validCategories map[string]bool
}

// New creates a new Server.
func New(st *store.Store, sched *scheduler.Scheduler, pub *publish.Service, categories []string) *Server {
	valid := make(map[string]bool, len(categories))
	for _, c := range categories {
		valid[c] = true
	}

	s := &Server{store: st, sched: sched, pub: pub, mux: http.NewServeMux(), validCategories: valid}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/records", s.handleListRecords)
	s.mux.HandleFunc("GET /api/records/ready", s.handleReady)
	s.mux.HandleFunc("GET /api/records/{id}", s.handleGetRecord)
	s.mux.HandleFunc("PATCH /api/records/{id}", s.handleUpdateRecord)
	s.mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)
	s.mux.HandleFunc("POST /api/records/{id}/schedule", s.handleSchedule)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/publish", s.handlePublish)
	s.mux.HandleFunc("POST /api/run-daily", s.handleRunDaily)
	s.mux.HandleFunc("GET /api/articles", s.handleListArticles)
	s.mux.HandleFunc("GET /api/articles/{id}", s.handleGetArticle)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.GetSummary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "computing stats")
		return
	}

	recent := make([]recordJSON, 0, len(summary.RecentHighQuality))
	for _, rec := range summary.RecentHighQuality {
		recent = append(recent, toRecordJSON(rec))
	}

	categories := make([]map[string]any, 0, len(summary.ByCategory))
	for _, cs := range summary.ByCategory {
		categories = append(categories, map[string]any{
			"category":  cs.Category,
			"count":     cs.Count,
			"avg_score": cs.AvgScore,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":               summary.Total,
		"published":           summary.Published,
		"by_status":           summary.ByStatus,
		"by_category":         categories,
		"recent_high_quality": recent,
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	minScore, _ := strconv.Atoi(q.Get("min_score"))

	filter := store.ListFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		MinScore: minScore,
		SortBy:   q.Get("sort"),
		SortDesc: q.Get("order") != "asc",
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	records, total, err := s.store.ListRecords(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing records")
		return
	}

	items := make([]recordJSON, 0, len(records))
	for _, rec := range records {
		items = append(items, toRecordJSON(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": items,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	records, err := s.pub.Eligible(time.Now(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "querying eligible records")
		return
	}
	items := make([]recordJSON, 0, len(records))
	for _, rec := range records {
		items = append(items, toRecordJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": items, "count": len(items)})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}
	writeJSON(w, http.StatusOK, toRecordJSON(*rec))
}

type updateRequest struct {
	Status        *string `json:"status"`
	HumanReviewed *bool   `json:"human_reviewed"`
	ReviewedBy    *string `json:"reviewed_by"`
	ReviewNotes   *string `json:"review_notes"`

	GeneratedTitle   *string  `json:"generated_title"`
	GeneratedContent *string  `json:"generated_content"`
	GeneratedExcerpt *string  `json:"generated_excerpt"`
	GeneratedTags    []string `json:"generated_tags"`
}

var manualStatuses = map[string]bool{
	store.StatusPending:   true,
	store.StatusGenerated: true,
	store.StatusFailed:    true,
	store.StatusRejected:  true,
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Status != nil && !manualStatuses[*req.Status] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("status %q cannot be set manually", *req.Status))
		return
	}

	if req.GeneratedTitle != nil || req.GeneratedContent != nil ||
		req.GeneratedExcerpt != nil || req.GeneratedTags != nil {
		title := rec.GeneratedTitle
		if req.GeneratedTitle != nil {
			title = *req.GeneratedTitle
		}
		content := rec.GeneratedContent
		if req.GeneratedContent != nil {
			content = *req.GeneratedContent
		}
		excerpt := rec.GeneratedExcerpt
		if req.GeneratedExcerpt != nil {
			excerpt = *req.GeneratedExcerpt
		}
		tags := rec.GeneratedTags
		if req.GeneratedTags != nil {
			tags = req.GeneratedTags
		}

		// Human edits to generated content always go through the scorer.
		newScore := score.Score(score.Input{
			Title:             title,
			Content:           content,
			Excerpt:           excerpt,
			Tags:              tags,
			Keywords:          rec.Keywords,
			SourcePublishDate: rec.SourcePublishDate,
			SourceWebsite:     rec.SourceWebsite,
			Now:               time.Now(),
		})
		if err := s.store.UpdateGeneratedFields(rec.ID, req.GeneratedTitle,
			req.GeneratedContent, req.GeneratedExcerpt, req.GeneratedTags, newScore); err != nil {
			writeError(w, http.StatusInternalServerError, "updating generated fields")
			return
		}
	}

	if req.Status != nil || req.HumanReviewed != nil || req.ReviewedBy != nil || req.ReviewNotes != nil {
		if err := s.store.UpdateReview(rec.ID, store.ReviewUpdate{
			Status:        req.Status,
			HumanReviewed: req.HumanReviewed,
			ReviewedBy:    req.ReviewedBy,
			ReviewNotes:   req.ReviewNotes,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, "updating review fields")
			return
		}
	}

	updated, err := s.store.GetRecord(rec.ID)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "reloading record")
		return
	}
	writeJSON(w, http.StatusOK, toRecordJSON(*updated))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}
	if err := s.store.DeleteRecord(rec.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "deleting record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": rec.ID})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}

	var req struct {
		PublishAt string `json:"publish_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	at, err := time.Parse(time.RFC3339, req.PublishAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "publish_at must be RFC 3339")
		return
	}
	if !at.After(time.Now()) {
		writeError(w, http.StatusBadRequest, "publish_at must be in the future")
		return
	}

	if err := s.store.SchedulePublish(rec.ID, at); err != nil {
		writeError(w, http.StatusInternalServerError, "scheduling publish")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": rec.ID, "scheduled_publish_at": at.UTC().Format(time.RFC3339)})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Categories []string `json:"categories"`
		Limit      int      `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, c := range req.Categories {
		if !s.validCategories[c] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", c))
			return
		}
	}
	if len(req.Categories) == 0 {
		writeError(w, http.StatusBadRequest, "categories required")
		return
	}

	result := s.sched.TriggerGeneration(r.Context(), req.Categories, req.Limit)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids required")
		return
	}

	result, err := s.pub.PublishByIDs(req.IDs)
	if err != nil {
		var ineligible *publish.IneligibleError
		if errors.As(err, &ineligible) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":        err.Error(),
				"rejected_ids": ineligible.IDs,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "publishing records")
		return
	}

	articles := make([]articleJSON, 0, len(result.Articles))
	for _, a := range result.Articles {
		articles = append(articles, toArticleJSON(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"published": len(articles),
		"articles":  articles,
		"errors":    result.Errors,
	})
}

func (s *Server) handleRunDaily(w http.ResponseWriter, r *http.Request) {
	result := s.sched.TriggerDaily(r.Context())
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	articles, err := s.store.ListArticles(q.Get("category"), limit, (page-1)*limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing articles")
		return
	}
	items := make([]articleJSON, 0, len(articles))
	for _, a := range articles {
		items = append(items, toArticleJSON(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": items, "page": page, "limit": limit})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}
	article, err := s.store.GetArticle(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading article")
		return
	}
	if article == nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	writeJSON(w, http.StatusOK, toArticleJSON(*article))
}

// loadRecord parses the id path value and loads the record, writing the
// error response itself when the record cannot be served.
func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request) *store.ContentRecord {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return nil
	}
	rec, err := s.store.GetRecord(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading record")
		return nil
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "record not found")
		return nil
	}
	return rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve starts the HTTP server on the given port.
func Serve(s *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}
