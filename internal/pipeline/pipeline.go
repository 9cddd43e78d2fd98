// Package pipeline orchestrates the daily generation run: read feeds,
// extract content, persist records, rewrite, score.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dailydrip/newsforge/internal/config"
	"github.com/dailydrip/newsforge/internal/extract"
	"github.com/dailydrip/newsforge/internal/feeds"
	"github.com/dailydrip/newsforge/internal/generate"
	"github.com/dailydrip/newsforge/internal/llm"
	"github.com/dailydrip/newsforge/internal/score"
	"github.com/dailydrip/newsforge/internal/store"
)

// CategoryResult holds the per-category outcome of a generation run.
type CategoryResult struct {
	Category  string   `json:"category"`
	Scraped   int      `json:"scraped"`
	Generated int      `json:"generated"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Result is the structured outcome of one generation run. The same shape is
// returned for scheduled and operator-triggered runs.
type Result struct {
	Categories []CategoryResult `json:"categories"`
	Scraped    int              `json:"scraped"`
	Generated  int              `json:"generated"`
	Failed     int              `json:"failed"`
}

// Pipeline wires the feed reader, extractor and generation engine together
// over the content record store.
type Pipeline struct {
	cfg       *config.Config
	store     *store.Store
	reader    *feeds.Reader
	extractor *extract.Extractor
	engine    *generate.Engine
}

// New creates a pipeline from configuration. The generation provider is
// resolved once, with the Ollama → OpenAI fallback chain.
func New(cfg *config.Config, st *store.Store) *Pipeline {
	gen := cfg.Generation
	provider := llm.CreateProvider(gen.Provider, gen.Model, gen.OllamaURL, gen.OpenAIModel, gen.APIKeyEnv)
	return NewWithProvider(cfg, st, provider)
}

// NewWithProvider creates a pipeline with an explicit provider.
func NewWithProvider(cfg *config.Config, st *store.Store, provider llm.Provider) *Pipeline {
	feedMap := make(map[string][]string, len(cfg.Categories))
	for _, c := range cfg.Categories {
		feedMap[c.Name] = c.Feeds
	}
	timeout := time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second

	return &Pipeline{
		cfg:       cfg,
		store:     st,
		reader:    feeds.NewReader(feedMap, st, cfg.Scraper.UserAgent, timeout),
		extractor: extract.New(timeout, cfg.Scraper.UserAgent, cfg.Scraper.MaxContentLen, cfg.Scraper.MaxKeywords),
		engine:    generate.New(provider, cfg.Generation.RequestsPerMinute, cfg.Generation.MaxTokens),
	}
}

// RunDaily runs generation for every configured category.
func (p *Pipeline) RunDaily(ctx context.Context) *Result {
	return p.RunCategories(ctx, p.cfg.CategoryNames(), p.cfg.Scraper.ItemsPerRun)
}

// RunCategories runs generation for the given categories, up to limit new
// items each. A failure in one category is logged and does not stop the
// remaining categories.
func (p *Pipeline) RunCategories(ctx context.Context, categories []string, limit int) *Result {
	if limit <= 0 {
		limit = p.cfg.Scraper.ItemsPerRun
	}

	result := &Result{}
	for _, category := range categories {
		cr := p.runCategory(ctx, category, limit)
		result.Categories = append(result.Categories, cr)
		result.Scraped += cr.Scraped
		result.Generated += cr.Generated
		result.Failed += cr.Failed

		if ctx.Err() != nil {
			break
		}
	}

	log.Printf("Generation run complete: %d scraped, %d generated, %d failed",
		result.Scraped, result.Generated, result.Failed)
	return result
}

func (p *Pipeline) runCategory(ctx context.Context, category string, limit int) CategoryResult {
	cr := CategoryResult{Category: category}

	items, err := p.reader.Read(ctx, category, limit)
	if err != nil {
		log.Printf("Category %s: reading feeds failed: %v", category, err)
		cr.Errors = append(cr.Errors, err.Error())
		return cr
	}
	log.Printf("Category %s: %d candidates", category, len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			cr.Errors = append(cr.Errors, ctx.Err().Error())
			return cr
		}

		if err := p.processItem(ctx, category, item, &cr); err != nil {
			cr.Errors = append(cr.Errors, fmt.Sprintf("%s: %v", item.SourceURL, err))
		}
	}

	return cr
}

// processItem runs the strict per-item sequence: extract, persist, claim,
// rewrite, score.
func (p *Pipeline) processItem(ctx context.Context, category string, item feeds.Item, cr *CategoryResult) error {
	extracted, err := p.extractor.Extract(ctx, item.SourceURL)
	if err != nil {
		// Unusable source, skip without creating a record.
		log.Printf("Skipping %s: %v", item.SourceURL, err)
		return nil
	}

	rec := &store.ContentRecord{
		SourceURL:         item.SourceURL,
		SourceType:        store.SourceRSS,
		Category:          category,
		OriginalTitle:     item.Title,
		OriginalContent:   extracted.Text,
		Keywords:          extracted.Keywords,
		SourcePublishDate: item.PublishedAt,
		SourceWebsite:     item.SourceWebsite,
	}

	id, err := p.store.InsertRecord(rec)
	if err != nil {
		return fmt.Errorf("persisting record: %w", err)
	}
	if id == 0 {
		// Already ingested, dedup by source URL.
		return nil
	}
	cr.Scraped++

	claimed, err := p.store.ClaimRecord(id)
	if err != nil {
		return fmt.Errorf("claiming record: %w", err)
	}
	if !claimed {
		// Another run picked it up between insert and claim.
		return nil
	}

	draft, err := p.engine.Rewrite(ctx, generate.Input{
		Category:        category,
		OriginalTitle:   item.Title,
		OriginalContent: extracted.Text,
		Keywords:        extracted.Keywords,
	})
	if err != nil {
		if ctx.Err() != nil {
			p.store.ReleaseClaim(id)
			return ctx.Err()
		}
		p.store.MarkFailed(id, err.Error())
		cr.Failed++
		return fmt.Errorf("generation: %w", err)
	}

	qs := score.Score(score.Input{
		Title:             draft.Title,
		Content:           draft.Content,
		Excerpt:           draft.Excerpt,
		Tags:              draft.Tags,
		Keywords:          extracted.Keywords,
		SourcePublishDate: item.PublishedAt,
		SourceWebsite:     item.SourceWebsite,
		Now:               time.Now(),
	})

	words := len(strings.Fields(draft.Content))
	if _, err := p.store.MarkGenerated(id, store.GenerationUpdate{
		Title:     draft.Title,
		Content:   draft.Content,
		Excerpt:   draft.Excerpt,
		Tags:      draft.Tags,
		Score:     qs,
		WordCount: words,
		ReadTime:  readTime(words),
	}); err != nil {
		p.store.MarkFailed(id, err.Error())
		cr.Failed++
		return fmt.Errorf("storing generation: %w", err)
	}

	cr.Generated++
	log.Printf("Generated [%s, score %d, %s parse]: %s", category, qs, draft.Parse, draft.Title)
	return nil
}

// readTime estimates reading minutes at ~200 words per minute, minimum 1.
func readTime(words int) int {
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
