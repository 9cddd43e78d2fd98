// Package generate rewrites scraped articles into publishable drafts via a
// generative-text provider.
package generate

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/dailydrip/newsforge/internal/llm"
)

const systemPrompt = "You are an editor for Daily Drip, an online magazine. " +
	"You rewrite source articles into original, engaging pieces without copying sentences verbatim."

const rewritePrompt = `Rewrite the following source article as an original piece for the %s section.

Source title: %s
Keywords: %s

Source text:
%s

Respond with ONLY this JSON:
{
    "title": "A fresh title, 30-60 characters",
    "content": "The rewritten article, 400-800 words, markdown allowed",
    "excerpt": "A teaser, 100-200 characters",
    "tags": ["3-5 short tags"]
}`

// ParseMode records which parsing path produced a draft.
type ParseMode int

const (
	// ParseJSON means the response matched the requested JSON shape.
	ParseJSON ParseMode = iota
	// ParseLabels means the labeled-section fallback reconstructed the fields.
	ParseLabels
	// ParseRaw means the whole response was taken as the body.
	ParseRaw
)

func (m ParseMode) String() string {
	switch m {
	case ParseJSON:
		return "json"
	case ParseLabels:
		return "labels"
	case ParseRaw:
		return "raw"
	}
	return "unknown"
}

// Input is the source material for one rewrite.
type Input struct {
	Category        string
	OriginalTitle   string
	OriginalContent string
	Keywords        []string
}

// Draft is the parsed rewrite. Parse records which path produced it, so
// degraded responses stay visible instead of silently passing as structured
// output.
type Draft struct {
	Title   string
	Content string
	Excerpt string
	Tags    []string
	Parse   ParseMode
}

// Engine drives rewrites through a provider, pacing calls to respect
// external rate limits.
type Engine struct {
	provider  llm.Provider
	limiter   *rate.Limiter
	maxTokens int
}

// New creates an engine. requestsPerMinute bounds the call rate.
func New(provider llm.Provider, requestsPerMinute, maxTokens int) *Engine {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	if maxTokens <= 0 {
		maxTokens = 1536
	}
	return &Engine{
		provider:  provider,
		limiter:   rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
		maxTokens: maxTokens,
	}
}

// Rewrite produces a draft from the source material. Provider errors
// propagate so the caller can mark the record failed; parsing never fails,
// it degrades through the label and raw fallbacks.
func (e *Engine) Rewrite(ctx context.Context, in Input) (*Draft, error) {
	if e.provider == nil {
		return nil, fmt.Errorf("no generation provider configured")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(rewritePrompt, in.Category, in.OriginalTitle,
		strings.Join(in.Keywords, ", "), in.OriginalContent)

	response, err := e.provider.Generate(ctx, systemPrompt, prompt, e.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}

	draft := ParseResponse(response)
	if draft.Title == "" {
		draft.Title = in.OriginalTitle
	}
	return draft, nil
}

// ParseResponse turns a model response into a draft using the two-tier
// strategy: structured JSON first, then labeled sections, then the raw text.
func ParseResponse(response string) *Draft {
	if parsed := llm.ExtractJSON(response); parsed != nil {
		content := strings.TrimSpace(llm.GetString(parsed, "content", ""))
		if content != "" {
			d := &Draft{
				Title:   strings.TrimSpace(llm.GetString(parsed, "title", "")),
				Content: content,
				Excerpt: strings.TrimSpace(llm.GetString(parsed, "excerpt", "")),
				Tags:    capTags(llm.GetStrings(parsed, "tags")),
				Parse:   ParseJSON,
			}
			if d.Excerpt == "" {
				d.Excerpt = deriveExcerpt(d.Content)
			}
			return d
		}
	}

	if d := parseLabeled(response); d != nil {
		return d
	}

	raw := strings.TrimSpace(response)
	return &Draft{
		Content: raw,
		Excerpt: deriveExcerpt(raw),
		Parse:   ParseRaw,
	}
}

// parseLabeled scans for "title:", "content:", "excerpt:" and "tags:"
// sections line by line. Returns nil when no content section is found.
func parseLabeled(response string) *Draft {
	d := &Draft{Parse: ParseLabels}
	var contentLines []string
	inContent := false

	for _, line := range strings.Split(response, "\n") {
		stripped := strings.TrimLeft(strings.TrimSpace(line), "#*- ")
		lower := strings.ToLower(stripped)

		switch {
		case strings.HasPrefix(lower, "title:"):
			d.Title = strings.TrimSpace(stripped[len("title:"):])
			inContent = false
		case strings.HasPrefix(lower, "excerpt:"):
			d.Excerpt = strings.TrimSpace(stripped[len("excerpt:"):])
			inContent = false
		case strings.HasPrefix(lower, "tags:"):
			for _, tag := range strings.Split(stripped[len("tags:"):], ",") {
				if t := strings.TrimSpace(tag); t != "" {
					d.Tags = append(d.Tags, t)
				}
			}
			inContent = false
		case strings.HasPrefix(lower, "content:"):
			if rest := strings.TrimSpace(stripped[len("content:"):]); rest != "" {
				contentLines = append(contentLines, rest)
			}
			inContent = true
		case inContent:
			contentLines = append(contentLines, line)
		}
	}

	d.Content = strings.TrimSpace(strings.Join(contentLines, "\n"))
	if d.Content == "" {
		return nil
	}
	d.Tags = capTags(d.Tags)
	if d.Excerpt == "" {
		d.Excerpt = deriveExcerpt(d.Content)
	}
	return d
}

// deriveExcerpt takes the first ~150 characters of the content, breaking at
// a word boundary, with a trailing ellipsis.
func deriveExcerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= 150 {
		return content
	}
	n := 150
	// Back off to a rune boundary so the cut never splits a character.
	for n > 0 && !utf8.RuneStart(content[n]) {
		n--
	}
	cut := content[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx > 100 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func capTags(tags []string) []string {
	if len(tags) > 5 {
		return tags[:5]
	}
	return tags
}
