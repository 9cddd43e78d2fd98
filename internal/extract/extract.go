// Package extract turns an article URL into bounded plain text plus keyword
// candidates for the generation prompt.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// contentSelectors is tried in order; the first selector yielding non-empty
// text wins.
var contentSelectors = []string{
	"article",
	"[role=main]",
	"main",
	".article-content",
	".article-body",
	".post-content",
	".entry-content",
	".story-body",
	"#content",
}

// strippedSelectors are removed from the document before extraction.
const strippedSelectors = "script, style, noscript, nav, header, footer, aside, iframe, .ad, .ads, .advertisement, .social-share, .related-articles"

// Result is the extracted content of one article page.
type Result struct {
	Text     string
	Keywords []string
}

// Extractor fetches article pages and extracts readable text.
type Extractor struct {
	client      *http.Client
	userAgent   string
	maxContent  int
	maxKeywords int
}

// New creates an extractor with a bounded fetch timeout.
func New(timeout time.Duration, userAgent string, maxContent, maxKeywords int) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if maxContent <= 0 {
		maxContent = 3000
	}
	if maxKeywords <= 0 {
		maxKeywords = 10
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   userAgent,
		maxContent:  maxContent,
		maxKeywords: maxKeywords,
	}
}

// Extract fetches the page and extracts text and keywords. Any fetch or
// parse error returns a nil result; callers skip the item and move on.
func (e *Extractor) Extract(ctx context.Context, articleURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: %s", articleURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	keywords := e.harvestKeywords(doc)

	doc.Find(strippedSelectors).Remove()

	text := selectorText(doc)
	if text == "" {
		text = readabilityText(string(body), articleURL)
	}
	if text == "" {
		text = normalize(doc.Find("body").Text())
	}
	if text == "" {
		return nil, fmt.Errorf("no extractable content at %s", articleURL)
	}

	if len(text) > e.maxContent {
		cut := e.maxContent
		// Back off to a rune boundary so the cut never splits a character.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	return &Result{Text: text, Keywords: keywords}, nil
}

func selectorText(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		text := normalize(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func readabilityText(html, articleURL string) string {
	parsed, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	return normalize(article.TextContent)
}

// harvestKeywords collects candidates from meta keyword tags and headings,
// deduplicated in order of appearance and capped.
func (e *Extractor) harvestKeywords(doc *goquery.Document) []string {
	var keywords []string
	seen := make(map[string]struct{})

	add := func(raw string) {
		kw := strings.ToLower(strings.TrimSpace(raw))
		if kw == "" || len(kw) > 60 {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	if content, ok := doc.Find(`meta[name="keywords"]`).First().Attr("content"); ok {
		for _, kw := range strings.Split(content, ",") {
			add(kw)
		}
	}
	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content)
		}
	})
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})

	if len(keywords) > e.maxKeywords {
		keywords = keywords[:e.maxKeywords]
	}
	return keywords
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
