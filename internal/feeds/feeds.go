// Package feeds reads configured RSS/Atom endpoints and yields candidate
// articles the pipeline has not seen before.
package feeds

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item is a raw feed candidate, not yet extracted or persisted.
type Item struct {
	SourceURL     string
	Title         string
	Summary       string
	PublishedAt   *time.Time
	SourceWebsite string
}

// URLChecker reports whether a source URL is already known to the store.
type URLChecker interface {
	SourceURLExists(url string) (bool, error)
}

// Reader fetches candidate articles for a category from its configured feeds.
type Reader struct {
	feedsByCategory map[string][]string
	known           URLChecker
	parser          *gofeed.Parser
}

// NewReader creates a feed reader over the category → feed URL mapping.
func NewReader(feedsByCategory map[string][]string, known URLChecker, userAgent string, timeout time.Duration) *Reader {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}
	return &Reader{
		feedsByCategory: feedsByCategory,
		known:           known,
		parser:          parser,
	}
}

// Read returns up to limit new candidates for a category, apportioned
// roughly evenly across the category's feeds. Feed parse failures are
// logged and skipped; they never fail the batch. Read performs no writes.
func (r *Reader) Read(ctx context.Context, category string, limit int) ([]Item, error) {
	feedURLs := r.feedsByCategory[category]
	if len(feedURLs) == 0 || limit <= 0 {
		return nil, nil
	}

	perFeed := (limit + len(feedURLs) - 1) / len(feedURLs)

	var items []Item
	for _, feedURL := range feedURLs {
		if len(items) >= limit {
			break
		}

		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", feedURL, err)
			continue
		}

		added := 0
		for _, fi := range feed.Items {
			if added >= perFeed || len(items) >= limit {
				break
			}

			item := parseItem(fi)
			if item == nil {
				continue
			}

			exists, err := r.known.SourceURLExists(item.SourceURL)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}

			items = append(items, *item)
			added++
		}
		log.Printf("Feed %s: %d new candidates", hostOf(feedURL), added)
	}

	return items, nil
}

func parseItem(fi *gofeed.Item) *Item {
	link := fi.Link
	if link == "" {
		link = fi.GUID
	}
	if link == "" || !strings.HasPrefix(link, "http") {
		return nil
	}

	title := strings.TrimSpace(fi.Title)
	if title == "" {
		return nil
	}

	var published *time.Time
	if fi.PublishedParsed != nil {
		published = fi.PublishedParsed
	} else if fi.UpdatedParsed != nil {
		published = fi.UpdatedParsed
	}

	summary := strings.TrimSpace(fi.Description)
	if summary == "" && fi.Content != "" {
		summary = strings.TrimSpace(fi.Content)
	}

	return &Item{
		SourceURL:     link,
		Title:         title,
		Summary:       summary,
		PublishedAt:   published,
		SourceWebsite: hostOf(link),
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
