// Package score computes the deterministic 0-100 quality score that gates
// automatic publishing. The same inputs always produce the same score; the
// score is never assigned by hand.
package score

import (
	"net/url"
	"strings"
	"time"
)

// credibleDomains are sources that earn the full credibility component.
var credibleDomains = []string{
	"nasa.gov",
	"noaa.gov",
	"nationalgeographic.com",
	"bbc.com",
	"bbc.co.uk",
	"reuters.com",
	"apnews.com",
	"smithsonianmag.com",
	"scientificamerican.com",
	"nature.com",
	"newscientist.com",
}

// Input holds the record fields the scorer inspects.
type Input struct {
	Title             string
	Content           string
	Excerpt           string
	Tags              []string
	Keywords          []string
	SourcePublishDate *time.Time
	SourceWebsite     string
	Now               time.Time
}

// Score computes the quality score. Each component is capped; the total is
// capped at 100.
func Score(in Input) int {
	total := contentPoints(len(in.Content)) +
		titlePoints(len(in.Title)) +
		excerptPoints(len(in.Excerpt)) +
		tagPoints(len(in.Tags)) +
		keywordPoints(len(in.Keywords)) +
		freshnessPoints(in.SourcePublishDate, in.Now) +
		credibilityPoints(in.SourceWebsite)

	if total > 100 {
		total = 100
	}
	return total
}

func contentPoints(n int) int {
	switch {
	case n >= 500:
		return 20
	case n >= 300:
		return 15
	case n >= 200:
		return 10
	case n >= 100:
		return 5
	}
	return 0
}

func titlePoints(n int) int {
	switch {
	case n >= 30 && n <= 60:
		return 15
	case n >= 20 && n <= 80:
		return 10
	case n >= 10:
		return 5
	}
	return 0
}

func excerptPoints(n int) int {
	switch {
	case n >= 100 && n <= 200:
		return 15
	case n >= 50 && n <= 250:
		return 10
	case n >= 20:
		return 5
	}
	return 0
}

func tagPoints(n int) int {
	switch {
	case n >= 3 && n <= 7:
		return 10
	case n >= 2:
		return 7
	case n >= 1:
		return 3
	}
	return 0
}

func keywordPoints(n int) int {
	switch {
	case n >= 5:
		return 10
	case n >= 3:
		return 7
	case n >= 1:
		return 3
	}
	return 0
}

func freshnessPoints(published *time.Time, now time.Time) int {
	// Unknown publish dates are treated as 30 days old.
	days := 30.0
	if published != nil {
		days = now.Sub(*published).Hours() / 24
	}
	switch {
	case days <= 1:
		return 15
	case days <= 3:
		return 12
	case days <= 7:
		return 8
	case days <= 14:
		return 5
	}
	return 0
}

func credibilityPoints(website string) int {
	host := normalizeHost(website)
	if host == "" {
		return 3
	}
	for _, d := range credibleDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return 15
		}
	}
	switch {
	case strings.HasSuffix(host, ".edu"), strings.HasSuffix(host, ".gov"):
		return 12
	case strings.HasSuffix(host, ".org"):
		return 8
	}
	return 3
}

func normalizeHost(website string) string {
	host := strings.ToLower(strings.TrimSpace(website))
	if host == "" {
		return ""
	}
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	host = strings.TrimPrefix(host, "www.")
	return host
}
