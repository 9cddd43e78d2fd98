package score

import (
	"strings"
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func fullInput(now time.Time) Input {
	return Input{
		Title:             strings.Repeat("t", 45),
		Content:           strings.Repeat("c", 650),
		Excerpt:           strings.Repeat("e", 150),
		Tags:              []string{"a", "b", "c", "d", "e"},
		Keywords:          []string{"k1", "k2", "k3", "k4", "k5", "k6"},
		SourcePublishDate: timePtr(now.Add(-2 * time.Hour)),
		SourceWebsite:     "nasa.gov",
		Now:               now,
	}
}

func TestScorePerfect(t *testing.T) {
	now := time.Now()
	if got := Score(fullInput(now)); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
}

func TestScoreStaleObscureSource(t *testing.T) {
	now := time.Now()
	in := fullInput(now)
	in.SourceWebsite = "randomblog.net"
	in.SourcePublishDate = timePtr(now.AddDate(0, 0, -20))

	// Loses freshness entirely and drops to the baseline credibility points.
	if got := Score(in); got != 73 {
		t.Errorf("expected 73, got %d", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	in := fullInput(now)
	first := Score(in)
	for i := 0; i < 5; i++ {
		if got := Score(in); got != first {
			t.Fatalf("score changed between calls: %d then %d", first, got)
		}
	}
}

func TestScoreEmptyInput(t *testing.T) {
	// Unknown publish date counts as 30 days old; empty website gets the
	// baseline 3 credibility points.
	if got := Score(Input{Now: time.Now()}); got != 3 {
		t.Errorf("expected 3 for empty input, got %d", got)
	}
}

func TestContentPoints(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{650, 20}, {500, 20}, {350, 15}, {250, 10}, {120, 5}, {50, 0},
	}
	for _, c := range cases {
		if got := contentPoints(c.n); got != c.want {
			t.Errorf("contentPoints(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestTitlePoints(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{45, 15}, {30, 15}, {60, 15}, {25, 10}, {70, 10}, {12, 5}, {5, 0}, {90, 0},
	}
	for _, c := range cases {
		if got := titlePoints(c.n); got != c.want {
			t.Errorf("titlePoints(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestExcerptPoints(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{150, 15}, {100, 15}, {200, 15}, {60, 10}, {240, 10}, {30, 5}, {10, 0}, {300, 0},
	}
	for _, c := range cases {
		if got := excerptPoints(c.n); got != c.want {
			t.Errorf("excerptPoints(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestFreshnessPoints(t *testing.T) {
	now := time.Now()
	cases := []struct {
		age  time.Duration
		want int
	}{
		{12 * time.Hour, 15},
		{2 * 24 * time.Hour, 12},
		{5 * 24 * time.Hour, 8},
		{10 * 24 * time.Hour, 5},
		{20 * 24 * time.Hour, 0},
	}
	for _, c := range cases {
		pub := now.Add(-c.age)
		if got := freshnessPoints(&pub, now); got != c.want {
			t.Errorf("freshnessPoints(age %v) = %d, want %d", c.age, got, c.want)
		}
	}
	if got := freshnessPoints(nil, now); got != 0 {
		t.Errorf("freshnessPoints(nil) = %d, want 0", got)
	}
}

func TestCredibilityPoints(t *testing.T) {
	cases := []struct {
		website string
		want    int
	}{
		{"nasa.gov", 15},
		{"https://www.nasa.gov/news", 15},
		{"mars.nasa.gov", 15},
		{"example.edu", 12},
		{"cityhall.gov", 12},
		{"wildlife.org", 8},
		{"randomblog.net", 3},
		{"", 3},
	}
	for _, c := range cases {
		if got := credibilityPoints(c.website); got != c.want {
			t.Errorf("credibilityPoints(%q) = %d, want %d", c.website, got, c.want)
		}
	}
}
