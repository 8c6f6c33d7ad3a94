package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a story.
type Status string

const (
	StatusScraped   Status = "scraped"
	StatusRewritten Status = "rewritten"
	StatusRendered  Status = "rendered"
	StatusPublished Status = "published"
	StatusSkipped   Status = "skipped"
	StatusReview    Status = "review"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusScraped,
	StatusRewritten,
	StatusRendered,
	StatusPublished,
	StatusSkipped,
	StatusReview,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user supplied value into a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Sort keys accepted by List, mapped to their columns.
var sortColumns = map[string]string{
	"num_comments": "num_comments",
	"score":        "score",
	"created_utc":  "created_utc",
	"length":       "length",
	"id":           "id",
}

// ValidSortKey reports whether key can be used to order stories.
func ValidSortKey(key string) bool {
	_, ok := sortColumns[strings.TrimSpace(key)]
	return ok
}

// Story is one scraped post and everything derived from it.
type Story struct {
	ID             int64
	Subreddit      string
	Title          string
	URL            string
	Body           string
	Contents       string
	Score          int
	NumComments    int
	CreatedUTC     time.Time
	Length         int
	NarratorGender string
	Toxicity       map[string]float64
	Status         Status
	ReelID         string
	Rewritten      string
	Hashtags       string
	ReelPath       string
	MediaID        string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NarrationText returns the best text to narrate for the story.
func (s *Story) NarrationText() string {
	if s == nil {
		return ""
	}
	for _, candidate := range []string{s.Rewritten, s.Contents, s.Body, s.Title} {
		if text := strings.TrimSpace(candidate); text != "" {
			return text
		}
	}
	return ""
}

// ListOptions filters and orders List results.
type ListOptions struct {
	Statuses []Status
	SortBy   string
	Limit    int
}
