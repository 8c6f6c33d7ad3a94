package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

var lowerCaser = cases.Lower(language.Und)

// ExtractHashtags returns the unique hashtags found in text, lowercased, in
// first-seen order.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(lowerCaser.String(text), -1)
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, tag := range matches {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// SubredditHashtag turns a subreddit name into a hashtag. Underscores are
// dropped and the original casing is kept.
func SubredditHashtag(subreddit string) string {
	name := strings.TrimSpace(subreddit)
	name = strings.TrimPrefix(name, "r/")
	return "#" + strings.ReplaceAll(name, "_", "")
}

// MergeHashtags appends extra tags after base, skipping duplicates, and keeps
// at most limit tags. A non-positive limit keeps everything.
func MergeHashtags(base, extra []string, limit int) []string {
	merged := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, group := range [][]string{base, extra} {
		for _, tag := range group {
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
