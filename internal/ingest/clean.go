package ingest

import (
	"strings"

	"reelsmith/internal/captions"
)

// editMarkers end the narratable part of a post. Each marker truncates the
// text in turn, so the earliest one present wins.
var editMarkers = []string{
	"Edit: ",
	"EDIT",
	"update",
	"Update",
	"UPDATE",
	"edit",
	"update,",
	"update:",
}

// Clean joins title and body and drops any trailing edit or update section.
func Clean(title, body string) string {
	text := title + "\n" + body
	for _, marker := range editMarkers {
		if before, _, found := strings.Cut(text, marker); found {
			text = before
		}
	}
	return text
}

// Normalizer applies the configured substitution rules to cleaned posts.
type Normalizer struct {
	censor *captions.Censor
}

// NewNormalizer compiles rules with the caption censoring engine.
func NewNormalizer(rules []captions.Rule) (*Normalizer, error) {
	censor, err := captions.NewCensor(rules)
	if err != nil {
		return nil, err
	}
	return &Normalizer{censor: censor}, nil
}

// Contents returns the cleaned and normalized narration text for a post.
func (n *Normalizer) Contents(title, body string) string {
	text := Clean(title, body)
	if n == nil || n.censor == nil {
		return text
	}
	return n.censor.Apply(text)
}
