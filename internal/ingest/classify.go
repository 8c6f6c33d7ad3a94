package ingest

import (
	"context"
	"fmt"
	"math"

	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
)

// ToxicityLabels are the scores requested for every post.
var ToxicityLabels = []string{
	"toxicity",
	"severe_toxicity",
	"obscene",
	"threat",
	"insult",
	"identity_attack",
}

const toxicityPrompt = `You moderate user-submitted stories.
Rate the story you are given for each label between 0 and 1 and respond ONLY
with JSON of the form:
{"toxicity": 0.0, "severe_toxicity": 0.0, "obscene": 0.0, "threat": 0.0, "insult": 0.0, "identity_attack": 0.0}`

// ToxicityScorer rates posts through a chat model.
type ToxicityScorer struct {
	llm llm.Completer
}

// NewToxicityScorer returns a scorer backed by completer.
func NewToxicityScorer(completer llm.Completer) *ToxicityScorer {
	return &ToxicityScorer{llm: completer}
}

// Score returns one clamped value per label. Labels the model omits score 0.
func (s *ToxicityScorer) Score(ctx context.Context, text string) (map[string]float64, error) {
	content, err := s.llm.Complete(ctx, llm.Request{
		System:      toxicityPrompt,
		User:        "[START OF STORY]\n" + text + "\n[END OF STORY]",
		Temperature: 0,
		MaxTokens:   128,
		JSON:        true,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scrape", "toxicity", "llm request failed", err)
	}
	var raw map[string]float64
	if err := llm.DecodeJSON(content, &raw); err != nil {
		return nil, services.Wrap(services.ErrFormat, "scrape", "toxicity", fmt.Sprintf("decode scores %q", content), err)
	}
	scores := make(map[string]float64, len(ToxicityLabels))
	for _, label := range ToxicityLabels {
		value := raw[label]
		if math.IsNaN(value) {
			value = 0
		}
		scores[label] = math.Max(0, math.Min(1, value))
	}
	return scores, nil
}
