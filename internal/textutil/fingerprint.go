package textutil

import (
	"math"
	"regexp"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Fingerprint is a term-frequency vector used to compare story bodies.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no usable tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(norm)}
}

// Tokenize splits text into lowercase tokens of three or more characters.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(lowerCaser.String(text), -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Similarity returns the cosine similarity between two fingerprints, or 0
// when either is empty.
func Similarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	small, large := a, b
	if len(small.tokens) > len(large.tokens) {
		small, large = large, small
	}
	var dot float64
	for token, count := range small.tokens {
		if other, ok := large.tokens[token]; ok {
			dot += count * other
		}
	}
	return dot / (a.norm * b.norm)
}

// IsRepost reports whether text is at least threshold similar to any of the
// known fingerprints.
func IsRepost(known []*Fingerprint, candidate *Fingerprint, threshold float64) bool {
	if candidate == nil || threshold <= 0 {
		return false
	}
	for _, fp := range known {
		if Similarity(fp, candidate) >= threshold {
			return true
		}
	}
	return false
}
