package captions

import "time"

// Cue is one timed caption entry. End must not precede Start.
type Cue struct {
	Start time.Duration
	End   time.Duration
	// Text is plain; styling lives in Marks so censoring never sees tags.
	Text  string
	Marks []Mark
}

// Rule replaces every case-insensitive match of Pattern with the literal
// Replacement.
type Rule struct {
	Pattern     string `toml:"pattern" json:"pattern"`
	Replacement string `toml:"replacement" json:"replacement"`
}

// Line is one rendered dialogue event after shifting and censoring.
type Line struct {
	Start time.Duration
	End   time.Duration
	Text  string
	Marks []Mark
}

// ASS returns the line text with its marks rendered as override tags.
func (l Line) ASS() string {
	return applyMarks(l.Text, l.Marks)
}
