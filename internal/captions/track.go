package captions

import (
	"fmt"
	"math"
	"time"

	"reelsmith/internal/services"
)

// MaxDelay bounds the configured caption delay in seconds.
const MaxDelay = 10.0

// Options configure Build.
type Options struct {
	// Delay is subtracted from every timestamp except the first cue's start.
	Delay float64
	Rules []Rule
	// Style overrides DefaultStyle when non-nil.
	Style *Style
}

// Track is an immutable, fully shifted and censored caption track.
type Track struct {
	lines []Line
	style Style
}

// ValidateDelay reports whether delay is usable as a caption delay.
func ValidateDelay(delay float64) error {
	switch {
	case math.IsNaN(delay) || math.IsInf(delay, 0):
		return services.Wrap(services.ErrConfiguration, "captions", "validate delay",
			"caption delay must be a finite number", nil)
	case delay < 0:
		return services.Wrap(services.ErrConfiguration, "captions", "validate delay",
			fmt.Sprintf("caption delay %.3fs is negative", delay), nil)
	case delay > MaxDelay:
		return services.Wrap(services.ErrConfiguration, "captions", "validate delay",
			fmt.Sprintf("caption delay %.3fs exceeds %.0fs", delay, MaxDelay), nil)
	}
	return nil
}

// Build shifts and censors cues into a Track. Configuration problems are
// reported before any cue is examined; a malformed cue aborts the build.
func Build(cues []Cue, opts Options) (*Track, error) {
	if err := ValidateDelay(opts.Delay); err != nil {
		return nil, err
	}
	censor, err := NewCensor(opts.Rules)
	if err != nil {
		return nil, err
	}
	style := DefaultStyle()
	if opts.Style != nil {
		style = *opts.Style
	}

	delta := -opts.Delay
	lines := make([]Line, 0, len(cues))
	var prevEnd time.Duration
	for i, cue := range cues {
		if cue.Start < 0 || cue.End < 0 {
			return nil, services.Wrap(services.ErrFormat, "captions", "build track",
				fmt.Sprintf("cue %d has a negative timestamp", i+1), nil)
		}
		if cue.End < cue.Start {
			return nil, services.Wrap(services.ErrFormat, "captions", "build track",
				fmt.Sprintf("cue %d ends (%s) before it starts (%s)", i+1, FormatTimestamp(cue.End), FormatTimestamp(cue.Start)), nil)
		}

		var start time.Duration
		switch {
		case i == 0:
			start = cue.Start
		default:
			start = Shift(cue.Start, delta)
			if sameCentisecond(start, prevEnd) {
				// Back-to-back cues take the boundary delta, which currently
				// equals the standard delta.
				start = Shift(cue.Start, boundaryDelta(opts.Delay))
			}
		}
		end := Shift(cue.End, delta)
		if end < start {
			end = start
		}
		prevEnd = end

		if err := validateMarks(cue.Text, cue.Marks); err != nil {
			return nil, invalidMarks(i, err)
		}
		text, marks := replaceTracked(cue.Text, newlinePattern, `\N`, copyMarks(cue.Marks))
		text, marks = censor.applyMarked(text, marks)
		lines = append(lines, Line{Start: start, End: end, Text: text, Marks: marks})
	}
	return &Track{lines: lines, style: style}, nil
}

func boundaryDelta(delay float64) float64 {
	return -delay + 0.00
}

// Len returns the number of dialogue lines.
func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

// Lines returns a copy of the dialogue lines.
func (t *Track) Lines() []Line {
	if t == nil {
		return nil
	}
	out := make([]Line, len(t.lines))
	for i, line := range t.lines {
		line.Marks = copyMarks(line.Marks)
		out[i] = line
	}
	return out
}

// Style returns the track style.
func (t *Track) Style() Style {
	if t == nil {
		return DefaultStyle()
	}
	return t.style
}
