package captions

import (
	"strings"
	"time"
)

// Word is a single transcribed word with its timing.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Segment groups words the transcriber emitted together. Caption lines never
// span segments.
type Segment struct {
	Words []Word
}

// ChunkOptions control how words are grouped into caption lines.
type ChunkOptions struct {
	MaxWordsPerLine int
	// HighlightWords emits one cue per spoken word with that word underlined,
	// plus plain cues covering gaps between words.
	HighlightWords bool
}

// DefaultChunkOptions matches the reel layout: single lines of up to five
// words with the spoken word highlighted.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{MaxWordsPerLine: 5, HighlightWords: true}
}

// WordCues groups word timings into caption cues.
func WordCues(segments []Segment, opts ChunkOptions) []Cue {
	size := opts.MaxWordsPerLine
	if size <= 0 {
		size = DefaultChunkOptions().MaxWordsPerLine
	}

	var cues []Cue
	for _, segment := range segments {
		words := nonEmptyWords(segment.Words)
		for i := 0; i < len(words); i += size {
			chunk := words[i:min(i+size, len(words))]
			cues = append(cues, chunkCues(chunk, opts.HighlightWords)...)
		}
	}
	return cues
}

func nonEmptyWords(words []Word) []Word {
	out := make([]Word, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

func chunkCues(chunk []Word, highlight bool) []Cue {
	tokens := make([]string, len(chunk))
	for i, w := range chunk {
		switch {
		case i == 0:
			tokens[i] = strings.TrimSpace(w.Text)
		case strings.HasPrefix(w.Text, " "):
			tokens[i] = w.Text
		default:
			tokens[i] = " " + w.Text
		}
	}
	plain := strings.Join(tokens, "")
	if !highlight {
		return []Cue{{Start: chunk[0].Start, End: chunk[len(chunk)-1].End, Text: plain}}
	}

	cues := make([]Cue, 0, len(chunk)*2)
	last := chunk[0].Start
	offset := 0
	for i, w := range chunk {
		if w.Start > last {
			cues = append(cues, Cue{Start: last, End: w.Start, Text: plain})
		}
		trimmed := strings.TrimLeft(tokens[i], " ")
		wordStart := offset + len(tokens[i]) - len(trimmed)
		offset += len(tokens[i])

		end := w.End
		if end < w.Start {
			end = w.Start
		}
		cues = append(cues, Cue{
			Start: w.Start,
			End:   end,
			Text:  plain,
			Marks: []Mark{{Start: wordStart, End: wordStart + len(trimmed), Style: MarkUnderline}},
		})
		last = end
	}
	return cues
}
