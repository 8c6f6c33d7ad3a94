package captions

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"reelsmith/internal/services"
)

// MarkStyle is an inline ASS override toggled around part of a line.
type MarkStyle string

const (
	MarkUnderline MarkStyle = "u"
	MarkBold      MarkStyle = "b"
	MarkItalic    MarkStyle = "i"
)

// Mark styles Text[Start:End] of a cue or line. Offsets are bytes.
type Mark struct {
	Start int
	End   int
	Style MarkStyle
}

var newlinePattern = regexp.MustCompile(`\r?\n`)

func validateMarks(text string, marks []Mark) error {
	for _, m := range marks {
		switch {
		case m.Start < 0 || m.End > len(text) || m.Start > m.End:
			return fmt.Errorf("mark %d-%d outside text of %d bytes", m.Start, m.End, len(text))
		case !utf8.RuneStart(byteAt(text, m.Start)) || !utf8.RuneStart(byteAt(text, m.End)):
			return fmt.Errorf("mark %d-%d splits a character", m.Start, m.End)
		case m.Style != MarkUnderline && m.Style != MarkBold && m.Style != MarkItalic:
			return fmt.Errorf("unknown mark style %q", m.Style)
		}
	}
	return nil
}

func byteAt(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

// replaceTracked replaces every match of re with the literal repl and moves
// marks along with the text they cover. A mark touching a match grows to
// cover the whole replacement.
func replaceTracked(text string, re *regexp.Regexp, repl string, marks []Mark) (string, []Mark) {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, marks
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	b.WriteString(text[last:])

	if len(marks) == 0 {
		return b.String(), marks
	}
	moved := make([]Mark, 0, len(marks))
	for _, mark := range marks {
		start := remapOffset(mark.Start, matches, len(repl), false)
		end := remapOffset(mark.End, matches, len(repl), true)
		if end > start {
			moved = append(moved, Mark{Start: start, End: end, Style: mark.Style})
		}
	}
	return b.String(), moved
}

func remapOffset(pos int, matches [][]int, replLen int, isEnd bool) int {
	offset := 0
	for _, m := range matches {
		if m[1] <= pos {
			offset += replLen - (m[1] - m[0])
			continue
		}
		if m[0] < pos {
			if isEnd {
				return m[0] + offset + replLen
			}
			return m[0] + offset
		}
		break
	}
	return pos + offset
}

type markEdge struct {
	pos   int
	close bool
	tag   string
}

// applyMarks inserts ASS override tags for marks into text.
func applyMarks(text string, marks []Mark) string {
	if len(marks) == 0 {
		return text
	}
	edges := make([]markEdge, 0, len(marks)*2)
	for _, m := range marks {
		edges = append(edges,
			markEdge{pos: m.Start, tag: `{\` + string(m.Style) + `1}`},
			markEdge{pos: m.End, close: true, tag: `{\` + string(m.Style) + `0}`},
		)
	}
	// Closing tags sort ahead of opening tags at the same offset.
	slices.SortStableFunc(edges, func(a, b markEdge) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}
		switch {
		case a.close && !b.close:
			return -1
		case !a.close && b.close:
			return 1
		}
		return 0
	})

	var b strings.Builder
	last := 0
	for _, e := range edges {
		b.WriteString(text[last:e.pos])
		b.WriteString(e.tag)
		last = e.pos
	}
	b.WriteString(text[last:])
	return b.String()
}

func copyMarks(marks []Mark) []Mark {
	if marks == nil {
		return nil
	}
	return slices.Clone(marks)
}

func invalidMarks(i int, err error) error {
	return services.Wrap(services.ErrFormat, "captions", "build track", fmt.Sprintf("cue %d", i+1), err)
}
