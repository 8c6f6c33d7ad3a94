package captions

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"reelsmith/internal/services"
)

var (
	vttTagPattern = regexp.MustCompile(`</?([a-zA-Z]*)[^>]*>`)
	vttMarkStyles = map[string]MarkStyle{"u": MarkUnderline, "b": MarkBold, "i": MarkItalic}
)

// ParseVTT reads WebVTT content into cues. Cue text is stripped of markup;
// underline, bold and italic spans are kept as Marks.
func ParseVTT(content string) ([]Cue, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	blocks := splitBlocks(content)
	if len(blocks) == 0 || !isVTTHeader(blocks[0][0]) {
		return nil, services.Wrap(services.ErrFormat, "captions", "parse vtt", "missing WEBVTT header", nil)
	}

	var cues []Cue
	for _, block := range blocks[1:] {
		switch first := block[0]; {
		case strings.HasPrefix(first, "NOTE"),
			strings.HasPrefix(first, "STYLE"),
			strings.HasPrefix(first, "REGION"):
			continue
		}

		timingIdx := -1
		for i := 0; i < len(block) && i < 2; i++ {
			if strings.Contains(block[i], "-->") {
				timingIdx = i
				break
			}
		}
		if timingIdx < 0 {
			return nil, services.Wrap(services.ErrFormat, "captions", "parse vtt",
				fmt.Sprintf("cue %d has no timing line", len(cues)+1), nil)
		}
		start, end, err := parseTimingLine(block[timingIdx])
		if err != nil {
			return nil, err
		}
		text, marks := stripMarkup(strings.Join(block[timingIdx+1:], "\n"))
		cues = append(cues, Cue{Start: start, End: end, Text: text, Marks: marks})
	}
	return cues, nil
}

func isVTTHeader(line string) bool {
	if !strings.HasPrefix(line, "WEBVTT") {
		return false
	}
	rest := strings.TrimPrefix(line, "WEBVTT")
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func splitBlocks(content string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func parseTimingLine(line string) (time.Duration, time.Duration, error) {
	left, right, _ := strings.Cut(line, "-->")
	rightFields := strings.Fields(right)
	if len(rightFields) == 0 {
		return 0, 0, services.Wrap(services.ErrFormat, "captions", "parse vtt",
			fmt.Sprintf("timing line %q has no end time", line), nil)
	}
	start, err := ParseTimestamp(normalizeVTTTimestamp(left))
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(normalizeVTTTimestamp(rightFields[0]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// normalizeVTTTimestamp widens MM:SS.mmm to HH:MM:SS.mmm.
func normalizeVTTTimestamp(value string) string {
	value = strings.TrimSpace(value)
	if strings.Count(value, ":") == 1 {
		return "00:" + value
	}
	return value
}

// stripMarkup removes cue tags and entities. Spans of supported tags are
// returned as marks over the plain text; an unclosed span runs to the end.
func stripMarkup(raw string) (string, []Mark) {
	var (
		b     strings.Builder
		marks []Mark
		open  = map[MarkStyle][]int{}
	)
	last := 0
	for _, loc := range vttTagPattern.FindAllStringSubmatchIndex(raw, -1) {
		b.WriteString(html.UnescapeString(raw[last:loc[0]]))
		last = loc[1]

		style, ok := vttMarkStyles[strings.ToLower(raw[loc[2]:loc[3]])]
		if !ok {
			continue
		}
		if raw[loc[0]+1] != '/' {
			open[style] = append(open[style], b.Len())
			continue
		}
		starts := open[style]
		if len(starts) == 0 {
			continue
		}
		start := starts[len(starts)-1]
		open[style] = starts[:len(starts)-1]
		if b.Len() > start {
			marks = append(marks, Mark{Start: start, End: b.Len(), Style: style})
		}
	}
	b.WriteString(html.UnescapeString(raw[last:]))

	for _, style := range []MarkStyle{MarkUnderline, MarkBold, MarkItalic} {
		for _, start := range open[style] {
			if b.Len() > start {
				marks = append(marks, Mark{Start: start, End: b.Len(), Style: style})
			}
		}
	}
	return b.String(), marks
}
