package captions

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/services"
)

// Canvas size the track is authored for.
const (
	PlayResX = 1080
	PlayResY = 1920
)

const (
	styleFormat = "Format: Name, Fontname, Fontsize, PrimaryColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding"
	eventFormat = "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"
)

// Style is an ASS V4+ style definition.
type Style struct {
	Name          string
	Fontname      string
	Fontsize      int
	PrimaryColour string
	BackColour    string
	Bold          int
	Italic        int
	Underline     int
	StrikeOut     int
	ScaleX        int
	ScaleY        int
	Spacing       int
	Angle         int
	BorderStyle   int
	Outline       int
	Shadow        int
	Alignment     int
	MarginL       int
	MarginR       int
	MarginV       int
	Encoding      int
}

// DefaultStyle is large white centred text with a heavy outline, sized for
// a vertical 1080x1920 frame.
func DefaultStyle() Style {
	return Style{
		Name:          "Default",
		Fontname:      "Segoe UI Emoji",
		Fontsize:      150,
		PrimaryColour: "&H00FFFFFF",
		BackColour:    "&H64000000",
		Bold:          -1,
		ScaleX:        100,
		ScaleY:        100,
		BorderStyle:   1,
		Outline:       15,
		Shadow:        1,
		Alignment:     5,
		MarginL:       150,
		MarginR:       150,
		MarginV:       200,
		Encoding:      1,
	}
}

// Line renders the style as a "Style:" entry.
func (s Style) Line() string {
	return fmt.Sprintf("Style: %s,%s,%d,%s,%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d",
		s.Name, s.Fontname, s.Fontsize, s.PrimaryColour, s.BackColour,
		s.Bold, s.Italic, s.Underline, s.StrikeOut,
		s.ScaleX, s.ScaleY, s.Spacing, s.Angle,
		s.BorderStyle, s.Outline, s.Shadow, s.Alignment,
		s.MarginL, s.MarginR, s.MarginV, s.Encoding)
}

// WriteTo writes the track as an ASS document.
func (t *Track) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	style := t.Style()
	b.WriteString("[Script Info]\n")
	b.WriteString("Title: Styled Subtitles\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", PlayResX)
	fmt.Fprintf(&b, "PlayResY: %d\n", PlayResY)
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString(styleFormat + "\n")
	b.WriteString(style.Line() + "\n")
	b.WriteString("\n[Events]\n")
	b.WriteString(eventFormat + "\n")
	for _, line := range t.Lines() {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			FormatTimestamp(line.Start), FormatTimestamp(line.End), style.Name, line.ASS())
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Render returns the track as an ASS document.
func Render(t *Track) []byte {
	var buf bytes.Buffer
	_, _ = t.WriteTo(&buf)
	return buf.Bytes()
}

// WriteFile renders the track and atomically replaces path with it.
func WriteFile(path string, t *Track) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrIO, "captions", "write track", "destination path is empty", nil)
	}
	if err := fileutil.WriteFileAtomic(path, Render(t), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "captions", "write track", path, err)
	}
	return nil
}

// BuildFile reads a WebVTT transcript, builds the track, and writes it to
// dst. Nothing is written when any step fails.
func BuildFile(src, dst string, opts Options) (*Track, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "captions", "read transcript", src, err)
	}
	cues, err := ParseVTT(string(data))
	if err != nil {
		return nil, err
	}
	track, err := Build(cues, opts)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(dst, track); err != nil {
		return nil, err
	}
	return track, nil
}
