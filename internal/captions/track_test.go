package captions_test

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/services"
)

const assHeader = `[Script Info]
Title: Styled Subtitles
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Segoe UI Emoji,150,&H00FFFFFF,&H64000000,-1,0,0,0,100,100,0,0,1,15,1,5,150,150,200,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestBuildScenarioShiftsAllButFirstStart(t *testing.T) {
	cues := []captions.Cue{
		{Start: 0, End: ms(1200), Text: "Hello"},
		{Start: ms(1200), End: ms(2000), Text: "World"},
	}
	track, err := captions.Build(cues, captions.Options{Delay: 0.417})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := assHeader +
		"Dialogue: 0,00:00:00.00,00:00:00.78,Default,,0,0,0,,Hello\n" +
		"Dialogue: 0,00:00:00.78,00:00:01.58,Default,,0,0,0,,World\n"
	if got := string(captions.Render(track)); got != want {
		t.Fatalf("unexpected document:\n%s", got)
	}
}

func TestBuildClampsUnderflowToZero(t *testing.T) {
	cues := []captions.Cue{
		{Start: 0, End: ms(100), Text: "Hi"},
		{Start: ms(100), End: ms(900), Text: "there"},
	}
	track, err := captions.Build(cues, captions.Options{Delay: 0.417})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	lines := track.Lines()
	if lines[1].Start != 0 {
		t.Fatalf("expected clamped start, got %v", lines[1].Start)
	}
	if got := captions.FormatTimestamp(lines[1].Start); got != "00:00:00.00" {
		t.Fatalf("rendered start = %q", got)
	}
	if lines[0].End != 0 || lines[1].End != ms(483) {
		t.Fatalf("unexpected ends: %v, %v", lines[0].End, lines[1].End)
	}
}

func TestBuildFirstCueKeepsStartAndNeverInverts(t *testing.T) {
	cues := []captions.Cue{{Start: ms(500), End: ms(600), Text: "short"}}
	track, err := captions.Build(cues, captions.Options{Delay: 0.417})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	line := track.Lines()[0]
	if line.Start != ms(500) {
		t.Fatalf("first start shifted: %v", line.Start)
	}
	if line.End < line.Start {
		t.Fatalf("end %v precedes start %v", line.End, line.Start)
	}
}

func TestBuildConvertsNewlinesBeforeCensoring(t *testing.T) {
	cues := []captions.Cue{{Start: 0, End: time.Second, Text: "damn\nit\r\nFOO"}}
	track, err := captions.Build(cues, captions.Options{
		Rules: []captions.Rule{
			{Pattern: `damn\\Nit`, Replacement: "darn it"},
			{Pattern: "foo", Replacement: "bar"},
		},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := track.Lines()[0].Text; got != `darn it\Nbar` {
		t.Fatalf("text = %q", got)
	}
}

func TestBuildScenarioCensorsText(t *testing.T) {
	cues := []captions.Cue{{Start: 0, End: time.Second, Text: "Damn it"}}
	track, err := captions.Build(cues, captions.Options{
		Delay: 0.417,
		Rules: []captions.Rule{{Pattern: "damn", Replacement: "****"}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := track.Lines()[0].Text; got != "**** it" {
		t.Fatalf("text = %q", got)
	}
}

func TestBuildEmptyCueListRendersHeaderOnly(t *testing.T) {
	track, err := captions.Build(nil, captions.Options{Delay: 0.417})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if track.Len() != 0 {
		t.Fatalf("Len = %d", track.Len())
	}
	if got := string(captions.Render(track)); got != assHeader {
		t.Fatalf("unexpected document:\n%s", got)
	}
}

func TestBuildRejectsBadConfiguration(t *testing.T) {
	cues := []captions.Cue{{Start: 0, End: time.Second, Text: "x"}}
	tests := []struct {
		name string
		opts captions.Options
	}{
		{"negative delay", captions.Options{Delay: -0.1}},
		{"nan delay", captions.Options{Delay: math.NaN()}},
		{"oversized delay", captions.Options{Delay: captions.MaxDelay + 0.5}},
		{"invalid rule", captions.Options{Rules: []captions.Rule{{Pattern: "[", Replacement: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := captions.Build(cues, tt.opts)
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestBuildRejectsInvertedCue(t *testing.T) {
	cues := []captions.Cue{
		{Start: 0, End: time.Second, Text: "ok"},
		{Start: 2 * time.Second, End: time.Second, Text: "inverted"},
	}
	_, err := captions.Build(cues, captions.Options{Delay: 0.2})
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestBuildInvariantsHoldForRandomTracks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		delay := float64(rng.Intn(2000)) / 1000
		var (
			cues   []captions.Cue
			cursor time.Duration
		)
		for i := 0; i < rng.Intn(12); i++ {
			cursor += ms(rng.Intn(400))
			end := cursor + ms(rng.Intn(1500))
			cues = append(cues, captions.Cue{Start: cursor, End: end, Text: "word"})
			cursor = end
		}

		track, err := captions.Build(cues, captions.Options{Delay: delay})
		if err != nil {
			t.Fatalf("round %d: Build failed: %v", round, err)
		}
		lines := track.Lines()
		if len(lines) != len(cues) {
			t.Fatalf("round %d: %d lines for %d cues", round, len(lines), len(cues))
		}
		for i, line := range lines {
			wantStart := captions.Shift(cues[i].Start, -delay)
			if i == 0 {
				wantStart = cues[i].Start
			}
			if line.Start != wantStart {
				t.Fatalf("round %d cue %d: start %v, want %v", round, i, line.Start, wantStart)
			}
			wantEnd := max(captions.Shift(cues[i].End, -delay), wantStart)
			if line.End != wantEnd {
				t.Fatalf("round %d cue %d: end %v, want %v", round, i, line.End, wantEnd)
			}
			if line.Start < 0 || line.End < line.Start {
				t.Fatalf("round %d cue %d: invalid line %+v", round, i, line)
			}
		}
	}
}

func TestTrackLinesReturnsCopy(t *testing.T) {
	track, err := captions.Build([]captions.Cue{{Start: 0, End: time.Second, Text: "a"}}, captions.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	lines := track.Lines()
	lines[0].Text = "mutated"
	if track.Lines()[0].Text != "a" {
		t.Fatal("track mutated through Lines")
	}
}

func TestBuildUsesCustomStyle(t *testing.T) {
	style := captions.DefaultStyle()
	style.Name = "Reel"
	style.Fontsize = 120
	track, err := captions.Build([]captions.Cue{{Start: 0, End: time.Second, Text: "a"}}, captions.Options{Style: &style})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	doc := string(captions.Render(track))
	if !strings.Contains(doc, "Style: Reel,Segoe UI Emoji,120,") {
		t.Fatalf("style line missing:\n%s", doc)
	}
	if !strings.Contains(doc, "Dialogue: 0,00:00:00.00,00:00:01.00,Reel,,0,0,0,,a\n") {
		t.Fatalf("dialogue missing style reference:\n%s", doc)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	track, err := captions.Build([]captions.Cue{{Start: 0, End: time.Second, Text: "Hello"}}, captions.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	path := filepath.Join(dir, "subs", "ABC.ass")
	if err := captions.WriteFile(path, track); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "[Script Info]\n") || !strings.HasSuffix(string(data), ",,Hello\n") {
		t.Fatalf("unexpected file:\n%s", data)
	}

	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := captions.WriteFile(filepath.Join(blocker, "x.ass"), track); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
	if err := captions.WriteFile(" ", track); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error for empty path, got %v", err)
	}
}

func TestBuildFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "narration.vtt")
	dst := filepath.Join(dir, "narration.ass")
	vtt := "WEBVTT\n\n00:00.000 --> 00:01.200\nHello\n\n00:01.200 --> 00:02.000\nWorld\n"
	if err := os.WriteFile(src, []byte(vtt), 0o644); err != nil {
		t.Fatal(err)
	}
	track, err := captions.BuildFile(src, dst, captions.Options{Delay: 0.417})
	if err != nil {
		t.Fatalf("BuildFile failed: %v", err)
	}
	if track.Len() != 2 {
		t.Fatalf("Len = %d", track.Len())
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Dialogue: 0,00:00:00.78,00:00:01.58,Default,,0,0,0,,World\n") {
		t.Fatalf("unexpected document:\n%s", data)
	}
}

func TestBuildFileLeavesNoOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.vtt")
	dst := filepath.Join(dir, "broken.ass")
	if err := os.WriteFile(src, []byte("WEBVTT\n\n00:00.000 --> nope\nHello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := captions.BuildFile(src, dst, captions.Options{}); !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err = %v", err)
	}

	if _, err := captions.BuildFile(filepath.Join(dir, "missing.vtt"), dst, captions.Options{}); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}
