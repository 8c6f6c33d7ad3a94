package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"reelsmith/internal/services"
)

const sampleTranscript = `{"segments":[
 {"text":" I lost 20 dollars.","start":0.5,"end":2.0,"words":[
  {"word":"I","start":0.5,"end":0.7},
  {"word":"lost","start":0.7,"end":1.0},
  {"word":"20"},
  {"word":"dollars.","start":1.2,"end":2.0}]},
 {"text":" Oops.","start":2.5,"end":3.1,"words":[]}
]}`

func TestTranscribeBuildsArgsAndReturnsJSONPath(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "ABC.wav")
	var gotName string
	var gotArgs []string

	svc := NewService(Config{Model: "large-v3-turbo", CUDAEnabled: true, Language: "en-us"})
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return os.WriteFile(filepath.Join(dir, "ABC.json"), []byte(sampleTranscript), 0o644)
	})

	jsonPath, err := svc.Transcribe(context.Background(), source, dir)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if jsonPath != filepath.Join(dir, "ABC.json") {
		t.Fatalf("unexpected json path %q", jsonPath)
	}
	if gotName != UVXCommand {
		t.Fatalf("expected uvx, got %q", gotName)
	}
	for _, want := range []string{"whisperx", source, "--language", "en", "--device", CUDADevice, "--output_format", "json"} {
		if !slices.Contains(gotArgs, want) {
			t.Fatalf("args missing %q: %v", want, gotArgs)
		}
	}
}

func TestTranscribeFailureIsExternalToolError(t *testing.T) {
	svc := NewService(Config{})
	svc.WithCommandRunner(func(context.Context, string, ...string) error { return errors.New("boom") })
	_, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "a.wav"), "")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	svc := NewService(Config{})
	svc.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	_, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "a.wav"), "")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestCaptionSegmentsFillsUnalignedWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	if err := os.WriteFile(path, []byte(sampleTranscript), 0o644); err != nil {
		t.Fatal(err)
	}
	segments, err := LoadSegments(path)
	if err != nil {
		t.Fatalf("LoadSegments: %v", err)
	}
	got := CaptionSegments(segments)
	if len(got) != 2 || len(got[0].Words) != 4 {
		t.Fatalf("unexpected segments: %+v", got)
	}
	digits := got[0].Words[2]
	if digits.Start != time.Second || digits.End != time.Second {
		t.Fatalf("expected unaligned word at previous end, got %+v", digits)
	}
	fallback := got[1].Words
	if len(fallback) != 1 || fallback[0].Text != "Oops." || fallback[0].Start != 2500*time.Millisecond {
		t.Fatalf("expected segment text fallback, got %+v", fallback)
	}
	if Duration(segments) != 3100*time.Millisecond {
		t.Fatalf("unexpected duration %v", Duration(segments))
	}
}

func TestLoadSegmentsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSegments(path); !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestISOLanguage(t *testing.T) {
	for input, want := range map[string]string{"en-us": "en", "EN": "en", "": "", "???": ""} {
		if got := isoLanguage(input); got != want {
			t.Errorf("isoLanguage(%q) = %q, want %q", input, got, want)
		}
	}
}
