package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"reelsmith/internal/services"
)

func TestSynthesizePicksVoiceBySpeaker(t *testing.T) {
	tests := []struct {
		gender    Gender
		wantVoice string
		wantSpeed string
	}{
		{Female, "af_heart", "1.1"},
		{Male, "am_michael", "0.95"},
	}
	for _, tt := range tests {
		t.Run(string(tt.gender), func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "ABC.wav")
			synth := New(Config{Language: "en-us", FemaleSpeed: 1.1, MaleSpeed: 0.95})
			var gotArgs []string
			var stagedText string
			synth.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
				if name != "uvx" {
					t.Errorf("unexpected binary %q", name)
				}
				gotArgs = args
				data, err := os.ReadFile(args[1])
				if err != nil {
					return err
				}
				stagedText = string(data)
				return os.WriteFile(args[2], []byte("RIFF"), 0o644)
			})

			if err := synth.Synthesize(context.Background(), "  Hello there.  ", tt.gender, dest); err != nil {
				t.Fatalf("Synthesize returned error: %v", err)
			}
			if stagedText != "Hello there.\n" {
				t.Fatalf("unexpected staged text %q", stagedText)
			}
			idx := slices.Index(gotArgs, "--voice")
			if idx < 0 || gotArgs[idx+1] != tt.wantVoice {
				t.Fatalf("unexpected voice args %v", gotArgs)
			}
			idx = slices.Index(gotArgs, "--speed")
			if idx < 0 || gotArgs[idx+1] != tt.wantSpeed {
				t.Fatalf("unexpected speed args %v", gotArgs)
			}
			if !slices.Contains(gotArgs, "en-us") {
				t.Fatalf("expected language flag: %v", gotArgs)
			}
			if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "ABC.txt")); !os.IsNotExist(err) {
				t.Fatalf("expected staged text to be removed, got %v", err)
			}
		})
	}
}

func TestSynthesizeErrors(t *testing.T) {
	synth := New(Config{})
	if err := synth.Synthesize(context.Background(), "   ", Male, filepath.Join(t.TempDir(), "a.wav")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	synth.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	if err := synth.Synthesize(context.Background(), "text", Male, filepath.Join(t.TempDir(), "a.wav")); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for missing output, got %v", err)
	}
}

func TestParseGender(t *testing.T) {
	for input, want := range map[string]Gender{"female": Female, " FEMALE ": Female, "male": Male, "unsure": Male, "": Male} {
		if got := ParseGender(input); got != want {
			t.Errorf("ParseGender(%q) = %q, want %q", input, got, want)
		}
	}
}
