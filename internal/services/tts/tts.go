// Package tts synthesizes narration audio with the Kokoro text-to-speech
// CLI, launched through uvx so no Python environment has to be managed.
package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/services"
)

// Gender selects the narrator voice.
type Gender string

const (
	Female Gender = "female"
	Male   Gender = "male"
)

// ParseGender normalizes a detector answer; anything but "female" is male.
func ParseGender(value string) Gender {
	if strings.EqualFold(strings.TrimSpace(value), string(Female)) {
		return Female
	}
	return Male
}

// Config describes the Kokoro invocation.
type Config struct {
	Binary      string // uvx
	Package     string // kokoro-tts
	Language    string
	FemaleVoice string
	MaleVoice   string
	FemaleSpeed float64
	MaleSpeed   float64
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Synthesizer produces narration WAV files.
type Synthesizer struct {
	cfg    Config
	runner CommandRunner
}

// New returns a Synthesizer backed by uvx.
func New(cfg Config) *Synthesizer {
	if cfg.Binary == "" {
		cfg.Binary = "uvx"
	}
	if cfg.Package == "" {
		cfg.Package = "kokoro-tts"
	}
	if cfg.FemaleVoice == "" {
		cfg.FemaleVoice = "af_heart"
	}
	if cfg.MaleVoice == "" {
		cfg.MaleVoice = "am_michael"
	}
	return &Synthesizer{cfg: cfg, runner: runCommand}
}

// WithCommandRunner replaces the command runner.
func (s *Synthesizer) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		s.runner = runner
	}
}

// Voice returns the voice and speed used for gender.
func (s *Synthesizer) Voice(gender Gender) (string, float64) {
	voice, speed := s.cfg.MaleVoice, s.cfg.MaleSpeed
	if gender == Female {
		voice, speed = s.cfg.FemaleVoice, s.cfg.FemaleSpeed
	}
	if speed <= 0 {
		speed = 1.0
	}
	return voice, speed
}

// Synthesize writes narration for text to dest (a .wav path). The text is
// staged next to dest so long stories do not hit argument length limits.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, gender Gender, dest string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "render", "tts", "narration text is empty", nil)
	}
	inputPath := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".txt"
	if err := fileutil.WriteFileAtomic(inputPath, []byte(text+"\n"), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "render", "tts", "stage narration text", err)
	}
	defer os.Remove(inputPath)

	voice, speed := s.Voice(gender)
	args := []string{
		s.cfg.Package,
		inputPath,
		dest,
		"--voice", voice,
		"--speed", strconv.FormatFloat(speed, 'f', -1, 64),
		"--format", "wav",
	}
	if s.cfg.Language != "" {
		args = append(args, "--lang", s.cfg.Language)
	}
	if err := s.runner(ctx, s.cfg.Binary, args...); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "render", "tts", "kokoro interrupted", err)
		}
		return services.Wrap(services.ErrExternalTool, "render", "tts", "kokoro failed", err)
	}
	info, err := os.Stat(dest)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "render", "tts", "kokoro produced no audio", err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
