package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	"reelsmith/internal/captions"
	"reelsmith/internal/services"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service provides WhisperX transcription.
type Service struct {
	cfg           Config
	commandRunner CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Binary == "" {
		cfg.Binary = UVXCommand
	}
	return &Service{cfg: cfg, commandRunner: runCommand}
}

// WithCommandRunner sets a custom command runner.
func (s *Service) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		s.commandRunner = runner
	}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 defaults torch.load to weights_only, which breaks WhisperX checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe runs WhisperX on source and returns the path of the JSON
// transcript written to outputDir.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string) (string, error) {
	if source == "" {
		return "", services.Wrap(services.ErrValidation, "render", "transcribe", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrIO, "render", "transcribe", "ensure output dir", err)
	}
	if err := s.commandRunner(ctx, s.cfg.Binary, s.buildArgs(source, outputDir)...); err != nil {
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrTimeout, "render", "transcribe", "whisperx interrupted", err)
		}
		return "", services.Wrap(services.ErrExternalTool, "render", "transcribe", "whisperx failed", err)
	}
	jsonPath := filepath.Join(outputDir, strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))+".json")
	if _, err := os.Stat(jsonPath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "transcribe", "whisperx produced no transcript", err)
	}
	return jsonPath, nil
}

func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)
	if s.cfg.CUDAEnabled {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", s.cfg.Model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	)
	if lang := isoLanguage(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// isoLanguage reduces a tag such as "en-us" to the two letter code WhisperX
// expects.
func isoLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	tag, err := language.Parse(value)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

// Word is a single word with timing from WhisperX output. Start and End are
// absent for tokens the aligner could not place (often digits).
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// Segment is a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type payload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "render", "load transcript", jsonPath, err)
	}
	var parsed payload
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, services.Wrap(services.ErrFormat, "render", "load transcript", "parse whisperx json", err)
	}
	return parsed.Segments, nil
}

// CaptionSegments converts WhisperX segments into caption word timings.
// Unaligned words borrow the previous word's end (or the segment start) so
// they still appear on screen.
func CaptionSegments(segments []Segment) []captions.Segment {
	out := make([]captions.Segment, 0, len(segments))
	for _, seg := range segments {
		cursor := seg.Start
		words := make([]captions.Word, 0, len(seg.Words))
		for _, w := range seg.Words {
			start, end := cursor, cursor
			if w.Start != nil {
				start = *w.Start
			}
			if w.End != nil {
				end = *w.End
			}
			if end < start {
				end = start
			}
			cursor = end
			words = append(words, captions.Word{
				Text:  w.Word,
				Start: captions.SecondsToDuration(start),
				End:   captions.SecondsToDuration(end),
			})
		}
		if len(words) == 0 && strings.TrimSpace(seg.Text) != "" {
			words = append(words, captions.Word{
				Text:  strings.TrimSpace(seg.Text),
				Start: captions.SecondsToDuration(seg.Start),
				End:   captions.SecondsToDuration(seg.End),
			})
		}
		out = append(out, captions.Segment{Words: words})
	}
	return out
}

// Duration returns the end of the last segment.
func Duration(segments []Segment) time.Duration {
	if len(segments) == 0 {
		return 0
	}
	return captions.SecondsToDuration(segments[len(segments)-1].End)
}
