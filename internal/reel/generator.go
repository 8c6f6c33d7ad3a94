package reel

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/compose"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/services"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/services/whisperx"
	"reelsmith/internal/store"
	"reelsmith/internal/textutil"
)

// Narrator synthesizes speech.
type Narrator interface {
	Synthesize(ctx context.Context, text string, gender tts.Gender, dest string) error
}

// Transcriber produces a word-timed JSON transcript and returns its path.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string) (string, error)
}

// Prober inspects media files.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Composer renders the final video.
type Composer interface {
	Compose(ctx context.Context, job compose.Job) error
}

// GenderDetector guesses the narrator's gender for stories scraped without one.
type GenderDetector interface {
	DetectGender(ctx context.Context, text string) (tts.Gender, error)
}

// Deps are the external collaborators of a Generator. Gender may be nil.
type Deps struct {
	Narrator    Narrator
	Transcriber Transcriber
	Prober      Prober
	Composer    Composer
	Gender      GenderDetector
}

// Options controls rendering.
type Options struct {
	Layout         config.Layout
	BackgroundGlob string
	Padding        time.Duration
	Captions       captions.Options
	Chunking       captions.ChunkOptions
	Timeout        time.Duration
	Limit          int
	SortBy         string
}

// OptionsFromConfig derives rendering options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Layout:         cfg.Layout(),
		BackgroundGlob: cfg.Paths.BackgroundGlob,
		Padding:        captions.SecondsToDuration(cfg.Video.NarrationPadding),
		Captions:       cfg.CaptionOptions(),
		Chunking:       cfg.ChunkOptions(),
		Timeout:        time.Duration(cfg.Video.RenderTimeoutSecs) * time.Second,
		Limit:          cfg.Video.Limit,
		SortBy:         cfg.Reddit.SortBy,
	}
}

// DepsFromConfig wires the Kokoro, WhisperX, ffprobe, and ffmpeg backends.
func DepsFromConfig(cfg *config.Config, gender GenderDetector) Deps {
	return Deps{
		Narrator: tts.New(tts.Config{
			Binary:      cfg.UVXBinary(),
			Package:     cfg.TTS.Package,
			Language:    cfg.TTS.Language,
			FemaleVoice: cfg.TTS.FemaleVoice,
			MaleVoice:   cfg.TTS.MaleVoice,
			FemaleSpeed: cfg.Video.AudioSpeed.Female,
			MaleSpeed:   cfg.Video.AudioSpeed.Male,
		}),
		Transcriber: whisperx.NewService(whisperx.Config{
			Model:       cfg.Video.WhisperModel,
			CUDAEnabled: cfg.Video.WhisperCUDA,
			Language:    cfg.Video.WhisperLanguage,
			Binary:      cfg.UVXBinary(),
		}),
		Prober: ffprobe.New(cfg.FFprobeBinary()),
		Composer: compose.New(cfg.FFmpegBinary(), compose.Encoding{
			HWAccel:          cfg.Video.HWAccel,
			VideoCodec:       cfg.Video.VideoCodec,
			Preset:           cfg.Video.Preset,
			CQ:               cfg.Video.CQ,
			NarrationVolume:  cfg.Video.NarrationVolume,
			BackgroundVolume: cfg.Video.BackgroundVolume,
		}),
		Gender: gender,
	}
}

// Output describes one rendered reel.
type Output struct {
	StoryID int64
	ReelID  string
	Title   string
	Path    string
}

// Summary counts the outcomes of one Run.
type Summary struct {
	Rendered int
	Failed   int
	Outputs  []Output
}

// Generator renders reels for rewritten stories.
type Generator struct {
	store  *store.Store
	deps   Deps
	opts   Options
	logger *slog.Logger
	rnd    *rand.Rand
}

// New constructs a Generator.
func New(st *store.Store, deps Deps, opts Options, logger *slog.Logger) *Generator {
	return &Generator{
		store:  st,
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "reel"),
	}
}

// WithRand fixes the background selection source, for reproducible renders.
func (g *Generator) WithRand(rnd *rand.Rand) *Generator {
	g.rnd = rnd
	return g
}

// Run renders up to opts.Limit rewritten stories while holding the output
// root lock. Story failures are recorded and do not stop the run.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	lock, err := AcquireLock(g.opts.Layout.LockPath())
	if err != nil {
		return summary, err
	}
	defer lock.Release()

	stories, err := g.store.List(ctx, store.ListOptions{
		Statuses: []store.Status{store.StatusRewritten},
		SortBy:   g.opts.SortBy,
		Limit:    g.opts.Limit,
	})
	if err != nil {
		return summary, services.Wrap(services.ErrIO, "render", "list stories", "load rewritten stories", err)
	}
	for _, story := range stories {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		path, err := g.Generate(ctx, story)
		if err != nil {
			summary.Failed++
			logging.WarnWithContext(g.logger, "reel generation failed", "render_failed",
				logging.Int64(logging.FieldStoryID, story.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run `reelsmith stories retry` after fixing the cause"),
			)
			if markErr := g.store.MarkFailed(ctx, story.ID, services.FailureStatus(err), err.Error()); markErr != nil {
				return summary, markErr
			}
			continue
		}
		summary.Rendered++
		summary.Outputs = append(summary.Outputs, Output{
			StoryID: story.ID,
			ReelID:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Title:   story.Title,
			Path:    path,
		})
	}
	return summary, nil
}

// Generate renders one story and returns the reel path.
func (g *Generator) Generate(ctx context.Context, story *store.Story) (string, error) {
	reelID := story.ReelID
	if reelID == "" {
		reelID = textutil.ReelID(story.Title)
	}
	ctx = services.WithStage(services.WithReelID(services.WithStoryID(ctx, story.ID), reelID), "render")
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, g.logger)
	started := time.Now()

	text := story.NarrationText()
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "render", "narration", "story has no text to narrate", nil)
	}
	gender := g.narratorGender(ctx, story, text)
	layout := g.opts.Layout

	narration := layout.NarrationPath(reelID)
	if err := g.deps.Narrator.Synthesize(ctx, text, gender, narration); err != nil {
		return "", err
	}
	logger.Debug("narration synthesized", logging.String("path", narration), logging.String("gender", string(gender)))

	subtitles, segments, err := g.buildSubtitles(ctx, narration, reelID)
	if err != nil {
		return "", err
	}

	narrationLength, err := g.narrationLength(ctx, narration, segments)
	if err != nil {
		return "", err
	}
	length := narrationLength + g.opts.Padding

	background, err := compose.PickBackground(g.opts.BackgroundGlob, g.rnd)
	if err != nil {
		return "", err
	}
	bgProbe, err := g.deps.Prober.Inspect(ctx, background)
	if err != nil {
		return "", err
	}

	output := layout.ReelPath(reelID)
	job := compose.Job{
		Background:         background,
		BackgroundHasAudio: bgProbe.HasAudio(),
		Narration:          narration,
		Subtitles:          subtitles,
		Output:             output,
		Description:        story.Hashtags,
		Start:              compose.RandomStart(bgProbe.Duration(), length, g.rnd),
		Length:             length,
	}
	if err := g.deps.Composer.Compose(ctx, job); err != nil {
		return "", err
	}

	if layout.PublishDir != "" {
		staged := filepath.Join(layout.PublishDir, filepath.Base(output))
		if err := fileutil.CopyFileVerified(output, staged); err != nil {
			return "", services.Wrap(services.ErrIO, "render", "stage publish", "copy reel to publish dir", err)
		}
	}
	if err := g.store.MarkRendered(ctx, story.ID, output); err != nil {
		return "", fmt.Errorf("mark rendered: %w", err)
	}
	logger.Info("reel rendered",
		logging.String("path", output),
		logging.String("background", filepath.Base(background)),
		logging.Duration("length", length),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return output, nil
}

func (g *Generator) narratorGender(ctx context.Context, story *store.Story, text string) tts.Gender {
	if story.NarratorGender != "" {
		return tts.ParseGender(story.NarratorGender)
	}
	if g.deps.Gender == nil {
		return tts.Male
	}
	gender, err := g.deps.Gender.DetectGender(ctx, text)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "gender detection failed; defaulting to male", "gender_failed", logging.Error(err))
		return tts.Male
	}
	return gender
}

// buildSubtitles transcribes the narration and writes the caption track.
func (g *Generator) buildSubtitles(ctx context.Context, narration, reelID string) (string, []whisperx.Segment, error) {
	layout := g.opts.Layout
	transcript, err := g.deps.Transcriber.Transcribe(ctx, narration, layout.NarrationDir)
	if err != nil {
		return "", nil, err
	}
	segments, err := whisperx.LoadSegments(transcript)
	if err != nil {
		return "", nil, err
	}
	cues := captions.WordCues(whisperx.CaptionSegments(segments), g.opts.Chunking)
	track, err := captions.Build(cues, g.opts.Captions)
	if err != nil {
		return "", nil, err
	}
	path := layout.SubtitlePath(reelID)
	if err := captions.WriteFile(path, track); err != nil {
		return "", nil, err
	}
	return path, segments, nil
}

// narrationLength prefers the container duration and falls back to the last
// transcribed word.
func (g *Generator) narrationLength(ctx context.Context, narration string, segments []whisperx.Segment) (time.Duration, error) {
	probe, err := g.deps.Prober.Inspect(ctx, narration)
	if err != nil {
		return 0, err
	}
	if d := probe.Duration(); d > 0 {
		return d, nil
	}
	if d := whisperx.Duration(segments); d > 0 {
		return d, nil
	}
	return 0, services.Wrap(services.ErrExternalTool, "render", "narration length", "could not determine narration duration", nil)
}
