package reel_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/media/compose"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/reel"
	"reelsmith/internal/services"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/store"
	"reelsmith/internal/testsupport"
)

const transcriptJSON = `{"segments":[{"text":"I found a note","start":0.5,"end":2.0,"words":[
{"word":"I","start":0.5,"end":0.7},
{"word":"found","start":0.7,"end":1.1},
{"word":"a","start":1.1,"end":1.2},
{"word":"note","start":1.2,"end":2.0}]}]}`

type fakeNarrator struct {
	mu      sync.Mutex
	genders []tts.Gender
	texts   []string
	err     error
}

func (f *fakeNarrator) Synthesize(_ context.Context, text string, gender tts.Gender, dest string) error {
	f.mu.Lock()
	f.genders = append(f.genders, gender)
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, source, outputDir string) (string, error) {
	path := filepath.Join(outputDir, strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))+".json")
	return path, os.WriteFile(path, []byte(transcriptJSON), 0o644)
}

type fakeProber struct{}

func (fakeProber) Inspect(_ context.Context, path string) (ffprobe.Result, error) {
	if filepath.Ext(path) == ".wav" {
		return ffprobe.Result{Format: ffprobe.Format{Duration: "20.0"}}, nil
	}
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}},
		Format:  ffprobe.Format{Duration: "300.0"},
	}, nil
}

type fakeComposer struct {
	jobs []compose.Job
}

func (f *fakeComposer) Compose(_ context.Context, job compose.Job) error {
	f.jobs = append(f.jobs, job)
	return os.WriteFile(job.Output, []byte("mp4 "+job.Description), 0o644)
}

type fakeGender struct{ calls int }

func (f *fakeGender) DetectGender(context.Context, string) (tts.Gender, error) {
	f.calls++
	return tts.Female, nil
}

func setup(t *testing.T) (*store.Store, reel.Options, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteBackgrounds(t, filepath.Dir(cfg.Paths.BackgroundGlob), "minecraft.mp4")
	return st, reel.OptionsFromConfig(cfg), cfg.Paths.PublishDir
}

func rewrittenStory(t *testing.T, st *store.Store, title, text, hashtags string) *store.Story {
	t.Helper()
	story := testsupport.NewStory(t, st, "tifu", title, "original body")
	if err := st.MarkRewritten(context.Background(), story.ID, "ABCDEF0123", text, hashtags); err != nil {
		t.Fatalf("MarkRewritten: %v", err)
	}
	got, err := st.GetByID(context.Background(), story.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return got
}

func TestGenerateRendersAndStagesReel(t *testing.T) {
	st, opts, publishDir := setup(t)
	story := rewrittenStory(t, st, "Note", "Hook;-\nI found a note", "#storytime #tifu")

	narrator := &fakeNarrator{}
	composer := &fakeComposer{}
	gender := &fakeGender{}
	gen := reel.New(st, reel.Deps{
		Narrator:    narrator,
		Transcriber: fakeTranscriber{},
		Prober:      fakeProber{},
		Composer:    composer,
		Gender:      gender,
	}, opts, nil).WithRand(rand.New(rand.NewPCG(7, 7)))

	path, err := gen.Generate(context.Background(), story)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if path != opts.Layout.ReelPath("ABCDEF0123") {
		t.Fatalf("path = %q", path)
	}
	if gender.calls != 1 || narrator.genders[0] != tts.Female {
		t.Fatalf("gender detection not used: calls=%d genders=%v", gender.calls, narrator.genders)
	}
	if narrator.texts[0] != "Hook;-\nI found a note" {
		t.Fatalf("narrated %q", narrator.texts[0])
	}

	job := composer.jobs[0]
	if job.Length != 32*time.Second {
		t.Fatalf("length = %v, want narration plus padding", job.Length)
	}
	if !job.BackgroundHasAudio || job.Description != "#storytime #tifu" {
		t.Fatalf("job = %+v", job)
	}
	if job.Start < 0 || job.Start > 268*time.Second {
		t.Fatalf("start %v out of range", job.Start)
	}

	subs, err := os.ReadFile(job.Subtitles)
	if err != nil {
		t.Fatalf("read subtitles: %v", err)
	}
	if !strings.Contains(string(subs), "[Events]") || !strings.Contains(string(subs), "Dialogue: 0,") {
		t.Fatalf("unexpected subtitles:\n%s", subs)
	}

	if _, err := os.Stat(filepath.Join(publishDir, "ABCDEF0123.mp4")); err != nil {
		t.Fatalf("reel not staged for publishing: %v", err)
	}
	got, err := st.GetByID(context.Background(), story.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != store.StatusRendered || got.ReelPath != path {
		t.Fatalf("story = %+v", got)
	}
}

func TestGenerateUsesStoredGender(t *testing.T) {
	st, opts, _ := setup(t)
	story := rewrittenStory(t, st, "Note", "text", "")
	story.NarratorGender = "female"

	narrator := &fakeNarrator{}
	gender := &fakeGender{}
	gen := reel.New(st, reel.Deps{Narrator: narrator, Transcriber: fakeTranscriber{}, Prober: fakeProber{}, Composer: &fakeComposer{}, Gender: gender}, opts, nil)
	if _, err := gen.Generate(context.Background(), story); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gender.calls != 0 || narrator.genders[0] != tts.Female {
		t.Fatalf("calls=%d genders=%v", gender.calls, narrator.genders)
	}
}

func TestRunRecordsFailures(t *testing.T) {
	st, opts, _ := setup(t)
	story := rewrittenStory(t, st, "Note", "text", "")

	narrator := &fakeNarrator{err: services.Wrap(services.ErrExternalTool, "render", "tts", "kokoro failed", errors.New("exit 1"))}
	gen := reel.New(st, reel.Deps{Narrator: narrator, Transcriber: fakeTranscriber{}, Prober: fakeProber{}, Composer: &fakeComposer{}}, opts, nil)
	summary, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Rendered != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if narrator.genders[0] != tts.Male {
		t.Fatalf("expected male default without detector, got %v", narrator.genders)
	}
	got, err := st.GetByID(context.Background(), story.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != store.StatusFailed || !strings.Contains(got.ErrorMessage, "kokoro failed") {
		t.Fatalf("story = %+v", got)
	}
}

func TestGenerateWithoutBackgroundsGoesToReview(t *testing.T) {
	st, opts, _ := setup(t)
	opts.BackgroundGlob = filepath.Join(t.TempDir(), "*.mp4")
	rewrittenStory(t, st, "Note", "text", "")

	gen := reel.New(st, reel.Deps{Narrator: &fakeNarrator{}, Transcriber: fakeTranscriber{}, Prober: fakeProber{}, Composer: &fakeComposer{}}, opts, nil)
	summary, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	review, err := st.List(context.Background(), store.ListOptions{Statuses: []store.Status{store.StatusReview}})
	if err != nil || len(review) != 1 {
		t.Fatalf("review stories = %d, %v", len(review), err)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	st, opts, _ := setup(t)
	lock, err := reel.AcquireLock(opts.Layout.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	gen := reel.New(st, reel.Deps{}, opts, nil)
	if _, err := gen.Run(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}
