package rewrite_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"reelsmith/internal/rewrite"
	"reelsmith/internal/services"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/testsupport"
)

func TestIsInteresting(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{name: "yes", reply: "probability 0.8\n<answer>YES</answer>", want: true},
		{name: "lowercase yes", reply: "<answer> yes </answer>", want: true},
		{name: "no", reply: "<answer>NO</answer>", want: false},
		{name: "missing tags", reply: "YES", want: false},
		{name: "unterminated", reply: "<answer>YES", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testsupport.NewFakeCompleter(testsupport.Reply{Match: "curate", Content: tt.reply})
			got, err := rewrite.New(fake).IsInteresting(context.Background(), "story")
			if err != nil {
				t.Fatalf("IsInteresting: %v", err)
			}
			if got != tt.want {
				t.Fatalf("IsInteresting = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRewriteStoryExtractsMarkedText(t *testing.T) {
	fake := testsupport.NewFakeCompleter(testsupport.Reply{
		Match:   "[START OF REWRITTEN STORY]",
		Content: "Plan: keep it short.\n[START OF REWRITTEN STORY]\n  I found a note.  \n[END OF REWRITTEN STORY]\nextra",
	})
	got, err := rewrite.New(fake).RewriteStory(context.Background(), "original")
	if err != nil {
		t.Fatalf("RewriteStory: %v", err)
	}
	if got != "I found a note." {
		t.Fatalf("RewriteStory = %q", got)
	}
	calls := fake.Calls()
	if len(calls) != 1 || !strings.Contains(calls[0].User, "[START OF STORY]\noriginal\n[END OF STORY]") {
		t.Fatalf("unexpected request: %+v", calls)
	}
}

func TestGenerateHashtagsPrependsBaseTags(t *testing.T) {
	fake := testsupport.NewFakeCompleter(testsupport.Reply{
		Match:   "hashtags",
		Content: "#Revenge #storytime #family #revenge #work #drama #office #boss #extra\n[END OF HASHTAGS] #ignored",
	})
	got, err := rewrite.New(fake).GenerateHashtags(context.Background(), "story", "Am_I_The_Asshole")
	if err != nil {
		t.Fatalf("GenerateHashtags: %v", err)
	}
	want := []string{"#storytime", "#redditstories", "#AmITheAsshole", "#revenge", "#family", "#work", "#drama", "#office"}
	if !slices.Equal(got, want) {
		t.Fatalf("hashtags = %v, want %v", got, want)
	}
}

func TestDetectGender(t *testing.T) {
	tests := []struct {
		reply string
		want  tts.Gender
	}{
		{reply: "Female.", want: tts.Female},
		{reply: "male", want: tts.Male},
		{reply: "", want: tts.Male},
		{reply: "unsure", want: tts.Male},
	}
	for _, tt := range tests {
		fake := testsupport.NewFakeCompleter(testsupport.Reply{Match: "narrator", Content: tt.reply})
		got, err := rewrite.New(fake).DetectGender(context.Background(), "story")
		if err != nil {
			t.Fatalf("DetectGender(%q): %v", tt.reply, err)
		}
		if got != tt.want {
			t.Errorf("DetectGender(%q) = %q, want %q", tt.reply, got, tt.want)
		}
	}
}

func TestProcessWithHook(t *testing.T) {
	fake := testsupport.NewFakeCompleter(
		testsupport.Reply{Match: "[START OF OPENING LINE]", Content: "[START OF OPENING LINE] I never saw it coming [END OF OPENING LINE]"},
		testsupport.Reply{Match: "[START OF REWRITTEN STORY]", Content: "[START OF REWRITTEN STORY]My boss lied."},
	)
	got, err := rewrite.New(fake, rewrite.WithHook(true)).Process(context.Background(), "story")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "I never saw it coming;-\nMy boss lied." {
		t.Fatalf("Process = %q", got)
	}
}

func TestProcessEmptyRewriteSkipsHook(t *testing.T) {
	fake := testsupport.NewFakeCompleter(testsupport.Reply{Match: "[START OF REWRITTEN STORY]", Content: "[START OF REWRITTEN STORY]   [END OF REWRITTEN STORY]"})
	got, err := rewrite.New(fake, rewrite.WithHook(true)).Process(context.Background(), "story")
	if err != nil || got != "" {
		t.Fatalf("Process = %q, %v", got, err)
	}
	if len(fake.Calls()) != 1 {
		t.Fatalf("expected only the rewrite call, got %d", len(fake.Calls()))
	}
}

func TestLLMFailureIsTransient(t *testing.T) {
	fake := testsupport.NewFakeCompleter(testsupport.Reply{Match: "", Err: errors.New("boom")})
	_, err := rewrite.New(fake).RewriteStory(context.Background(), "story")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if _, err := rewrite.New(nil).RewriteStory(context.Background(), "story"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without client, got %v", err)
	}
}
