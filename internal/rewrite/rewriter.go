package rewrite

import (
	"context"
	"strings"

	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/textutil"
)

// DefaultMaxHashtags caps the combined base and generated hashtags.
const DefaultMaxHashtags = 8

// HookSeparator joins the opening hook to the story body.
const HookSeparator = ";-\n"

// Rewriter issues the rewrite prompts against a chat model.
type Rewriter struct {
	llm         llm.Completer
	maxHashtags int
	hook        bool
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithHook prefixes processed stories with a generated opening line.
func WithHook(enabled bool) Option {
	return func(r *Rewriter) { r.hook = enabled }
}

// WithMaxHashtags overrides DefaultMaxHashtags.
func WithMaxHashtags(limit int) Option {
	return func(r *Rewriter) {
		if limit > 0 {
			r.maxHashtags = limit
		}
	}
}

// New returns a Rewriter backed by completer.
func New(completer llm.Completer, opts ...Option) *Rewriter {
	r := &Rewriter{llm: completer, maxHashtags: DefaultMaxHashtags}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Rewriter) complete(ctx context.Context, operation, system, story string, temperature float64, maxTokens int) (string, error) {
	if r == nil || r.llm == nil {
		return "", services.Wrap(services.ErrConfiguration, "rewrite", operation, "llm client unavailable", nil)
	}
	content, err := r.llm.Complete(ctx, llm.Request{
		System:      system,
		User:        storyBlock(story),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "rewrite", operation, "llm request failed", err)
	}
	return content, nil
}

// IsInteresting asks the curator prompt for a verdict. A reply without
// answer tags counts as NO.
func (r *Rewriter) IsInteresting(ctx context.Context, story string) (bool, error) {
	content, err := r.complete(ctx, "curate", curatorPrompt, story, 0.05, 512)
	if err != nil {
		return false, err
	}
	verdict, ok := extractAnswer(content)
	return ok && verdict == "YES", nil
}

// RewriteStory returns the narration-ready rewrite, or "" when the model
// produced nothing usable.
func (r *Rewriter) RewriteStory(ctx context.Context, story string) (string, error) {
	content, err := r.complete(ctx, "rewrite", rewritePrompt, story, 0.6, 4096)
	if err != nil {
		return "", err
	}
	return extractAfter(content, storyStartMarker), nil
}

// GenerateHook returns a short opening line for story.
func (r *Rewriter) GenerateHook(ctx context.Context, story string) (string, error) {
	content, err := r.complete(ctx, "hook", hookPrompt, story, 0.6, 1024)
	if err != nil {
		return "", err
	}
	return extractAfter(content, hookStartMarker), nil
}

// GenerateHashtags returns the base tags for subreddit followed by unique
// model suggestions, capped at the configured maximum.
func (r *Rewriter) GenerateHashtags(ctx context.Context, story, subreddit string) ([]string, error) {
	content, err := r.complete(ctx, "hashtags", hashtagPrompt, story, 0.3, 256)
	if err != nil {
		return nil, err
	}
	content, _, _ = strings.Cut(content, endMarkerPrefix)
	return textutil.MergeHashtags(BaseHashtags(subreddit), textutil.ExtractHashtags(content), r.maxHashtags), nil
}

// BaseHashtags are prepended to every reel description.
func BaseHashtags(subreddit string) []string {
	return []string{"#storytime", "#redditstories", textutil.SubredditHashtag(subreddit)}
}

// DetectGender guesses the narrator's gender. Unclear answers are male.
func (r *Rewriter) DetectGender(ctx context.Context, story string) (tts.Gender, error) {
	content, err := r.complete(ctx, "gender", genderPrompt, story, 0, 4)
	if err != nil {
		return tts.Male, err
	}
	fields := strings.Fields(strings.ToLower(content))
	if len(fields) == 0 {
		return tts.Male, nil
	}
	return tts.ParseGender(strings.Trim(fields[0], `."'`)), nil
}

// Process rewrites story and, when hooks are enabled, prefixes the opening
// line with HookSeparator. An empty rewrite returns "".
func (r *Rewriter) Process(ctx context.Context, story string) (string, error) {
	rewritten, err := r.RewriteStory(ctx, story)
	if err != nil || rewritten == "" {
		return "", err
	}
	if !r.hook {
		return rewritten, nil
	}
	hook, err := r.GenerateHook(ctx, rewritten)
	if err != nil {
		return "", err
	}
	if hook == "" {
		return rewritten, nil
	}
	return hook + HookSeparator + rewritten, nil
}

func extractAnswer(content string) (string, bool) {
	_, rest, ok := strings.Cut(content, answerOpen)
	if !ok {
		return "", false
	}
	answer, _, ok := strings.Cut(rest, answerClose)
	if !ok {
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(answer)), true
}

// extractAfter returns the text following the last marker, stopping at the
// first closing marker. Without a marker the whole reply is used.
func extractAfter(content, marker string) string {
	if idx := strings.LastIndex(content, marker); idx >= 0 {
		content = content[idx+len(marker):]
	}
	content, _, _ = strings.Cut(content, endMarkerPrefix)
	return strings.TrimSpace(content)
}
