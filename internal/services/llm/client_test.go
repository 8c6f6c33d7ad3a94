package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeChoice(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClientCompleteSendsPromptsAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "reelsmith" {
			t.Errorf("unexpected title header %q", got)
		}
		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "demo-model" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected request body: %+v", body)
		}
		if body.ResponseFormat != nil {
			t.Errorf("plain completion should not request json: %+v", body.ResponseFormat)
		}
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": "  A rewritten story.  "}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "reelsmith"})
	got, err := client.Complete(context.Background(), Request{System: "rewrite", User: "story", Temperature: 0.7})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "A rewritten story." {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestClientCompleteRequiresKeyAndPrompt(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Complete(context.Background(), Request{User: "hi"}); err == nil {
		t.Fatal("expected missing api key error")
	}
	client = NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Complete(context.Background(), Request{System: "sys"}); err == nil {
		t.Fatal("expected missing user prompt error")
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientDoesNotRetryUnauthorized(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.Complete(context.Background(), Request{User: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": "ok"}})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	got, err := client.Complete(context.Background(), Request{User: "hi"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("unexpected result %q after %d calls", got, calls)
	}
	if len(slept) != 2 || slept[0] != 2*time.Second {
		t.Fatalf("expected Retry-After driven sleeps, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{"finish_reason": "length", "message": map[string]any{"content": ""}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithRetryMaxAttempts(2), WithSleeper(func(time.Duration) {}))
	_, err := client.Complete(context.Background(), Request{User: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed after 2 attempts") || !strings.Contains(err.Error(), `finish_reason="length"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientReportsExhaustedRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithRetryMaxAttempts(3), WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	_, err := client.Complete(context.Background(), Request{User: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
	if calls != 3 || len(slept) != 2 {
		t.Fatalf("expected 3 calls and 2 sleeps, got %d calls and %v", calls, slept)
	}
}

func TestClientAcceptsDeltaAndLegacyText(t *testing.T) {
	for name, choice := range map[string]map[string]any{
		"delta":  {"delta": map[string]any{"content": "from delta"}},
		"legacy": {"text": "from delta"},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeChoice(t, w, choice)
			}))
			defer server.Close()
			got, err := NewClient(Config{APIKey: "k", BaseURL: server.URL}).Complete(context.Background(), Request{User: "hi"})
			if err != nil || got != "from delta" {
				t.Fatalf("got %q, %v", got, err)
			}
		})
	}
}

func TestLocalClientUsesOpenAICompatibleEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["model"] != "llama" {
			t.Errorf("unexpected model %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":0,"model":"llama",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"female"}}]}`)
	}))
	defer server.Close()

	client := New("local", Config{BaseURL: server.URL + "/v1", Model: "llama"})
	got, err := client.Complete(context.Background(), Request{System: "classify", User: "story", MaxTokens: 5})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "female" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestDecodeJSONHandlesProse(t *testing.T) {
	var out struct {
		Toxicity float64 `json:"toxicity"`
	}
	if err := DecodeJSON("Sure! Here it is: {\"toxicity\": 0.25} hope that helps", &out); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if out.Toxicity != 0.25 {
		t.Fatalf("unexpected value %v", out.Toxicity)
	}
	if err := DecodeJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestBackoffAndRetryAfter(t *testing.T) {
	if got := Backoff(time.Second, 10*time.Second, 3); got != 4*time.Second {
		t.Fatalf("unexpected backoff %v", got)
	}
	if got := Backoff(time.Second, 10*time.Second, 10); got != 10*time.Second {
		t.Fatalf("expected cap, got %v", got)
	}
	if got := ParseRetryAfter("7"); got != 7*time.Second {
		t.Fatalf("unexpected retry-after %v", got)
	}
	if got := ParseRetryAfter("soon"); got != 0 {
		t.Fatalf("expected 0 for garbage, got %v", got)
	}
}
