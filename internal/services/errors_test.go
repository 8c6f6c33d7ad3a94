package services_test

import (
	"errors"
	"strings"
	"testing"

	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "reel", "compose", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"reel", "compose", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want store.Status
	}{
		{"validation", services.Wrap(services.ErrValidation, "ingest", "filter", "invalid", nil), store.StatusReview},
		{"format", services.Wrap(services.ErrFormat, "captions", "parse", "bad timestamp", nil), store.StatusReview},
		{"configuration", services.Wrap(services.ErrConfiguration, "captions", "delay", "negative", nil), store.StatusReview},
		{"io", services.Wrap(services.ErrIO, "captions", "write", "denied", errors.New("eperm")), store.StatusFailed},
		{"transient", services.Wrap(services.ErrTransient, "reddit", "list", "timeout", errors.New("io")), store.StatusFailed},
		{"nil", nil, store.StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.FailureStatus(tc.err); got != tc.want {
				t.Fatalf("FailureStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
