package captions_test

import (
	"errors"
	"testing"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/services"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00:00.000", 0},
		{"00:00:01.200", 1200 * time.Millisecond},
		{"01:02:03.5", time.Hour + 2*time.Minute + 3500*time.Millisecond},
		{"00:00:00.000001", time.Microsecond},
		{" 00:00:02.25 ", 2250 * time.Millisecond},
		{"100:00:00.00", 100 * time.Hour},
		{"0:1:2.5", time.Minute + 2500*time.Millisecond},
		{"00:0:01.000", time.Second},
	}
	for _, tt := range tests {
		got, err := captions.ParseTimestamp(tt.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestampRejectsMalformedInput(t *testing.T) {
	for _, in := range []string{
		"",
		"1.200",
		"00:00:01",
		"00:01.200",
		"00:60:00.000",
		"00:00:60.000",
		"aa:00:00.000",
		"00:000:01.000",
		"00::01.000",
		"00:00:01.",
		"00:00:01.1234567",
		"00:00:01.2x0",
	} {
		_, err := captions.ParseTimestamp(in)
		if err == nil {
			t.Errorf("ParseTimestamp(%q) expected error", in)
			continue
		}
		if !errors.Is(err, services.ErrFormat) {
			t.Errorf("ParseTimestamp(%q) error %v is not a format error", in, err)
		}
	}
}

func TestFormatTimestampTruncatesToCentiseconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.00"},
		{783 * time.Millisecond, "00:00:00.78"},
		{999 * time.Millisecond, "00:00:00.99"},
		{time.Hour + 2*time.Minute + 3456*time.Millisecond, "01:02:03.45"},
		{-time.Second, "00:00:00.00"},
	}
	for _, tt := range tests {
		if got := captions.FormatTimestamp(tt.in); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShiftClampsAtZero(t *testing.T) {
	if got := captions.Shift(1200*time.Millisecond, -0.417); got != 783*time.Millisecond {
		t.Fatalf("Shift = %v", got)
	}
	if got := captions.Shift(100*time.Millisecond, -0.417); got != 0 {
		t.Fatalf("expected clamp to zero, got %v", got)
	}
	if got := captions.Shift(time.Second, 0.25); got != 1250*time.Millisecond {
		t.Fatalf("positive delta = %v", got)
	}
}

func TestShiftTimestamp(t *testing.T) {
	tests := []struct {
		in    string
		delta float64
		want  string
	}{
		{"00:00:01.200", -0.417, "00:00:00.78"},
		{"00:00:00.100", -0.417, "00:00:00.00"},
		{"00:00:05.000", 0, "00:00:05.00"},
		{"00:01:00.005", -0.006, "00:00:59.99"},
	}
	for _, tt := range tests {
		got, err := captions.ShiftTimestamp(tt.in, tt.delta)
		if err != nil {
			t.Fatalf("ShiftTimestamp(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ShiftTimestamp(%q, %v) = %q, want %q", tt.in, tt.delta, got, tt.want)
		}
	}
	if _, err := captions.ShiftTimestamp("bogus", -1); !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestSecondsToDuration(t *testing.T) {
	if got := captions.SecondsToDuration(1.2345); got != 1235*time.Millisecond {
		t.Fatalf("SecondsToDuration = %v", got)
	}
	if got := captions.SecondsToDuration(-3); got != 0 {
		t.Fatalf("negative seconds = %v", got)
	}
}
