package captions

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/services"
)

const centisecond = 10 * time.Millisecond

// ParseTimestamp parses an HH:MM:SS.fff timestamp. The fraction is required
// and may carry one to six digits; minutes and seconds may be one or two
// digits.
func ParseTimestamp(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	fail := func(reason string) (time.Duration, error) {
		return 0, services.Wrap(services.ErrFormat, "captions", "parse timestamp",
			fmt.Sprintf("%q: %s", value, reason), nil)
	}

	clock, fraction, ok := strings.Cut(raw, ".")
	if !ok {
		return fail("missing fractional seconds")
	}
	if len(fraction) == 0 || len(fraction) > 6 || !allDigits(fraction) {
		return fail("fraction must be 1-6 digits")
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return fail("expected HH:MM:SS")
	}
	if len(parts[0]) == 0 || !allDigits(parts[0]) {
		return fail("invalid hours")
	}
	for _, field := range parts[1:] {
		if len(field) == 0 || len(field) > 2 || !allDigits(field) {
			return fail("minutes and seconds must be one or two digits")
		}
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return fail("invalid hours")
	}
	minutes, _ := strconv.Atoi(parts[1])
	seconds, _ := strconv.Atoi(parts[2])
	if minutes > 59 || seconds > 59 {
		return fail("minutes and seconds must be below 60")
	}
	micros, _ := strconv.Atoi(fraction + strings.Repeat("0", 6-len(fraction)))

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(micros)*time.Microsecond, nil
}

// FormatTimestamp renders d as HH:MM:SS.cc, truncating to centiseconds.
// Negative values render as zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := d / centisecond
	hours := cs / (100 * 60 * 60)
	cs -= hours * 100 * 60 * 60
	minutes := cs / (100 * 60)
	cs -= minutes * 100 * 60
	seconds := cs / 100
	cs -= seconds * 100
	return fmt.Sprintf("%02d:%02d:%02d.%02d", hours, minutes, seconds, cs)
}

// Shift returns max(0, d + delta) where delta is in seconds. The delta is
// applied at microsecond resolution.
func Shift(d time.Duration, delta float64) time.Duration {
	shifted := d + secondsToDuration(delta)
	if shifted < 0 {
		return 0
	}
	return shifted
}

// ShiftTimestamp parses value, shifts it by delta seconds, and renders the
// result at centisecond resolution.
func ShiftTimestamp(value string, delta float64) (string, error) {
	d, err := ParseTimestamp(value)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(Shift(d, delta)), nil
}

// SecondsToDuration converts fractional seconds to a Duration rounded to
// the nearest millisecond, the precision transcribers report.
func SecondsToDuration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1e6)) * time.Microsecond
}

func sameCentisecond(a, b time.Duration) bool {
	return a/centisecond == b/centisecond
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
