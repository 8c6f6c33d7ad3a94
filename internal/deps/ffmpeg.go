package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OutputRunner returns a command's stdout.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:gosec
}

// CheckFFmpegFeatures reports whether ffmpeg was built with the subtitles
// filter (libass) and the configured video encoder. A nil runner executes
// the binary.
func CheckFFmpegFeatures(ctx context.Context, binary, encoder string, run OutputRunner) []Status {
	if run == nil {
		run = runOutput
	}
	checks := []struct {
		name, flag, want, desc string
	}{
		{"subtitles filter", "-filters", "subtitles", "Burns ASS captions (needs libass)"},
		{"encoder " + encoder, "-encoders", encoder, "Configured video encoder"},
	}
	results := make([]Status, 0, len(checks))
	for _, check := range checks {
		status := Status{Name: check.name, Command: binary, Description: check.desc}
		output, err := run(ctx, binary, "-hide_banner", check.flag)
		switch {
		case err != nil:
			status.Detail = fmt.Sprintf("%s %s: %v", binary, check.flag, err)
		case listsName(output, check.want):
			status.Available = true
		default:
			status.Detail = fmt.Sprintf("%q not listed by %s %s", check.want, binary, check.flag)
		}
		results = append(results, status)
	}
	return results
}

// listsName reports whether any line of ffmpeg's -filters/-encoders table
// has name as its second column.
func listsName(output []byte, name string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}
