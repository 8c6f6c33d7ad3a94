package compose

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/services"
)

// Encoding holds the ffmpeg codec and mix settings.
type Encoding struct {
	HWAccel          string
	VideoCodec       string
	Preset           string
	CQ               int
	NarrationVolume  float64
	BackgroundVolume float64
}

// DefaultEncoding matches the NVENC settings reels are published with.
func DefaultEncoding() Encoding {
	return Encoding{
		HWAccel:          "cuda",
		VideoCodec:       "h264_nvenc",
		Preset:           "p2",
		CQ:               23,
		NarrationVolume:  1.5,
		BackgroundVolume: 0.1,
	}
}

// Job describes one reel render.
type Job struct {
	Background         string
	BackgroundHasAudio bool
	Narration          string
	Subtitles          string
	Output             string
	Description        string
	// Start is the offset into the background, Length the reel duration.
	Start  time.Duration
	Length time.Duration
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Composer runs ffmpeg.
type Composer struct {
	Binary   string
	Encoding Encoding
	Run      CommandRunner
}

// New returns a Composer for binary (default "ffmpeg").
func New(binary string, enc Encoding) *Composer {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Composer{Binary: binary, Encoding: enc, Run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, lastLines(string(output), 5))
	}
	return nil
}

// Compose renders job.Output.
func (c *Composer) Compose(ctx context.Context, job Job) error {
	if job.Background == "" || job.Narration == "" || job.Subtitles == "" || job.Output == "" {
		return services.Wrap(services.ErrValidation, "render", "compose", "background, narration, subtitles and output are required", nil)
	}
	if job.Length <= 0 {
		return services.Wrap(services.ErrValidation, "render", "compose", "reel length must be positive", nil)
	}
	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "render", "compose", "ensure output dir", err)
	}
	partial := strings.TrimSuffix(job.Output, filepath.Ext(job.Output)) + ".partial" + filepath.Ext(job.Output)
	if err := c.Run(ctx, c.Binary, c.Args(job, partial)...); err != nil {
		_ = os.Remove(partial)
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "render", "compose", "ffmpeg interrupted", err)
		}
		return services.Wrap(services.ErrExternalTool, "render", "compose", "ffmpeg failed", err)
	}
	if err := os.Rename(partial, job.Output); err != nil {
		return services.Wrap(services.ErrIO, "render", "compose", "finalize output", err)
	}
	return nil
}

// Args returns the ffmpeg arguments for job writing to output.
func (c *Composer) Args(job Job, output string) []string {
	enc := c.Encoding
	length := seconds(job.Length)
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if enc.HWAccel != "" {
		args = append(args, "-hwaccel", enc.HWAccel)
	}
	args = append(args,
		"-ss", seconds(job.Start), "-t", length, "-i", job.Background,
		"-ss", "0", "-t", length, "-i", job.Narration,
		"-filter_complex", FilterGraph(job.Subtitles, job.BackgroundHasAudio, enc),
		"-map", "[v]", "-map", "[a]",
		"-c:v", enc.VideoCodec,
	)
	if enc.Preset != "" {
		args = append(args, "-preset", enc.Preset)
	}
	args = append(args,
		"-cq", strconv.Itoa(enc.CQ),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", "48000",
		"-movflags", "+faststart",
		"-map_metadata", "-1",
		"-shortest",
		"-strict", "experimental",
		"-metadata", "description="+job.Description,
		output,
	)
	return args
}

// FilterGraph crops to 9:16, burns subtitles, and mixes audio.
func FilterGraph(subtitles string, backgroundHasAudio bool, enc Encoding) string {
	var b strings.Builder
	b.WriteString("[0:v]crop=in_h*9/16:in_h:(in_w-out_w)/2:0,subtitles=filename=")
	b.WriteString(escapeFilterValue(subtitles))
	b.WriteString("[v];")
	narration := formatVolume(enc.NarrationVolume)
	if !backgroundHasAudio {
		fmt.Fprintf(&b, "[1:a]volume=%s[a]", narration)
		return b.String()
	}
	fmt.Fprintf(&b, "[1:a]volume=%s[narr];[0:a]volume=%s[bg];", narration, formatVolume(enc.BackgroundVolume))
	b.WriteString("[bg][narr]amix=inputs=2:duration=shortest:dropout_transition=2[a]")
	return b.String()
}

// escapeFilterValue applies option-level then graph-level escaping so
// paths containing ':' or quotes survive the filter parser.
func escapeFilterValue(value string) string {
	option := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`).Replace(value)
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`).Replace(option)
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64)
}

// RandomStart picks a background offset in [0, max(background-length, 0)]
// rounded to 10 ms.
func RandomStart(background, length time.Duration, rnd *rand.Rand) time.Duration {
	span := max(background-length, 0)
	if span == 0 {
		return 0
	}
	var f float64
	if rnd != nil {
		f = rnd.Float64()
	} else {
		f = rand.Float64()
	}
	centis := math.Round(f * span.Seconds() * 100)
	return time.Duration(centis) * 10 * time.Millisecond
}

// PickBackground chooses one file matching pattern.
func PickBackground(pattern string, rnd *rand.Rand) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "render", "background", "invalid background_glob", err)
	}
	if len(matches) == 0 {
		return "", services.Wrap(services.ErrNotFound, "render", "background", "no background videos match "+pattern, nil)
	}
	if rnd != nil {
		return matches[rnd.IntN(len(matches))], nil
	}
	return matches[rand.IntN(len(matches))], nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
