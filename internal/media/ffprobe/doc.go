// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Reel generation uses it for background video duration and audio presence;
// publishing reads the description tag the caption was embedded in.
package ffprobe
