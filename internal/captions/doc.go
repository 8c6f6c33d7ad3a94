// Package captions builds the styled subtitle track burned into each reel.
//
// A track is built from ordered cues (start, end, text) and a small option
// bundle: the caption delay in seconds and the ordered censoring rules.
// Building is a pure transform:
//
//   - the first cue keeps its start time so the first caption appears with
//     the narration; every other timestamp is shifted back by the delay and
//     clamped at zero
//   - line breaks become the ASS \N marker, then every censoring rule runs
//     once, in order, case-insensitively, with a literal replacement
//   - the result renders to an Advanced SubStation Alpha document on a
//     1080x1920 canvas with a single Default style
//
// Cues arrive either from a WebVTT transcript (ParseVTT) or from word level
// timings (WordCues), which reproduces the one-line, five-word, highlighted
// layout the reels use. WriteFile renders to memory and replaces the
// destination atomically, so a failed build never leaves a partial file.
package captions
