// Package reel renders rewritten stories into vertical videos.
//
// Generator narrates a story with Kokoro, transcribes the narration with
// WhisperX for word timings, builds the styled ASS caption track, and
// composes the final reel over a random background clip. Finished reels are
// copied into the publish folder and the story is marked rendered. A file
// lock on the output root keeps two generators from racing on one library.
package reel
