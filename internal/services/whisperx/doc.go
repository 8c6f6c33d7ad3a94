// Package whisperx runs WhisperX through uvx to obtain word-level timings for
// a narration track and converts its JSON output into caption segments.
//
// The command runner is injectable so tests can fake the transcription and
// drop a JSON file in place.
package whisperx
