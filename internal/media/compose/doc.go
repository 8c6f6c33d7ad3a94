// Package compose builds and runs the ffmpeg invocation that turns a
// landscape background clip, a narration track, and an ASS caption file into
// a 1080x1920 reel.
//
// The background is cropped to 9:16 around its centre, captions are burned
// in with libass, and the narration is mixed over the background's own audio
// when it has any. Output goes to a partial file that is renamed into place
// only after ffmpeg succeeds.
package compose
