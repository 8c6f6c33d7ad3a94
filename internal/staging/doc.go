// Package staging prunes per-reel intermediates (narration audio, word
// transcripts, subtitle tracks, staged publish copies). Files are grouped by
// reel id, the file name without its extension, so a reel's artifacts are
// always removed together.
package staging
