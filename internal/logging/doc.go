// Package logging assembles the structured slog loggers used by every
// reelsmith command.
//
// Console output is human readable (or JSON when configured) while the
// rotating pipeline.log under the log directory always receives JSON lines.
// Context helpers tag records with the story, reel, stage, and request being
// processed so a single reel can be traced across scrape, rewrite, render, and
// publish runs.
package logging
