// Package main hosts the reelsmith CLI.
//
// Each pipeline stage is its own command (scrape, rewrite, generate, publish)
// so stages can be scheduled independently; all of them share the SQLite
// state database. The command context resolves configuration once, builds
// the structured logger, and tags every invocation with a request id.
package main
