// Package store persists scraped stories and their pipeline progress in SQLite.
//
// A story moves from scraped to rewritten, rendered, and finally published.
// Failures park the story in failed or review so the operator can decide
// whether to retry. The Store owns the connection, schema initialization, and
// busy-retry behaviour; callers work with Story values only.
//
// Schema changes bump storiesSchemaVersion in schema.go; users delete the state
// database to adopt the new schema.
package store
