// Package notifications delivers pipeline events via ntfy.
//
// NewService returns a no-op implementation when no topic is configured so
// commands can publish events unconditionally. Events the pipeline emits but
// that are too chatty for a phone (stage starts) are accepted and dropped.
package notifications
