// Package logs reads the rotated JSON pipeline log for `reelsmith logs`.
//
// Tail streams the file with bounded memory, supports "last N lines" via a
// negative offset, and can block in follow mode until new lines arrive.
// Filter and Format work on individual JSON records so callers can narrow
// output to one run (request_id), one story, or a minimum level.
package logs
