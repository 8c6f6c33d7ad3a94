// Package rewrite turns scraped Reddit posts into narration scripts.
//
// A Rewriter wraps an llm.Completer and exposes the individual prompts
// (curation verdict, rewrite, opening hook, hashtags, narrator gender). Stage
// walks scraped stories in the state store, runs Process on each, and records
// the result as rewritten, skipped, or failed.
package rewrite
