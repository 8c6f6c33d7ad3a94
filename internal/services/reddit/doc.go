// Package reddit fetches subreddit listings through the OAuth API using an
// application-only (client credentials) token.
//
// Requests are paced by a token bucket sized from requests_per_minute so a
// scrape across many subreddits stays under Reddit's quota. Listing JSON is
// read with gjson paths rather than mirrored structs since only a handful of
// fields are used.
package reddit
