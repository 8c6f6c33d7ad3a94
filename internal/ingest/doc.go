// Package ingest scrapes Reddit listings into the state store.
//
// Each post is cleaned (title and body joined, trailing edit/update notes
// dropped, normalization rules applied), filtered by word count and repost
// similarity, optionally scored for toxicity and narrator gender, and stored
// as a scraped story. Posts already in the store are left untouched.
package ingest
