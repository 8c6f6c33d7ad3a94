// Package textutil holds the small text helpers shared by the pipeline:
// reel identifiers, hashtag extraction, word counting, and token
// fingerprints used to spot reposted stories.
package textutil
