// Package instagram wraps the Instagram Graph API calls used to publish a
// reel: create a REELS media container from a public video URL, poll its
// processing status, publish it, and refresh the long-lived access token.
package instagram
