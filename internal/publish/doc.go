// Package publish uploads rendered reels to Instagram.
//
// The Graph API pulls videos from a public URL, so the publish folder is
// served over HTTP (exposed through an ngrok tunnel unless a public URL is
// configured) and every download is monitored. Publishing a file creates a
// REELS container, waits for Instagram to fetch the video, polls the
// container until processing finishes, and then publishes it.
package publish
