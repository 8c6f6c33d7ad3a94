package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/store"
)

// MustOpenStore opens the stories database for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.Paths.StateDB)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewStory inserts a scraped story with a unique URL derived from title.
func NewStory(t testing.TB, st *store.Store, subreddit, title, body string) *store.Story {
	t.Helper()

	story, _, err := st.AddScraped(context.Background(), &store.Story{
		Subreddit:   subreddit,
		Title:       title,
		URL:         fmt.Sprintf("https://www.reddit.com/r/%s/comments/%d/", subreddit, time.Now().UnixNano()),
		Body:        body,
		Contents:    body,
		Score:       100,
		NumComments: 10,
		CreatedUTC:  time.Unix(1700000000, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("store.AddScraped: %v", err)
	}
	return story
}
