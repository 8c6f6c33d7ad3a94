package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStoryNotFound is returned when an update targets a missing story.
var ErrStoryNotFound = errors.New("story not found")

// AddScraped inserts a freshly scraped story. Stories are keyed by URL; when
// the URL already exists the stored row is returned and inserted is false.
func (s *Store) AddScraped(ctx context.Context, story *Story) (stored *Story, inserted bool, err error) {
	if story == nil {
		return nil, false, errors.New("story is nil")
	}
	if strings.TrimSpace(story.URL) == "" {
		return nil, false, errors.New("story url is required")
	}
	toxicity, err := nullableScores(story.Toxicity)
	if err != nil {
		return nil, false, fmt.Errorf("marshal toxicity: %w", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO stories (
            subreddit, title, url, body, contents, score, num_comments, created_utc,
            length, narrator_gender, toxicity_json, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(url) DO NOTHING`,
		story.Subreddit,
		story.Title,
		story.URL,
		nullableString(story.Body),
		nullableString(story.Contents),
		story.Score,
		story.NumComments,
		nullableTime(story.CreatedUTC),
		story.Length,
		nullableString(story.NarratorGender),
		toxicity,
		StatusScraped,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert story: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	existing, err := s.FindByURL(ctx, story.URL)
	if err != nil {
		return nil, false, err
	}
	return existing, affected > 0, nil
}

// GetByID fetches a story by identifier. A missing story yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Story, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id)
	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return story, nil
}

// FindByURL returns the story scraped from url, or nil.
func (s *Store) FindByURL(ctx context.Context, url string) (*Story, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+storyColumns+` FROM stories WHERE url = ?`, url)
	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by url: %w", err)
	}
	return story, nil
}

// FindByReelID returns the story rendered under reelID, or nil.
func (s *Store) FindByReelID(ctx context.Context, reelID string) (*Story, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+storyColumns+` FROM stories WHERE reel_id = ? ORDER BY id LIMIT 1`,
		strings.ToUpper(strings.TrimSpace(reelID)),
	)
	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by reel id: %w", err)
	}
	return story, nil
}

// List returns stories filtered by status and ordered descending by the
// requested sort key. Unknown sort keys fall back to id order.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories`
	args := make([]any, 0, len(opts.Statuses)+1)
	if len(opts.Statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(opts.Statuses)) + `)`
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	column, ok := sortColumns[strings.TrimSpace(opts.SortBy)]
	if ok && column != "id" {
		query += ` ORDER BY ` + column + ` DESC, id`
	} else {
		query += ` ORDER BY id`
	}
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var stories []*Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}
	return stories, nil
}

// Counts returns the number of stories per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM stories GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count stories: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

// MarkRewritten stores the rewritten narration and advances the story.
func (s *Store) MarkRewritten(ctx context.Context, id int64, reelID, rewritten, hashtags string) error {
	return s.updateOne(ctx, "mark rewritten",
		`UPDATE stories
         SET status = ?, reel_id = ?, rewritten = ?, hashtags = ?, error_message = NULL, updated_at = ?
         WHERE id = ?`,
		StatusRewritten,
		nullableString(strings.ToUpper(reelID)),
		nullableString(rewritten),
		nullableString(hashtags),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
}

// MarkRendered records the finished reel location.
func (s *Store) MarkRendered(ctx context.Context, id int64, reelPath string) error {
	return s.updateOne(ctx, "mark rendered",
		`UPDATE stories SET status = ?, reel_path = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		StatusRendered,
		nullableString(reelPath),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
}

// MarkPublished records the platform media identifier for the reel.
func (s *Store) MarkPublished(ctx context.Context, reelID, mediaID string) error {
	return s.updateOne(ctx, "mark published",
		`UPDATE stories SET status = ?, media_id = ?, error_message = NULL, updated_at = ? WHERE reel_id = ?`,
		StatusPublished,
		nullableString(mediaID),
		time.Now().UTC().Format(time.RFC3339Nano),
		strings.ToUpper(strings.TrimSpace(reelID)),
	)
}

// MarkSkipped parks a story the pipeline decided not to use.
func (s *Store) MarkSkipped(ctx context.Context, id int64, reason string) error {
	return s.updateOne(ctx, "mark skipped",
		`UPDATE stories SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusSkipped,
		nullableString(reason),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
}

// MarkFailed moves a story to failed or review with the given message.
func (s *Store) MarkFailed(ctx context.Context, id int64, status Status, message string) error {
	if status != StatusFailed && status != StatusReview {
		return fmt.Errorf("mark failed: unsupported status %q", status)
	}
	return s.updateOne(ctx, "mark failed",
		`UPDATE stories SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
}

// RetryFailed returns failed and review stories to the last stage they
// completed. With no ids every failed story is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE stories
        SET status = CASE
            WHEN reel_path IS NOT NULL THEN ?
            WHEN rewritten IS NOT NULL THEN ?
            ELSE ?
        END,
            error_message = NULL, updated_at = ?
        WHERE status IN (?, ?)`
	args := []any{
		StatusRendered, StatusRewritten, StatusScraped,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusFailed, StatusReview,
	}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed stories: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrStoryNotFound)
	}
	return nil
}
