package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const storyColumns = "id, subreddit, title, url, body, contents, score, num_comments, created_utc, length, narrator_gender, toxicity_json, status, reel_id, rewritten, hashtags, reel_path, media_id, error_message, created_at, updated_at"

func scanStory(scanner interface{ Scan(dest ...any) error }) (*Story, error) {
	var (
		id             int64
		subreddit      string
		title          string
		url            string
		body           sql.NullString
		contents       sql.NullString
		score          int
		numComments    int
		createdUTCRaw  sql.NullString
		length         int
		narratorGender sql.NullString
		toxicityJSON   sql.NullString
		statusStr      string
		reelID         sql.NullString
		rewritten      sql.NullString
		hashtags       sql.NullString
		reelPath       sql.NullString
		mediaID        sql.NullString
		errorMessage   sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&subreddit,
		&title,
		&url,
		&body,
		&contents,
		&score,
		&numComments,
		&createdUTCRaw,
		&length,
		&narratorGender,
		&toxicityJSON,
		&statusStr,
		&reelID,
		&rewritten,
		&hashtags,
		&reelPath,
		&mediaID,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	story := &Story{
		ID:             id,
		Subreddit:      subreddit,
		Title:          title,
		URL:            url,
		Body:           body.String,
		Contents:       contents.String,
		Score:          score,
		NumComments:    numComments,
		Length:         length,
		NarratorGender: narratorGender.String,
		Status:         Status(statusStr),
		ReelID:         reelID.String,
		Rewritten:      rewritten.String,
		Hashtags:       hashtags.String,
		ReelPath:       reelPath.String,
		MediaID:        mediaID.String,
		ErrorMessage:   errorMessage.String,
	}
	if toxicityJSON.Valid && toxicityJSON.String != "" {
		var scores map[string]float64
		if err := json.Unmarshal([]byte(toxicityJSON.String), &scores); err == nil {
			story.Toxicity = scores
		}
	}
	if created, err := parseTimeString(createdUTCRaw.String); err == nil {
		story.CreatedUTC = created
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		story.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		story.UpdatedAt = updated
	}
	return story, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableScores(scores map[string]float64) (any, error) {
	if len(scores) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(scores)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
