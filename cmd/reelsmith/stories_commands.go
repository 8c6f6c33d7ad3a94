package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

// storyView is the JSON shape of a story in CLI output.
type storyView struct {
	ID          int64              `json:"id"`
	Status      string             `json:"status"`
	Subreddit   string             `json:"subreddit"`
	Title       string             `json:"title"`
	URL         string             `json:"url"`
	Score       int                `json:"score"`
	NumComments int                `json:"num_comments"`
	Length      int                `json:"length"`
	Gender      string             `json:"narrator_gender,omitempty"`
	Toxicity    map[string]float64 `json:"toxicity,omitempty"`
	ReelID      string             `json:"reel_id,omitempty"`
	Hashtags    string             `json:"hashtags,omitempty"`
	ReelPath    string             `json:"reel_path,omitempty"`
	MediaID     string             `json:"media_id,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedUTC  string             `json:"created_utc"`
	UpdatedAt   string             `json:"updated_at"`
}

func newStoryView(story *store.Story) storyView {
	return storyView{
		ID:          story.ID,
		Status:      string(story.Status),
		Subreddit:   story.Subreddit,
		Title:       story.Title,
		URL:         story.URL,
		Score:       story.Score,
		NumComments: story.NumComments,
		Length:      story.Length,
		Gender:      story.NarratorGender,
		Toxicity:    story.Toxicity,
		ReelID:      story.ReelID,
		Hashtags:    story.Hashtags,
		ReelPath:    story.ReelPath,
		MediaID:     story.MediaID,
		Error:       story.ErrorMessage,
		CreatedUTC:  formatTime(story.CreatedUTC),
		UpdatedAt:   formatTime(story.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func newStoriesCommand(ctx *commandContext) *cobra.Command {
	storiesCmd := &cobra.Command{
		Use:     "stories",
		Aliases: []string{"story"},
		Short:   "Inspect and manage stored stories",
	}
	storiesCmd.AddCommand(newStoriesListCommand(ctx))
	storiesCmd.AddCommand(newStoriesShowCommand(ctx))
	storiesCmd.AddCommand(newStoriesStatusCommand(ctx))
	storiesCmd.AddCommand(newStoriesRetryCommand(ctx))
	return storiesCmd
}

func newStoriesListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var sortBy string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stories, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := store.ListOptions{SortBy: strings.TrimSpace(sortBy), Limit: limit}
			for _, value := range statuses {
				status, ok := store.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				opts.Statuses = append(opts.Statuses, status)
			}
			if opts.SortBy != "" && !store.ValidSortKey(opts.SortBy) {
				return fmt.Errorf("unknown sort key %q", opts.SortBy)
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			stories, err := st.List(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if asJSON {
				views := make([]storyView, 0, len(stories))
				for _, story := range stories {
					views = append(views, newStoryView(story))
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(stories) == 0 {
				fmt.Fprintln(out, "No stories found")
				return nil
			}
			rows := make([][]string, 0, len(stories))
			for _, story := range stories {
				rows = append(rows, []string{
					strconv.FormatInt(story.ID, 10),
					string(story.Status),
					story.Subreddit,
					story.Title,
					strconv.Itoa(story.NumComments),
					strconv.Itoa(story.Score),
					strconv.Itoa(story.Length),
					story.ReelID,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Subreddit", "Title", "Comments", "Score", "Words", "Reel"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				map[int]int{3: 48},
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by num_comments, score, created_utc, or length")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum stories to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newStoriesShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one story with its rewritten script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseStoryIDs(args)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			story, err := st.GetByID(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			if story == nil {
				return services.Wrap(services.ErrNotFound, "cli", "show", fmt.Sprintf("story %d not found", ids[0]), store.ErrStoryNotFound)
			}
			if asJSON {
				return writeJSON(cmd, struct {
					storyView
					Rewritten string `json:"rewritten,omitempty"`
				}{newStoryView(story), story.Rewritten})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Story %d [%s] r/%s\n", story.ID, story.Status, story.Subreddit)
			fmt.Fprintf(out, "Title:    %s\n", story.Title)
			fmt.Fprintf(out, "URL:      %s\n", story.URL)
			fmt.Fprintf(out, "Words:    %d  Score: %d  Comments: %d\n", story.Length, story.Score, story.NumComments)
			if story.NarratorGender != "" {
				fmt.Fprintf(out, "Narrator: %s\n", story.NarratorGender)
			}
			if story.ReelID != "" {
				fmt.Fprintf(out, "Reel:     %s\n", story.ReelID)
			}
			if story.Hashtags != "" {
				fmt.Fprintf(out, "Hashtags: %s\n", story.Hashtags)
			}
			if story.ReelPath != "" {
				fmt.Fprintf(out, "File:     %s\n", story.ReelPath)
			}
			if story.MediaID != "" {
				fmt.Fprintf(out, "Media:    %s\n", story.MediaID)
			}
			if story.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", story.ErrorMessage)
			}
			if story.Rewritten != "" {
				fmt.Fprintf(out, "\n%s\n", story.Rewritten)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newStoriesStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show story counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			counts, err := st.Counts(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(counts))
			total := 0
			for _, status := range store.AllStatuses() {
				rows = append(rows, []string{string(status), strconv.Itoa(counts[status])})
				total += counts[status]
			}
			rows = append(rows, []string{"total", strconv.Itoa(total)})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}, nil))
			return nil
		},
	}
}

func newStoriesRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed or review stories to their last completed stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseStoryIDs(args)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			updated, err := st.RetryFailed(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if updated == 0 {
				fmt.Fprintln(out, "No matching failed stories")
				return nil
			}
			fmt.Fprintf(out, "Retrying %d stories\n", updated)
			return nil
		},
	}
}

func parseStoryIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, services.Wrap(services.ErrValidation, "cli", "parse id", fmt.Sprintf("invalid story id %q", arg), nil)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
