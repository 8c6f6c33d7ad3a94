package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/services"
)

// Container processing states reported by status_code.
const (
	StatusFinished   = "FINISHED"
	StatusError      = "ERROR"
	StatusInProgress = "IN_PROGRESS"
	StatusExpired    = "EXPIRED"
)

// Config identifies the account and API endpoint.
type Config struct {
	GraphURL   string
	APIVersion string
	UserID     string
	Token      string
}

// Client talks to graph.instagram.com.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how poll intervals are waited out.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs a Graph API client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.GraphURL = strings.TrimRight(strings.TrimSpace(cfg.GraphURL), "/")
	if cfg.GraphURL == "" {
		cfg.GraphURL = "https://graph.instagram.com"
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SetToken replaces the access token, e.g. after a refresh.
func (c *Client) SetToken(token string) {
	c.cfg.Token = strings.TrimSpace(token)
}

// CreateReelContainer registers a REELS upload and returns its creation id.
// Instagram fetches videoURL asynchronously after this returns.
func (c *Client) CreateReelContainer(ctx context.Context, videoURL, caption string) (string, error) {
	form := url.Values{
		"media_type": {"REELS"},
		"video_url":  {videoURL},
		"caption":    {caption},
	}
	body, err := c.call(ctx, http.MethodPost, c.endpoint(c.cfg.UserID, "media"), nil, form, "create container")
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", services.Wrap(services.ErrExternalTool, "publish", "create container", "no creation id returned: "+snippet(body), nil)
	}
	return id, nil
}

// ContainerStatus returns the container's status_code.
func (c *Client) ContainerStatus(ctx context.Context, creationID string) (string, error) {
	query := url.Values{"fields": {"status_code,status"}}
	body, err := c.call(ctx, http.MethodGet, c.endpoint(creationID), query, nil, "container status")
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "status_code").String(), nil
}

// WaitFinished polls the container up to attempts times, waiting interval
// before each poll, until it reports FINISHED.
func (c *Client) WaitFinished(ctx context.Context, creationID string, attempts int, interval time.Duration) error {
	last := ""
	for range max(attempts, 1) {
		if err := c.sleep(ctx, interval); err != nil {
			return services.Wrap(services.ErrTimeout, "publish", "poll status", "interrupted", err)
		}
		status, err := c.ContainerStatus(ctx, creationID)
		if err != nil {
			return err
		}
		last = status
		switch status {
		case StatusFinished:
			return nil
		case StatusError, StatusExpired:
			return services.Wrap(services.ErrExternalTool, "publish", "poll status", "video processing "+strings.ToLower(status), nil)
		}
	}
	return services.Wrap(services.ErrTimeout, "publish", "poll status", fmt.Sprintf("media not ready after polling (last status %q)", last), nil)
}

// Publish makes a finished container visible and returns the media id.
func (c *Client) Publish(ctx context.Context, creationID string) (string, error) {
	form := url.Values{"creation_id": {creationID}}
	body, err := c.call(ctx, http.MethodPost, c.endpoint(c.cfg.UserID, "media_publish"), nil, form, "media publish")
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", services.Wrap(services.ErrExternalTool, "publish", "media publish", "no media id returned: "+snippet(body), nil)
	}
	return id, nil
}

// RefreshToken exchanges the current long-lived token for a fresh one and
// returns it together with its lifetime.
func (c *Client) RefreshToken(ctx context.Context) (string, time.Duration, error) {
	query := url.Values{"grant_type": {"ig_refresh_token"}}
	body, err := c.call(ctx, http.MethodGet, c.cfg.GraphURL+"/refresh_access_token", query, nil, "refresh token")
	if err != nil {
		return "", 0, err
	}
	parsed := gjson.ParseBytes(body)
	token := parsed.Get("access_token").String()
	if token == "" {
		return "", 0, services.Wrap(services.ErrConfiguration, "publish", "refresh token", "refresh failed: "+snippet(body), nil)
	}
	return token, time.Duration(parsed.Get("expires_in").Int()) * time.Second, nil
}

func (c *Client) endpoint(parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, c.cfg.GraphURL)
	if v := strings.Trim(c.cfg.APIVersion, "/ "); v != "" {
		segments = append(segments, v)
	}
	for _, part := range parts {
		segments = append(segments, url.PathEscape(part))
	}
	return strings.Join(segments, "/")
}

func (c *Client) call(ctx context.Context, method, endpoint string, query, form url.Values, operation string) ([]byte, error) {
	if c.cfg.Token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", operation, "instagram access token missing", nil)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.cfg.Token)

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint+"?"+query.Encode(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("instagram request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "publish", operation, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "publish", operation, "read body", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = snippet(body)
		}
		marker := services.ErrExternalTool
		switch {
		case resp.StatusCode == http.StatusUnauthorized || gjson.GetBytes(body, "error.code").Int() == 190:
			marker = services.ErrConfiguration
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "publish", operation, fmt.Sprintf("http %d: %s", resp.StatusCode, msg), nil)
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// LoadToken reads a token file. A missing or empty file yields "".
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", services.Wrap(services.ErrIO, "publish", "load token", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path, token string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return services.Wrap(services.ErrIO, "publish", "save token", path, err)
	}
	return nil
}
