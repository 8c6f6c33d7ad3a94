package reddit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"reelsmith/internal/services"
)

const (
	maxPageSize      = 100
	tokenExpirySlack = time.Minute
)

// Config holds OAuth credentials and endpoints.
type Config struct {
	ClientID          string
	ClientSecret      string
	UserAgent         string
	AuthURL           string
	APIBaseURL        string
	RequestsPerMinute int
}

// Post is the subset of a listing child the ingest stage consumes.
type Post struct {
	ID          string
	Subreddit   string
	Title       string
	SelfText    string
	URL         string
	Score       int
	NumComments int
	CreatedUTC  time.Time
	Over18      bool
	Stickied    bool
}

// ListingRequest selects a subreddit listing.
type ListingRequest struct {
	Subreddit  string
	Filter     string // hot, new, top, controversial
	TimeFilter string // applies to top and controversial
	Limit      int
}

// Client is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
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

// WithLimiter replaces the request pacing limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// NewClient constructs a Reddit API client.
func NewClient(cfg Config, opts ...Option) *Client {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60), max(perMinute/10, 1)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Listing returns up to req.Limit posts, following "after" cursors across
// pages. Stickied posts are skipped.
func (c *Client) Listing(ctx context.Context, req ListingRequest) ([]Post, error) {
	sub := strings.TrimPrefix(strings.TrimSpace(req.Subreddit), "r/")
	if sub == "" {
		return nil, services.Wrap(services.ErrValidation, "scrape", "listing", "subreddit required", nil)
	}
	filter := strings.ToLower(strings.TrimSpace(req.Filter))
	if filter == "" {
		filter = "hot"
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 25
	}

	posts := make([]Post, 0, limit)
	after := ""
	for len(posts) < limit {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(min(limit-len(posts), maxPageSize)))
		query.Set("raw_json", "1")
		if filter == "top" || filter == "controversial" {
			if req.TimeFilter != "" {
				query.Set("t", req.TimeFilter)
			}
		}
		if after != "" {
			query.Set("after", after)
		}
		endpoint := fmt.Sprintf("%s/r/%s/%s?%s", c.cfg.APIBaseURL, url.PathEscape(sub), filter, query.Encode())
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		page, next := parseListing(body)
		for _, post := range page {
			if post.Stickied {
				continue
			}
			posts = append(posts, post)
			if len(posts) == limit {
				break
			}
		}
		if next == "" || len(page) == 0 {
			break
		}
		after = next
	}
	return posts, nil
}

func parseListing(body []byte) ([]Post, string) {
	root := gjson.ParseBytes(body)
	children := root.Get("data.children")
	posts := make([]Post, 0, len(children.Array()))
	children.ForEach(func(_, child gjson.Result) bool {
		data := child.Get("data")
		posts = append(posts, Post{
			ID:          data.Get("id").String(),
			Subreddit:   data.Get("subreddit").String(),
			Title:       data.Get("title").String(),
			SelfText:    data.Get("selftext").String(),
			URL:         data.Get("url").String(),
			Score:       int(data.Get("score").Int()),
			NumComments: int(data.Get("num_comments").Int()),
			CreatedUTC:  time.Unix(int64(data.Get("created_utc").Float()), 0).UTC(),
			Over18:      data.Get("over_18").Bool(),
			Stickied:    data.Get("stickied").Bool(),
		})
		return true
	})
	return posts, root.Get("data.after").String()
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("reddit request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	return c.do(req, "listing")
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", services.Wrap(services.ErrConfiguration, "scrape", "token", "reddit client credentials missing", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("reddit token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	body, err := c.do(req, "token")
	if err != nil {
		return "", err
	}
	parsed := gjson.ParseBytes(body)
	token := parsed.Get("access_token").String()
	if token == "" {
		msg := parsed.Get("error").String()
		if msg == "" {
			msg = "no access_token in response"
		}
		return "", services.Wrap(services.ErrConfiguration, "scrape", "token", msg, nil)
	}
	expiresIn := time.Duration(parsed.Get("expires_in").Int()) * time.Second
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	c.token = token
	c.tokenExpiry = c.now().Add(expiresIn - tokenExpirySlack)
	return token, nil
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scrape", operation, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scrape", operation, "read body", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if operation != "token" {
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
		}
		return nil, services.Wrap(services.ErrConfiguration, "scrape", operation, fmt.Sprintf("http %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "scrape", operation, "subreddit not found", nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, services.Wrap(services.ErrTransient, "scrape", operation, fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(body)), nil)
	}
	return body, nil
}

func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 160 {
		s = s[:160] + "..."
	}
	return s
}
