// Package wordpress is the REST client for the publishing target:
// post creation and promotion, media upload, duplicate lookups and
// daily counters.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"autopress/internal/core"
	"autopress/internal/dedup"
	"autopress/internal/logger"
)

// StatusError is a non-2xx REST response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wordpress: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryableError reports whether a publish failure is transient
// backpressure (rate limit, server error, connection trouble) rather
// than a terminal rejection.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

// Client talks to a WordPress-style REST API with application-password
// basic auth.
type Client struct {
	baseURL     string
	username    string
	appPassword string
	http        *http.Client
}

// NewClient builds a client for the site at baseURL.
func NewClient(baseURL, username, appPassword string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		appPassword: appPassword,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

// Host returns the site's bare hostname, used to tell internal links
// from external ones.
func (c *Client) Host() string {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
}

type renderedField struct {
	Rendered string `json:"rendered"`
}

// Post is the REST representation fields the pipeline reads.
type Post struct {
	ID            int           `json:"id"`
	Link          string        `json:"link"`
	Slug          string        `json:"slug"`
	Status        string        `json:"status"`
	Title         renderedField `json:"title"`
	FeaturedMedia int           `json:"featured_media"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	endpoint := c.baseURL + "/wp-json/wp/v2" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Header, nil
}

func toRemoteItems(posts []Post) []dedup.RemoteItem {
	items := make([]dedup.RemoteItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, dedup.RemoteItem{
			ID:    post.ID,
			URL:   post.Link,
			Title: post.Title.Rendered,
		})
	}
	return items
}

// FindBySlug returns the published post with the given slug, or nil.
func (c *Client) FindBySlug(ctx context.Context, slug string) (*dedup.RemoteItem, error) {
	query := url.Values{}
	query.Set("slug", slug)
	query.Set("per_page", "1")
	var posts []Post
	if _, err := c.getJSON(ctx, "/posts", query, &posts); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	items := toRemoteItems(posts)
	return &items[0], nil
}

// SearchByTitle runs a full-text search over published posts.
func (c *Client) SearchByTitle(ctx context.Context, title string) ([]dedup.RemoteItem, error) {
	query := url.Values{}
	query.Set("search", title)
	query.Set("per_page", "10")
	var posts []Post
	if _, err := c.getJSON(ctx, "/posts", query, &posts); err != nil {
		return nil, err
	}
	return toRemoteItems(posts), nil
}

// ListRecent returns the newest posts, scoped to a category when
// categoryID is positive.
func (c *Client) ListRecent(ctx context.Context, categoryID, limit int) ([]dedup.RemoteItem, error) {
	if limit <= 0 {
		limit = 10
	}
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("orderby", "date")
	query.Set("order", "desc")
	if categoryID > 0 {
		query.Set("categories", strconv.Itoa(categoryID))
	}
	var posts []Post
	if _, err := c.getJSON(ctx, "/posts", query, &posts); err != nil {
		return nil, err
	}
	return toRemoteItems(posts), nil
}

// CreateOptions controls post creation.
type CreateOptions struct {
	Slug    string
	TwoStep bool // create as draft, then promote to published
}

// CreatePost publishes an article and returns the new post id. With
// TwoStep the post is created as a draft and promoted afterwards, so a
// failure between the calls never exposes a half-built public post.
func (c *Client) CreatePost(ctx context.Context, article *core.Article, categoryID, featuredMediaID int, opts CreateOptions) (int, error) {
	status := "publish"
	if opts.TwoStep {
		status = "draft"
	}
	payload := map[string]any{
		"title":   article.Title,
		"content": article.ContentHTML,
		"excerpt": article.MetaDescription,
		"status":  status,
	}
	if opts.Slug != "" {
		payload["slug"] = opts.Slug
	}
	if categoryID > 0 {
		payload["categories"] = []int{categoryID}
	}
	if featuredMediaID > 0 {
		payload["featured_media"] = featuredMediaID
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode post: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/posts", nil, bytes.NewReader(encoded), "application/json")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var created Post
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, fmt.Errorf("failed to decode created post: %w", err)
	}

	if opts.TwoStep {
		if err := c.UpdatePost(ctx, created.ID, map[string]any{"status": "publish"}); err != nil {
			return created.ID, fmt.Errorf("failed to promote draft %d: %w", created.ID, err)
		}
	}

	if featuredMediaID > 0 {
		if err := c.reconcileFeaturedMedia(ctx, created.ID, featuredMediaID); err != nil {
			logger.Warn("featured media reconciliation failed", "post", created.ID, "error", err)
		}
	}
	return created.ID, nil
}

// reconcileFeaturedMedia re-attaches the featured image when the store
// dropped it from the created post. Some installs silently discard the
// field on create.
func (c *Client) reconcileFeaturedMedia(ctx context.Context, postID, mediaID int) error {
	post, err := c.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.FeaturedMedia == mediaID {
		return nil
	}
	return c.UpdatePost(ctx, postID, map[string]any{"featured_media": mediaID})
}

// UpdatePost patches fields on an existing post.
func (c *Client) UpdatePost(ctx context.Context, id int, patch map[string]any) error {
	encoded, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/posts/"+strconv.Itoa(id), nil, bytes.NewReader(encoded), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// GetPost fetches one post by id.
func (c *Client) GetPost(ctx context.Context, id int) (*Post, error) {
	var post Post
	if _, err := c.getJSON(ctx, "/posts/"+strconv.Itoa(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// MediaMeta annotates an uploaded image.
type MediaMeta struct {
	Filename string
	Title    string
	AltText  string
	Caption  string
}

type mediaResponse struct {
	ID int `json:"id"`
}

// UploadMedia pushes image bytes into the media library and returns
// the media id.
func (c *Client) UploadMedia(ctx context.Context, data []byte, contentType string, meta MediaMeta) (int, error) {
	filename := meta.Filename
	if filename == "" {
		filename = "featured.jpg"
	}
	endpoint := c.baseURL + "/wp-json/wp/v2/media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to build media request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return 0, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	var media mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return 0, fmt.Errorf("failed to decode media response: %w", err)
	}

	if meta.Title != "" || meta.AltText != "" || meta.Caption != "" {
		patch := map[string]any{}
		if meta.Title != "" {
			patch["title"] = meta.Title
		}
		if meta.AltText != "" {
			patch["alt_text"] = meta.AltText
		}
		if meta.Caption != "" {
			patch["caption"] = meta.Caption
		}
		encoded, err := json.Marshal(patch)
		if err == nil {
			if resp, err := c.do(ctx, http.MethodPost, "/media/"+strconv.Itoa(media.ID), nil, bytes.NewReader(encoded), "application/json"); err == nil {
				resp.Body.Close()
			}
		}
	}
	return media.ID, nil
}

// CountPublishedToday counts posts published since local midnight in
// the given category, read from the X-WP-Total header.
func (c *Client) CountPublishedToday(ctx context.Context, categoryID int, loc *time.Location) (int, error) {
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	query := url.Values{}
	query.Set("after", midnight.Format(time.RFC3339))
	query.Set("per_page", "1")
	query.Set("status", "publish")
	if categoryID > 0 {
		query.Set("categories", strconv.Itoa(categoryID))
	}
	var posts []Post
	headers, err := c.getJSON(ctx, "/posts", query, &posts)
	if err != nil {
		return 0, err
	}
	total := headers.Get("X-WP-Total")
	if total == "" {
		return len(posts), nil
	}
	count, err := strconv.Atoi(total)
	if err != nil {
		return len(posts), nil
	}
	return count, nil
}
