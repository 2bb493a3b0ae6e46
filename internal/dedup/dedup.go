// Package dedup decides whether a candidate story has already been
// covered, combining a run-local seen-set, the persisted publication
// history and a remote existing-content check.
package dedup

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"autopress/internal/core"
	"autopress/internal/textutil"
)

// HistoryReader is the slice of the history store the engine needs.
type HistoryReader interface {
	All() ([]core.HistoryEntry, error)
	Recent(window time.Duration, now time.Time) ([]core.HistoryEntry, error)
}

// RemoteItem is a previously published item in the content store.
type RemoteItem struct {
	ID    int
	URL   string
	Title string
}

// RemoteChecker queries the content store for existing coverage.
type RemoteChecker interface {
	FindBySlug(ctx context.Context, slug string) (*RemoteItem, error)
	SearchByTitle(ctx context.Context, title string) ([]RemoteItem, error)
	ListRecent(ctx context.Context, categoryID, limit int) ([]RemoteItem, error)
}

// Options tunes the fuzzy-matching thresholds.
type Options struct {
	Window            time.Duration // history recency window
	OverlapRatio      float64       // minimum topic-overlap ratio
	MinOverlapCount   int           // minimum shared meaningful tokens
	RemoteRecentLimit int           // how many recent remote items to sweep
}

// DefaultOptions returns the tuned production thresholds.
func DefaultOptions() Options {
	return Options{
		Window:            72 * time.Hour,
		OverlapRatio:      0.8,
		MinOverlapCount:   4,
		RemoteRecentLimit: 20,
	}
}

// Engine holds the run-local seen-set and the duplicate thresholds.
// It is not safe for concurrent use; a run owns exactly one engine.
type Engine struct {
	opts    Options
	history HistoryReader
	seen    map[string]struct{}
}

// NewEngine builds an engine over the given history reader. A nil
// reader disables the history layer.
func NewEngine(opts Options, history HistoryReader) *Engine {
	if opts.Window <= 0 {
		opts.Window = DefaultOptions().Window
	}
	if opts.OverlapRatio <= 0 {
		opts.OverlapRatio = DefaultOptions().OverlapRatio
	}
	if opts.MinOverlapCount <= 0 {
		opts.MinOverlapCount = DefaultOptions().MinOverlapCount
	}
	if opts.RemoteRecentLimit <= 0 {
		opts.RemoteRecentLimit = DefaultOptions().RemoteRecentLimit
	}
	return &Engine{
		opts:    opts,
		history: history,
		seen:    make(map[string]struct{}),
	}
}

// CanonicalURL strips fragments, tracking parameters and trailing
// slashes so the same story URL hashes identically across feeds.
func CanonicalURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return strings.ToLower(trimmed)
	}
	parsed.Fragment = ""
	query := parsed.Query()
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), "utm_") || key == "fbclid" || key == "gclid" {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String()
}

// SeenKey hashes the identity signals of a raw feed item.
func SeenKey(title, link, guid string) string {
	payload := textutil.Normalize(title) + "|" + CanonicalURL(link) + "|" + strings.TrimSpace(guid)
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// MarkSeen records a key and reports whether it was already present,
// collapsing the same story arriving from multiple feeds in one run.
func (e *Engine) MarkSeen(key string) bool {
	if _, ok := e.seen[key]; ok {
		return true
	}
	e.seen[key] = struct{}{}
	return false
}

// InHistory checks the candidate against the persisted history: an
// exact title-key or source-URL match over everything still retained,
// or a fuzzy topic overlap within the recency window. The returned
// reason is empty when no match.
func (e *Engine) InHistory(title, sourceURL string, now time.Time) (bool, string, error) {
	if e.history == nil {
		return false, "", nil
	}
	all, err := e.history.All()
	if err != nil {
		return false, "", fmt.Errorf("failed to read history: %w", err)
	}

	titleKey := textutil.Normalize(title)
	canonical := CanonicalURL(sourceURL)
	tokens := textutil.TopicTokens(title, textutil.DefaultTopicTokens)

	for _, entry := range all {
		if titleKey != "" && entry.TitleKey == titleKey {
			return true, "history_title", nil
		}
		if canonical != "" && CanonicalURL(entry.SourceURL) == canonical {
			return true, "history_source_url", nil
		}
	}

	entries, err := e.history.Recent(e.opts.Window, now)
	if err != nil {
		return false, "", fmt.Errorf("failed to read history: %w", err)
	}
	for _, entry := range entries {
		ratio := textutil.TopicOverlapRatio(tokens, entry.TopicTokens)
		count := textutil.TopicOverlapCount(tokens, entry.TopicTokens)
		if ratio >= e.opts.OverlapRatio && count >= e.opts.MinOverlapCount {
			return true, "history_topic_overlap", nil
		}
	}
	return false, "", nil
}

// ExistsRemote asks the content store whether the story is already
// published: candidate slugs first, then a title search, then a fuzzy
// sweep over the most recent items in the category.
func (e *Engine) ExistsRemote(ctx context.Context, remote RemoteChecker, slugs []string, title string, categoryID int) (bool, string, error) {
	if remote == nil {
		return false, "", nil
	}
	for _, slug := range slugs {
		item, err := remote.FindBySlug(ctx, slug)
		if err != nil {
			return false, "", fmt.Errorf("slug lookup failed: %w", err)
		}
		if item != nil {
			return true, "remote_slug", nil
		}
	}

	results, err := remote.SearchByTitle(ctx, title)
	if err != nil {
		return false, "", fmt.Errorf("title search failed: %w", err)
	}
	titleKey := textutil.Normalize(title)
	prefix := titlePrefix(titleKey, 6)
	for _, item := range results {
		remoteKey := textutil.Normalize(item.Title)
		if remoteKey == titleKey {
			return true, "remote_title_exact", nil
		}
		if prefix != "" && titlePrefix(remoteKey, 6) == prefix {
			return true, "remote_title_prefix", nil
		}
	}

	recent, err := remote.ListRecent(ctx, categoryID, e.opts.RemoteRecentLimit)
	if err != nil {
		return false, "", fmt.Errorf("recent listing failed: %w", err)
	}
	tokens := textutil.TopicTokens(title, textutil.DefaultTopicTokens)
	for _, item := range recent {
		remoteTokens := textutil.TopicTokens(item.Title, textutil.DefaultTopicTokens)
		ratio := textutil.TopicOverlapRatio(tokens, remoteTokens)
		count := textutil.TopicOverlapCount(tokens, remoteTokens)
		if ratio >= e.opts.OverlapRatio && count >= e.opts.MinOverlapCount {
			return true, "remote_topic_overlap", nil
		}
	}
	return false, "", nil
}

func titlePrefix(normalized string, words int) string {
	fields := strings.Fields(normalized)
	if len(fields) < words {
		return ""
	}
	return strings.Join(fields[:words], " ")
}
