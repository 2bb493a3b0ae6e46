// Package images finds and downloads a featured image for an article,
// preferring feed-provided candidates and falling back to scraping the
// source page.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"autopress/internal/logger"
)

// Options tunes candidate discovery and download validation.
type Options struct {
	MinBytes      int           // reject thumbnails and tracking pixels
	ScrapeEnabled bool          // fetch the source page for more candidates
	MaxCandidates int           // download attempts before giving up
	Timeout       time.Duration // per-request timeout
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MinBytes:      12000,
		ScrapeEnabled: true,
		MaxCandidates: 10,
		Timeout:       12 * time.Second,
	}
}

// Image is a validated downloaded image ready for upload.
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
	SourceURL   string
}

var (
	// ErrNoCandidates means neither the feed nor the page offered a
	// usable image URL.
	ErrNoCandidates = errors.New("images: no usable candidates")

	decorativePattern = regexp.MustCompile(`(?i)logo|icon|favicon|avatar|sprite|ads?|banner|watermark`)
)

// Fetcher downloads featured images.
type Fetcher struct {
	opts   Options
	client *http.Client
}

// NewFetcher builds a fetcher; zero-value option fields fall back to
// defaults.
func NewFetcher(opts Options) *Fetcher {
	defaults := DefaultOptions()
	if opts.MinBytes <= 0 {
		opts.MinBytes = defaults.MinBytes
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = defaults.MaxCandidates
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	return &Fetcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Fetch tries the feed candidates first, then candidates scraped from
// the source page, and returns the first downloadable image that passes
// validation.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string, feedCandidates []string) (*Image, error) {
	candidates := make([]string, 0, len(feedCandidates))
	for _, candidate := range feedCandidates {
		if absolute := absoluteURL(candidate, sourceURL); absolute != "" {
			candidates = append(candidates, absolute)
		}
	}

	if f.opts.ScrapeEnabled && isHTTPURL(sourceURL) {
		scraped, err := f.scrapePage(ctx, sourceURL)
		if err != nil {
			logger.Debug("source image scrape skipped", "url", sourceURL, "error", err)
		} else {
			candidates = append(candidates, scraped...)
		}
	}

	usable := make([]string, 0, len(candidates))
	seen := make(map[string]struct{})
	for _, candidate := range candidates {
		key := stripFragment(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if decorativePattern.MatchString(candidate) {
			continue
		}
		usable = append(usable, candidate)
	}
	if len(usable) == 0 {
		return nil, ErrNoCandidates
	}
	if len(usable) > f.opts.MaxCandidates {
		usable = usable[:f.opts.MaxCandidates]
	}

	var lastErr error
	for _, candidate := range usable {
		img, err := f.download(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		return img, nil
	}
	return nil, fmt.Errorf("images: no candidate downloaded: %w", lastErr)
}

// CandidatesFromHTML extracts image URLs from a page, in preference
// order: og:image, twitter:image, link[rel=image_src], then inline img
// tags.
func CandidatesFromHTML(pageHTML, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}
	var found []string
	add := func(value string) {
		if absolute := absoluteURL(value, baseURL); absolute != "" {
			found = append(found, absolute)
		}
	}
	doc.Find(`meta[property="og:image"], meta[property="og:image:secure_url"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})
	doc.Find(`meta[name="twitter:image"], meta[name="twitter:image:src"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})
	doc.Find(`link[rel="image_src"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("href", ""))
	})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if len(found) >= 30 {
			return
		}
		add(s.AttrOr("src", ""))
	})

	unique := make([]string, 0, len(found))
	seen := make(map[string]struct{})
	for _, candidate := range found {
		key := stripFragment(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, candidate)
	}
	return unique
}

func (f *Fetcher) scrapePage(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "autopress/1.0 (+image scraper)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	return CandidatesFromHTML(string(body), pageURL), nil
}

func (f *Fetcher) download(ctx context.Context, imageURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "autopress/1.0 (+image scraper)")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, imageURL)
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("invalid content type %q for %s", contentType, imageURL)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	if len(data) < f.opts.MinBytes {
		return nil, fmt.Errorf("image too small (%d bytes) from %s", len(data), imageURL)
	}
	return &Image{
		Data:        data,
		ContentType: contentType,
		Filename:    "featured." + extensionFor(contentType),
		SourceURL:   imageURL,
	}, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "gif"):
		return "gif"
	default:
		return "jpg"
	}
}

func isHTTPURL(value string) bool {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

func absoluteURL(value, baseURL string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}
	if isHTTPURL(raw) {
		return raw
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func stripFragment(value string) string {
	if idx := strings.IndexByte(value, '#'); idx >= 0 {
		return value[:idx]
	}
	return value
}
