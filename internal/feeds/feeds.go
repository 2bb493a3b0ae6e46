// Package feeds collects raw news candidates from the configured RSS
// sources, honoring the per-group mix and collapsing stories already
// seen during the run.
package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"autopress/internal/core"
	"autopress/internal/dedup"
	"autopress/internal/logger"
	"autopress/internal/textutil"
)

// RSS is the top-level feed document.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel Channel  `xml:"channel"`
}

// Channel holds the feed items.
type Channel struct {
	Title string    `xml:"title"`
	Items []RSSItem `xml:"item"`
}

// RSSItem is one entry in the feed.
type RSSItem struct {
	Title       string      `xml:"title"`
	Link        string      `xml:"link"`
	Description string      `xml:"description"`
	Content     string      `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string      `xml:"pubDate"`
	GUID        string      `xml:"guid"`
	Enclosure   Enclosure   `xml:"enclosure"`
	Media       []MediaItem `xml:"http://search.yahoo.com/mrss/ content"`
}

// Enclosure is the classic RSS media attachment.
type Enclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// MediaItem is a media-RSS content element.
type MediaItem struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// Collector fetches the catalog's sources and emits candidates.
type Collector struct {
	catalog *Catalog
	client  *http.Client
	engine  *dedup.Engine
	rng     *rand.Rand
}

// NewCollector wires a collector over the catalog. The dedup engine's
// run-local seen-set collapses cross-feed repeats; rng shuffles source
// order per run and may be nil for a time-seeded one.
func NewCollector(catalog *Catalog, engine *dedup.Engine, rng *rand.Rand) *Collector {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Collector{
		catalog: catalog,
		client:  &http.Client{Timeout: 30 * time.Second},
		engine:  engine,
		rng:     rng,
	}
}

// Collect gathers up to limit candidates, split between the romania
// and externe groups per the configured mix. Source order inside each
// group is randomized per run. Fetch failures skip the source.
func (c *Collector) Collect(ctx context.Context, limit int) []core.CandidateItem {
	if limit <= 0 {
		return nil
	}
	romaniaTarget := int(math.Round(float64(limit) * c.catalog.Mix.Romania))
	externeTarget := limit - romaniaTarget

	romania := c.collectGroup(ctx, "romania", romaniaTarget)
	externe := c.collectGroup(ctx, "externe", externeTarget)

	items := append(romania, externe...)
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (c *Collector) collectGroup(ctx context.Context, group string, target int) []core.CandidateItem {
	if target <= 0 {
		return nil
	}
	sources := c.catalog.Group(group)
	c.rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})

	var items []core.CandidateItem
	for _, source := range sources {
		if len(items) >= target {
			break
		}
		fetched, err := c.FetchSource(ctx, source)
		if err != nil {
			logger.Warn("feed fetch failed", "source", source.Name, "error", err)
			continue
		}
		items = append(items, fetched...)
	}
	if len(items) > target {
		items = items[:target]
	}
	return items
}

// FetchSource downloads and parses one feed, returning at most the
// source's per-run cap of unseen items.
func (c *Collector) FetchSource(ctx context.Context, source Source) ([]core.CandidateItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("User-Agent", "autopress/1.0 (+rss collector)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}
	return c.parseFeed(body, source)
}

func (c *Collector) parseFeed(data []byte, source Source) ([]core.CandidateItem, error) {
	var feed RSS
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed XML: %w", err)
	}

	var items []core.CandidateItem
	for _, raw := range feed.Channel.Items {
		if len(items) >= source.MaxPerRun {
			break
		}
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			continue
		}
		if c.engine != nil && c.engine.MarkSeen(dedup.SeenKey(title, raw.Link, raw.GUID)) {
			continue
		}
		items = append(items, core.CandidateItem{
			Title:           title,
			Content:         itemContent(raw),
			Link:            strings.TrimSpace(raw.Link),
			GUID:            strings.TrimSpace(raw.GUID),
			Source:          sourceName(source, title),
			CategoryID:      source.CategoryID,
			PublishedAt:     parsePubDate(raw.PubDate),
			ImageCandidates: imageCandidates(raw),
		})
	}
	return items, nil
}

func itemContent(item RSSItem) string {
	content := strings.TrimSpace(item.Content)
	if content == "" {
		content = strings.TrimSpace(item.Description)
	}
	return strings.Join(strings.Fields(textutil.StripHTML(content)), " ")
}

// sourceName prefers the publisher suffix aggregators append to item
// titles, falling back to the catalog name.
func sourceName(source Source, title string) string {
	for _, separator := range []string{" - ", " – ", " — "} {
		if idx := strings.LastIndex(title, separator); idx > 0 {
			suffix := strings.TrimSpace(title[idx+len(separator):])
			if suffix != "" && len(strings.Fields(suffix)) <= 6 {
				return suffix
			}
		}
	}
	return source.Name
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
}

func parsePubDate(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	for _, layout := range pubDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

func imageCandidates(item RSSItem) []string {
	var urls []string
	add := func(url, kind string) {
		trimmed := strings.TrimSpace(url)
		if trimmed == "" {
			return
		}
		if kind != "" && !strings.HasPrefix(kind, "image/") {
			return
		}
		for _, existing := range urls {
			if existing == trimmed {
				return
			}
		}
		urls = append(urls, trimmed)
	}
	add(item.Enclosure.URL, item.Enclosure.Type)
	for _, media := range item.Media {
		add(media.URL, media.Type)
	}
	return urls
}
