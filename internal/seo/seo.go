// Package seo normalizes generated articles into publish-ready shape:
// body sanitization, metadata backfill, heading insertion and
// external-link stripping.
package seo

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"autopress/internal/core"
	"autopress/internal/textutil"
)

// Options carries the length budgets applied during backfill.
type Options struct {
	TitleMaxChars      int
	SEOTitleMaxChars   int
	MetaDescriptionMin int
	MetaDescriptionMax int
	MaxTags            int
	ContextWordMax     int    // occurrences of the filler word kept as-is
	InternalHost       string // bare hostname whose links survive stripping
}

// DefaultOptions returns the production length budgets.
func DefaultOptions() Options {
	return Options{
		TitleMaxChars:      110,
		SEOTitleMaxChars:   60,
		MetaDescriptionMin: 130,
		MetaDescriptionMax: 160,
		MaxTags:            5,
		ContextWordMax:     1,
	}
}

var (
	h1Pattern      = regexp.MustCompile(`(?is)<h1[^>]*>.*?</h1>`)
	closePPattern  = regexp.MustCompile(`(?i)</p>`)
	firstPPattern  = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	anchorPattern  = regexp.MustCompile(`(?is)<a\b[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	contextPhrase  = regexp.MustCompile(`(?i)\b(in|în)\s+contextul\b`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

var contextReplacements = []string{
	"in acest cadru",
	"in aceasta situatie",
	"potrivit datelor disponibile",
}

// SanitizeContent drops a generated <h1> when enough body survives;
// the model sometimes repeats the title as a top-level heading.
func SanitizeContent(content string) string {
	if content == "" {
		return ""
	}
	removed := strings.TrimSpace(h1Pattern.ReplaceAllString(content, ""))
	if textutil.WordCount(textutil.StripHTML(removed)) > 20 {
		return removed
	}
	return strings.TrimSpace(content)
}

// KeywordFromText takes the first maxWords words verbatim.
func KeywordFromText(text string, maxWords int) string {
	fields := strings.Fields(text)
	if len(fields) > maxWords {
		fields = fields[:maxWords]
	}
	return strings.Join(fields, " ")
}

// EnsureSEOFields backfills title, focus keyword, tags, seo title and
// meta description so every published article carries a full SEO set.
func EnsureSEOFields(article *core.Article, fallbackTitle string, opts Options) {
	if article == nil {
		return
	}
	baseTitle := article.Title
	if baseTitle == "" {
		baseTitle = fallbackTitle
	}
	article.Title = textutil.CleanTitle(baseTitle, opts.TitleMaxChars)

	if article.FocusKeyword == "" {
		article.FocusKeyword = KeywordFromText(baseTitle, 4)
	}
	article.FocusKeyword = textutil.CleanTitle(article.FocusKeyword, 80)
	if !containsNormalized(article.Title, article.FocusKeyword) {
		article.FocusKeyword = KeywordFromText(article.Title, 3)
	}
	article.FocusKeyword = textutil.TruncateAtWord(article.FocusKeyword, 80)

	tags := append([]string{}, article.Tags...)
	tags = append(tags,
		article.FocusKeyword,
		KeywordFromText(baseTitle, 3),
		KeywordFromText(baseTitle, 2),
	)
	tags = textutil.UniqueStrings(tags)
	if len(tags) > opts.MaxTags {
		tags = tags[:opts.MaxTags]
	}
	article.Tags = tags

	if article.SEOTitle == "" {
		article.SEOTitle = article.Title
	}
	article.SEOTitle = textutil.CleanTitle(article.SEOTitle, opts.SEOTitleMaxChars)
	if !containsNormalized(article.SEOTitle, article.FocusKeyword) {
		article.SEOTitle = textutil.CleanTitle(article.Title, opts.SEOTitleMaxChars)
	}

	meta := strings.TrimSpace(whitespaceRuns.ReplaceAllString(article.MetaDescription, " "))
	meta = textutil.TruncateAtWord(meta, opts.MetaDescriptionMax)
	if meta == "" || utf8.RuneCountInString(meta) < opts.MetaDescriptionMin {
		meta = buildMetaDescription(article, opts)
	}
	article.MetaDescription = meta

	EnsureH2WithKeyword(article)
}

// buildMetaDescription assembles a description from the lead paragraph,
// prefixed with the focus keyword and padded from the body when short.
func buildMetaDescription(article *core.Article, opts Options) string {
	lead := firstParagraphText(article.ContentHTML)
	body := strings.TrimSpace(whitespaceRuns.ReplaceAllString(textutil.StripHTML(article.ContentHTML), " "))

	candidate := lead
	if candidate == "" {
		candidate = article.MetaDescription
	}
	if candidate == "" {
		candidate = article.Title
	}
	candidate = strings.TrimSpace(whitespaceRuns.ReplaceAllString(candidate, " "))

	if article.FocusKeyword != "" && !containsNormalized(candidate, article.FocusKeyword) {
		candidate = strings.TrimSpace(article.FocusKeyword + ": " + candidate)
	}
	if utf8.RuneCountInString(candidate) < opts.MetaDescriptionMin && body != "" {
		candidate = strings.TrimSpace(whitespaceRuns.ReplaceAllString(candidate+" "+body, " "))
	}
	candidate = textutil.TruncateAtWord(candidate, opts.MetaDescriptionMax)

	if utf8.RuneCountInString(candidate) < opts.MetaDescriptionMin {
		fallback := strings.TrimSpace(whitespaceRuns.ReplaceAllString(article.Title+". "+lead, " "))
		if len(fallback) > len(candidate) {
			candidate = textutil.TruncateAtWord(fallback, opts.MetaDescriptionMax)
		}
	}
	return candidate
}

// EnsureH2WithKeyword inserts a keyword-bearing <h2> after the lead
// paragraph when the body has no second-level heading at all.
func EnsureH2WithKeyword(article *core.Article) {
	if article == nil || article.ContentHTML == "" {
		return
	}
	if hasH2(article.ContentHTML) {
		return
	}
	headingText := article.FocusKeyword
	if headingText == "" {
		headingText = article.Title
	}
	headingText = textutil.CleanTitle(headingText, 80)
	if headingText == "" {
		headingText = "Detalii"
	}
	heading := fmt.Sprintf("<h2>%s</h2>", html.EscapeString(headingText))

	loc := closePPattern.FindStringIndex(article.ContentHTML)
	if loc == nil {
		article.ContentHTML = heading + "\n" + article.ContentHTML
		return
	}
	insertAt := loc[1]
	article.ContentHTML = article.ContentHTML[:insertAt] + "\n" + heading + "\n" + article.ContentHTML[insertAt:]
}

// RemoveExternalLinks unwraps anchors that point off-site, keeping only
// the anchor text. Relative links and the configured host survive.
func RemoveExternalLinks(content, internalHost string) string {
	return anchorPattern.ReplaceAllStringFunc(content, func(full string) string {
		groups := anchorPattern.FindStringSubmatch(full)
		if groups == nil {
			return full
		}
		if isInternalHref(groups[1], internalHost) {
			return full
		}
		return groups[2]
	})
}

func isInternalHref(href, internalHost string) bool {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "#") {
		return true
	}
	// Unknown site host: keep everything rather than strip links that
	// may well be internal.
	if internalHost == "" {
		return true
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
	return host == internalHost
}

// ReduceContextRepetition rotates replacement phrases in for the
// overused "in contextul" filler past the allowed occurrence count.
func ReduceContextRepetition(content string, maxOccurrences int) string {
	if content == "" {
		return ""
	}
	limit := maxOccurrences
	if limit < 0 {
		limit = 0
	}
	seen := 0
	return contextPhrase.ReplaceAllStringFunc(content, func(match string) string {
		seen++
		if seen <= limit {
			return match
		}
		replacement := contextReplacements[(seen-limit-1)%len(contextReplacements)]
		first, _ := utf8.DecodeRuneInString(match)
		if first == 'I' || first == 'Î' {
			return strings.ToUpper(replacement[:1]) + replacement[1:]
		}
		return replacement
	})
}

func firstParagraphText(content string) string {
	groups := firstPPattern.FindStringSubmatch(content)
	raw := content
	if groups != nil {
		raw = groups[1]
	}
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(textutil.StripHTML(raw), " "))
}

func hasH2(content string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return false
	}
	return doc.Find("h2").Length() > 0
}

func containsNormalized(haystack, needle string) bool {
	left := textutil.Normalize(haystack)
	right := textutil.Normalize(needle)
	if left == "" || right == "" {
		return false
	}
	return strings.Contains(left, right)
}
