// Package quality runs the final acceptance checks against a fully
// assembled article. An empty issue list is the only pass condition.
package quality

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"autopress/internal/candidates"
	"autopress/internal/core"
	"autopress/internal/textutil"
)

// Options toggles individual rules and sets their thresholds.
type Options struct {
	MinTitleWords         int
	MinLeadWords          int
	MetaDescriptionMin    int
	MetaDescriptionMax    int
	RequireInternalLinks  bool
	MinInternalLinks      int
	BlockMediaOutletPromo bool
	ContextWordMax        int    // -1 disables the rule
	InternalHost          string // bare hostname of the publishing site
}

// DefaultOptions returns the production thresholds.
func DefaultOptions() Options {
	return Options{
		MinTitleWords:         5,
		MinLeadWords:          18,
		MetaDescriptionMin:    130,
		MetaDescriptionMax:    160,
		RequireInternalLinks:  true,
		MinInternalLinks:      1,
		BlockMediaOutletPromo: true,
		ContextWordMax:        2,
	}
}

// Gate evaluates articles against the configured rules.
type Gate struct {
	opts Options
}

func NewGate(opts Options) *Gate {
	return &Gate{opts: opts}
}

var contextWordPattern = regexp.MustCompile(`\bcontext(?:ul|ului)?\b`)

// Evaluate returns every violated rule. The article is not mutated.
func (g *Gate) Evaluate(article *core.Article) []core.QualityIssue {
	var issues []core.QualityIssue
	if article == nil {
		return []core.QualityIssue{core.IssueWeakTitle}
	}

	if !textutil.IsStrongTitle(article.Title, g.opts.MinTitleWords) {
		issues = append(issues, core.IssueWeakTitle)
	}
	if !HasH2(article.ContentHTML) {
		issues = append(issues, core.IssueMissingH2)
	}
	if textutil.WordCount(FirstParagraphText(article.ContentHTML)) < g.opts.MinLeadWords {
		issues = append(issues, core.IssueLeadTooShort)
	}
	metaLength := utf8.RuneCountInString(strings.TrimSpace(article.MetaDescription))
	if metaLength < g.opts.MetaDescriptionMin || metaLength > g.opts.MetaDescriptionMax {
		issues = append(issues, core.IssueMetaDescriptionLen)
	}
	if article.FocusKeyword != "" && !containsNormalized(article.Title, article.FocusKeyword) {
		issues = append(issues, core.IssueKeywordNotInTitle)
	}
	if g.opts.RequireInternalLinks &&
		CountInternalLinks(article.ContentHTML, g.opts.InternalHost) < g.opts.MinInternalLinks {
		issues = append(issues, core.IssueMissingInternalLinks)
	}
	if g.opts.BlockMediaOutletPromo &&
		candidates.IsMediaPromotionText(article.Title+" "+textutil.StripHTML(article.ContentHTML)) {
		issues = append(issues, core.IssueMediaOutletPromo)
	}
	if g.opts.ContextWordMax >= 0 &&
		CountContextWord(article.ContentHTML) > g.opts.ContextWordMax {
		issues = append(issues, core.IssueContextOverused)
	}
	return issues
}

func containsNormalized(haystack, needle string) bool {
	left := textutil.Normalize(haystack)
	right := textutil.Normalize(needle)
	if left == "" || right == "" {
		return false
	}
	return strings.Contains(left, right)
}

// FirstParagraphText extracts the plain text of the first <p>, or the
// whole stripped body when no paragraph markup is present.
func FirstParagraphText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(textutil.StripHTML(html)), " ")
	}
	if paragraph := doc.Find("p").First(); paragraph.Length() > 0 {
		return strings.Join(strings.Fields(paragraph.Text()), " ")
	}
	return strings.Join(strings.Fields(textutil.StripHTML(html)), " ")
}

// HasH2 reports whether the body contains a second-level heading.
func HasH2(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find("h2").Length() > 0
}

// CountInternalLinks counts anchors pointing at the publishing site.
// With no configured host every anchor counts.
func CountInternalLinks(html, internalHost string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	count := 0
	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href := strings.TrimSpace(anchor.AttrOr("href", ""))
		if href == "" {
			return
		}
		if internalHost == "" || strings.HasPrefix(href, "/") {
			count++
			return
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
		if host == internalHost {
			count++
		}
	})
	return count
}

// CountContextWord counts occurrences of the "context" filler word and
// its Romanian articulated forms in the body text.
func CountContextWord(html string) int {
	normalized := textutil.Normalize(textutil.StripHTML(html))
	if normalized == "" {
		return 0
	}
	return len(contextWordPattern.FindAllString(normalized, -1))
}
