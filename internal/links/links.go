// Package links rewrites article bodies to point at previously
// published coverage, picking anchor phrases from the targets' own
// titles and linking the first unlinked occurrence in the body.
package links

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"autopress/internal/core"
	"autopress/internal/textutil"
)

// Options controls anchor selection for one article.
type Options struct {
	ArticleTitle string
	FocusKeyword string
	MaxLinks     int
}

var (
	paragraphPattern  = regexp.MustCompile(`(?is)<p\b[^>]*>.*?</p>`)
	anchorTagPattern  = regexp.MustCompile(`(?i)<a\b[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

const (
	anchorWindowLimit = 8   // sliding windows inspected per phrase size
	minPhraseChars    = 10  // multi-word anchors shorter than this are noise
	minSingleWordLen  = 6   // single-word anchors must be substantial
	exactPhraseBonus  = 15  // scoring bonus for a verbatim phrase match
	maxTitleChars     = 120 // target titles are cleaned to this length
)

// Inject places up to opts.MaxLinks internal links into contentHTML and
// returns the rewritten body with the number of links actually placed.
// The input is returned untouched when nothing can be linked.
func Inject(contentHTML string, targets []core.LinkTarget, opts Options) (string, int) {
	if contentHTML == "" || opts.MaxLinks <= 0 {
		return contentHTML, 0
	}
	pool := uniqueByURL(targets)
	if len(pool) == 0 {
		return contentHTML, 0
	}
	paragraphs := paragraphPattern.FindAllString(contentHTML, -1)
	if len(paragraphs) == 0 {
		return contentHTML, 0
	}

	bodyText := whitespacePattern.ReplaceAllString(textutil.StripHTML(contentHTML), " ")
	bodyText = strings.TrimSpace(bodyText)
	tokenSource := opts.ArticleTitle + " " + opts.FocusKeyword + " " + firstChunk(textutil.StripHTML(contentHTML), 3000)
	articleTokens := make(map[string]struct{})
	for _, token := range textutil.MeaningfulTokens(tokenSource) {
		articleTokens[token] = struct{}{}
	}

	normalizedTitle := textutil.Normalize(opts.ArticleTitle)
	type candidate struct {
		url    string
		anchor string
		score  int
	}
	var candidates []candidate
	for _, target := range pool {
		title := strings.TrimSpace(textutil.StripHTML(target.Title))
		url := strings.TrimSpace(target.URL)
		if title == "" || url == "" {
			continue
		}
		if textutil.Normalize(title) == normalizedTitle {
			continue
		}
		if hasExistingURL(contentHTML, url) {
			continue
		}
		anchor, score, ok := pickBestAnchor(title, articleTokens, bodyText)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{url: url, anchor: anchor, score: score})
	}
	if len(candidates) == 0 {
		return contentHTML, 0
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	updated := make([]string, len(paragraphs))
	copy(updated, paragraphs)
	usedAnchors := make(map[string]struct{})
	linked := 0

	place := func(anchor, url string, startIndex int) bool {
		for index := startIndex; index < len(updated); index++ {
			paragraph := updated[index]
			if anchorTagPattern.MatchString(paragraph) {
				continue
			}
			if !containsNormalized(textutil.StripHTML(paragraph), anchor) {
				continue
			}
			next, ok := injectAnchor(paragraph, anchor, url)
			if !ok {
				continue
			}
			updated[index] = next
			return true
		}
		return false
	}

	for _, cand := range candidates {
		if linked >= opts.MaxLinks {
			break
		}
		anchorKey := textutil.Normalize(cand.anchor)
		if _, used := usedAnchors[anchorKey]; used {
			continue
		}
		// The lead paragraph is linked only when nothing else matched.
		placed := place(cand.anchor, cand.url, 1)
		if !placed {
			placed = place(cand.anchor, cand.url, 0)
		}
		if !placed {
			continue
		}
		usedAnchors[anchorKey] = struct{}{}
		linked++
	}
	if linked == 0 {
		return contentHTML, 0
	}

	pointer := 0
	result := paragraphPattern.ReplaceAllStringFunc(contentHTML, func(string) string {
		next := updated[pointer]
		pointer++
		return next
	})
	return result, linked
}

// AnchorCandidates derives linkable phrases from a target title: word
// windows of 2-5 plus substantial single words, noise filtered out.
func AnchorCandidates(title string) []string {
	cleaned := textutil.CleanTitle(textutil.StripHTML(title), maxTitleChars)
	if cleaned == "" {
		return nil
	}
	words := strings.Fields(cleaned)
	if len(words) < 2 {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(phrase string) {
		if _, ok := seen[phrase]; ok {
			return
		}
		seen[phrase] = struct{}{}
		out = append(out, phrase)
	}

	for _, size := range []int{5, 4, 3, 2} {
		if len(words) < size {
			continue
		}
		windows := len(words) - size + 1
		if windows > anchorWindowLimit {
			windows = anchorWindowLimit
		}
		for start := 0; start < windows; start++ {
			phrase := strings.Join(words[start:start+size], " ")
			if len(textutil.MeaningfulTokens(phrase)) < 2 || len(phrase) < minPhraseChars {
				continue
			}
			add(phrase)
		}
	}
	for _, word := range words {
		token := textutil.Normalize(word)
		if len(token) < minSingleWordLen {
			continue
		}
		if _, stop := textutil.Stopwords[token]; stop {
			continue
		}
		if _, generic := textutil.GenericTokens[token]; generic {
			continue
		}
		add(word)
	}
	return out
}

func pickBestAnchor(targetTitle string, articleTokens map[string]struct{}, bodyText string) (string, int, bool) {
	bestAnchor, bestScore := "", -1
	for _, anchor := range AnchorCandidates(targetTitle) {
		tokens := textutil.MeaningfulTokens(anchor)
		if len(tokens) == 0 {
			continue
		}
		matched := 0
		for _, token := range tokens {
			if _, ok := articleTokens[token]; ok {
				matched++
			}
		}
		minimumMatches := 1
		if len(tokens) > 1 {
			minimumMatches = (len(tokens)*6 + 9) / 10 // ceil(0.6 * n)
			if minimumMatches < 2 {
				minimumMatches = 2
			}
		}
		if matched < minimumMatches {
			continue
		}
		exactPhrase := containsNormalized(bodyText, anchor)
		if !exactPhrase && len(tokens) > 1 {
			continue
		}
		score := matched*10 + len(anchor)
		if exactPhrase {
			score += exactPhraseBonus
		}
		if score > bestScore {
			bestAnchor, bestScore = anchor, score
		}
	}
	if bestScore < 0 {
		return "", 0, false
	}
	return bestAnchor, bestScore, true
}

// injectAnchor wraps the first whole-word occurrence of anchorText in a
// hyperlink. Paragraphs that already contain a link are left alone.
func injectAnchor(paragraphHTML, anchorText, url string) (string, bool) {
	if paragraphHTML == "" || anchorText == "" || url == "" {
		return paragraphHTML, false
	}
	if anchorTagPattern.MatchString(paragraphHTML) {
		return paragraphHTML, false
	}
	pattern, err := regexp.Compile(
		`(?i)(^|[\s(\["'])(` + regexp.QuoteMeta(anchorText) + `)($|[\s)\],.!?:;"'])`)
	if err != nil {
		return paragraphHTML, false
	}
	loc := pattern.FindStringSubmatchIndex(paragraphHTML)
	if loc == nil {
		return paragraphHTML, false
	}
	prefix := paragraphHTML[loc[2]:loc[3]]
	match := paragraphHTML[loc[4]:loc[5]]
	suffix := paragraphHTML[loc[6]:loc[7]]
	replacement := fmt.Sprintf(`%s<a href="%s">%s</a>%s`, prefix, url, match, suffix)
	return paragraphHTML[:loc[0]] + replacement + paragraphHTML[loc[1]:], true
}

func hasExistingURL(html, url string) bool {
	if html == "" || url == "" {
		return false
	}
	pattern, err := regexp.Compile(`(?i)<a\b[^>]*href=["']` + regexp.QuoteMeta(url) + `["'][^>]*>`)
	if err != nil {
		return false
	}
	return pattern.MatchString(html)
}

func containsNormalized(haystack, needle string) bool {
	left := textutil.Normalize(haystack)
	right := textutil.Normalize(needle)
	if left == "" || right == "" {
		return false
	}
	return strings.Contains(left, right)
}

func uniqueByURL(targets []core.LinkTarget) []core.LinkTarget {
	seen := make(map[string]struct{}, len(targets))
	out := make([]core.LinkTarget, 0, len(targets))
	for _, target := range targets {
		url := strings.TrimSpace(target.URL)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, target)
	}
	return out
}

func firstChunk(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}
	return text[:maxBytes]
}
