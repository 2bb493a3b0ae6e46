package rewrite

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/yuin/goldmark"

	"autopress/internal/core"
)

var (
	codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	markdownMarkers  = regexp.MustCompile(`(?m)^\s{0,3}(#{1,6}\s|\*\s|-\s|\d+\.\s)|\*\*`)
	htmlMarkers      = regexp.MustCompile(`(?i)<(p|h[1-6]|ul|ol|blockquote)\b`)
)

// ParseArticleJSON extracts the article contract from model output.
// Tolerates code fences and prose around the JSON object; accepts
// either content_html or content, and tags as array or comma string.
func ParseArticleJSON(raw string) (*core.Article, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}
	if groups := codeFencePattern.FindStringSubmatch(text); groups != nil {
		text = groups[1]
	}
	payload := text
	if !gjson.Valid(payload) {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, false
		}
		payload = text[start : end+1]
		if !gjson.Valid(payload) {
			return nil, false
		}
	}
	parsed := gjson.Parse(payload)
	if !parsed.IsObject() {
		return nil, false
	}

	article := &core.Article{
		Title:           strings.TrimSpace(parsed.Get("title").String()),
		SEOTitle:        strings.TrimSpace(parsed.Get("seo_title").String()),
		MetaDescription: strings.TrimSpace(parsed.Get("meta_description").String()),
		FocusKeyword:    strings.TrimSpace(parsed.Get("focus_keyword").String()),
	}
	content := parsed.Get("content_html").String()
	if content == "" {
		content = parsed.Get("content").String()
	}
	article.ContentHTML = strings.TrimSpace(content)
	article.Tags = parseTags(parsed.Get("tags"))

	if article.Title == "" || article.ContentHTML == "" {
		return nil, false
	}
	return article, true
}

func parseTags(value gjson.Result) []string {
	var tags []string
	appendTag := func(tag string) {
		trimmed := strings.TrimSpace(tag)
		if trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if value.IsArray() {
		for _, item := range value.Array() {
			appendTag(item.String())
		}
		return tags
	}
	for _, part := range strings.Split(value.String(), ",") {
		appendTag(part)
	}
	return tags
}

// NormalizeContentHTML accepts whatever body shape the model returns:
// HTML passes through, markdown is rendered, and bare text gets its
// blank-line-separated paragraphs wrapped in <p> tags.
func NormalizeContentHTML(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	if htmlMarkers.MatchString(trimmed) {
		return trimmed
	}
	if markdownMarkers.MatchString(trimmed) {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(trimmed), &buf); err == nil {
			return strings.TrimSpace(buf.String())
		}
	}
	paragraphs := strings.Split(trimmed, "\n\n")
	var b strings.Builder
	for _, paragraph := range paragraphs {
		line := strings.TrimSpace(strings.ReplaceAll(paragraph, "\n", " "))
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(line)
		b.WriteString("</p>\n")
	}
	return strings.TrimSpace(b.String())
}
