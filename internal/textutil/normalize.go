// Package textutil provides the text canonicalization primitives the
// pipeline compares on: diacritic-free normalization, title cleaning and
// topic fingerprinting.
package textutil

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text, strips diacritics and quotes, collapses every
// other non-alphanumeric run into a single space and trims the result.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripped, _, err := transform.String(diacriticStripper, text)
	if err != nil {
		stripped = text
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case r == '\'' || r == '"' || r == '`' || r == '’' || r == '‘':
			// Quotes vanish without splitting the word.
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// Slugify turns text into a hyphenated URL-safe slug capped at maxLength.
func Slugify(text string, maxLength int) string {
	if text == "" || maxLength <= 0 {
		return ""
	}
	slug := strings.ReplaceAll(Normalize(text), " ", "-")
	if len(slug) > maxLength {
		slug = slug[:maxLength]
	}
	return strings.Trim(slug, "-")
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML replaces every markup tag with a space.
func StripHTML(text string) string {
	if text == "" {
		return ""
	}
	return tagPattern.ReplaceAllString(text, " ")
}

// WordCount counts whitespace-separated words after markup removal.
func WordCount(text string) int {
	return len(strings.Fields(StripHTML(text)))
}

// TruncateAtWord cuts text to at most maxChars bytes without leaving a
// partial trailing word, then trims dangling punctuation.
func TruncateAtWord(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if text[maxChars] != ' ' {
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
	}
	return strings.TrimRight(cut, " ,;:-")
}

// UniqueStrings removes duplicates by normalized key, preserving first-seen
// order and the original spelling.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		clean := strings.TrimSpace(value)
		if clean == "" {
			continue
		}
		key := Normalize(clean)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, clean)
	}
	return result
}

// HoursSince returns the hours elapsed from t to now.
func HoursSince(t time.Time, now time.Time) float64 {
	return now.Sub(t).Hours()
}

// IsRecent reports whether t lies within maxHours before now. Future
// timestamps count as recent.
func IsRecent(t time.Time, now time.Time, maxHours float64) bool {
	return HoursSince(t, now) <= maxHours
}

// IsSameCalendarDay reports whether a and b fall on the same calendar day in
// the given location.
func IsSameCalendarDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ya, ma, da := a.In(loc).Date()
	yb, mb, db := b.In(loc).Date()
	return ya == yb && ma == mb && da == db
}
