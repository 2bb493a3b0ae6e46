package candidates

import (
	"strings"
	"time"

	"autopress/internal/core"
	"autopress/internal/textutil"
)

// breakingKeywords mark urgent coverage worth publishing first.
var breakingKeywords = []string{
	"breaking", "ultima ora", "alerta", "urgent", "cutremur", "explozie",
	"incendiu", "atac", "tragedie", "accident", "evacuare", "victime",
}

// IsBreakingTitle reports whether the title matches the breaking-news
// keyword set.
func IsBreakingTitle(title string) bool {
	normalized := textutil.Normalize(title)
	for _, keyword := range breakingKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// Score ranks a candidate for editorial priority: breaking title +4,
// breaking source +2, recency buckets +3/+2/+1 (<=3h/<=12h/<=24h), rich
// content +1.
func Score(item core.CandidateItem, now time.Time) int {
	score := 0
	if item.Title != "" && IsBreakingTitle(item.Title) {
		score += 4
	}
	if item.Source != "" && strings.Contains(textutil.Normalize(item.Source), "breaking") {
		score += 2
	}
	if item.PublishedAt != nil {
		switch hours := textutil.HoursSince(*item.PublishedAt, now); {
		case hours <= 3:
			score += 3
		case hours <= 12:
			score += 2
		case hours <= 24:
			score += 1
		}
	}
	if len(item.Content) > 160 {
		score++
	}
	return score
}
