// Package candidates filters raw feed items and scores the survivors for
// editorial priority.
package candidates

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"autopress/internal/core"
	"autopress/internal/textutil"
)

// Rejection reason codes, in the priority order they are checked.
const (
	ReasonMissingTitle        = "missing_title"
	ReasonLowEditorialValue   = "low_editorial_value_title"
	ReasonMediaOutletPromo    = "media_outlet_promo"
	ReasonMissingPublishedAt  = "missing_published_at"
	ReasonNotRecent           = "not_same_day_or_not_recent"
	ReasonOnlyOldYears        = "only_old_years_without_date"
	ReasonTooLittleContent    = "too_little_content"
)

// lowEditorialValuePatterns match titles with no news value: press releases,
// paid placements, horoscopes, service listings. Matched on normalized text.
var lowEditorialValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^comunicat de presa\b`),
	regexp.MustCompile(`^publicitate\b`),
	regexp.MustCompile(`advertorial`),
	regexp.MustCompile(`\bhoroscop\b`),
	regexp.MustCompile(`\bcurs valutar\b`),
	regexp.MustCompile(`\bprogram tv\b`),
	regexp.MustCompile(`\brezultate loto\b`),
}

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// Options configure the candidate filter.
type Options struct {
	RecentHours      float64        // Rolling recency window
	MinContentChars  int            // Minimum body length in bytes
	StrictRecent     bool           // Enforce the rolling window
	SameDayOnly      bool           // Enforce same calendar day
	BlockMediaPromo  bool           // Reject outlet self-promotion
	Location         *time.Location // Calendar-day timezone
	Now              func() time.Time
}

// DefaultOptions mirror the production thresholds.
func DefaultOptions(loc *time.Location) Options {
	return Options{
		RecentHours:     24,
		MinContentChars: 120,
		StrictRecent:    true,
		SameDayOnly:     true,
		BlockMediaPromo: true,
		Location:        loc,
		Now:             time.Now,
	}
}

// Filter decides which candidates enter the pipeline and in which order.
type Filter struct {
	opts Options
}

// NewFilter builds a filter; a nil Now falls back to time.Now.
func NewFilter(opts Options) *Filter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Filter{opts: opts}
}

func isLowEditorialValueTitle(title string) bool {
	normalized := textutil.Normalize(title)
	for _, pattern := range lowEditorialValuePatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}

func extractYears(text string) []int {
	seen := map[int]struct{}{}
	var years []int
	for _, match := range yearPattern.FindAllString(text, -1) {
		year, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if _, ok := seen[year]; ok {
			continue
		}
		seen[year] = struct{}{}
		years = append(years, year)
	}
	return years
}

func hasOnlyOldYears(text string, now time.Time) bool {
	years := extractYears(text)
	if len(years) == 0 {
		return false
	}
	current := now.Year()
	for _, year := range years {
		if year >= current {
			return false
		}
	}
	return true
}

// isRecentEnough applies same-calendar-day and rolling-hours recency. When
// both are enabled, both must pass.
func (f *Filter) isRecentEnough(item core.CandidateItem, now time.Time) bool {
	if item.PublishedAt == nil {
		return !f.opts.StrictRecent && !f.opts.SameDayOnly
	}
	if f.opts.SameDayOnly && !textutil.IsSameCalendarDay(*item.PublishedAt, now, f.opts.Location) {
		return false
	}
	if !f.opts.StrictRecent {
		return true
	}
	return textutil.IsRecent(*item.PublishedAt, now, f.opts.RecentHours)
}

// RejectionReason returns the first matching rejection code, or "" when the
// item is acceptable. Checks run in a fixed priority order.
func (f *Filter) RejectionReason(item core.CandidateItem) string {
	now := f.opts.Now()
	if item.Title == "" {
		return ReasonMissingTitle
	}
	if isLowEditorialValueTitle(item.Title) {
		return ReasonLowEditorialValue
	}
	if f.opts.BlockMediaPromo && isMediaPromotionItem(item) {
		return ReasonMediaOutletPromo
	}
	if !f.isRecentEnough(item, now) {
		if item.PublishedAt == nil {
			return ReasonMissingPublishedAt
		}
		return ReasonNotRecent
	}
	// Without a timestamp, a title full of past years is stale coverage.
	if item.PublishedAt == nil && hasOnlyOldYears(item.Title+" "+item.Content, now) {
		return ReasonOnlyOldYears
	}
	if len(item.Content) < f.opts.MinContentChars && len(item.Title) <= 20 {
		return ReasonTooLittleContent
	}
	return ""
}

// Prepare filters items, sorts survivors by score descending and returns a
// rejection-reason histogram for diagnostics.
func (f *Filter) Prepare(items []core.CandidateItem) ([]core.CandidateItem, map[string]int) {
	stats := map[string]int{}
	accepted := make([]core.CandidateItem, 0, len(items))
	for _, item := range items {
		if reason := f.RejectionReason(item); reason != "" {
			stats[reason]++
			continue
		}
		accepted = append(accepted, item)
	}
	now := f.opts.Now()
	sort.SliceStable(accepted, func(i, j int) bool {
		return Score(accepted[i], now) > Score(accepted[j], now)
	})
	return accepted, stats
}
