package categorize

import (
	"fmt"
	"sort"
	"strings"

	"autopress/internal/core"
	"autopress/internal/textutil"
)

// Options tune the override decision.
type Options struct {
	OverrideEnabled     bool
	ForceCategoryID     int // When > 0, every article lands here
	SourceBias          int // Additive bias for the feed-assigned category
	OverrideMargin      int // Best must beat current by this much
	MinScore            int // Best must reach this total
	MinSourceSignal     int // Best must reach this source-side signal
	SecondBestMargin    int // Best must beat second best by this much
	UncertainCategoryID int // Fallback when the hint is unknown
}

// DefaultOptions mirror the production thresholds.
func DefaultOptions() Options {
	return Options{
		OverrideEnabled:     true,
		SourceBias:          2,
		OverrideMargin:      2,
		MinScore:            3,
		MinSourceSignal:     6,
		SecondBestMargin:    2,
		UncertainCategoryID: CategoryUltimele,
	}
}

// ScoreDetail breaks one category's score into its signals.
type ScoreDetail struct {
	SourceSignal    int
	GeneratedSignal int
	TitleStrong     int
	TitleNormal     int
	BodyStrong      int
	BodyNormal      int
	GeneratedStrong int
	GeneratedNormal int
}

// Scores holds per-category totals and their breakdown.
type Scores struct {
	Total   map[int]int
	Details map[int]ScoreDetail
}

// Classifier scores categories with keyword tables and applies the override
// decision ladder plus pairwise guard rules.
type Classifier struct {
	opts       Options
	categories []Category
	keywords   map[int]Keywords
	guards     []Guard
	nameByID   map[int]string
}

// NewClassifier builds a classifier over the given tables. Nil tables fall
// back to the defaults.
func NewClassifier(opts Options, categories []Category, keywords map[int]Keywords, guards []Guard) *Classifier {
	if categories == nil {
		categories = DefaultCategories()
	}
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	if guards == nil {
		guards = DefaultGuards()
	}
	nameByID := make(map[int]string, len(categories))
	for _, category := range categories {
		nameByID[category.ID] = category.Name
	}
	return &Classifier{
		opts:       opts,
		categories: categories,
		keywords:   keywords,
		guards:     guards,
		nameByID:   nameByID,
	}
}

// Known reports whether id is a configured category.
func (c *Classifier) Known(id int) bool {
	_, ok := c.nameByID[id]
	return ok
}

// Name returns a readable label for a category id.
func (c *Classifier) Name(id int) string {
	if id == CategoryUltimele {
		return "ultimele_stiri"
	}
	if name, ok := c.nameByID[id]; ok {
		return name
	}
	return fmt.Sprintf("cat_%d", id)
}

func countKeywordMatches(text string, keywords []string) int {
	if text == "" {
		return 0
	}
	matches := 0
	for _, keyword := range keywords {
		term := textutil.Normalize(keyword)
		if term != "" && strings.Contains(text, term) {
			matches++
		}
	}
	return matches
}

// ComputeScores scores every configured category against the candidate's
// source text and the generated article. It is deterministic: fixed tables
// and fixed input always produce identical scores.
func (c *Classifier) ComputeScores(item core.CandidateItem, article *core.Article) Scores {
	sourceTitle := textutil.Normalize(item.Title)
	sourceBody := textutil.Normalize(item.Content + " " + item.Source)

	var generated string
	if article != nil {
		body := textutil.StripHTML(article.ContentHTML)
		if len(body) > 1200 {
			body = body[:1200]
		}
		generated = textutil.Normalize(strings.Join([]string{
			article.Title,
			article.FocusKeyword,
			strings.Join(article.Tags, " "),
			body,
		}, " "))
	}

	scores := Scores{
		Total:   make(map[int]int, len(c.categories)),
		Details: make(map[int]ScoreDetail, len(c.categories)),
	}
	for _, category := range c.categories {
		rule := c.keywords[category.ID]
		detail := ScoreDetail{
			TitleStrong:     countKeywordMatches(sourceTitle, rule.Strong),
			TitleNormal:     countKeywordMatches(sourceTitle, rule.Normal),
			BodyStrong:      countKeywordMatches(sourceBody, rule.Strong),
			BodyNormal:      countKeywordMatches(sourceBody, rule.Normal),
			GeneratedStrong: countKeywordMatches(generated, rule.Strong),
			GeneratedNormal: countKeywordMatches(generated, rule.Normal),
		}
		// Feed-side signals weigh far more than the rewritten text.
		detail.SourceSignal = detail.TitleStrong*7 + detail.TitleNormal*3 +
			detail.BodyStrong*4 + detail.BodyNormal*2
		detail.GeneratedSignal = detail.GeneratedStrong + detail.GeneratedNormal

		scores.Details[category.ID] = detail
		scores.Total[category.ID] = detail.SourceSignal + detail.GeneratedSignal
	}

	if c.Known(item.CategoryID) {
		scores.Total[item.CategoryID] += c.opts.SourceBias
	}
	return scores
}

type ranked struct {
	id    int
	score int
}

func (c *Classifier) rank(scores Scores) []ranked {
	entries := make([]ranked, 0, len(c.categories))
	for _, category := range c.categories {
		entries = append(entries, ranked{id: category.ID, score: scores.Total[category.ID]})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })
	return entries
}

func decisiveMatches(item core.CandidateItem, terms []string) int {
	source := textutil.Normalize(item.Title + " " + item.Content + " " + item.Source)
	return countKeywordMatches(source, terms)
}

func keep(categoryID int, scores Scores, reason string) core.CategoryDecision {
	return core.CategoryDecision{CategoryID: categoryID, Changed: false, Reason: reason, Scores: scores.Total}
}

// Resolve picks the category for a candidate/article pair, returning the
// chosen id, whether it changed and a machine-readable reason code.
func (c *Classifier) Resolve(item core.CandidateItem, article *core.Article) core.CategoryDecision {
	if c.opts.ForceCategoryID > 0 {
		return core.CategoryDecision{
			CategoryID: c.opts.ForceCategoryID,
			Changed:    item.CategoryID != c.opts.ForceCategoryID,
			Reason:     "forced_category",
			Scores:     map[int]int{},
		}
	}

	sourceKnown := c.Known(item.CategoryID)
	fallbackID := c.opts.UncertainCategoryID
	if sourceKnown {
		fallbackID = item.CategoryID
	}

	scores := c.ComputeScores(item, article)
	entries := c.rank(scores)
	best, second := entries[0], ranked{id: fallbackID}
	if len(entries) > 1 {
		second = entries[1]
	}
	currentScore := scores.Total[fallbackID]
	bestSourceSignal := scores.Details[best.id].SourceSignal

	if !c.opts.OverrideEnabled {
		return keep(fallbackID, scores, "override_disabled")
	}

	if !sourceKnown {
		switch {
		case best.score < c.opts.MinScore:
			return keep(fallbackID, scores, "unknown_source_below_min_score")
		case bestSourceSignal < c.opts.MinSourceSignal:
			return keep(fallbackID, scores, "unknown_source_low_source_signal")
		case best.score < second.score+c.opts.SecondBestMargin:
			return keep(fallbackID, scores, "unknown_source_low_confidence")
		}
		return core.CategoryDecision{
			CategoryID: best.id,
			Changed:    best.id != item.CategoryID,
			Reason:     "unknown_source_inferred",
			Scores:     scores.Total,
		}
	}

	switch {
	case best.id == fallbackID:
		return keep(fallbackID, scores, "same_as_source")
	case best.score < c.opts.MinScore:
		return keep(fallbackID, scores, "below_min_score")
	case bestSourceSignal < c.opts.MinSourceSignal:
		return keep(fallbackID, scores, "low_source_signal")
	case best.score < currentScore+c.opts.OverrideMargin:
		return keep(fallbackID, scores, "insufficient_margin")
	case best.score < second.score+c.opts.SecondBestMargin:
		return keep(fallbackID, scores, "too_close_to_second_best")
	}

	for _, guard := range c.guards {
		if guard.FromID != fallbackID || guard.ToID != best.id {
			continue
		}
		if decisiveMatches(item, guard.DecisiveTerms) < guard.MinMatches {
			reason := fmt.Sprintf("guard_%s_to_%s", c.Name(guard.FromID), c.Name(guard.ToID))
			return keep(fallbackID, scores, reason)
		}
	}

	return core.CategoryDecision{
		CategoryID: best.id,
		Changed:    true,
		Reason:     "keyword_override",
		Scores:     scores.Total,
	}
}
