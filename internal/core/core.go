package core

import "time"

// CandidateItem is a raw news item collected from a feed, before rewriting.
// Candidates are read-only to the pipeline and discarded after the run unless
// they become a published article.
type CandidateItem struct {
	Title           string     `json:"title"`            // Item title as delivered by the feed
	Content         string     `json:"content"`          // Snippet or body text from the feed
	Link            string     `json:"link"`             // Item URL
	GUID            string     `json:"guid"`             // Feed-provided unique identifier, may be empty
	Source          string     `json:"source"`           // Human-readable source name
	CategoryID      int        `json:"category_id"`      // Category hint assigned by the source catalog
	PublishedAt     *time.Time `json:"published_at"`     // Publication timestamp, nil when the feed omits it
	ImageCandidates []string   `json:"image_candidates"` // Image URLs offered by the feed entry
}

// Article is a publish-ready news article assembled by the rewrite step and
// mutated in place by sanitization, SEO backfill and link injection. Once it
// passes the quality gate it must not change except for slug/featured-media
// reconciliation at publish time.
type Article struct {
	Title           string   `json:"title"`
	SEOTitle        string   `json:"seo_title"`
	MetaDescription string   `json:"meta_description"`
	FocusKeyword    string   `json:"focus_keyword"`
	Tags            []string `json:"tags"`         // Unique, at most five
	ContentHTML     string   `json:"content_html"` // Paragraph-level HTML body
}

// HistoryEntry is one record of the append-only publish history used for
// duplicate detection across runs.
type HistoryEntry struct {
	ID          string    `json:"id"`
	TitleKey    string    `json:"title_key"`    // Normalized title
	TopicKey    string    `json:"topic_key"`    // De-noised ordered token key
	TopicTokens []string  `json:"topic_tokens"` // Tokens backing the topic key
	SourceURL   string    `json:"source_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkTarget is a previously published item eligible as an internal-link
// destination.
type LinkTarget struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// QualityIssue names a single quality-gate violation. An empty issue list is
// the only acceptance condition.
type QualityIssue string

const (
	IssueWeakTitle            QualityIssue = "weak_title"
	IssueMissingH2            QualityIssue = "missing_h2"
	IssueLeadTooShort         QualityIssue = "lead_too_short"
	IssueMetaDescriptionLen   QualityIssue = "meta_description_length"
	IssueKeywordNotInTitle    QualityIssue = "keyword_not_in_title"
	IssueMissingInternalLinks QualityIssue = "missing_internal_links"
	IssueMediaOutletPromo     QualityIssue = "media_outlet_promo"
	IssueContextOverused      QualityIssue = "context_word_overused"
)

// CategoryDecision is the classifier verdict for one candidate/article pair.
type CategoryDecision struct {
	CategoryID int         `json:"category_id"`
	Changed    bool        `json:"changed"`
	Reason     string      `json:"reason"` // Machine-readable reason code
	Scores     map[int]int `json:"scores"`
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	Published  int            `json:"published"`
	Collected  int            `json:"collected"`
	Candidates int            `json:"candidates"`
	Rejections map[string]int `json:"rejections"` // Rejection reason -> count
}
