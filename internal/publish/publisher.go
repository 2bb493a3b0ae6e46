// Package publish orchestrates one pipeline run: candidate filtering,
// rewrite with corrective retries, category resolution, link injection,
// the quality gate and the final publish with retry and history append.
package publish

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"autopress/internal/candidates"
	"autopress/internal/categorize"
	"autopress/internal/core"
	"autopress/internal/dedup"
	"autopress/internal/facts"
	"autopress/internal/history"
	"autopress/internal/images"
	"autopress/internal/links"
	"autopress/internal/logger"
	"autopress/internal/quality"
	"autopress/internal/rewrite"
	"autopress/internal/seo"
	"autopress/internal/textutil"
	"autopress/internal/wordpress"
)

// Rewriter produces articles from raw source text.
type Rewriter interface {
	Rewrite(ctx context.Context, req rewrite.Request, attempt int) (*core.Article, error)
	GenerateFallback(ctx context.Context, topic string) (*core.Article, error)
}

// Site is the publishing target.
type Site interface {
	dedup.RemoteChecker
	Host() string
	CreatePost(ctx context.Context, article *core.Article, categoryID, featuredMediaID int, opts wordpress.CreateOptions) (int, error)
	UploadMedia(ctx context.Context, data []byte, contentType string, meta wordpress.MediaMeta) (int, error)
}

// ImageFetcher finds a featured image for a source URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, sourceURL string, feedCandidates []string) (*images.Image, error)
}

// HistoryWriter records published topics.
type HistoryWriter interface {
	Append(entry core.HistoryEntry) error
}

// Options holds every runtime knob of the orchestrator.
type Options struct {
	MaxPerRun          int
	MinWords           int
	MinTitleWords      int
	MaxRewriteAttempts int
	ContextWordMax     int // -1 disables the style retry
	RoleFactCheck      bool
	BlockPromo         bool

	TitleMaxChars    int
	SEOTitleMaxChars int
	MaxTags          int

	MaxInternalLinks          int
	LinkTargetLimit           int
	StrictCategoryTargets     bool
	AllowCrossCategoryTargets bool

	RequireImage           bool
	UseDynamicImage        bool
	DefaultFeaturedMediaID int

	PublishRetries int
	RetryBase      time.Duration
	TwoStepPublish bool

	WindowEnabled   bool
	WindowStartHour int
	WindowEndHour   int
	Location        *time.Location

	FallbackEnabled bool
	ForceCategoryID int
}

// DefaultOptions returns the production run parameters.
func DefaultOptions() Options {
	return Options{
		MaxPerRun:          1,
		MinWords:           350,
		MinTitleWords:      5,
		MaxRewriteAttempts: 3,
		ContextWordMax:     2,
		RoleFactCheck:      true,
		BlockPromo:         true,
		TitleMaxChars:      110,
		SEOTitleMaxChars:   60,
		MaxTags:            5,
		MaxInternalLinks:   2,
		LinkTargetLimit:    20,
		PublishRetries:     3,
		RetryBase:          2500 * time.Millisecond,
		WindowStartHour:    7,
		WindowEndHour:      22,
		Location:           time.UTC,
		FallbackEnabled:    true,
	}
}

// Deps are the collaborators a Publisher drives. Nil Filter, Gate, Now,
// Sleep and Rng fall back to sensible defaults; the rest are required.
type Deps struct {
	Rewriter   Rewriter
	Site       Site
	Dedup      *dedup.Engine
	Classifier *categorize.Classifier
	Filter     *candidates.Filter
	Gate       *quality.Gate
	Images     ImageFetcher
	History    HistoryWriter
	Now        func() time.Time
	Sleep      func(time.Duration)
	Rng        *rand.Rand
}

// Publisher runs the editorial pipeline end to end.
type Publisher struct {
	opts        Options
	rewriter    Rewriter
	site        Site
	engine      *dedup.Engine
	classifier  *categorize.Classifier
	filter      *candidates.Filter
	gate        *quality.Gate
	images      ImageFetcher
	history     HistoryWriter
	now         func() time.Time
	sleep       func(time.Duration)
	rng         *rand.Rand
	targetCache map[string][]core.LinkTarget
}

// NewPublisher wires the orchestrator.
func NewPublisher(opts Options, deps Deps) *Publisher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PublishRetries < 1 {
		opts.PublishRetries = 1
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Rng == nil {
		deps.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Filter == nil {
		deps.Filter = candidates.NewFilter(candidates.DefaultOptions(opts.Location))
	}
	return &Publisher{
		opts:        opts,
		rewriter:    deps.Rewriter,
		site:        deps.Site,
		engine:      deps.Dedup,
		classifier:  deps.Classifier,
		filter:      deps.Filter,
		gate:        deps.Gate,
		images:      deps.Images,
		history:     deps.History,
		now:         deps.Now,
		sleep:       deps.Sleep,
		rng:         deps.Rng,
		targetCache: make(map[string][]core.LinkTarget),
	}
}

// IsWithinWindow reports whether now falls inside the configured
// publish window. The end hour is inclusive only at minute zero, and a
// window whose start is after its end wraps past midnight.
func IsWithinWindow(now time.Time, opts Options) bool {
	if !opts.WindowEnabled {
		return true
	}
	start := clampHour(opts.WindowStartHour)
	end := clampHour(opts.WindowEndHour)
	if start == end {
		return true
	}
	hour, minute := now.Hour(), now.Minute()
	if start < end {
		if hour < start || hour > end {
			return false
		}
		if hour == end {
			return minute == 0
		}
		return true
	}
	// window wraps past midnight
	if hour > end && hour < start {
		return false
	}
	if hour == end {
		return minute == 0
	}
	return true
}

func clampHour(hour int) int {
	if hour < 0 {
		return 0
	}
	if hour > 23 {
		return 23
	}
	return hour
}

// Run executes one pipeline pass over collected candidates and returns
// the run summary.
func (p *Publisher) Run(ctx context.Context, items []core.CandidateItem) core.RunResult {
	result := core.RunResult{
		Collected:  len(items),
		Rejections: make(map[string]int),
	}

	now := p.now().In(p.opts.Location)
	if !IsWithinWindow(now, p.opts) {
		logger.Info("outside publish window, skipping run",
			"start", p.opts.WindowStartHour, "end", p.opts.WindowEndHour, "local", now.Format("15:04"))
		result.Rejections["outside_publish_window"] = len(items)
		return result
	}

	accepted, stats := p.filter.Prepare(items)
	for reason, count := range stats {
		result.Rejections[reason] += count
	}
	result.Candidates = len(accepted)
	logger.Info("candidates prepared", "collected", len(items), "accepted", len(accepted))

	target := p.opts.MaxPerRun
	if target < 1 {
		target = 1
	}
	for _, item := range accepted {
		if result.Published >= target {
			break
		}
		ok, reason := p.publishFromItem(ctx, item)
		if ok {
			result.Published++
			continue
		}
		result.Rejections[reason]++
	}

	if result.Published == 0 && p.opts.FallbackEnabled {
		logger.Info("no candidate published, trying fallback generation")
		if p.publishFallback(ctx) {
			result.Published++
		}
	}

	logger.Info("run finished", "published", result.Published, "candidates", result.Candidates)
	return result
}

// rewriteWithRetries spends the attempt budget on generation failures
// and short output, escalating the model parameters each attempt. A
// final short article is still returned; the length check downstream
// decides its fate.
func (p *Publisher) rewriteWithRetries(ctx context.Context, req rewrite.Request) (*core.Article, error) {
	maxAttempts := p.opts.MaxRewriteAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var last *core.Article
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		article, err := p.rewriter.Rewrite(ctx, req, attempt)
		if err != nil {
			lastErr = err
			logger.Warn("rewrite attempt failed", "attempt", attempt, "error", err)
			continue
		}
		last = article
		if p.hasMinimumContent(article.ContentHTML) {
			return article, nil
		}
		logger.Info("generated content too short, retrying", "attempt", attempt)
		req.Reason = rewrite.RetryShortContent
		req.ReasonDetail = ""
	}
	if last != nil {
		return last, nil
	}
	return nil, lastErr
}

func (p *Publisher) publishFromItem(ctx context.Context, item core.CandidateItem) (bool, string) {
	if dup, reason, err := p.engine.InHistory(item.Title, item.Link, p.now()); err != nil {
		logger.Warn("history duplicate check failed", "error", err)
	} else if dup {
		logger.Info("duplicate source item, skipping", "title", item.Title, "reason", reason)
		return false, "duplicate_source"
	}
	if p.opts.BlockPromo && candidates.IsMediaPromotionText(item.Title+" "+item.Content) {
		logger.Info("rejected media-outlet promo item", "title", item.Title)
		return false, "media_outlet_promo"
	}

	raw := strings.TrimSpace(item.Title + "\n\n" + item.Content)

	var claims *facts.Claims
	var constraints string
	if p.opts.RoleFactCheck {
		claims = facts.ExtractPersonRoleClaims(raw, facts.DefaultMaxClaims)
		constraints = facts.BuildRoleConstraints(claims)
	}

	req := rewrite.Request{
		RawText:         raw,
		OriginalTitle:   item.Title,
		Source:          item.Source,
		Link:            item.Link,
		PublishedAt:     item.PublishedAt,
		RoleConstraints: constraints,
	}
	article, err := p.rewriteWithRetries(ctx, req)
	if err != nil {
		logger.Warn("rewrite failed", "title", item.Title, "error", err)
		return false, "rewrite_failed"
	}

	if p.opts.ContextWordMax >= 0 && quality.CountContextWord(article.ContentHTML) > p.opts.ContextWordMax {
		logger.Info("style retry: overused context wording", "title", item.Title)
		req.Reason = rewrite.RetryStyleRepetition
		article, err = p.rewriter.Rewrite(ctx, req, 2)
		if err != nil {
			logger.Warn("style retry failed", "title", item.Title, "error", err)
			return false, "rewrite_failed"
		}
	}

	if p.opts.RoleFactCheck && claims.Len() > 0 {
		mismatches := facts.FindRoleMismatches(claims, article.Title+"\n"+textutil.StripHTML(article.ContentHTML))
		if len(mismatches) > 0 {
			summary := facts.FormatRoleMismatchSummary(mismatches)
			logger.Info("role mismatch detected, retrying strict factual mode", "detail", summary)
			req.Reason = rewrite.RetryRoleMismatch
			req.ReasonDetail = summary
			article, err = p.rewriter.Rewrite(ctx, req, 2)
			if err != nil {
				logger.Warn("strict factual retry failed", "title", item.Title, "error", err)
				return false, "rewrite_failed"
			}
			mismatches = facts.FindRoleMismatches(claims, article.Title+"\n"+textutil.StripHTML(article.ContentHTML))
			if len(mismatches) > 0 {
				logger.Info("role mismatch persists, skipping article",
					"detail", facts.FormatRoleMismatchSummary(mismatches))
				return false, "role_mismatch"
			}
		}
	}

	article.ContentHTML = seo.SanitizeContent(article.ContentHTML)
	seo.EnsureSEOFields(article, item.Title, p.seoOptions())

	if !textutil.IsStrongTitle(article.Title, p.opts.MinTitleWords) {
		fallbackTitle := textutil.CleanTitle(item.Title, p.opts.TitleMaxChars)
		if !textutil.IsStrongTitle(fallbackTitle, p.opts.MinTitleWords) {
			logger.Info("title quality too low, skipping", "title", item.Title)
			return false, "weak_title"
		}
		article.Title = fallbackTitle
		seoTitle := article.SEOTitle
		if seoTitle == "" {
			seoTitle = fallbackTitle
		}
		article.SEOTitle = textutil.CleanTitle(seoTitle, p.opts.SEOTitleMaxChars)
	}

	if !p.hasMinimumContent(article.ContentHTML) {
		logger.Info("sanitized content too short, skipping", "title", article.Title)
		return false, "content_too_short"
	}

	decision := p.classifier.Resolve(item, article)
	if decision.Changed {
		logger.Info("category override",
			"from", p.classifier.Name(item.CategoryID),
			"to", p.classifier.Name(decision.CategoryID),
			"reason", decision.Reason,
			"scores", formatScores(decision.Scores))
	} else if decision.Reason != "" && decision.Reason != "same_as_source" {
		logger.Info("category kept",
			"category", p.classifier.Name(decision.CategoryID), "reason", decision.Reason)
	}

	if linked := p.addInternalLinks(ctx, article, decision.CategoryID); linked > 0 {
		logger.Info("internal links added", "count", linked)
	}
	article.ContentHTML = seo.RemoveExternalLinks(article.ContentHTML, p.site.Host())
	article.ContentHTML = seo.ReduceContextRepetition(article.ContentHTML, p.opts.ContextWordMax)

	if p.gate != nil {
		if issues := p.gate.Evaluate(article); len(issues) > 0 {
			logger.Info("quality gate failed", "issues", joinIssues(issues))
			return false, "quality_" + string(issues[0])
		}
	}

	return p.tryPublish(ctx, article, decision.CategoryID, item.Link, item.ImageCandidates)
}

// tryPublish performs the final duplicate checks, attaches an image and
// pushes the article, then records it in history.
func (p *Publisher) tryPublish(ctx context.Context, article *core.Article, categoryID int, sourceURL string, imageCandidates []string) (bool, string) {
	if dup, reason, err := p.engine.InHistory(article.Title, sourceURL, p.now()); err != nil {
		logger.Warn("history duplicate check failed", "error", err)
	} else if dup {
		logger.Info("duplicate detected in history, skipping", "title", article.Title, "reason", reason)
		return false, "duplicate_history"
	}

	slugs := wordpress.CandidateSlugs(article.Title, sourceURL)
	stableSlug := slugs[0]

	if !p.hasMinimumContent(article.ContentHTML) {
		logger.Info("content too short or missing, skipping", "title", article.Title)
		return false, "content_too_short"
	}

	if dup, reason, err := p.engine.ExistsRemote(ctx, p.site, slugs, article.Title, categoryID); err != nil {
		logger.Warn("remote duplicate check failed", "error", err)
	} else if dup {
		logger.Info("duplicate detected on site, skipping", "title", article.Title, "reason", reason)
		return false, "duplicate_remote"
	}

	mediaID := p.maybeUploadImage(ctx, article, sourceURL, imageCandidates)
	if p.opts.RequireImage && mediaID == 0 {
		logger.Info("image required but missing, skipping", "title", article.Title)
		return false, "missing_image"
	}

	if err := p.publishWithRetry(ctx, article, categoryID, mediaID, stableSlug); err != nil {
		logger.Error("publish failed", err, "title", article.Title)
		return false, "publish_failed"
	}

	if p.history != nil {
		if err := p.history.Append(history.NewEntry(article.Title, sourceURL, p.now())); err != nil {
			logger.Warn("history append failed", "error", err)
		}
	}
	logger.Info("published", "title", article.Title, "category", categoryID)
	return true, ""
}

// publishWithRetry retries transient failures with exponential backoff.
// After a retryable error it first checks whether the post actually
// landed; a found duplicate counts as success instead of a retry.
func (p *Publisher) publishWithRetry(ctx context.Context, article *core.Article, categoryID, mediaID int, slug string) error {
	maxAttempts := p.opts.PublishRetries
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := p.site.CreatePost(ctx, article, categoryID, mediaID, wordpress.CreateOptions{
			Slug:    slug,
			TwoStep: p.opts.TwoStepPublish,
		})
		if err == nil {
			return nil
		}

		retryable := wordpress.IsRetryableError(err)
		if retryable {
			dup, _, checkErr := p.engine.ExistsRemote(ctx, p.site, []string{slug}, article.Title, categoryID)
			if checkErr != nil {
				logger.Warn("post-error duplicate check failed", "error", checkErr)
			} else if dup {
				logger.Warn("publish returned retryable error but post is already present, skipping retry")
				return nil
			}
		}
		if !retryable || attempt >= maxAttempts {
			return err
		}
		wait := p.opts.RetryBase * time.Duration(1<<(attempt-1))
		logger.Warn("publish retry scheduled",
			"attempt", attempt, "max", maxAttempts, "wait", wait, "error", err)
		p.sleep(wait)
	}
	return nil
}

func (p *Publisher) maybeUploadImage(ctx context.Context, article *core.Article, sourceURL string, imageCandidates []string) int {
	if p.opts.DefaultFeaturedMediaID > 0 {
		return p.opts.DefaultFeaturedMediaID
	}
	if !p.opts.UseDynamicImage || p.images == nil {
		return 0
	}
	img, err := p.images.Fetch(ctx, sourceURL, imageCandidates)
	if err != nil {
		logger.Info("image skipped", "error", err)
		return 0
	}
	title := article.SEOTitle
	if title == "" {
		title = article.Title
	}
	altText := article.Title
	if altText == "" {
		altText = article.FocusKeyword
	}
	mediaID, err := p.site.UploadMedia(ctx, img.Data, img.ContentType, wordpress.MediaMeta{
		Filename: img.Filename,
		Title:    title,
		AltText:  altText,
		Caption:  article.MetaDescription,
	})
	if err != nil {
		logger.Warn("media upload failed", "error", err)
		return 0
	}
	return mediaID
}

func (p *Publisher) addInternalLinks(ctx context.Context, article *core.Article, categoryID int) int {
	if p.opts.MaxInternalLinks <= 0 || article.ContentHTML == "" {
		return 0
	}
	targets := p.loadLinkTargets(ctx, categoryID)
	if len(targets) == 0 {
		return 0
	}
	linked, count := links.Inject(article.ContentHTML, targets, links.Options{
		ArticleTitle: article.Title,
		FocusKeyword: article.FocusKeyword,
		MaxLinks:     p.opts.MaxInternalLinks,
	})
	if count > 0 {
		article.ContentHTML = linked
	}
	return count
}

// loadLinkTargets prefers same-category posts and, unless the strict
// mode forbids it, tops up with recent posts from any category.
func (p *Publisher) loadLinkTargets(ctx context.Context, categoryID int) []core.LinkTarget {
	var scoped []core.LinkTarget
	if categoryID > 0 {
		scoped = p.fetchTargets(ctx, categoryID)
	}
	if p.opts.StrictCategoryTargets {
		if len(scoped) > 0 {
			return scoped
		}
		if !p.opts.AllowCrossCategoryTargets {
			return nil
		}
	}
	generic := p.fetchTargets(ctx, 0)
	if categoryID <= 0 {
		return generic
	}
	merged := make([]core.LinkTarget, 0, len(scoped)+len(generic))
	seen := make(map[string]struct{})
	for _, target := range append(scoped, generic...) {
		if target.URL == "" || target.Title == "" {
			continue
		}
		if _, dup := seen[target.URL]; dup {
			continue
		}
		seen[target.URL] = struct{}{}
		merged = append(merged, target)
	}
	return merged
}

func (p *Publisher) fetchTargets(ctx context.Context, categoryID int) []core.LinkTarget {
	key := fmt.Sprintf("cat:%d", categoryID)
	if cached, ok := p.targetCache[key]; ok {
		return cached
	}
	limit := p.opts.LinkTargetLimit
	if limit <= 0 {
		limit = 20
	}
	items, err := p.site.ListRecent(ctx, categoryID, limit)
	if err != nil {
		logger.Warn("internal link target fetch failed", "category", categoryID, "error", err)
		items = nil
	}
	targets := make([]core.LinkTarget, 0, len(items))
	for _, item := range items {
		if item.URL == "" || item.Title == "" {
			continue
		}
		targets = append(targets, core.LinkTarget{URL: item.URL, Title: item.Title})
	}
	p.targetCache[key] = targets
	return targets
}

// publishFallback generates an evergreen article when no candidate made
// it through, walking the categories in random order.
func (p *Publisher) publishFallback(ctx context.Context) bool {
	shuffled := append([]categorize.Category(nil), categorize.DefaultCategories()...)
	p.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for _, category := range shuffled {
		logger.Info("fallback category", "name", category.Name)
		article, err := p.rewriter.GenerateFallback(ctx, category.Name)
		if err != nil {
			logger.Warn("fallback generation failed", "category", category.Name, "error", err)
			continue
		}
		targetID := category.ID
		if p.opts.ForceCategoryID > 0 {
			targetID = p.opts.ForceCategoryID
		}

		article.ContentHTML = seo.SanitizeContent(article.ContentHTML)
		seo.EnsureSEOFields(article, article.Title, p.seoOptions())

		if !textutil.IsStrongTitle(article.Title, p.opts.MinTitleWords) {
			logger.Info("fallback title quality too low, trying next category")
			continue
		}
		if !p.hasMinimumContent(article.ContentHTML) {
			logger.Info("fallback content too short, trying next category")
			continue
		}

		if linked := p.addInternalLinks(ctx, article, targetID); linked > 0 {
			logger.Info("fallback internal links added", "count", linked)
		}
		article.ContentHTML = seo.RemoveExternalLinks(article.ContentHTML, p.site.Host())
		article.ContentHTML = seo.ReduceContextRepetition(article.ContentHTML, p.opts.ContextWordMax)

		if p.gate != nil {
			if issues := p.gate.Evaluate(article); len(issues) > 0 {
				logger.Info("fallback quality gate failed", "issues", joinIssues(issues))
				continue
			}
		}

		if ok, _ := p.tryPublish(ctx, article, targetID, "", nil); ok {
			return true
		}
	}
	return false
}

func (p *Publisher) hasMinimumContent(contentHTML string) bool {
	return textutil.WordCount(textutil.StripHTML(contentHTML)) >= p.opts.MinWords
}

func (p *Publisher) seoOptions() seo.Options {
	opts := seo.DefaultOptions()
	opts.TitleMaxChars = p.opts.TitleMaxChars
	opts.SEOTitleMaxChars = p.opts.SEOTitleMaxChars
	if p.opts.MaxTags > 0 {
		opts.MaxTags = p.opts.MaxTags
	}
	opts.InternalHost = p.site.Host()
	return opts
}

func formatScores(scores map[int]int) string {
	parts := make([]string, 0, len(scores))
	for _, category := range categorize.DefaultCategories() {
		parts = append(parts, fmt.Sprintf("%s:%d", category.Name, scores[category.ID]))
	}
	return strings.Join(parts, ", ")
}

func joinIssues(issues []core.QualityIssue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = string(issue)
	}
	return strings.Join(parts, ", ")
}
