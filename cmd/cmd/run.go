package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"autopress/internal/candidates"
	"autopress/internal/categorize"
	"autopress/internal/config"
	"autopress/internal/dedup"
	"autopress/internal/feeds"
	"autopress/internal/history"
	"autopress/internal/images"
	"autopress/internal/logger"
	"autopress/internal/publish"
	"autopress/internal/quality"
	"autopress/internal/rewrite"
	"autopress/internal/wordpress"
)

var (
	runPosts     int
	runLimit     int
	runNoWindow  bool
	runNoQuality bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run: collect, rewrite and publish",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger.SetLevel(cfg.Logging.Level)

		loc, err := time.LoadLocation(cfg.App.Timezone)
		if err != nil {
			logger.Warn("invalid timezone, falling back to UTC", "timezone", cfg.App.Timezone)
			loc = time.UTC
		}

		store, err := history.NewStore(cfg.App.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
		if cfg.Publish.HistoryPruneDays > 0 {
			store.SetRetention(time.Duration(cfg.Publish.HistoryPruneDays) * 24 * time.Hour)
		}

		engine := dedup.NewEngine(dedup.Options{
			Window:            time.Duration(cfg.Dedup.WindowHours) * time.Hour,
			OverlapRatio:      cfg.Dedup.OverlapRatio,
			MinOverlapCount:   cfg.Dedup.MinOverlapCount,
			RemoteRecentLimit: cfg.Links.TargetLimit,
		}, store)

		catalog := feeds.DefaultCatalog()
		if cfg.Feeds.CatalogPath != "" {
			catalog, err = feeds.LoadCatalog(cfg.Feeds.CatalogPath)
			if err != nil {
				return fmt.Errorf("failed to load feed catalog: %w", err)
			}
		}
		catalog.Mix.Romania = cfg.Feeds.RomaniaMix
		catalog.Mix.Externe = 1 - cfg.Feeds.RomaniaMix
		collector := feeds.NewCollector(catalog, engine, nil)

		rewriteOpts := rewrite.DefaultOptions()
		rewriteOpts.Model = cfg.OpenAI.Model
		rewriteOpts.MinWords = cfg.Rewrite.MinWords
		rewriteOpts.BaseTemperature = cfg.Rewrite.BaseTemperature
		rewriter, err := rewrite.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, rewriteOpts)
		if err != nil {
			return err
		}

		site := wordpress.NewClient(cfg.WordPress.BaseURL, cfg.WordPress.Username, cfg.WordPress.AppPassword)

		var gate *quality.Gate
		if !runNoQuality {
			gate = quality.NewGate(quality.Options{
				MinTitleWords:         5,
				MinLeadWords:          cfg.Quality.MinLeadWords,
				MetaDescriptionMin:    cfg.Quality.MetaDescriptionMin,
				MetaDescriptionMax:    cfg.Quality.MetaDescriptionMax,
				RequireInternalLinks:  cfg.Links.Required,
				MinInternalLinks:      cfg.Links.MinLinks,
				BlockMediaOutletPromo: cfg.Quality.BlockPromo,
				ContextWordMax:        cfg.Quality.ContextWordMax,
				InternalHost:          site.Host(),
			})
		}

		var fetcher publish.ImageFetcher
		if cfg.Images.UseDynamic {
			fetcher = images.NewFetcher(images.Options{
				MinBytes:      cfg.Images.MinBytes,
				ScrapeEnabled: cfg.Images.ScrapeEnabled,
				Timeout:       time.Duration(cfg.Images.TimeoutSeconds) * time.Second,
			})
		}

		posts := cfg.Publish.MaxPerRun
		if runPosts > 0 {
			posts = runPosts
		}

		opts := publish.DefaultOptions()
		opts.MaxPerRun = posts
		opts.MinWords = cfg.Quality.MinWords
		opts.MaxRewriteAttempts = cfg.Rewrite.MaxAttempts
		opts.ContextWordMax = cfg.Quality.ContextWordMax
		opts.RoleFactCheck = cfg.Rewrite.RoleFactCheck
		opts.BlockPromo = cfg.Quality.BlockPromo
		opts.TitleMaxChars = cfg.SEO.TitleMaxChars
		opts.SEOTitleMaxChars = cfg.SEO.SEOTitleMaxChars
		opts.MaxTags = cfg.SEO.MaxTags
		opts.MaxInternalLinks = cfg.Links.MaxLinks
		opts.LinkTargetLimit = cfg.Links.TargetLimit
		opts.RequireImage = cfg.Images.Required
		opts.UseDynamicImage = cfg.Images.UseDynamic
		opts.DefaultFeaturedMediaID = cfg.Images.DefaultMediaID
		opts.PublishRetries = cfg.WordPress.PublishRetries
		opts.RetryBase = time.Duration(cfg.WordPress.RetryBaseMillis) * time.Millisecond
		opts.TwoStepPublish = cfg.WordPress.TwoStepPublish
		opts.WindowEnabled = cfg.Publish.WindowEnabled && !runNoWindow
		opts.WindowStartHour = cfg.Publish.WindowStartHour
		opts.WindowEndHour = cfg.Publish.WindowEndHour
		opts.Location = loc
		opts.FallbackEnabled = cfg.Publish.FallbackEnabled

		filterOpts := candidates.DefaultOptions(loc)
		filterOpts.RecentHours = float64(cfg.Feeds.RecentHours)
		filterOpts.BlockMediaPromo = cfg.Quality.BlockPromo

		publisher := publish.NewPublisher(opts, publish.Deps{
			Rewriter:   rewriter,
			Site:       site,
			Dedup:      engine,
			Classifier: categorize.NewClassifier(categorize.DefaultOptions(), nil, nil, nil),
			Filter:     candidates.NewFilter(filterOpts),
			Gate:       gate,
			Images:     fetcher,
			History:    store,
		})

		ctx := cmd.Context()
		limit := runLimit
		if limit <= 0 {
			limit = cfg.Feeds.MaxPerRun
		}
		if limit < posts*6 {
			limit = posts * 6
		}

		items := collector.Collect(ctx, limit)
		result := publisher.Run(ctx, items)

		fmt.Printf("Published %d of %d candidates (%d collected)\n",
			result.Published, result.Candidates, result.Collected)
		for reason, count := range result.Rejections {
			fmt.Printf("  %-32s %d\n", reason, count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&runPosts, "posts", 0, "articles to publish this run (default from config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "candidate collection limit (default from config)")
	runCmd.Flags().BoolVar(&runNoWindow, "ignore-window", false, "run even outside the publish window")
	runCmd.Flags().BoolVar(&runNoQuality, "no-quality-gate", false, "skip the strict quality gate")
}
