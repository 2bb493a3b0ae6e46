package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"autopress/internal/config"
	"autopress/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and maintain the publish history",
}

var pruneDays int

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove history entries older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		store, err := history.NewStore(cfg.App.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		days := pruneDays
		if days <= 0 {
			days = cfg.Publish.HistoryPruneDays
		}
		removed, err := store.Prune(time.Duration(days)*24*time.Hour, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d entries older than %d days\n", removed, days)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history size and age bounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		store, err := history.NewStore(cfg.App.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Entries: %d\n", stats.Total)
		if stats.Total > 0 {
			fmt.Printf("Oldest:  %s\n", stats.Oldest.Format(time.RFC3339))
			fmt.Printf("Newest:  %s\n", stats.Newest.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days (default from config)")
}
