package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autopress",
	Short: "Autopress collects Romanian news feeds and publishes rewritten articles.",
	Long: `Autopress runs an automated editorial pipeline: it pulls candidate
items from RSS feeds, rewrites them with an LLM, checks facts and
duplicates, resolves the publishing category, injects internal links,
applies a quality gate and publishes the survivors to a WordPress site.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.autopress.yaml)")
}
