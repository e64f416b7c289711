// Package cmd defines and implements the CLI commands for the marsd executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/mars-scraper/internal/config"
	"github.com/JakeFAU/mars-scraper/internal/server"
)

// buildApp is the application factory. It is a variable so tests can inject
// fake browsers and fetchers.
var buildApp = server.Build

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "marsd",
		Short: "Scrapes Mars news, imagery and facts and serves the latest record.",
		Long: `marsd visits the NASA news index, the JPL featured image gallery, a Mars
facts table and the USGS hemisphere search, assembles the results into a single
record and serves it over HTTP. Each scrape replaces the stored record.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); MARS_* env vars override it")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return &cfg, nil
	}

	cmd.AddCommand(newServeCmd(load))
	cmd.AddCommand(newScrapeCmd(load))
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
