package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/mars-scraper/internal/config"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the latest record and triggers scrapes over HTTP",
		Long: `Starts the HTTP server. GET / renders the stored record and GET /scrape runs a
fresh scrape, replaces the record and redirects back to /.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run server: %w", err)
			}
			return nil
		},
	}
}
