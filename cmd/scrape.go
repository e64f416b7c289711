package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/config"
	"github.com/JakeFAU/mars-scraper/internal/mars"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	missing     = "(missing)"
)

func newScrapeCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		persist bool
		output  string
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape and prints the record",
		Long: `Opens a browser session, runs every extractor once and prints the assembled
record. With --persist the record also replaces the stored one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != outputTable && output != outputJSON {
				return fmt.Errorf("--output must be %q or %q", outputTable, outputJSON)
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			defer app.Close()

			var rec mars.Record
			if persist {
				rec, err = app.Service().Refresh(cmd.Context())
			} else {
				rec, err = app.Scraper().Run(cmd.Context())
			}
			if err != nil {
				app.Logger().Error("scrape failed", zap.Error(err))
				return fmt.Errorf("scrape: %w", err)
			}
			if output == outputJSON {
				return writeRecordJSON(cmd.OutOrStdout(), rec)
			}
			writeRecordTable(cmd.OutOrStdout(), rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "replace the stored record with the result")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func writeRecordJSON(w io.Writer, rec mars.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// writeRecordTable prints a summary table followed by the facts and hemisphere
// tables when those fields were found.
func writeRecordTable(w io.Writer, rec mars.Record) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle("Mars record")
	summary.AppendHeader(table.Row{"Field", "Value"})
	summary.AppendRows([]table.Row{
		{"news_title", orMissing(rec.NewsTitle)},
		{"news_paragraph", orMissing(rec.NewsParagraph)},
		{"featured_image", orMissing(rec.FeaturedImage)},
		{"facts", factsSummary(rec.Facts)},
		{"hemispheres", fmt.Sprintf("%d found", len(rec.Hemispheres))},
		{"last_modified", rec.LastModified.UTC().Format(time.RFC3339)},
	})
	summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	summary.SetStyle(table.StyleLight)
	summary.Render()

	if rec.Facts != nil {
		facts := table.NewWriter()
		facts.SetOutputMirror(w)
		facts.SetTitle("Facts")
		facts.AppendHeader(table.Row{"Description", "Value"})
		for _, row := range rec.Facts.Rows {
			facts.AppendRow(table.Row{row.Description, row.Value})
		}
		facts.SetStyle(table.StyleLight)
		facts.Render()
	}

	if len(rec.Hemispheres) > 0 {
		hemis := table.NewWriter()
		hemis.SetOutputMirror(w)
		hemis.SetTitle("Hemispheres")
		hemis.AppendHeader(table.Row{"#", "Title", "Image"})
		for i, h := range rec.Hemispheres {
			hemis.AppendRow(table.Row{i + 1, h.Title, h.ImgURL})
		}
		hemis.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
		hemis.SetStyle(table.StyleLight)
		hemis.Render()
	}
}

func orMissing(s *string) string {
	if s == nil {
		return missing
	}
	return *s
}

func factsSummary(f *mars.Facts) string {
	if f == nil {
		return missing
	}
	return fmt.Sprintf("%d rows", len(f.Rows))
}
