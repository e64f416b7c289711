package extract

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// FactsTableClass is the CSS class list placed on the rendered facts table.
const FactsTableClass = "table table-striped"

// RenderFactsHTML renders rows as an HTML table fragment ready to embed in a page.
func RenderFactsHTML(rows []mars.Fact) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"description", "value"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row.Description, row.Value})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().HTML.CSSClass = FactsTableClass
	tw.Style().HTML.EscapeText = true
	return tw.RenderHTML()
}
