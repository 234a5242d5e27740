// Package export writes an organization's competitors to an XLSX
// workbook for offline review.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/store"
)

// pageSize bounds each store read; large orgs are fetched in pages.
const pageSize = 200

var columns = []string{
	"Name", "Website", "Description", "Industry", "Country",
	"Business Model", "Value Proposition", "Founded", "Total Funding",
	"Funding Stage", "Founders", "Employee Count", "Target Market",
	"Technologies", "LinkedIn", "Twitter", "Relevance", "Confidence",
	"Completeness", "Validation", "Data Sources", "Enriched At",
}

// Exporter pages competitors out of the store and writes workbooks.
type Exporter struct {
	store store.Store
}

func NewExporter(st store.Store) *Exporter {
	return &Exporter{store: st}
}

// Export writes every competitor matching the filter to path and returns
// the row count. The caller's Limit and Offset are ignored; paging is
// internal.
func (e *Exporter) Export(ctx context.Context, filter store.CompetitorFilter, path string) (int, error) {
	if filter.OrganizationID == "" {
		return 0, eris.New("export: organization id is required")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Competitors")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}
	writeHeader(sheet)

	total := 0
	filter.Limit = pageSize
	for {
		filter.Offset = total
		page, err := e.store.ListCompetitors(ctx, filter)
		if err != nil {
			return 0, eris.Wrap(err, "export: list competitors")
		}
		for _, c := range page {
			writeCompetitor(sheet, c)
		}
		total += len(page)
		if len(page) < pageSize {
			break
		}
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrap(err, "export: save workbook")
	}

	zap.L().Info("export written",
		zap.String("path", path),
		zap.Int("competitors", total),
		zap.String("organization_id", filter.OrganizationID))
	return total, nil
}

func writeHeader(sheet *xlsx.Sheet) {
	style := xlsx.NewStyle()
	style.Font.Bold = true
	row := sheet.AddRow()
	for _, name := range columns {
		cell := row.AddCell()
		cell.Value = name
		cell.SetStyle(style)
	}
}

func writeCompetitor(sheet *xlsx.Sheet, c model.Competitor) {
	row := sheet.AddRow()

	addString(row, c.Name)
	addString(row, c.Website)
	addString(row, c.Description)
	addString(row, c.Industry)
	addString(row, c.Country)
	addString(row, c.BusinessModel)
	addString(row, c.ValueProposition)
	if c.FoundedYear > 0 {
		row.AddCell().SetInt(c.FoundedYear)
	} else {
		row.AddCell()
	}
	if c.TotalFunding > 0 {
		row.AddCell().Value = fmt.Sprintf("$%.0f", c.TotalFunding)
	} else {
		row.AddCell()
	}
	addString(row, c.FundingStage)
	addString(row, strings.Join(c.Founders, ", "))
	addString(row, c.EmployeeCount)
	addString(row, c.TargetMarket)
	addString(row, strings.Join(c.Technologies, ", "))
	addString(row, c.SocialLinks.LinkedIn)
	addString(row, c.SocialLinks.Twitter)
	row.AddCell().SetInt(c.RelevanceScore)
	row.AddCell().SetInt(c.ConfidenceScore)
	row.AddCell().SetInt(c.DataCompleteness)
	addString(row, string(c.ValidationStatus))
	addString(row, strings.Join(c.DataSources, ", "))
	if c.EnrichmentDate != nil {
		addString(row, c.EnrichmentDate.UTC().Format(time.RFC3339))
	} else {
		row.AddCell()
	}
}

func addString(row *xlsx.Row, v string) {
	row.AddCell().Value = v
}
