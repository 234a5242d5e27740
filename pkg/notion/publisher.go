package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CompanyRecord is the flat shape a competitor takes on its way into the
// review database. The caller maps its own model into this.
type CompanyRecord struct {
	Name             string
	Website          string
	Description      string
	Industry         string
	Country          string
	FundingStage     string
	TotalFunding     float64
	RelevanceScore   int
	ConfidenceScore  int
	ValidationStatus string
}

// PublishStats counts what a Publish call did.
type PublishStats struct {
	Created int
	Updated int
	Skipped int
}

// Publisher pushes company records into one Notion database. Publishing
// is idempotent by the Website property: a record whose website already
// has a page updates that page instead of creating a duplicate.
type Publisher struct {
	client Client
	dbID   string
}

func NewPublisher(c Client, dbID string) *Publisher {
	return &Publisher{client: c, dbID: dbID}
}

// Publish writes the records, creating or updating one page each.
// Records without a website are skipped; they have no idempotency key.
func (p *Publisher) Publish(ctx context.Context, records []CompanyRecord) (PublishStats, error) {
	var stats PublishStats

	existing, err := p.pagesByWebsite(ctx)
	if err != nil {
		return stats, err
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return stats, eris.Wrap(ctx.Err(), "notion: publish cancelled")
		}
		if rec.Website == "" {
			stats.Skipped++
			continue
		}

		props := pageProperties(rec)
		if pageID, ok := existing[rec.Website]; ok {
			_, err := p.client.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{
				Properties: props,
			})
			if err != nil {
				return stats, eris.Wrap(err, fmt.Sprintf("notion: update %s", rec.Website))
			}
			stats.Updated++
			continue
		}

		_, err := p.client.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(p.dbID),
			},
			Properties: props,
		})
		if err != nil {
			return stats, eris.Wrap(err, fmt.Sprintf("notion: create %s", rec.Website))
		}
		stats.Created++
	}

	zap.L().Info("notion publish finished",
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// pagesByWebsite scans the whole database once and indexes page ids by
// their Website property. One scan beats a per-record filter query when
// a batch carries more than a handful of records.
func (p *Publisher) pagesByWebsite(ctx context.Context) (map[string]string, error) {
	index := make(map[string]string)

	req := &notionapi.DatabaseQueryRequest{}
	for {
		resp, err := p.client.QueryDatabase(ctx, p.dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: scan database")
		}
		for _, page := range resp.Results {
			if site := websiteOf(page); site != "" {
				index[site] = string(page.ID)
			}
		}
		if !resp.HasMore {
			return index, nil
		}
		req = &notionapi.DatabaseQueryRequest{StartCursor: resp.NextCursor}
	}
}

func websiteOf(page notionapi.Page) string {
	prop, ok := page.Properties["Website"]
	if !ok {
		return ""
	}
	switch v := prop.(type) {
	case *notionapi.URLProperty:
		return v.URL
	case notionapi.URLProperty:
		return v.URL
	}
	return ""
}

func pageProperties(rec CompanyRecord) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: rec.Name}},
			},
		},
		"Website": notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  rec.Website,
		},
		"Relevance": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.RelevanceScore),
		},
		"Confidence": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.ConfidenceScore),
		},
	}

	if rec.Description != "" {
		props["Description"] = richText(rec.Description)
	}
	if rec.Country != "" {
		props["Country"] = richText(rec.Country)
	}
	if rec.Industry != "" {
		props["Industry"] = selectOption(rec.Industry)
	}
	if rec.FundingStage != "" {
		props["Funding Stage"] = selectOption(rec.FundingStage)
	}
	if rec.TotalFunding > 0 {
		props["Total Funding"] = notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: rec.TotalFunding,
		}
	}
	if rec.ValidationStatus != "" {
		props["Status"] = selectOption(cases.Title(language.English).String(rec.ValidationStatus))
	}
	return props
}

func richText(v string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}},
		},
	}
}

func selectOption(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{
		Type:   notionapi.PropertyTypeSelect,
		Select: notionapi.Option{Name: strings.TrimSpace(name)},
	}
}
