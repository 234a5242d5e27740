package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/store"
	"github.com/venturescope/scout/pkg/notion"
)

var (
	publishOrg string
	publishDB  string
)

// publishPageSize bounds each store read while collecting the batch.
const publishPageSize = 200

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push approved competitors to the Notion review database",
	Long:  "Publishes every approved competitor for the organization to Notion, idempotent by website: existing pages are updated, not duplicated.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.Notion.Token == "" {
			return eris.New("notion token is not configured")
		}
		dbID := publishDB
		if dbID == "" {
			dbID = cfg.Notion.CompetitorDB
		}
		if dbID == "" {
			return eris.New("notion database id is required, by flag or config")
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := approvedRecords(cmd, env)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no approved competitors to publish")
			return nil
		}

		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimitRPS))
		stats, err := notion.NewPublisher(client, dbID).Publish(ctx, records)
		if err != nil {
			return err
		}

		fmt.Printf("published %d competitors: %d created, %d updated, %d skipped\n",
			len(records), stats.Created, stats.Updated, stats.Skipped)
		return nil
	},
}

func approvedRecords(cmd *cobra.Command, env *appEnv) ([]notion.CompanyRecord, error) {
	var records []notion.CompanyRecord
	filter := store.CompetitorFilter{
		OrganizationID:   publishOrg,
		ValidationStatus: model.ValidationApproved,
		Limit:            publishPageSize,
	}
	for {
		filter.Offset = len(records)
		page, err := env.Store.ListCompetitors(cmd.Context(), filter)
		if err != nil {
			return nil, eris.Wrap(err, "list approved competitors")
		}
		for _, c := range page {
			records = append(records, notion.CompanyRecord{
				Name:             c.Name,
				Website:          c.Website,
				Description:      c.Description,
				Industry:         c.Industry,
				Country:          c.Country,
				FundingStage:     c.FundingStage,
				TotalFunding:     c.TotalFunding,
				RelevanceScore:   c.RelevanceScore,
				ConfidenceScore:  c.ConfidenceScore,
				ValidationStatus: string(c.ValidationStatus),
			})
		}
		if len(page) < publishPageSize {
			return records, nil
		}
	}
}

func init() {
	publishCmd.Flags().StringVar(&publishOrg, "org", "", "organization id (required)")
	publishCmd.Flags().StringVar(&publishDB, "db", "", "notion database id (default from config)")
	_ = publishCmd.MarkFlagRequired("org")
	rootCmd.AddCommand(publishCmd)
}
