package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/venturescope/scout/internal/enrich"
	"github.com/venturescope/scout/internal/model"
)

var (
	enrichCompetitorID string
	enrichNoSocial     bool
	enrichNoAnalysis   bool
	enrichCrawlDepth   int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [url]",
	Short: "Build a deep profile for a website or stored competitor",
	Long:  "Runs the enrichment engine against a website URL, or against a stored competitor by id with --competitor, in which case the result is merged back into the store.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 0 && enrichCompetitorID == "" {
			return eris.New("a url argument or --competitor is required")
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := enrich.Options{
			IncludeSocialMedia: !enrichNoSocial,
			IncludeAIAnalysis:  !enrichNoAnalysis,
			CrawlDepth:         enrichCrawlDepth,
		}
		if opts.CrawlDepth <= 0 {
			opts.CrawlDepth = cfg.Enrichment.CrawlDepth
		}

		var (
			url     string
			initial *model.EnrichedCompetitor
		)
		if enrichCompetitorID != "" {
			competitor, err := env.Store.FindCompetitor(ctx, enrichCompetitorID)
			if err != nil {
				return eris.Wrap(err, "load competitor")
			}
			url = competitor.Website
			initial = &competitor.EnrichedCompetitor
		} else {
			url = args[0]
		}

		profile, err := env.Enricher.Enrich(ctx, url, initial, opts)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		if enrichCompetitorID != "" {
			patch := model.PatchFromEnriched(*profile)
			if err := env.Store.UpdateCompetitorEnrichment(ctx, enrichCompetitorID, patch); err != nil {
				return eris.Wrap(err, "persist enrichment")
			}
		}

		out, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode profile")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichCompetitorID, "competitor", "", "stored competitor id to enrich and update")
	enrichCmd.Flags().BoolVar(&enrichNoSocial, "no-social", false, "skip social media probing")
	enrichCmd.Flags().BoolVar(&enrichNoAnalysis, "no-analysis", false, "skip AI competitive analysis")
	enrichCmd.Flags().IntVar(&enrichCrawlDepth, "crawl-depth", 0, "site crawl page cap (default from config)")
	rootCmd.AddCommand(enrichCmd)
}
