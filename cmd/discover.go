package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/store"
)

var (
	discoverProject  string
	discoverUser     string
	discoverKeywords []string
	discoverRegions  []string
	discoverIndustry []string
	discoverMax      int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one discovery job synchronously",
	Long:  "Creates a run for the project and executes the full pipeline in this process: query ladder, web search, AI extraction, scoring, dedup, persistence. Keywords, regions, and industries default from the project.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		project, err := env.Store.GetProject(ctx, discoverProject)
		if err != nil {
			return eris.Wrap(err, "load project")
		}

		keywords := discoverKeywords
		if len(keywords) == 0 {
			keywords = project.Keywords
		}
		regions := discoverRegions
		if len(regions) == 0 {
			regions = project.TargetRegions
		}
		industries := discoverIndustry
		if len(industries) == 0 {
			industries = project.Industries
		}
		if len(keywords) == 0 || len(regions) == 0 {
			return eris.New("keywords and regions are required, by flag or on the project")
		}

		maxResults := discoverMax
		if maxResults <= 0 {
			maxResults = cfg.Scoring.MaxResults
		}

		run, err := env.Store.CreateRun(ctx, project.ID, discoverUser, keywords, regions)
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		job := model.DiscoveryContext{
			RunID:          run.ID,
			ProjectID:      project.ID,
			OrganizationID: project.OrganizationID,
			UserID:         discoverUser,
			Keywords:       keywords,
			Regions:        regions,
			Industries:     industries,
			MaxResults:     maxResults,
			Tier:           model.TierPremium,
		}

		if err := env.Pipeline.Execute(ctx, job); err != nil {
			if failErr := env.Pipeline.FailRun(ctx, run.ID, err.Error()); failErr != nil {
				zap.L().Error("could not mark run failed", zap.Error(failErr))
			}
			return eris.Wrap(err, "discovery run")
		}

		done, err := env.Store.GetRun(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "reload run")
		}

		fmt.Printf("run %s %s: %d competitors\n", done.ID, done.Status, done.ResultsCount)
		if done.ResultsCount > 0 {
			competitors, err := env.Store.ListCompetitors(ctx, store.CompetitorFilter{
				OrganizationID: project.OrganizationID,
				SearchRunID:    run.ID,
			})
			if err != nil {
				return eris.Wrap(err, "list competitors")
			}
			for _, c := range competitors {
				fmt.Printf("  %-30s %-35s score=%d\n", c.Name, c.Website, c.RelevanceScore)
			}
		}

		env.Spend.Log(run.ID)
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverProject, "project", "", "project id (required)")
	discoverCmd.Flags().StringVar(&discoverUser, "user", "cli", "user id recorded on the run")
	discoverCmd.Flags().StringSliceVar(&discoverKeywords, "keywords", nil, "search keywords")
	discoverCmd.Flags().StringSliceVar(&discoverRegions, "regions", nil, "target regions")
	discoverCmd.Flags().StringSliceVar(&discoverIndustry, "industries", nil, "industries")
	discoverCmd.Flags().IntVar(&discoverMax, "max", 0, "max results (default from config)")
	_ = discoverCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(discoverCmd)
}
