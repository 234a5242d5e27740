package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/venturescope/scout/internal/export"
	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/store"
)

var (
	exportOrg    string
	exportRun    string
	exportStatus string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an organization's competitors to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		filter := store.CompetitorFilter{
			OrganizationID:   exportOrg,
			SearchRunID:      exportRun,
			ValidationStatus: model.ValidationStatus(exportStatus),
		}

		n, err := export.NewExporter(env.Store).Export(ctx, filter, exportOut)
		if err != nil {
			return err
		}

		fmt.Printf("wrote %d competitors to %s\n", n, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOrg, "org", "", "organization id (required)")
	exportCmd.Flags().StringVar(&exportRun, "run", "", "restrict to one search run")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "restrict to a validation status (pending, approved, rejected)")
	exportCmd.Flags().StringVar(&exportOut, "out", "competitors.xlsx", "output file path")
	_ = exportCmd.MarkFlagRequired("org")
	rootCmd.AddCommand(exportCmd)
}
