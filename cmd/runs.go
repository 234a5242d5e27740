package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	runsProject string
	runsLimit   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List discovery runs for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Store.ListRuns(ctx, runsProject, runsLimit)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		if len(runs) == 0 {
			fmt.Println("no runs")
			return nil
		}

		fmt.Printf("%-36s  %-10s  %7s  %-20s  %s\n", "ID", "STATUS", "RESULTS", "CREATED", "ERROR")
		for _, r := range runs {
			fmt.Printf("%-36s  %-10s  %7d  %-20s  %s\n",
				r.ID, r.Status, r.ResultsCount,
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.ErrorMessage)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsProject, "project", "", "project id (required)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	_ = runsCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(runsCmd)
}
