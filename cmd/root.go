package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Competitor discovery pipeline",
	Long:  "Finds, scores, and enriches competitor companies for venture research projects: web search, AI extraction, dedup against the corpus, and deep profile enrichment.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
