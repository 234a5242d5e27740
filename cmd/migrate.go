package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/venturescope/scout/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the store schema",
	Long:  "Creates the discovery tables on the configured store. The DDL is idempotent; running against an existing schema is safe.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.URL, cfg.Store.ServiceKey)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		fmt.Println("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
