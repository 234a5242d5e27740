package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/venturescope/scout/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal discovery worker",
	Long:  "Registers the discovery workflow and its activities on the configured task queue and blocks until interrupted. Requires queue.backend=temporal on the enqueuing side.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		tcfg := temporalConfig()
		c, err := worker.NewTemporalClient(tcfg)
		if err != nil {
			return eris.Wrap(err, "connect temporal")
		}
		defer c.Close()

		return worker.RunWorker(c, tcfg, worker.NewActivities(env.Pipeline))
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
