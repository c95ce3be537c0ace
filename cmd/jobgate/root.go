package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobgate",
		Short: "Admit, lock and track database jobs",
		Long: `
jobgate runs workloads of declarative plans through the job admission
controller and reports their progress and outcomes.
`,
		Example: `  $ jobgate run --workload batch.yaml
  $ jobgate run --config jobgate.yaml --workload batch.yaml --metrics :9090
`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCmd())
	return rootCmd
}
