package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/514labs/moose-e2e/cmd/check"
	"github.com/514labs/moose-e2e/cmd/internal/cmdutil"
	"github.com/514labs/moose-e2e/cmd/logs"
	"github.com/514labs/moose-e2e/cmd/provision"
	"github.com/514labs/moose-e2e/cmd/teardown"
)

var rootCmd = &cobra.Command{
	Use:   "moose-e2e",
	Short: "Integration test infrastructure for scaffolded data pipelines.",
	Long: `moose-e2e provisions isolated ClickHouse and Keeper environments in docker
and validates the schemas and data that scaffolded pipelines produce in them.`,
	PersistentPreRunE: cmdutil.InitConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cmdutil.RegisterLoggerFlags(rootCmd)
	cmdutil.RegisterMetricsFlags(rootCmd)
	rootCmd.AddCommand(provision.Command())
	rootCmd.AddCommand(teardown.Command())
	rootCmd.AddCommand(check.Command())
	rootCmd.AddCommand(logs.Command())
}
