package provision

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/514labs/moose-e2e/cluster"
	"github.com/514labs/moose-e2e/cmd/internal/cmdutil"
	"github.com/514labs/moose-e2e/dockerexec"
)

func Command() *cobra.Command {
	var (
		testName string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Start an isolated ClickHouse plus Keeper environment.",
		Long: `Provision starts a dedicated keeper and data node on a fresh docker
network, waits for both to become healthy, and prints the resulting
environment as JSON for later teardown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger(cmd)
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(cmd, logger)

			p := cluster.NewProvisioner(
				dockerexec.ExecRunner{Logger: logger},
				logger,
				cmdutil.ClusterConfig(cmd),
			)
			env, err := p.Provision(context.Background(), testName)
			if err != nil {
				return err
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					// The containers are up; leave them for a manual
					// teardown rather than discarding the environment.
					logger.Err(err).Msg("environment is live but could not be written")
					return errors.Wrapf(err, "writing %s", outPath)
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(env)
		},
	}

	cmd.Flags().StringVar(&testName, "name", "", "test name the environment is provisioned for")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the environment JSON here instead of stdout")
	cmdutil.RegisterClusterFlags(cmd)
	return cmd
}
