package teardown

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/514labs/moose-e2e/cluster"
	"github.com/514labs/moose-e2e/cmd/internal/cmdutil"
	"github.com/514labs/moose-e2e/dockerexec"
)

func Command() *cobra.Command {
	var envPath string

	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Destroy a previously provisioned environment.",
		Long: `Teardown reads an environment JSON (as printed by provision) from --env
or stdin and removes its containers and network. Resources that are already
gone are skipped quietly, so rerunning is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger(cmd)
			if err != nil {
				return err
			}

			in := io.Reader(os.Stdin)
			if envPath != "" {
				f, err := os.Open(envPath)
				if err != nil {
					return errors.Wrapf(err, "opening %s", envPath)
				}
				defer f.Close()
				in = f
			}
			var env cluster.Environment
			if err := json.NewDecoder(in).Decode(&env); err != nil {
				return errors.Wrap(err, "decoding environment")
			}
			if env.ContainerName == "" {
				return errors.New("environment has no container name")
			}

			p := cluster.NewProvisioner(
				dockerexec.ExecRunner{Logger: logger},
				logger,
				cmdutil.ClusterConfig(cmd),
			)
			p.Teardown(context.Background(), env)
			logger.Info().Str("container", env.ContainerName).Msg("environment removed")
			return nil
		},
	}

	cmd.Flags().StringVar(&envPath, "env", "", "path to the environment JSON; stdin when empty")
	cmdutil.RegisterClusterFlags(cmd)
	return cmd
}
