package logs

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/514labs/moose-e2e/clilogs"
	"github.com/514labs/moose-e2e/cmd/internal/cmdutil"
)

func Command() *cobra.Command {
	var (
		home     string
		contains string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Locate the scaffold CLI's log file and optionally grep it.",
		Long: `Logs resolves today's CLI log under <home>/.moose, falling back to the
most recently modified *-cli.log, prints its path, and with --contains fails
unless the given marker appears in it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger(cmd)
			if err != nil {
				return err
			}

			if home == "" {
				home, err = os.UserHomeDir()
				if err != nil {
					return errors.Wrap(err, "resolving home directory")
				}
			}
			path, err := clilogs.FindCLILog(home, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)

			if contains != "" {
				ok, err := clilogs.Contains(path, contains)
				if err != nil {
					return err
				}
				if !ok {
					return errors.Newf("%s does not contain %q", path, contains)
				}
				logger.Info().Str("path", path).Str("marker", contains).Msg("marker found")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&home, "home", "", "home directory holding .moose; defaults to the current user's")
	cmd.Flags().StringVar(&contains, "contains", "", "fail unless the log contains this marker")
	return cmd
}
