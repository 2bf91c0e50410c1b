package cmdutil

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type loggerConfig struct {
	level string
}

var loggerConfigInst = loggerConfig{
	level: zerolog.InfoLevel.String(),
}

func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.level,
		"level",
		loggerConfigInst.level,
		"what level to log at - maps to zerolog.Level",
	)
}

// Logger builds the console logger every subcommand shares. The --level flag
// wins over the MOOSE_E2E_LEVEL environment variable.
func Logger(cmd *cobra.Command) (zerolog.Logger, error) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	lvl, err := zerolog.ParseLevel(ResolveString(cmd, "level", loggerConfigInst.level))
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), nil
}
