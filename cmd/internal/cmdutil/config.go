package cmdutil

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/514labs/moose-e2e/cluster"
)

// InitConfig wires the environment into viper under the MOOSE_E2E_ prefix,
// so e.g. MOOSE_E2E_CLICKHOUSE_IMAGE backs the --clickhouse-image flag.
// Install it as the root command's PersistentPreRunE.
func InitConfig(*cobra.Command, []string) error {
	viper.Reset()
	viper.SetEnvPrefix("MOOSE_E2E")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	return nil
}

// ResolveString prefers an explicitly set flag, then the environment, then
// the flag default.
func ResolveString(cmd *cobra.Command, key, fallback string) string {
	f := cmd.Flags().Lookup(key)
	if f == nil {
		f = cmd.Root().PersistentFlags().Lookup(key)
	}
	if f == nil || (!f.Changed && viper.IsSet(key)) {
		if viper.IsSet(key) {
			return viper.GetString(key)
		}
		return fallback
	}
	return f.Value.String()
}

func resolveInt(flagged bool, flagValue int, key string) int {
	if !flagged && viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return flagValue
}

func resolveDuration(flagged bool, flagValue time.Duration, key string) time.Duration {
	if !flagged && viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	return flagValue
}

// RegisterClusterFlags declares the provisioning tunables on cmd. Every flag
// has a MOOSE_E2E_ environment twin resolved in ClusterConfig.
func RegisterClusterFlags(cmd *cobra.Command) {
	def := cluster.DefaultConfig()
	cmd.Flags().String("clickhouse-image", def.ClickHouseImage, "ClickHouse server image")
	cmd.Flags().String("keeper-image", def.KeeperImage, "ClickHouse Keeper image")
	cmd.Flags().Int("keeper-health-attempts", def.KeeperHealthAttempts, "keeper health poll budget")
	cmd.Flags().Duration("keeper-health-delay", def.KeeperHealthDelay, "delay between keeper health polls")
	cmd.Flags().Duration("settle-delay", def.SettleDelay, "pause after the keeper reports healthy")
	cmd.Flags().Int("probe-attempts", def.ProbeAttempts, "data node probe budget")
	cmd.Flags().Duration("probe-delay", def.ProbeDelay, "delay between data node probes")
}

// ClusterConfig resolves the provisioning tunables from flags and env.
func ClusterConfig(cmd *cobra.Command) cluster.Config {
	def := cluster.DefaultConfig()
	flags := cmd.Flags()
	cfg := cluster.Config{
		ClickHouseImage: ResolveString(cmd, "clickhouse-image", def.ClickHouseImage),
		KeeperImage:     ResolveString(cmd, "keeper-image", def.KeeperImage),
	}

	attempts, _ := flags.GetInt("keeper-health-attempts")
	cfg.KeeperHealthAttempts = resolveInt(flags.Changed("keeper-health-attempts"), attempts, "keeper-health-attempts")

	delay, _ := flags.GetDuration("keeper-health-delay")
	cfg.KeeperHealthDelay = resolveDuration(flags.Changed("keeper-health-delay"), delay, "keeper-health-delay")

	settle, _ := flags.GetDuration("settle-delay")
	cfg.SettleDelay = resolveDuration(flags.Changed("settle-delay"), settle, "settle-delay")

	probes, _ := flags.GetInt("probe-attempts")
	cfg.ProbeAttempts = resolveInt(flags.Changed("probe-attempts"), probes, "probe-attempts")

	probeDelay, _ := flags.GetDuration("probe-delay")
	cfg.ProbeDelay = resolveDuration(flags.Changed("probe-delay"), probeDelay, "probe-delay")

	return cfg
}
