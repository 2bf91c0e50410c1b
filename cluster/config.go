package cluster

import "time"

// Config holds the provisioner's tunables. Zero values are filled in from
// Default; the attempt budgets are bounded counts, not wall-clock deadlines.
type Config struct {
	ClickHouseImage string
	KeeperImage     string

	// KeeperHealthAttempts polls the keeper's reported health status at
	// KeeperHealthDelay intervals.
	KeeperHealthAttempts int
	KeeperHealthDelay    time.Duration

	// SettleDelay is a fixed pause after the keeper reports healthy. The
	// data node starts connecting immediately and needs the keeper to be
	// fully stable, not merely ready. A stronger readiness signal should
	// replace this eventually.
	SettleDelay time.Duration

	// ProbeAttempts retries a trivial query against the data node at
	// ProbeDelay intervals.
	ProbeAttempts int
	ProbeDelay    time.Duration

	// DiagnosticLogLines bounds the log tail dumped on a health timeout.
	DiagnosticLogLines int
}

func DefaultConfig() Config {
	return Config{
		ClickHouseImage:      "clickhouse/clickhouse-server:25.4",
		KeeperImage:          "clickhouse/clickhouse-keeper:25.4",
		KeeperHealthAttempts: 120,
		KeeperHealthDelay:    time.Second,
		SettleDelay:          3 * time.Second,
		ProbeAttempts:        30,
		ProbeDelay:           time.Second,
		DiagnosticLogLines:   50,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ClickHouseImage == "" {
		c.ClickHouseImage = def.ClickHouseImage
	}
	if c.KeeperImage == "" {
		c.KeeperImage = def.KeeperImage
	}
	if c.KeeperHealthAttempts == 0 {
		c.KeeperHealthAttempts = def.KeeperHealthAttempts
	}
	if c.KeeperHealthDelay == 0 {
		c.KeeperHealthDelay = def.KeeperHealthDelay
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = def.SettleDelay
	}
	if c.ProbeAttempts == 0 {
		c.ProbeAttempts = def.ProbeAttempts
	}
	if c.ProbeDelay == 0 {
		c.ProbeDelay = def.ProbeDelay
	}
	if c.DiagnosticLogLines == 0 {
		c.DiagnosticLogLines = def.DiagnosticLogLines
	}
	return c
}
