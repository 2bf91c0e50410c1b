package cluster

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/514labs/moose-e2e/chclient"
	"github.com/514labs/moose-e2e/dockerexec"
	"github.com/514labs/moose-e2e/retry"
)

var (
	environmentsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "moose",
		Subsystem: "cluster",
		Name:      "environments_live",
		Help:      "Number of provisioned environments not yet torn down.",
	})
	provisionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moose",
		Subsystem: "cluster",
		Name:      "provision_failures_total",
		Help:      "Number of environment provisioning attempts that failed.",
	})
)

const (
	keeperHTTPAlias      = "keeper"
	keeperClientPort     = 9181
	clickhouseHTTPPort   = 8123
	clickhouseNativePort = 9000

	// Auxiliary KeeperMap state tables live under a fixed keeper path.
	keeperStatePathPrefix = "/clickhouse/moose_state"
)

// Provisioner allocates and destroys test cluster environments. One
// provisioner drives one environment lifecycle at a time; isolation between
// concurrently running tests comes from randomized names and ports, not from
// any locking here.
type Provisioner struct {
	Runner dockerexec.Runner
	Logger zerolog.Logger
	Config Config

	// Probe overrides the data-node readiness check. Nil means a SELECT 1
	// round trip through chclient.
	Probe func(ctx context.Context, url string) error

	now        func() time.Time
	portOffset func() int

	// live tracks the environments this provisioner brought up and has not
	// yet torn down, keeping the liveness gauge accurate across repeated
	// teardowns and teardowns of never-provisioned environments.
	mu   sync.Mutex
	live map[string]struct{}
}

func NewProvisioner(runner dockerexec.Runner, logger zerolog.Logger, cfg Config) *Provisioner {
	return &Provisioner{
		Runner: runner,
		Logger: logger,
		Config: cfg.withDefaults(),
	}
}

func (p *Provisioner) probe(ctx context.Context, url string) error {
	if p.Probe != nil {
		return p.Probe(ctx, url)
	}
	return chclient.Client{URL: url}.Probe(ctx)
}

func (p *Provisioner) timestamp() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Provisioner) randomPortOffset() int {
	if p.portOffset != nil {
		return p.portOffset()
	}
	return rand.Intn(portRange)
}

// Provision starts a fresh two-node cluster for the named test and blocks
// until both nodes are operationally healthy. On any failure after network
// creation it attempts best-effort cleanup of whatever was started, then
// returns the original cause.
func (p *Provisioner) Provision(ctx context.Context, testName string) (Environment, error) {
	cfg := p.Config.withDefaults()

	// The timestamp keeps repeated runs of the same test apart; the random
	// port offset keeps concurrently running environments apart.
	name := fmt.Sprintf("%s%s-%d", containerPrefix, testName, p.timestamp().Unix())
	offset := p.randomPortOffset()
	env := Environment{
		ContainerName:       name,
		KeeperContainerName: name + "-keeper",
		Network:             name + "-net",
		DBName:              "test_" + testName,
		User:                defaultUser,
		Password:            defaultPassword,
		HTTPPort:            basePort + offset,
		KeeperPort:          basePort + keeperPortSpread + offset,
	}
	env.URL = connectionURL(env.User, env.Password, env.HTTPPort, env.DBName)

	p.Logger.Info().
		Str("test", testName).
		Str("container", env.ContainerName).
		Int("http_port", env.HTTPPort).
		Msgf("provisioning cluster environment")

	if err := dockerexec.NetworkCreate(ctx, p.Runner, env.Network); err != nil {
		provisionFailures.Inc()
		return Environment{}, errors.Wrapf(err, "provision %q: create network", testName)
	}

	if err := p.bringUp(ctx, cfg, env); err != nil {
		provisionFailures.Inc()
		p.cleanupPartial(ctx, env)
		return Environment{}, errors.Wrapf(err, "provision %q", testName)
	}

	p.markLive(env.ContainerName)
	environmentsLive.Inc()
	p.Logger.Info().Str("url", env.URL).Msgf("cluster environment ready")
	return env, nil
}

func (p *Provisioner) markLive(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live == nil {
		p.live = make(map[string]struct{})
	}
	p.live[name] = struct{}{}
}

func (p *Provisioner) unmarkLive(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.live[name]
	delete(p.live, name)
	return ok
}

// bringUp runs every provisioning step after network creation, in strict
// order: keeper, keeper health, settle, data node, data-node probe.
func (p *Provisioner) bringUp(ctx context.Context, cfg Config, env Environment) error {
	if err := p.startKeeper(ctx, cfg, env); err != nil {
		return errors.Wrap(err, "start keeper node")
	}
	if err := p.waitKeeperHealthy(ctx, cfg, env); err != nil {
		return err
	}

	// The keeper reports healthy before it is stable enough for a client
	// to hold a session. See Config.SettleDelay.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(cfg.SettleDelay):
	}

	if err := p.startClickHouse(ctx, cfg, env); err != nil {
		return errors.Wrap(err, "start data node")
	}
	if err := retry.DoVoid(
		ctx, p.Logger, retry.ConstantPolicy(cfg.ProbeAttempts, cfg.ProbeDelay), "data node probe",
		func(ctx context.Context) error {
			return p.probe(ctx, env.URL)
		},
	); err != nil {
		return errors.Wrap(err, "data node never became queryable")
	}
	return nil
}

func (p *Provisioner) startKeeper(ctx context.Context, cfg Config, env Environment) error {
	return dockerexec.RunDetached(ctx, p.Runner, dockerexec.RunOptions{
		Name:         env.KeeperContainerName,
		Image:        cfg.KeeperImage,
		Network:      env.Network,
		NetworkAlias: keeperHTTPAlias,
		Ports:        map[int]int{env.KeeperPort: keeperClientPort},
		Entrypoint: []string{
			"/bin/bash", "-c",
			writeConfigScript("/etc/clickhouse-keeper/keeper_config.xml", keeperConfig()),
		},
		Health: &dockerexec.HealthCheck{
			Cmd:      fmt.Sprintf("bash -c 'echo ruok | nc -w 2 localhost %d | grep -q imok'", keeperClientPort),
			Interval: "1s",
			Timeout:  "5s",
			Retries:  5,
		},
	})
}

// waitKeeperHealthy polls the runtime-reported health status until it is
// exactly "healthy". Every other observation, including inspect errors while
// the container is still being created, counts as not-yet. On exhaustion it
// dumps a log tail before failing; diagnostics are best-effort and never
// replace the timeout as the reported cause.
func (p *Provisioner) waitKeeperHealthy(ctx context.Context, cfg Config, env Environment) error {
	policy := retry.ConstantPolicy(cfg.KeeperHealthAttempts, cfg.KeeperHealthDelay)
	err := retry.DoVoid(ctx, p.Logger, policy, "keeper health", func(ctx context.Context) error {
		status, err := dockerexec.HealthStatus(ctx, p.Runner, env.KeeperContainerName)
		if err != nil {
			return err
		}
		if status != "healthy" {
			return errors.Newf("keeper health status %q", status)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if logs, logsErr := dockerexec.TailLogs(
		ctx, p.Runner, env.KeeperContainerName, cfg.DiagnosticLogLines,
	); logsErr != nil {
		p.Logger.Warn().Err(logsErr).Msgf("could not fetch keeper diagnostics")
	} else {
		p.Logger.Error().Msgf("keeper logs (last %d lines):\n%s", cfg.DiagnosticLogLines, strings.TrimSpace(logs))
	}
	return errors.Wrap(err, "keeper never reported healthy")
}

func (p *Provisioner) startClickHouse(ctx context.Context, cfg Config, env Environment) error {
	return dockerexec.RunDetached(ctx, p.Runner, dockerexec.RunOptions{
		Name:    env.ContainerName,
		Image:   cfg.ClickHouseImage,
		Network: env.Network,
		Env: map[string]string{
			"CLICKHOUSE_USER":     env.User,
			"CLICKHOUSE_PASSWORD": env.Password,
			"CLICKHOUSE_DB":       env.DBName,
		},
		Ports: map[int]int{env.HTTPPort: clickhouseHTTPPort},
		Entrypoint: []string{
			"/bin/bash", "-c",
			writeConfigScript("/etc/clickhouse-server/config.d/keeper.xml", clickhouseKeeperConfig()),
		},
	})
}

// cleanupPartial reverses a failed provisioning run. Each step is
// independent and its failure is logged, never propagated, so the caller's
// original provisioning error stays the reported cause.
func (p *Provisioner) cleanupPartial(ctx context.Context, env Environment) {
	p.Logger.Warn().Str("container", env.ContainerName).Msgf("cleaning up after failed provisioning")
	p.removeQuietly(ctx, env)
}

// Teardown stops and removes the environment's containers and network. It is
// idempotent and never fails: missing resources and runtime errors are
// logged and skipped so it is safe in failure handlers, including after an
// earlier partial teardown.
func (p *Provisioner) Teardown(ctx context.Context, env Environment) {
	p.Logger.Info().Str("container", env.ContainerName).Msgf("tearing down cluster environment")
	p.removeQuietly(ctx, env)
	if p.unmarkLive(env.ContainerName) {
		environmentsLive.Dec()
	}
}

func (p *Provisioner) removeQuietly(ctx context.Context, env Environment) {
	for _, container := range []string{env.ContainerName, env.KeeperContainerName} {
		if container == "" {
			continue
		}
		if err := dockerexec.Stop(ctx, p.Runner, container); err != nil {
			p.Logger.Debug().Err(err).Msgf("stop %s", container)
		}
		if err := dockerexec.Remove(ctx, p.Runner, container); err != nil {
			p.Logger.Debug().Err(err).Msgf("remove %s", container)
		}
	}
	if env.Network != "" {
		if err := dockerexec.NetworkRemove(ctx, p.Runner, env.Network); err != nil {
			p.Logger.Debug().Err(err).Msgf("remove network %s", env.Network)
		}
	}
}
