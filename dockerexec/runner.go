// Package dockerexec wraps the docker CLI as the container-runtime boundary
// of the harness. The runtime is an external collaborator: it is only ever
// driven through shell commands, never through an SDK.
package dockerexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Runner executes a docker subcommand and returns its combined output.
// Tests substitute a scripted implementation.
type Runner interface {
	Output(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner shells out to the docker binary.
type ExecRunner struct {
	Logger zerolog.Logger
	// Binary overrides the docker binary path. Empty means "docker".
	Binary string
}

func (r ExecRunner) Output(ctx context.Context, args ...string) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = "docker"
	}
	r.Logger.Debug().Msgf("$ %s %s", binary, strings.Join(args, " "))

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(
			err, "%s %s: %s", binary, strings.Join(args, " "), strings.TrimSpace(output.String()),
		)
	}
	return output.Bytes(), nil
}

// RunOptions describes a detached container start.
type RunOptions struct {
	Name         string
	Image        string
	Network      string
	NetworkAlias string
	Env          map[string]string
	// Ports maps host port to container port.
	Ports map[int]int
	// Entrypoint overrides the image entrypoint. Used to write generated
	// configuration documents through a shell before handing off to the
	// real entrypoint.
	Entrypoint []string
	Command    []string
	// Health configures a container-runtime health check.
	Health *HealthCheck
}

// HealthCheck mirrors docker run's health-check flags.
type HealthCheck struct {
	Cmd      string
	Interval string
	Timeout  string
	Retries  int
}

func NetworkCreate(ctx context.Context, r Runner, name string) error {
	_, err := r.Output(ctx, "network", "create", name)
	return err
}

func NetworkRemove(ctx context.Context, r Runner, name string) error {
	_, err := r.Output(ctx, "network", "rm", name)
	return err
}

func RunDetached(ctx context.Context, r Runner, opts RunOptions) error {
	args := []string{"run", "-d", "--name", opts.Name}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}
	if opts.NetworkAlias != "" {
		args = append(args, "--network-alias", opts.NetworkAlias)
	}
	for _, key := range sortedKeys(opts.Env) {
		args = append(args, "-e", fmt.Sprintf("%s=%s", key, opts.Env[key]))
	}
	for _, host := range sortedPorts(opts.Ports) {
		args = append(args, "-p", fmt.Sprintf("%d:%d", host, opts.Ports[host]))
	}
	if opts.Health != nil {
		args = append(args,
			"--health-cmd", opts.Health.Cmd,
			"--health-interval", opts.Health.Interval,
			"--health-timeout", opts.Health.Timeout,
			"--health-retries", fmt.Sprintf("%d", opts.Health.Retries),
		)
	}
	if len(opts.Entrypoint) > 0 {
		args = append(args, "--entrypoint", opts.Entrypoint[0])
	}
	args = append(args, opts.Image)
	if len(opts.Entrypoint) > 1 {
		args = append(args, opts.Entrypoint[1:]...)
	}
	args = append(args, opts.Command...)
	_, err := r.Output(ctx, args...)
	return err
}

// HealthStatus returns the runtime-reported health classification of a
// container, e.g. "healthy" or "starting".
func HealthStatus(ctx context.Context, r Runner, container string) (string, error) {
	out, err := r.Output(ctx, "inspect", "--format={{.State.Health.Status}}", container)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// TailLogs fetches the last n lines of a container's output.
func TailLogs(ctx context.Context, r Runner, container string, n int) (string, error) {
	out, err := r.Output(ctx, "logs", "--tail", fmt.Sprintf("%d", n), container)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func Stop(ctx context.Context, r Runner, container string) error {
	_, err := r.Output(ctx, "stop", container)
	return err
}

func Remove(ctx context.Context, r Runner, container string) error {
	_, err := r.Output(ctx, "rm", "-f", container)
	return err
}
