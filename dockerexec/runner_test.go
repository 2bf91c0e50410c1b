package dockerexec

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	calls [][]string
	out   []byte
	err   error
}

func (s *scriptedRunner) Output(_ context.Context, args ...string) ([]byte, error) {
	s.calls = append(s.calls, args)
	return s.out, s.err
}

func TestRunDetachedArgs(t *testing.T) {
	r := &scriptedRunner{}
	err := RunDetached(context.Background(), r, RunOptions{
		Name:         "moose-test-clickhouse-demo-1",
		Image:        "clickhouse/clickhouse-server:25.4",
		Network:      "moose-test-net",
		NetworkAlias: "clickhouse",
		Env: map[string]string{
			"CLICKHOUSE_USER": "panda",
			"CLICKHOUSE_DB":   "test_demo",
		},
		Ports: map[int]int{18123: 8123},
		Health: &HealthCheck{
			Cmd:      "clickhouse-client --query 'SELECT 1'",
			Interval: "1s",
			Timeout:  "5s",
			Retries:  10,
		},
		Entrypoint: []string{"/bin/bash", "-c", "echo hi"},
		Command:    []string{"--", "serve"},
	})
	require.NoError(t, err)
	require.Len(t, r.calls, 1)

	got := strings.Join(r.calls[0], " ")
	require.True(t, strings.HasPrefix(got, "run -d --name moose-test-clickhouse-demo-1"))
	require.Contains(t, got, "--network moose-test-net")
	require.Contains(t, got, "--network-alias clickhouse")
	// Env vars sorted by key.
	require.Less(t,
		strings.Index(got, "CLICKHOUSE_DB=test_demo"),
		strings.Index(got, "CLICKHOUSE_USER=panda"),
	)
	require.Contains(t, got, "-p 18123:8123")
	require.Contains(t, got, "--health-cmd clickhouse-client --query 'SELECT 1'")
	require.Contains(t, got, "--health-retries 10")
	// Entrypoint override precedes the image; its arguments follow it.
	require.Contains(t, got, "--entrypoint /bin/bash clickhouse/clickhouse-server:25.4 -c echo hi -- serve")
}

func TestHealthStatusTrims(t *testing.T) {
	r := &scriptedRunner{out: []byte("healthy\n")}
	status, err := HealthStatus(context.Background(), r, "some-container")
	require.NoError(t, err)
	require.Equal(t, "healthy", status)
	require.Equal(t, [][]string{{"inspect", "--format={{.State.Health.Status}}", "some-container"}}, r.calls)
}

func TestHealthStatusPropagatesError(t *testing.T) {
	r := &scriptedRunner{err: errors.New("No such object: some-container")}
	_, err := HealthStatus(context.Background(), r, "some-container")
	require.Error(t, err)
}

func TestTailLogs(t *testing.T) {
	r := &scriptedRunner{out: []byte("line1\nline2\n")}
	logs, err := TailLogs(context.Background(), r, "c", 50)
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\n", logs)
	require.Equal(t, [][]string{{"logs", "--tail", "50", "c"}}, r.calls)
}

func TestExecRunnerEmbedsOutputInError(t *testing.T) {
	r := ExecRunner{Logger: zerolog.Nop(), Binary: "/bin/sh"}
	// sh -c exits non-zero and writes to stderr; the error must carry it.
	_, err := r.Output(context.Background(), "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
