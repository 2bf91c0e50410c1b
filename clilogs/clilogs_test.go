package clilogs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 11, 25, 10, 30, 0, 0, time.UTC)

func writeLog(t *testing.T, dir, name, contents string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestDatedLogPath(t *testing.T) {
	require.Equal(t,
		filepath.Join("/home/u", ".moose", "2025-11-25-cli.log"),
		DatedLogPath("/home/u", testNow),
	)
}

func TestFindCLILogPrefersToday(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".moose")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	writeLog(t, dir, "2025-11-24-cli.log", "old", testNow.Add(-24*time.Hour))
	today := writeLog(t, dir, "2025-11-25-cli.log", "new", testNow)

	found, err := FindCLILog(home, testNow)
	require.NoError(t, err)
	require.Equal(t, today, found)
}

func TestFindCLILogFallsBackToNewest(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".moose")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	writeLog(t, dir, "2025-11-23-cli.log", "older", testNow.Add(-48*time.Hour))
	newest := writeLog(t, dir, "2025-11-24-cli.log", "newer", testNow.Add(-24*time.Hour))
	writeLog(t, dir, "unrelated.txt", "skip me", testNow)

	found, err := FindCLILog(home, testNow)
	require.NoError(t, err)
	require.Equal(t, newest, found)
}

func TestFindCLILogMiss(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".moose"), 0o755))

	_, err := FindCLILog(home, testNow)
	require.Error(t, err)
	require.Contains(t, err.Error(), `-cli.log`)
}

func TestContains(t *testing.T) {
	home := t.TempDir()
	path := writeLog(t, home, "2025-11-25-cli.log", "line one\nprocess started\n", testNow)

	ok, err := Contains(path, "process started")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Contains(path, "panic")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = Contains(filepath.Join(home, "nope.log"), "x")
	require.Error(t, err)
}
