// Package clilogs locates and inspects the scaffold CLI's log files. The CLI
// rotates daily into ~/.moose/YYYY-MM-DD-cli.log; tests that span midnight or
// run against a clock-skewed host fall back to the newest matching file.
package clilogs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	logDirName = ".moose"
	logSuffix  = "-cli.log"
)

// DatedLogPath returns the log path the CLI writes for the given day.
func DatedLogPath(home string, now time.Time) string {
	return filepath.Join(home, logDirName, now.Format("2006-01-02")+logSuffix)
}

// MostRecentWithSuffix scans dir for regular files ending in suffix and
// returns the one with the newest modification time.
func MostRecentWithSuffix(dir, suffix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", dir)
	}
	var (
		newest     string
		newestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", errors.Newf("no %q files in %s", suffix, dir)
	}
	return newest, nil
}

// FindCLILog returns today's log if present, otherwise the most recent one.
func FindCLILog(home string, now time.Time) (string, error) {
	dated := DatedLogPath(home, now)
	if info, err := os.Stat(dated); err == nil && !info.IsDir() {
		return dated, nil
	}
	return MostRecentWithSuffix(filepath.Join(home, logDirName), logSuffix)
}

// Contains reports whether the file at path contains needle.
func Contains(path, needle string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrapf(err, "reading %s", path)
	}
	return strings.Contains(string(data), needle), nil
}
