// Package dataverify asserts on the rows an environment's pipelines have
// landed in ClickHouse. Checks that depend on asynchronous propagation
// (materialized views, dead letter routing) poll under a loose retry budget;
// point assertions use a tight one.
package dataverify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/514labs/moose-e2e/chclient"
	"github.com/514labs/moose-e2e/retry"
)

var failedChecks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moose_dataverify_failures_total",
		Help: "Data verification checks that exhausted their retry budget.",
	},
	[]string{"check"},
)

// Store is the slice of chclient.Client the verifier needs.
type Store interface {
	QueryCount(ctx context.Context, query string) (uint64, error)
	QueryString(ctx context.Context, query string) (string, error)
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]chclient.IntrospectedColumn, error)
}

type Verifier struct {
	Store  Store
	Logger zerolog.Logger

	// WaitPolicy governs eventually-consistent checks, CheckPolicy the
	// exact ones.
	WaitPolicy  retry.Policy
	CheckPolicy retry.Policy
}

func NewVerifier(store Store, logger zerolog.Logger) Verifier {
	return Verifier{
		Store:       store,
		Logger:      logger,
		WaitPolicy:  retry.ConstantPolicy(30, time.Second),
		CheckPolicy: retry.ConstantPolicy(3, 500*time.Millisecond),
	}
}

// WaitForRowCount blocks until the table holds at least min rows.
func (v Verifier) WaitForRowCount(ctx context.Context, table string, min uint64) error {
	// Operation names are stable: they become metric label values, so
	// table names and key values belong in the error text only.
	err := retry.DoVoid(ctx, v.Logger, v.WaitPolicy, "wait for row count",
		func(ctx context.Context) error {
			count, err := v.Store.QueryCount(ctx, "SELECT count() FROM "+chclient.QuoteIdent(table))
			if err != nil {
				return err
			}
			if count < min {
				return errors.Newf("table %s has %d row(s), want at least %d", table, count, min)
			}
			v.Logger.Debug().Str("table", table).Uint64("count", count).Msg("row count reached")
			return nil
		})
	if err != nil {
		failedChecks.WithLabelValues("wait_row_count").Inc()
	}
	return err
}

// VerifyRecordCount asserts an exact count, optionally under a WHERE
// predicate. The failure names both sides of the comparison.
func (v Verifier) VerifyRecordCount(ctx context.Context, table, predicate string, want uint64) error {
	query := "SELECT count() FROM " + chclient.QuoteIdent(table)
	if predicate != "" {
		query += " WHERE " + predicate
	}
	err := retry.DoVoid(ctx, v.Logger, v.CheckPolicy, "record count check",
		func(ctx context.Context) error {
			found, err := v.Store.QueryCount(ctx, query)
			if err != nil {
				return err
			}
			if found != want {
				return errors.Newf(
					"table %s: expected %d record(s), found %d", table, want, found,
				)
			}
			return nil
		})
	if err != nil {
		failedChecks.WithLabelValues("record_count").Inc()
	}
	return err
}

// VerifyKeyedRow asserts that at least one row carries keyValue in keyColumn
// and that the value round-trips unchanged through the store.
func (v Verifier) VerifyKeyedRow(ctx context.Context, table, keyColumn, keyValue string) error {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = %s LIMIT 1",
		chclient.QuoteIdent(keyColumn), chclient.QuoteIdent(table),
		chclient.QuoteIdent(keyColumn), quoteString(keyValue),
	)
	err := retry.DoVoid(ctx, v.Logger, v.CheckPolicy, "keyed row check",
		func(ctx context.Context) error {
			got, err := v.Store.QueryString(ctx, query)
			if err != nil {
				return err
			}
			if got != keyValue {
				return errors.Newf(
					"table %s: column %s round-trip mismatch: stored %q, read %q",
					table, keyColumn, keyValue, got,
				)
			}
			return nil
		})
	if err != nil {
		failedChecks.WithLabelValues("keyed_row").Inc()
	}
	return err
}

// VerifyVersionedTables checks that every versioned variant of base exists,
// named base_<version> with dots mapped to underscores. Existence is the hard
// requirement; identical column counts across versions only earn a warning
// since the variants may legitimately share a shape.
func (v Verifier) VerifyVersionedTables(ctx context.Context, base string, versions []string) error {
	tables, err := v.Store.ListTables(ctx)
	if err != nil {
		return errors.Wrap(err, "listing tables")
	}
	present := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		present[t] = struct{}{}
	}

	var missing []string
	names := make([]string, 0, len(versions))
	for _, version := range versions {
		name := VersionedTableName(base, version)
		names = append(names, name)
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		failedChecks.WithLabelValues("versioned_tables").Inc()
		return errors.Newf(
			"versioned tables missing for %s: %s", base, strings.Join(missing, ", "),
		)
	}

	counts := make([]int, 0, len(names))
	for _, name := range names {
		cols, err := v.Store.DescribeTable(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "describing %s", name)
		}
		counts = append(counts, len(cols))
	}
	if len(counts) > 1 && allEqual(counts) {
		v.Logger.Warn().
			Str("base", base).
			Int("columns", counts[0]).
			Msg("all versioned tables have identical column counts; versions may not differ")
	}
	return nil
}

// VersionedTableName maps a base table and a dotted version to the physical
// table name, e.g. ("Foo", "0.1") -> "Foo_0_1".
func VersionedTableName(base, version string) string {
	return base + "_" + strings.ReplaceAll(version, ".", "_")
}

func allEqual(ns []int) bool {
	for _, n := range ns[1:] {
		if n != ns[0] {
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
