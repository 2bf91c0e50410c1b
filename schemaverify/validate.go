package schemaverify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/514labs/moose-e2e/chclient"
)

// Introspector is the read-only schema surface the validator needs;
// chclient.Client implements it.
type Introspector interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]chclient.IntrospectedColumn, error)
	ShowCreateTable(ctx context.Context, table string) (string, error)
}

// Result is the outcome of validating one table. It is a pure value with no
// identity beyond the call that produced it.
type Result struct {
	Valid  bool
	Errors []string
}

// Report aggregates per-table results. Valid is the conjunction of all
// per-table outcomes.
type Report struct {
	Valid   bool
	Results map[string]Result
}

type Validator struct {
	Intro  Introspector
	Logger zerolog.Logger
}

// Validate checks one expected table against the live schema. Every
// applicable check runs even after earlier ones fail, so a single run
// reports the complete diff. Infrastructure errors mid-validation are
// recorded as an error string rather than propagated, keeping multi-table
// runs resilient to one table's hiccup.
func (v Validator) Validate(ctx context.Context, expected ExpectedTable) Result {
	errs, err := v.collectErrors(ctx, expected)
	if err != nil {
		errs = append(errs, fmt.Sprintf("validation of table '%s' aborted: %v", expected.Name, err))
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func (v Validator) collectErrors(ctx context.Context, expected ExpectedTable) ([]string, error) {
	tables, err := v.Intro.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(tables, expected.Name) {
		// No further checks run against a nonexistent table.
		return []string{fmt.Sprintf("Table '%s' does not exist", expected.Name)}, nil
	}

	introspected, err := v.Intro.DescribeTable(ctx, expected.Name)
	if err != nil {
		return nil, err
	}

	// Comparison is by column name, never positional: expected column
	// order does not imply a DDL-order assertion.
	byName := make(map[string]chclient.IntrospectedColumn, len(introspected))
	for _, col := range introspected {
		byName[col.Name] = col
	}

	var errs []string
	expectedNames := make(map[string]struct{}, len(expected.Columns))
	for _, col := range expected.Columns {
		expectedNames[col.Name] = struct{}{}
		actual, ok := byName[col.Name]
		if !ok {
			errs = append(errs, fmt.Sprintf("Table '%s': missing column '%s'", expected.Name, col.Name))
			continue
		}
		errs = append(errs, checkColumn(expected.Name, col, actual)...)
	}

	// Additive unexpected columns are permitted; they are only surfaced in
	// the log.
	for _, col := range introspected {
		if _, ok := expectedNames[col.Name]; !ok {
			v.Logger.Warn().
				Str("table", expected.Name).
				Str("column", col.Name).
				Str("type", col.Type).
				Msgf("unexpected column present")
		}
	}

	ddlErrs, err := v.checkDDL(ctx, expected)
	if err != nil {
		return errs, err
	}
	return append(errs, ddlErrs...), nil
}

// checkColumn runs the type, nullability and comment checks independently;
// one mismatch does not suppress the others.
func checkColumn(table string, expected ExpectedColumn, actual chclient.IntrospectedColumn) []string {
	var errs []string
	if !expected.Type.Matches(actual.Type) {
		errs = append(errs, fmt.Sprintf(
			"Table '%s': column '%s' type mismatch: expected %s, got %s",
			table, expected.Name, expected.Type, actual.Type,
		))
	}
	if expected.Nullable != nil {
		actualNullable := strings.Contains(actual.Type, "Nullable(")
		if actualNullable != *expected.Nullable {
			errs = append(errs, fmt.Sprintf(
				"Table '%s': column '%s' nullability mismatch: expected nullable=%t, got type %s",
				table, expected.Name, *expected.Nullable, actual.Type,
			))
		}
	}
	if expected.Comment != "" && actual.Comment != expected.Comment {
		errs = append(errs, fmt.Sprintf(
			"Table '%s': column '%s' comment mismatch: expected %q, got %q",
			table, expected.Name, expected.Comment, actual.Comment,
		))
	}
	return errs
}

// checkDDL fetches the CREATE TABLE text once and asserts engine, ordering
// and sampling expectations by substring containment.
func (v Validator) checkDDL(ctx context.Context, expected ExpectedTable) ([]string, error) {
	// SHOW CREATE TABLE re-formats the sorting key: a single column comes
	// back bare ("ORDER BY id"), only multi-column keys keep the tuple form.
	wantOrderBy := ""
	switch {
	case len(expected.OrderByColumns) == 1:
		wantOrderBy = "ORDER BY " + expected.OrderByColumns[0]
	case len(expected.OrderByColumns) > 1:
		wantOrderBy = fmt.Sprintf("ORDER BY (%s)", strings.Join(expected.OrderByColumns, ", "))
	case expected.OrderByExpression != "":
		wantOrderBy = "ORDER BY " + expected.OrderByExpression
	}
	if expected.Engine == "" && wantOrderBy == "" && expected.SampleByExpression == "" {
		return nil, nil
	}

	ddl, err := v.Intro.ShowCreateTable(ctx, expected.Name)
	if err != nil {
		return nil, err
	}

	var errs []string
	if expected.Engine != "" && !strings.Contains(ddl, "ENGINE = "+expected.Engine) {
		errs = append(errs, fmt.Sprintf("Table '%s': engine %s not found in DDL", expected.Name, expected.Engine))
	}
	if wantOrderBy != "" && !strings.Contains(ddl, wantOrderBy) {
		errs = append(errs, fmt.Sprintf("Table '%s': %s not found in DDL", expected.Name, wantOrderBy))
	}
	if expected.SampleByExpression != "" && !strings.Contains(ddl, "SAMPLE BY "+expected.SampleByExpression) {
		errs = append(errs, fmt.Sprintf(
			"Table '%s': SAMPLE BY %s not found in DDL", expected.Name, expected.SampleByExpression,
		))
	}
	return errs, nil
}

// ValidateAll validates every expected table independently; one table's
// failure or infrastructure error never aborts the others.
func (v Validator) ValidateAll(ctx context.Context, expected []ExpectedTable) Report {
	report := Report{Valid: true, Results: make(map[string]Result, len(expected))}
	for _, table := range expected {
		result := v.Validate(ctx, table)
		report.Results[table.Name] = result
		report.Valid = report.Valid && result.Valid
	}
	return report
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
