// Package schemaverify validates a data node's introspected schema against a
// declarative expected description, producing a structured per-table diff
// rather than failing on the first discrepancy.
package schemaverify

import "regexp"

// ColumnType is the expected type of a column: either an exact string,
// compared structurally, or a pattern, matched partially. The two variants
// are mutually exclusive per column; patterns accommodate type
// representations embedding engine parameters (precision, timezone, inner
// types) that are not worth encoding exactly.
type ColumnType struct {
	exact   string
	pattern *regexp.Regexp
}

func Exact(typ string) ColumnType {
	return ColumnType{exact: typ}
}

func Pattern(re string) ColumnType {
	return ColumnType{pattern: regexp.MustCompile(re)}
}

// Matches reports whether an introspected type string satisfies the
// expectation. Exact comparison is never silently relaxed to a partial one.
func (t ColumnType) Matches(introspected string) bool {
	if t.pattern != nil {
		return t.pattern.MatchString(introspected)
	}
	return t.exact == introspected
}

func (t ColumnType) String() string {
	if t.pattern != nil {
		return "~" + t.pattern.String()
	}
	return t.exact
}

// ExpectedColumn describes one column of an expected table schema.
type ExpectedColumn struct {
	Name string
	Type ColumnType
	// Nullable, when set, asserts whether the introspected type carries a
	// Nullable wrapper.
	Nullable *bool
	// Comment, when non-empty, asserts the column comment.
	Comment string
}

// ExpectedTable is a declarative table schema expectation. Instances are
// never mutated after construction; many compose into the fixed regression
// corpus, one per language/template combination under test.
type ExpectedTable struct {
	Name    string
	Columns []ExpectedColumn

	// Engine, OrderBy and SampleBy are asserted against the table's DDL
	// text, since structured introspection does not expose them.
	Engine string
	// OrderByColumns asserts "ORDER BY (a, b)"; OrderByExpression asserts a
	// raw expression instead. At most one should be set.
	OrderByColumns     []string
	OrderByExpression  string
	SampleByExpression string
}

func boolPtr(b bool) *bool {
	return &b
}

// NotNullable marks a column as expected to be non-nullable.
var NotNullable = boolPtr(false)

// IsNullable marks a column as expected to be nullable.
var IsNullable = boolPtr(true)
