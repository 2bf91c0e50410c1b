package schemaverify

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/514labs/moose-e2e/chclient"
)

type fakeIntrospector struct {
	tables  []string
	columns map[string][]chclient.IntrospectedColumn
	ddl     map[string]string

	listErr     error
	describeErr error

	describeCalls int
	ddlCalls      int
}

func (f *fakeIntrospector) ListTables(context.Context) ([]string, error) {
	return f.tables, f.listErr
}

func (f *fakeIntrospector) DescribeTable(_ context.Context, table string) ([]chclient.IntrospectedColumn, error) {
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.columns[table], nil
}

func (f *fakeIntrospector) ShowCreateTable(_ context.Context, table string) (string, error) {
	f.ddlCalls++
	return f.ddl[table], nil
}

func validator(f *fakeIntrospector) Validator {
	return Validator{Intro: f, Logger: zerolog.Nop()}
}

func TestValidateMissingTableShortCircuits(t *testing.T) {
	f := &fakeIntrospector{tables: []string{"Other"}}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name:    "Events",
		Columns: []ExpectedColumn{{Name: "id", Type: Exact("String")}},
		Engine:  "MergeTree",
	})
	require.False(t, result.Valid)
	require.Equal(t, []string{"Table 'Events' does not exist"}, result.Errors)
	require.Zero(t, f.describeCalls, "no further queries may run against a nonexistent table")
	require.Zero(t, f.ddlCalls)
}

func TestValidateExactTypeIsNotCoerced(t *testing.T) {
	// An exact "String" expectation must not silently match the nullable
	// wrapper; exact and pattern semantics are distinct.
	f := &fakeIntrospector{
		tables: []string{"Events"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Events": {{Name: "x", Type: "Nullable(String)"}},
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name:    "Events",
		Columns: []ExpectedColumn{{Name: "x", Type: Exact("String")}},
	})
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "type mismatch")
	require.Contains(t, result.Errors[0], "'x'")
}

func TestValidatePatternType(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"Events"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Events": {{Name: "ts", Type: "DateTime64(3, 'UTC')"}},
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name:    "Events",
		Columns: []ExpectedColumn{{Name: "ts", Type: Pattern(`^DateTime64\(`)}},
	})
	require.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateNullableMismatch(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"Events"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Events": {{Name: "note", Type: "String"}},
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name: "Events",
		Columns: []ExpectedColumn{
			{Name: "note", Type: Exact("String"), Nullable: IsNullable},
		},
	})
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "nullability mismatch")
}

func TestValidateAccumulatesAllErrors(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"Events"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Events": {
				{Name: "id", Type: "UInt32", Comment: ""},
			},
		},
		ddl: map[string]string{
			"Events": "CREATE TABLE test.Events (`id` UInt32) ENGINE = Log",
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name: "Events",
		Columns: []ExpectedColumn{
			// Type, nullability and comment all mismatch for id; all three
			// must be reported.
			{Name: "id", Type: Exact("String"), Nullable: IsNullable, Comment: "primary key"},
			{Name: "gone", Type: Exact("String")},
		},
		Engine:         "MergeTree",
		OrderByColumns: []string{"id", "ts"},
	})
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 6)
	require.Contains(t, result.Errors[0], "type mismatch")
	require.Contains(t, result.Errors[1], "nullability mismatch")
	require.Contains(t, result.Errors[2], "comment mismatch")
	require.Contains(t, result.Errors[3], "missing column 'gone'")
	require.Contains(t, result.Errors[4], "engine MergeTree not found")
	require.Contains(t, result.Errors[5], "ORDER BY (id, ts) not found")
}

func TestValidateExtraColumnsAreOnlyWarnings(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"Events"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Events": {
				{Name: "id", Type: "String"},
				{Name: "added_later", Type: "UInt8"},
			},
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name:    "Events",
		Columns: []ExpectedColumn{{Name: "id", Type: Exact("String")}},
	})
	require.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateDDLChecks(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"Samples"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Samples": {{Name: "id", Type: "UInt64"}},
		},
		ddl: map[string]string{
			"Samples": "CREATE TABLE test.Samples (`id` UInt64) ENGINE = MergeTree ORDER BY intHash32(id) SAMPLE BY intHash32(id)",
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name:               "Samples",
		Columns:            []ExpectedColumn{{Name: "id", Type: Exact("UInt64")}},
		Engine:             "MergeTree",
		OrderByExpression:  "intHash32(id)",
		SampleByExpression: "intHash32(id)",
	})
	require.True(t, result.Valid, "errors: %v", result.Errors)
	require.Equal(t, 1, f.ddlCalls, "DDL must be fetched once")
}

func TestValidateSingleColumnOrderBy(t *testing.T) {
	// A one-column sorting key is rendered bare by SHOW CREATE TABLE, not
	// as a one-element tuple.
	f := &fakeIntrospector{
		tables: []string{"Bar"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Bar": {{Name: "primary_key", Type: "String"}},
		},
		ddl: map[string]string{
			"Bar": "CREATE TABLE test.Bar (`primary_key` String) ENGINE = MergeTree ORDER BY primary_key SETTINGS index_granularity = 8192",
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name:           "Bar",
		Columns:        []ExpectedColumn{{Name: "primary_key", Type: Exact("String")}},
		Engine:         "MergeTree",
		OrderByColumns: []string{"primary_key"},
	})
	require.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateMultiColumnOrderByKeepsTuple(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"Events"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Events": {{Name: "id", Type: "String"}, {Name: "ts", Type: "DateTime"}},
		},
		ddl: map[string]string{
			"Events": "CREATE TABLE test.Events (`id` String, `ts` DateTime) ENGINE = MergeTree ORDER BY (id, ts)",
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name: "Events",
		Columns: []ExpectedColumn{
			{Name: "id", Type: Exact("String")},
			{Name: "ts", Type: Exact("DateTime")},
		},
		Engine:         "MergeTree",
		OrderByColumns: []string{"id", "ts"},
	})
	require.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateSkipsDDLFetchWithoutDDLExpectations(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"Events"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Events": {{Name: "id", Type: "String"}},
		},
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name:    "Events",
		Columns: []ExpectedColumn{{Name: "id", Type: Exact("String")}},
	})
	require.True(t, result.Valid)
	require.Zero(t, f.ddlCalls)
}

func TestValidateConvertsInfrastructureErrors(t *testing.T) {
	f := &fakeIntrospector{
		tables:      []string{"Events"},
		describeErr: errors.New("connection reset"),
	}
	result := validator(f).Validate(context.Background(), ExpectedTable{
		Name:    "Events",
		Columns: []ExpectedColumn{{Name: "id", Type: Exact("String")}},
	})
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "aborted")
	require.Contains(t, result.Errors[0], "connection reset")
}

func TestValidateAllAggregatesIndependently(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"Good"},
		columns: map[string][]chclient.IntrospectedColumn{
			"Good": {{Name: "id", Type: "String"}},
		},
	}
	report := validator(f).ValidateAll(context.Background(), []ExpectedTable{
		{Name: "Good", Columns: []ExpectedColumn{{Name: "id", Type: Exact("String")}}},
		{Name: "Missing", Columns: []ExpectedColumn{{Name: "id", Type: Exact("String")}}},
	})
	require.False(t, report.Valid)
	require.True(t, report.Results["Good"].Valid)
	require.False(t, report.Results["Missing"].Valid)
	require.Equal(t, []string{"Table 'Missing' does not exist"}, report.Results["Missing"].Errors)
}

func TestColumnTypeString(t *testing.T) {
	require.Equal(t, "String", Exact("String").String())
	require.Equal(t, `~^DateTime64\(`, Pattern(`^DateTime64\(`).String())
}
