// Package corpus holds the expected ClickHouse schemas for each scaffold
// template under test. The values are declarative and immutable; cmd/check
// and the end-to-end suites validate live environments against them.
package corpus

import "github.com/514labs/moose-e2e/schemaverify"

// Suite pairs a template identifier with the tables it must materialize.
type Suite struct {
	// Language and Template identify the scaffold, e.g. python/default.
	Language string
	Template string
	Tables   []schemaverify.ExpectedTable
}

func (s Suite) Name() string {
	return s.Language + "/" + s.Template
}

// All returns every registered suite.
func All() []Suite {
	return []Suite{
		PythonDefault,
		PythonCluster,
		TypeScriptDefault,
	}
}

// ByName returns the suite for language/template, or false.
func ByName(name string) (Suite, bool) {
	for _, s := range All() {
		if s.Name() == name {
			return s, true
		}
	}
	return Suite{}, false
}

// PythonDefault covers the Foo to Bar ingest pipeline: Foo records arrive
// over HTTP, a transform derives Bar rows, and failed transforms land in the
// dead letter table.
var PythonDefault = Suite{
	Language: "python",
	Template: "default",
	Tables: []schemaverify.ExpectedTable{
		{
			Name: "Bar",
			Columns: []schemaverify.ExpectedColumn{
				{Name: "primary_key", Type: schemaverify.Exact("String")},
				{Name: "utc_timestamp", Type: schemaverify.Pattern(`^DateTime`)},
				{Name: "has_text", Type: schemaverify.Exact("Bool")},
				{Name: "text_length", Type: schemaverify.Exact("Int64")},
			},
			Engine:         "MergeTree",
			OrderByColumns: []string{"primary_key"},
		},
		{
			Name: "FooDeadLetterQueue",
			Columns: []schemaverify.ExpectedColumn{
				{Name: "original_record", Type: schemaverify.Pattern(`^(JSON|String)`)},
				{Name: "error_message", Type: schemaverify.Exact("String")},
				{Name: "error_type", Type: schemaverify.Exact("String")},
				{Name: "failed_at", Type: schemaverify.Pattern(`^DateTime`)},
				{Name: "source", Type: schemaverify.Exact("String")},
			},
			Engine: "MergeTree",
		},
	},
}

// PythonCluster exercises per-table cluster placement: two replicated tables
// pinned to distinct clusters plus one plain local table.
var PythonCluster = Suite{
	Language: "python",
	Template: "cluster",
	Tables: []schemaverify.ExpectedTable{
		{
			Name: "TableA",
			Columns: []schemaverify.ExpectedColumn{
				{Name: "id", Type: schemaverify.Exact("String")},
				{Name: "value", Type: schemaverify.Exact("String")},
				{Name: "timestamp", Type: schemaverify.Exact("Float64")},
			},
			Engine:         "ReplicatedMergeTree",
			OrderByColumns: []string{"id"},
		},
		{
			Name: "TableB",
			Columns: []schemaverify.ExpectedColumn{
				{Name: "id", Type: schemaverify.Exact("String")},
				{Name: "count", Type: schemaverify.Exact("Int64")},
				{Name: "timestamp", Type: schemaverify.Exact("Float64")},
			},
			Engine:         "ReplicatedMergeTree",
			OrderByColumns: []string{"id"},
		},
		{
			Name: "TableC",
			Columns: []schemaverify.ExpectedColumn{
				{Name: "id", Type: schemaverify.Exact("String")},
				{Name: "data", Type: schemaverify.Exact("String")},
				{Name: "timestamp", Type: schemaverify.Exact("Float64")},
			},
			Engine:         "MergeTree",
			OrderByColumns: []string{"id"},
		},
	},
}

// TypeScriptDefault mirrors PythonDefault with the TypeScript field casing
// and numerics (number maps to Float64).
var TypeScriptDefault = Suite{
	Language: "typescript",
	Template: "default",
	Tables: []schemaverify.ExpectedTable{
		{
			Name: "Bar",
			Columns: []schemaverify.ExpectedColumn{
				{Name: "primaryKey", Type: schemaverify.Exact("String")},
				{Name: "utcTimestamp", Type: schemaverify.Pattern(`^DateTime`)},
				{Name: "hasText", Type: schemaverify.Exact("Bool")},
				{Name: "textLength", Type: schemaverify.Exact("Float64")},
			},
			Engine:         "MergeTree",
			OrderByColumns: []string{"primaryKey"},
		},
		{
			Name: "FooDeadLetterQueue",
			Columns: []schemaverify.ExpectedColumn{
				{Name: "originalRecord", Type: schemaverify.Pattern(`^(JSON|String)`)},
				{Name: "errorMessage", Type: schemaverify.Exact("String")},
				{Name: "errorType", Type: schemaverify.Exact("String")},
				{Name: "failedAt", Type: schemaverify.Pattern(`^DateTime`)},
				{Name: "source", Type: schemaverify.Exact("String")},
			},
			Engine: "MergeTree",
		},
	},
}
