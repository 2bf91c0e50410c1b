package chclient

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
)

// IntrospectedColumn mirrors one row of ClickHouse's DESCRIBE TABLE output.
// Introspection results are produced fresh on every call and never cached:
// schema state is mutable across test steps.
type IntrospectedColumn struct {
	Name              string
	Type              string
	DefaultKind       string
	DefaultExpression string
	Comment           string
	CodecExpression   string
	TTLExpression     string
}

// ListTables returns the table names visible in the connection's database.
func (c Client) ListTables(ctx context.Context) ([]string, error) {
	tables, err := c.QueryStrings(ctx, "SHOW TABLES")
	if err != nil {
		return nil, errors.Wrap(err, "list tables")
	}
	return tables, nil
}

// DescribeTable returns the column definitions of a table.
func (c Client) DescribeTable(ctx context.Context, table string) ([]IntrospectedColumn, error) {
	var cols []IntrospectedColumn
	err := c.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "DESCRIBE TABLE "+QuoteIdent(table))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var col IntrospectedColumn
			if err := rows.Scan(
				&col.Name,
				&col.Type,
				&col.DefaultKind,
				&col.DefaultExpression,
				&col.Comment,
				&col.CodecExpression,
				&col.TTLExpression,
			); err != nil {
				return errors.Wrap(err, "scan column description")
			}
			cols = append(cols, col)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "describe table %s", table)
	}
	return cols, nil
}

// ShowCreateTable returns the raw CREATE TABLE DDL. Engine, ordering and
// sampling configuration are only recoverable from this text; structured
// introspection does not expose them.
func (c Client) ShowCreateTable(ctx context.Context, table string) (string, error) {
	ddl, err := c.QueryString(ctx, "SHOW CREATE TABLE "+QuoteIdent(table))
	if err != nil {
		return "", errors.Wrapf(err, "show create table %s", table)
	}
	return ddl, nil
}
