// Package warehouse looks up live view metadata (column lists, table
// size, row counts) from a Redshift-flavored Postgres warehouse. The
// collaborator is optional: the structural analysis never depends on it.
package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MetadataStore answers metadata questions about one table.
type MetadataStore interface {
	// Columns returns the table's column names in ordinal position order.
	Columns(ctx context.Context, schema, table string) ([]string, error)
	// TableSizeMB returns the materialized size of the table in MB.
	TableSizeMB(ctx context.Context, schema, table string) (float64, error)
	// RowCount returns the table's row count.
	RowCount(ctx context.Context, schema, table string) (int64, error)
	// Close releases the underlying connections.
	Close()
}

// Client implements MetadataStore over a pgx connection pool.
type Client struct {
	pool *pgxpool.Pool
}

var _ MetadataStore = (*Client)(nil)

// Connect opens a pooled connection to the warehouse and verifies it
// with a ping.
func Connect(ctx context.Context, connString string) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing warehouse connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to warehouse: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging warehouse: %w", err)
	}
	return &Client{pool: pool}, nil
}

// Columns returns the column names of schema.table from svv_columns,
// ordered by ordinal position.
func (c *Client) Columns(ctx context.Context, schema, table string) ([]string, error) {
	const query = `
	   SELECT column_name
	     FROM svv_columns
	    WHERE table_schema = $1
	      AND table_name = $2
	 ORDER BY ordinal_position`

	rows, err := c.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading columns of %s.%s: %w", schema, table, err)
	}
	return cols, nil
}

// TableSizeMB materializes the view into a session-scoped temporary
// table and reads its size from svv_table_info. Redshift reports sizes
// for physical tables only, so the probe has to go through a temp copy.
func (c *Client) TableSizeMB(ctx context.Context, schema, table string) (float64, error) {
	// Temp tables are session-scoped: pin one connection for the
	// whole probe.
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquiring warehouse connection: %w", err)
	}
	defer conn.Release()

	stmts := []string{
		"DROP TABLE IF EXISTS evaluation_tmp",
		fmt.Sprintf("CREATE TEMPORARY TABLE evaluation_tmp AS SELECT * FROM %s.%s", quoteIdent(schema), quoteIdent(table)),
		"ANALYZE evaluation_tmp",
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("sizing %s.%s: %w", schema, table, err)
		}
	}

	var size float64
	err = conn.QueryRow(ctx, `SELECT size FROM svv_table_info WHERE "table" = 'evaluation_tmp'`).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("reading size of %s.%s: %w", schema, table, err)
	}
	return size, nil
}

// RowCount returns COUNT(1) of schema.table.
func (c *Client) RowCount(ctx context.Context, schema, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(1) FROM %s.%s", quoteIdent(schema), quoteIdent(table))
	if err := c.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows of %s.%s: %w", schema, table, err)
	}
	return count, nil
}

// Close releases the pool.
func (c *Client) Close() {
	c.pool.Close()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
