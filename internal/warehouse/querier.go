package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier runs statements on one warehouse session. Every call must reach the same session so
// that last_query_id() refers to the statement executed just before.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) error
}

// Rows iterates a result set as generic driver values.
type Rows interface {
	Columns() []string
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

type sqlQuerier struct {
	conn *sql.Conn
}

// NewSQLQuerier adapts a pinned database/sql connection.
func NewSQLQuerier(conn *sql.Conn) Querier {
	return &sqlQuerier{conn: conn}
}

func (q *sqlQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &sqlRows{rows: rows, cols: cols}, nil
}

func (q *sqlQuerier) Exec(ctx context.Context, query string, args ...any) error {
	_, err := q.conn.ExecContext(ctx, query, args...)
	return err
}

type sqlRows struct {
	rows *sql.Rows
	cols []string
}

func (r *sqlRows) Columns() []string { return r.cols }
func (r *sqlRows) Next() bool        { return r.rows.Next() }
func (r *sqlRows) Err() error        { return r.rows.Err() }
func (r *sqlRows) Close() error      { return r.rows.Close() }

func (r *sqlRows) Values() ([]any, error) {
	values := make([]any, len(r.cols))
	dest := make([]any, len(r.cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, err
	}
	return values, nil
}

type pgxQuerier struct {
	conn *pgx.Conn
}

// NewPgxQuerier adapts a pgx connection to a Postgres-wire gateway. Statements are written with
// `?` placeholders and rebound to `$n`; column names are upper-cased to match the warehouse.
func NewPgxQuerier(conn *pgx.Conn) Querier {
	return &pgxQuerier{conn: conn}
}

func (q *pgxQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.conn.Query(ctx, rebindArgs(query, args), args...)
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, fd := range fields {
		cols[i] = strings.ToUpper(fd.Name)
	}
	return &pgxRows{rows: rows, cols: cols}, nil
}

func (q *pgxQuerier) Exec(ctx context.Context, query string, args ...any) error {
	_, err := q.conn.Exec(ctx, rebindArgs(query, args), args...)
	return err
}

type pgxRows struct {
	rows pgx.Rows
	cols []string
}

func (r *pgxRows) Columns() []string { return r.cols }
func (r *pgxRows) Next() bool        { return r.rows.Next() }
func (r *pgxRows) Err() error        { return r.rows.Err() }

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}

func (r *pgxRows) Values() ([]any, error) {
	values, err := r.rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		valuer, ok := v.(driver.Valuer)
		if !ok {
			continue
		}
		plain, err := valuer.Value()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", r.cols[i], err)
		}
		values[i] = plain
	}
	return values, nil
}

// rebindArgs leaves statements without arguments untouched, since `?` is also a Postgres operator.
func rebindArgs(query string, args []any) string {
	if len(args) == 0 {
		return query
	}
	return Rebind(query)
}

// Rebind rewrites `?` placeholders to `$1`, `$2`, ... leaving quoted literals, identifiers and
// `--` line comments alone.
func Rebind(query string) string {
	var (
		b       strings.Builder
		n       int
		quote   rune
		comment bool
		prev    rune
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case comment:
			if r == '\n' {
				comment = false
			}
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '-' && prev == '-':
			comment = true
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			fmt.Fprintf(&b, "$%d", n)
			prev = r
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
