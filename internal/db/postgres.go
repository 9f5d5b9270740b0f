// Postgres adapter. Bulk copy uses the native COPY protocol via pgx
// CopyFrom. TableLock is emulated with LOCK TABLE ... IN EXCLUSIVE MODE
// inside a transaction around the COPY; Stream selects a lazy
// CopyFromSource over the pre-materialized pgx.CopyFromRows.
//
// pgCore mirrors the subset of *pgx.Conn the adapter touches so tests can
// inject fakes without a server.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgCore is the minimal subset of *pgx.Conn we use. It must match
// *pgx.Conn's method set exactly so the real connection drops in.
type pgCore interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

type pgConn struct{ core pgCore }

// NewPostgres connects via pgx. The connection is single-session, matching
// the one-Conn-per-worker contract.
func NewPostgres(ctx context.Context, dsn string) (Conn, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	return &pgConn{core: c}, nil
}

// rowsSource walks a [][]any lazily, one row per Next call, so COPY can
// consume rows as they are encoded on the wire.
type rowsSource struct {
	rows [][]any
	idx  int
}

func (s *rowsSource) Next() bool {
	s.idx++
	return s.idx <= len(s.rows)
}
func (s *rowsSource) Values() ([]any, error) { return s.rows[s.idx-1], nil }
func (s *rowsSource) Err() error             { return nil }

func (p *pgConn) BulkCopy(ctx context.Context, table string, columns []string, rows [][]any, opts BulkOptions) (int64, error) {
	var src pgx.CopyFromSource
	if opts.Stream {
		src = &rowsSource{rows: rows}
	} else {
		src = pgx.CopyFromRows(rows)
	}

	ident := pgx.Identifier{table}

	if !opts.TableLock {
		return p.core.CopyFrom(ctx, ident, columns, src)
	}

	// Exclusive lock path: lock + COPY inside one transaction so the lock
	// covers exactly the bulk operation.
	tx, err := p.core.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("pg begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("LOCK TABLE %s IN EXCLUSIVE MODE", ident.Sanitize())); err != nil {
		return 0, fmt.Errorf("pg lock table: %w", err)
	}
	n, err := tx.CopyFrom(ctx, ident, columns, src)
	if err != nil {
		return n, err
	}
	if err := tx.Commit(ctx); err != nil {
		return n, fmt.Errorf("pg commit: %w", err)
	}
	return n, nil
}

func (p *pgConn) Exec(ctx context.Context, query string) error {
	_, err := p.core.Exec(ctx, query)
	return err
}

func (p *pgConn) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{table}.Sanitize())
	if err := p.core.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (p *pgConn) Close(ctx context.Context) error { return p.core.Close(ctx) }

// newPostgresForTest wraps a fake pgCore as a Conn.
func newPostgresForTest(core pgCore) *pgConn { return &pgConn{core: core} }
