// SQL Server adapter. Bulk copy goes through the TDS bulk-load path
// (mssql.CopyIn): prepare once per batch, one Exec per row, and a
// finalizing no-arg Exec whose RowsAffected is the committed row count.
//
// The adapter keeps small interface seams (stmtCore, sqlCore) compatible
// with *sql.DB so unit tests can inject light fakes with no sockets.
package db

import (
	"context"
	"database/sql"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
)

// stmtCore is the minimal subset of *sql.Stmt we use.
type stmtCore interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

// rowCore is the subset of *sql.Row we use (Scan only).
type rowCore interface {
	Scan(dest ...any) error
}

// sqlCore is the minimal subset of *sql.DB the adapter needs. Production
// wraps a real *sql.DB in realSQLDB; tests inject fakes.
type sqlCore interface {
	PrepareContext(ctx context.Context, query string) (stmtCore, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) rowCore
	Close() error
}

// realStmt adapts *sql.Stmt to stmtCore.
type realStmt struct{ st *sql.Stmt }

func (r realStmt) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	return r.st.ExecContext(ctx, args...)
}
func (r realStmt) Close() error { return r.st.Close() }

// realSQLDB adapts *sql.DB to sqlCore.
type realSQLDB struct{ db *sql.DB }

func (r realSQLDB) PrepareContext(ctx context.Context, query string) (stmtCore, error) {
	st, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return realStmt{st: st}, nil
}
func (r realSQLDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, query, args...)
}
func (r realSQLDB) QueryRowContext(ctx context.Context, query string, args ...any) rowCore {
	return r.db.QueryRowContext(ctx, query, args...)
}
func (r realSQLDB) Close() error { return r.db.Close() }

type mssqlConn struct{ core sqlCore }

// NewMSSQL opens a SQL Server connection using the "sqlserver" driver and
// pings to confirm connectivity before any work is dispatched to it.
func NewMSSQL(ctx context.Context, dsn string) (Conn, error) {
	d, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, err
	}
	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("mssql ping: %w", err)
	}
	return &mssqlConn{core: realSQLDB{db: d}}, nil
}

// BulkCopy streams one batch through mssql.CopyIn. TableLock maps to the
// TABLOCK bulk option; Stream is accepted and ignored because CopyIn
// already streams rows over the wire. The returned count comes from the
// finalizing Exec, which is the server's own accounting.
func (m *mssqlConn) BulkCopy(ctx context.Context, table string, columns []string, rows [][]any, opts BulkOptions) (int64, error) {
	stmtText := mssql.CopyIn(table, mssql.BulkOptions{
		Tablock:      opts.TableLock,
		RowsPerBatch: len(rows),
	}, columns...)

	stmt, err := m.core.PrepareContext(ctx, stmtText)
	if err != nil {
		return 0, fmt.Errorf("bulk prepare: %w", err)
	}

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk exec: %w", err)
		}
	}

	// No-arg Exec finalizes the bulk operation and reports rows written.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("bulk close: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Driver could not report a count; fall back to what we sent.
		return int64(len(rows)), nil
	}
	return n, nil
}

func (m *mssqlConn) Exec(ctx context.Context, query string) error {
	_, err := m.core.ExecContext(ctx, query)
	return err
}

func (m *mssqlConn) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT_BIG(*) FROM %s", quoteMSSQL(table))
	if err := m.core.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (m *mssqlConn) Close(ctx context.Context) error { return m.core.Close() }

// quoteMSSQL brackets an identifier, doubling any closing brackets.
func quoteMSSQL(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '[')
	for i := 0; i < len(name); i++ {
		if name[i] == ']' {
			out = append(out, ']', ']')
			continue
		}
		out = append(out, name[i])
	}
	return string(append(out, ']'))
}

// newMSSQLForTest wraps a fake sqlCore as a Conn.
func newMSSQLForTest(core sqlCore) *mssqlConn { return &mssqlConn{core: core} }
