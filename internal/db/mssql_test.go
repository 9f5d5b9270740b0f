package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

type fakeResult struct {
	n   int64
	err error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.n, r.err }

// fakeStmt records every ExecContext call. Calls with no args model the
// finalizing exec of a bulk operation.
type fakeStmt struct {
	execs     [][]any
	finalRes  fakeResult
	failAt    int // 1-based row exec index that errors; 0 = never
	closed    int
	execCalls int
}

func (s *fakeStmt) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	s.execCalls++
	if len(args) == 0 {
		return s.finalRes, nil
	}
	s.execs = append(s.execs, args)
	if s.failAt > 0 && len(s.execs) == s.failAt {
		return nil, errors.New("row rejected")
	}
	return fakeResult{n: 1}, nil
}
func (s *fakeStmt) Close() error { s.closed++; return nil }

type fakeSQLDB struct {
	stmt     *fakeStmt
	prepared []string
	execed   []string
	scanN    int64
	scanErr  error
	closed   bool
}

func (d *fakeSQLDB) PrepareContext(ctx context.Context, query string) (stmtCore, error) {
	d.prepared = append(d.prepared, query)
	return d.stmt, nil
}
func (d *fakeSQLDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.execed = append(d.execed, query)
	return fakeResult{}, nil
}
func (d *fakeSQLDB) QueryRowContext(ctx context.Context, query string, args ...any) rowCore {
	d.execed = append(d.execed, query)
	return fakeRow{n: d.scanN, err: d.scanErr}
}
func (d *fakeSQLDB) Close() error { d.closed = true; return nil }

type fakeRow struct {
	n   int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.n
	return nil
}

// TestMSSQL_BulkCopy drives three rows through the bulk path: one prepare,
// one exec per row, one finalizing no-arg exec whose RowsAffected wins.
func TestMSSQL_BulkCopy(t *testing.T) {
	stmt := &fakeStmt{finalRes: fakeResult{n: 3}}
	d := &fakeSQLDB{stmt: stmt}
	conn := newMSSQLForTest(d)

	rows := [][]any{{"a", "1"}, {"b", "2"}, {"c", "3"}}
	n, err := conn.BulkCopy(context.Background(), "customers", []string{"name", "id"}, rows, BulkOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("committed = %d, want the finalizer's count", n)
	}
	if len(d.prepared) != 1 || !strings.Contains(d.prepared[0], "customers") {
		t.Fatalf("prepare: %v", d.prepared)
	}
	if len(stmt.execs) != 3 || stmt.execCalls != 4 {
		t.Fatalf("execs = %d rows + %d total, want 3 rows + finalizer", len(stmt.execs), stmt.execCalls)
	}
	if stmt.execs[1][0] != "b" {
		t.Fatalf("row order lost: %v", stmt.execs)
	}
	if stmt.closed != 1 {
		t.Fatalf("statement closed %d times", stmt.closed)
	}
}

// TestMSSQL_BulkCopy_RowError aborts on a mid-batch row failure and still
// closes the statement.
func TestMSSQL_BulkCopy_RowError(t *testing.T) {
	stmt := &fakeStmt{failAt: 2}
	conn := newMSSQLForTest(&fakeSQLDB{stmt: stmt})

	_, err := conn.BulkCopy(context.Background(), "t", []string{"c1"}, [][]any{{"a"}, {"b"}, {"c"}}, BulkOptions{})
	if err == nil || !strings.Contains(err.Error(), "bulk exec") {
		t.Fatalf("row failure not surfaced: %v", err)
	}
	if stmt.closed != 1 {
		t.Fatal("statement leaked after row failure")
	}
}

// TestMSSQL_BulkCopy_CountFallback uses the sent-row count when the driver
// cannot report RowsAffected.
func TestMSSQL_BulkCopy_CountFallback(t *testing.T) {
	stmt := &fakeStmt{finalRes: fakeResult{err: errors.New("no count")}}
	conn := newMSSQLForTest(&fakeSQLDB{stmt: stmt})

	n, err := conn.BulkCopy(context.Background(), "t", []string{"c1"}, [][]any{{"a"}, {"b"}}, BulkOptions{})
	if err != nil || n != 2 {
		t.Fatalf("fallback count = %d, %v", n, err)
	}
}

func TestMSSQL_CountRows(t *testing.T) {
	d := &fakeSQLDB{scanN: 42}
	conn := newMSSQLForTest(d)

	n, err := conn.CountRows(context.Background(), "weird]name")
	if err != nil || n != 42 {
		t.Fatalf("count = %d, %v", n, err)
	}
	if q := d.execed[0]; !strings.Contains(q, "COUNT_BIG(*)") || !strings.Contains(q, "[weird]]name]") {
		t.Fatalf("count query: %q", q)
	}
}

func TestMSSQL_CountRows_Error(t *testing.T) {
	conn := newMSSQLForTest(&fakeSQLDB{scanErr: errors.New("no such table")})
	if _, err := conn.CountRows(context.Background(), "t"); err == nil {
		t.Fatal("scan error swallowed")
	}
}

func TestQuoteMSSQL(t *testing.T) {
	cases := map[string]string{
		"plain":      "[plain]",
		"with]brk":   "[with]]brk]",
		"dbo.orders": "[dbo.orders]",
	}
	for in, want := range cases {
		if got := quoteMSSQL(in); got != want {
			t.Fatalf("quoteMSSQL(%q) = %q, want %q", in, got, want)
		}
	}
}
