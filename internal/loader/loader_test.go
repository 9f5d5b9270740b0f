package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"bulkbench/internal/db"
)

// TestBulkLoader_CapturesConnectError keeps factory failures inside the
// result instead of panicking or propagating.
func TestBulkLoader_CapturesConnectError(t *testing.T) {
	down := errors.New("server down")
	l := &BulkLoader{Factory: func(ctx context.Context) (db.Conn, error) {
		return nil, down
	}}

	res := l.Run(context.Background(), testJob(9))
	if !errors.Is(res.Err, down) {
		t.Fatalf("connect error not captured: %v", res.Err)
	}
	if res.BatchID != 9 {
		t.Fatalf("batch id lost: %d", res.BatchID)
	}
}

// TestBulkLoader_ReleasesStorage drops the batch's row storage after the
// attempt, success or failure, so retired batches can be collected.
func TestBulkLoader_ReleasesStorage(t *testing.T) {
	st := &fakeStore{}
	l := &BulkLoader{Factory: st.factory, Columns: []string{"c1"}}

	ok := Job{Batch: &Batch{ID: 1, Rows: []Row{{"a"}, {"b"}}}, Table: "t"}
	if res := l.Run(context.Background(), ok); res.Err != nil || res.Rows != 2 {
		t.Fatalf("commit: %+v", res)
	}
	if ok.Batch.Rows != nil {
		t.Fatal("storage kept after successful commit")
	}

	bad := Job{Batch: &Batch{ID: 2, Rows: []Row{{"poison"}}}, Table: "t"}
	if res := l.Run(context.Background(), bad); res.Err == nil {
		t.Fatal("poisoned batch committed")
	}
	if bad.Batch.Rows != nil {
		t.Fatal("storage kept after failed commit")
	}
}

// TestBulkLoader_AppliesTimeout bounds the commit context only when the
// job asks for it.
func TestBulkLoader_AppliesTimeout(t *testing.T) {
	st := &fakeStore{}
	l := &BulkLoader{Factory: st.factory, Columns: []string{"c1"}}

	l.Run(context.Background(), Job{Batch: &Batch{ID: 1, Rows: []Row{{"a"}}}, Table: "t", Timeout: time.Minute})
	l.Run(context.Background(), Job{Batch: &Batch{ID: 2, Rows: []Row{{"b"}}}, Table: "t"})

	if len(st.deadlines) != 2 || !st.deadlines[0] || st.deadlines[1] {
		t.Fatalf("deadlines = %v, want [true false]", st.deadlines)
	}
}

// TestBulkLoader_FieldOrderPreserved keeps fields positional through the
// Row-to-values conversion.
func TestBulkLoader_FieldOrderPreserved(t *testing.T) {
	var got [][]any
	l := &BulkLoader{
		Factory: func(ctx context.Context) (db.Conn, error) {
			return captureConn{rows: &got}, nil
		},
		Columns: []string{"c1", "c2", "c3"},
	}

	job := Job{Batch: &Batch{ID: 1, Rows: []Row{{"x", "y", "z"}}}, Table: "t"}
	if res := l.Run(context.Background(), job); res.Err != nil {
		t.Fatal(res.Err)
	}
	if len(got) != 1 || got[0][0] != "x" || got[0][2] != "z" {
		t.Fatalf("field order lost: %v", got)
	}
}

type captureConn struct{ rows *[][]any }

func (c captureConn) BulkCopy(ctx context.Context, table string, columns []string, rows [][]any, opts db.BulkOptions) (int64, error) {
	*c.rows = append(*c.rows, rows...)
	return int64(len(rows)), nil
}
func (c captureConn) Exec(ctx context.Context, q string) error { return nil }
func (c captureConn) CountRows(ctx context.Context, table string) (int64, error) {
	return 0, errors.New("not implemented")
}
func (c captureConn) Close(ctx context.Context) error { return nil }
