// Package db provides the destination-side contract for the load pipeline
// plus one adapter per supported engine. The pipeline depends only on Conn
// and Factory; driver-specific bulk paths (TDS bulk copy, COPY FROM) live
// behind the adapters.
package db

import (
	"context"
	"fmt"
	"strings"
)

// BulkOptions tunes a single bulk-copy operation.
type BulkOptions struct {
	// TableLock takes an exclusive table lock for the duration of the
	// operation. Faster per batch, serializes concurrent batches.
	TableLock bool
	// Stream hints the transport to stream rows instead of materializing
	// them first. Adapters may ignore it.
	Stream bool
}

// Conn is a single destination connection. One Conn per worker invocation;
// Conns are not safe for concurrent use.
type Conn interface {
	// BulkCopy commits rows into table as one bulk operation and returns
	// the number of rows the destination reports as written.
	BulkCopy(ctx context.Context, table string, columns []string, rows [][]any, opts BulkOptions) (int64, error)
	// Exec runs a single DDL/DML statement.
	Exec(ctx context.Context, query string) error
	// CountRows returns the destination table's total row count.
	CountRows(ctx context.Context, table string) (int64, error)
	Close(ctx context.Context) error
}

// Factory mints a fresh Conn. The pipeline calls it once per worker
// invocation and once for the final synchronous flush, so concurrent
// batches never share a connection.
type Factory func(ctx context.Context) (Conn, error)

// NewFactory returns a Factory for the given driver. The factory itself
// does not connect; each invocation opens and pings a new connection.
func NewFactory(driver, dsn string) (Factory, error) {
	switch strings.ToLower(driver) {
	case "mssql":
		if dsn == "" {
			return nil, fmt.Errorf("mssql driver requires a dsn")
		}
		return func(ctx context.Context) (Conn, error) {
			return NewMSSQL(ctx, dsn)
		}, nil
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
		return func(ctx context.Context) (Conn, error) {
			return NewPostgres(ctx, dsn)
		}, nil
	default:
		return nil, fmt.Errorf("unknown driver: %s", driver)
	}
}
