package loader

import (
	"context"
	"fmt"

	"bulkbench/internal/db"
)

// BulkLoader commits one batch per invocation. Each invocation opens its
// own connection via the factory so concurrent workers never contend on a
// shared session or transaction.
type BulkLoader struct {
	Factory db.Factory
	Columns []string
}

// Run executes one job to its terminal outcome. Failures are captured in
// the JobResult, never propagated, so a bad batch cannot abort sibling
// workers. The batch's row storage is released after the attempt either
// way; storage is not reused.
func (l *BulkLoader) Run(ctx context.Context, job Job) JobResult {
	res := JobResult{BatchID: job.Batch.ID}

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	conn, err := l.Factory(ctx)
	if err != nil {
		res.Err = fmt.Errorf("connect: %w", err)
		job.Batch.Rows = nil
		return res
	}
	defer conn.Close(ctx)

	rows := make([][]any, len(job.Batch.Rows))
	for i, r := range job.Batch.Rows {
		vals := make([]any, len(r))
		for j, f := range r {
			vals[j] = f
		}
		rows[i] = vals
	}

	n, err := conn.BulkCopy(ctx, job.Table, l.Columns, rows, job.Options)
	if err != nil {
		res.Err = fmt.Errorf("bulk copy: %w", err)
	}
	res.Rows = n
	job.Batch.Rows = nil
	return res
}
