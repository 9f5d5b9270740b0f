package loader

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"bulkbench/internal/db"
)

// Coordinator drives the pipeline end to end: rows from the source are
// grouped by the accumulator, full batches go through the pool, the final
// partial batch is committed synchronously outside the pool, and every
// outstanding handle is resolved before the pool is shut down.
type Coordinator struct {
	Pool   *Pool
	Loader *BulkLoader
	Table  string

	BatchSize int
	Options   db.BulkOptions
	// BatchTimeout bounds pooled commits. The final synchronous flush
	// always runs unbounded.
	BatchTimeout time.Duration

	// ExposeErrors collects every captured per-batch error into the
	// Summary. When false, failures are counted, logged at verbose level,
	// and discarded.
	ExposeErrors bool
	Verbose      bool
}

// Summary aggregates the terminal outcomes of a run. Committed sums the
// per-batch counts the loaders reported; the authoritative post-load total
// comes from a count query against the destination, not from here.
type Summary struct {
	Batches     int // batches that reached a terminal outcome
	Pooled      int // batches dispatched through the pool
	FlushedTail bool
	Committed   int64
	Failed      int
	Errors      []error // populated only when ExposeErrors is set
	Elapsed     time.Duration
}

// Run executes the load. It returns an error only for pre-flight and
// producer-side failures (bad configuration, submit rejection, input read
// error); per-batch commit failures are aggregated in the Summary.
func (c *Coordinator) Run(ctx context.Context, src *RowSource) (*Summary, error) {
	start := time.Now()

	acc, err := NewAccumulator(c.BatchSize)
	if err != nil {
		return nil, err
	}

	var handles []*Handle
	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		full := acc.Add(row)
		if full == nil {
			continue
		}
		h, err := c.Pool.Submit(ctx, Job{
			Batch:   full,
			Table:   c.Table,
			Options: c.Options,
			Timeout: c.BatchTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("submit batch %d: %w", full.ID, err)
		}
		handles = append(handles, h)
	}

	// The tail is committed on the producer's own goroutine with no
	// timeout, so it can never be stranded by pool saturation or by a
	// shutdown race, and a slow last batch is never aborted.
	var tail JobResult
	tailRan := false
	if t := acc.Flush(); t.Len() > 0 {
		tailRan = true
		tail = c.Loader.Run(ctx, Job{Batch: t, Table: c.Table, Options: c.Options})
	}

	sum := &Summary{Pooled: len(handles)}
	for _, h := range handles {
		c.record(sum, h.Result())
	}
	if tailRan {
		c.record(sum, tail)
		sum.FlushedTail = true
	}

	c.Pool.Drain()
	c.Pool.Close()

	sum.Elapsed = time.Since(start)
	return sum, nil
}

// record folds one terminal JobResult into the summary.
func (c *Coordinator) record(sum *Summary, res JobResult) {
	sum.Batches++
	if res.Err != nil {
		sum.Failed++
		if c.ExposeErrors {
			sum.Errors = append(sum.Errors, fmt.Errorf("batch %d: %w", res.BatchID, res.Err))
		} else if c.Verbose {
			log.Printf("batch %d failed: %v", res.BatchID, res.Err)
		}
		return
	}
	sum.Committed += res.Rows
	if c.Verbose {
		log.Printf("batch %d: committed=%d total=%d", res.BatchID, res.Rows, sum.Committed)
	}
}
