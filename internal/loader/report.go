package loader

import (
	"fmt"
	"time"
)

// Report is the end-of-run throughput summary. TotalRows must come from an
// authoritative count query against the destination, because committed-row
// truth lives in the database, not in in-memory batch sizes.
type Report struct {
	TotalRows  int64
	Elapsed    time.Duration
	RowsPerSec float64
	RowsPerMin float64
}

// NewReport computes rows/sec and rows/min from the authoritative total
// and the elapsed wall time of the load.
func NewReport(total int64, elapsed time.Duration) Report {
	r := Report{TotalRows: total, Elapsed: elapsed}
	if secs := elapsed.Seconds(); secs > 0 {
		r.RowsPerSec = float64(total) / secs
		r.RowsPerMin = r.RowsPerSec * 60
	}
	return r
}

// String renders the summary line printed at the end of a run.
func (r Report) String() string {
	return fmt.Sprintf("total=%d elapsed=%s rows/sec=%.0f rows/min=%.0f",
		r.TotalRows, r.Elapsed.Truncate(time.Millisecond), r.RowsPerSec, r.RowsPerMin)
}

// DropWarning reports whether the destination total fell short of the
// expected row count and, if so, returns the warning to log. A mismatch is
// a correctness signal, not a pipeline abort; the run still completes.
func DropWarning(total, expected int64) (string, bool) {
	if expected <= 0 || total == expected {
		return "", false
	}
	return fmt.Sprintf("row count mismatch: expected=%d loaded=%d dropped=%d",
		expected, total, expected-total), true
}
