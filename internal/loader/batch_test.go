package loader

import (
	"fmt"
	"testing"
)

func row(i int) Row { return Row{fmt.Sprintf("f%d", i)} }

// feed pushes n rows through a fresh accumulator of the given size and
// returns the emitted full batches plus the flushed tail.
func feed(t *testing.T, n, size int) (full []*Batch, tail *Batch) {
	t.Helper()
	acc, err := NewAccumulator(size)
	if err != nil {
		t.Fatalf("NewAccumulator(%d): %v", size, err)
	}
	for i := 0; i < n; i++ {
		if b := acc.Add(row(i)); b != nil {
			full = append(full, b)
		}
	}
	return full, acc.Flush()
}

// TestAccumulator_BatchCounts checks the ceil(R/B) property over a grid of
// row counts and batch sizes: every non-final batch has exactly B rows and
// the final batch carries R mod B rows (absent entirely when R is an exact
// multiple).
func TestAccumulator_BatchCounts(t *testing.T) {
	cases := []struct{ rows, size int }{
		{0, 3}, {1, 3}, {2, 3}, {3, 3}, {4, 3},
		{10, 3}, {2000, 2000}, {4001, 2000}, {9, 1},
	}
	for _, c := range cases {
		full, tail := feed(t, c.rows, c.size)

		wantFull := c.rows / c.size
		if len(full) != wantFull {
			t.Fatalf("rows=%d size=%d: full batches = %d, want %d", c.rows, c.size, len(full), wantFull)
		}
		for _, b := range full {
			if b.Len() != c.size {
				t.Fatalf("rows=%d size=%d: non-final batch has %d rows", c.rows, c.size, b.Len())
			}
		}
		if want := c.rows % c.size; tail.Len() != want {
			t.Fatalf("rows=%d size=%d: tail has %d rows, want %d", c.rows, c.size, tail.Len(), want)
		}

		total := tail.Len()
		for _, b := range full {
			total += b.Len()
		}
		if total != c.rows {
			t.Fatalf("rows=%d size=%d: rows lost or duplicated, got %d", c.rows, c.size, total)
		}
	}
}

// TestAccumulator_NoAliasing proves an emitted batch is never mutated by
// further accumulation: the swap-in replacement uses fresh storage.
func TestAccumulator_NoAliasing(t *testing.T) {
	acc, _ := NewAccumulator(2)
	acc.Add(Row{"a"})
	full := acc.Add(Row{"b"})
	if full == nil {
		t.Fatal("expected a sealed batch")
	}

	// Keep filling; the sealed batch must not change underneath us.
	acc.Add(Row{"x"})
	acc.Add(Row{"y"})

	if full.Len() != 2 || full.Rows[0][0] != "a" || full.Rows[1][0] != "b" {
		t.Fatalf("sealed batch mutated: %+v", full.Rows)
	}
	if &full.Rows == &acc.cur.Rows {
		t.Fatal("sealed batch shares storage with the current batch")
	}
}

// TestAccumulator_SequentialIDs verifies every batch (including the tail)
// gets a distinct, increasing identifier.
func TestAccumulator_SequentialIDs(t *testing.T) {
	full, tail := feed(t, 7, 2)
	last := 0
	for _, b := range full {
		if b.ID <= last {
			t.Fatalf("non-increasing batch id: %d after %d", b.ID, last)
		}
		last = b.ID
	}
	if tail.ID <= last {
		t.Fatalf("tail id %d not after %d", tail.ID, last)
	}
}

// TestAccumulator_InvalidSize rejects non-positive capacities up front.
func TestAccumulator_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := NewAccumulator(size); err == nil {
			t.Fatalf("size %d accepted", size)
		}
	}
}
