package loader

import "fmt"

// Batch is a bounded, ordered group of rows committed to the destination in
// a single bulk operation. A batch is mutable only while it is the
// accumulator's current batch; once handed off it is owned exclusively by
// the worker processing it.
type Batch struct {
	ID   int
	Rows []Row
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// Accumulator groups rows into fixed-capacity batches. It is single-owner:
// the producing goroutine calls Add and finally Flush. Emission never
// blocks on the database; dispatch is the caller's concern.
type Accumulator struct {
	size   int
	nextID int
	cur    *Batch
}

// NewAccumulator returns an accumulator emitting batches of exactly size
// rows (except the final flush).
func NewAccumulator(size int) (*Accumulator, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, got %d", size)
	}
	a := &Accumulator{size: size}
	a.cur = a.fresh()
	return a, nil
}

func (a *Accumulator) fresh() *Batch {
	a.nextID++
	// New backing storage every time: the emitted batch and its successor
	// must never alias, since a worker may already be reading the emitted
	// one while the producer keeps appending here.
	return &Batch{ID: a.nextID, Rows: make([]Row, 0, a.size)}
}

// Add appends row to the current batch. When the batch reaches capacity it
// is returned sealed and a fresh empty batch is swapped in; otherwise Add
// returns nil.
func (a *Accumulator) Add(row Row) *Batch {
	a.cur.Rows = append(a.cur.Rows, row)
	if len(a.cur.Rows) < a.size {
		return nil
	}
	full := a.cur
	a.cur = a.fresh()
	return full
}

// Flush hands off the current batch at end of stream. It may be empty when
// the row count is an exact multiple of the batch size; callers skip empty
// batches, so an exact-multiple boundary yields zero extra rows.
func (a *Accumulator) Flush() *Batch {
	tail := a.cur
	a.cur = a.fresh()
	return tail
}
