// Package loader implements the parallel batch bulk-loading pipeline:
// a streaming row source, a fixed-capacity batch accumulator, a bounded
// worker pool committing batches through db.Conn, and a coordinator that
// tracks outstanding work and aggregates per-batch outcomes.
package loader

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Row is an ordered sequence of field strings. Fields are positional; no
// names exist at this layer.
type Row []string

const (
	// fieldDelim is the fixed record delimiter of the input format.
	fieldDelim = "\t"
	// maxLineBytes bounds a single logical record.
	maxLineBytes = 4 << 20
)

// RowSource streams rows from a byte stream, one logical record per line,
// split on tabs. The sequence is finite, forward-only, and not restartable
// without reopening the underlying stream.
//
// The field count is inferred from the first line, which is ordinary data:
// its only special use is the inference. Rows with a deviating field count
// are passed through unchanged; a load failure from such a row surfaces at
// batch-commit time, never here. Validating every row would add per-row
// overhead that defeats the purpose of a throughput benchmark.
type RowSource struct {
	sc         *bufio.Scanner
	fieldCount int
	rows       int64
}

// NewRowSource wraps an open stream.
func NewRowSource(r io.Reader) *RowSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &RowSource{sc: sc}
}

// OpenFile opens path for sequential scanning. On Linux the kernel is
// advised of the access pattern before the first read.
func OpenFile(path string) (*RowSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	advise(f)
	return NewRowSource(bufio.NewReaderSize(f, 8<<20)), f, nil
}

// Next returns the next row, or io.EOF once the stream is exhausted.
func (s *RowSource) Next() (Row, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := strings.TrimSuffix(s.sc.Text(), "\r")
	fields := strings.Split(line, fieldDelim)
	if s.fieldCount == 0 {
		s.fieldCount = len(fields)
	}
	s.rows++
	return Row(fields), nil
}

// FieldCount reports the per-run field count inferred from the first row,
// or 0 before any row has been read.
func (s *RowSource) FieldCount() int { return s.fieldCount }

// RowsRead reports how many rows Next has produced so far.
func (s *RowSource) RowsRead() int64 { return s.rows }
