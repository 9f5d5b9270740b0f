package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bulkbench/internal/db"
)

// Job pairs a sealed batch with its destination and load options.
type Job struct {
	Batch   *Batch
	Table   string
	Options db.BulkOptions
	// Timeout bounds the commit of this job. Zero means unbounded; the
	// final synchronous flush always runs unbounded so a slow last batch
	// is never aborted by a generic timeout.
	Timeout time.Duration
}

// JobResult is the terminal outcome of exactly one batch. Failed batches
// are never retried.
type JobResult struct {
	BatchID int
	Rows    int64 // rows the destination reported committed
	Err     error // nil means committed
}

// Handle resolves to a JobResult once the job finishes.
type Handle struct {
	done chan struct{}
	res  JobResult
}

// Result blocks until the job has a terminal outcome and returns it.
func (h *Handle) Result() JobResult {
	<-h.done
	return h.res
}

// Runner executes one job to its terminal outcome. It must capture
// failures in the JobResult rather than panicking, so a bad batch never
// takes down sibling workers.
type Runner func(ctx context.Context, job Job) JobResult

// Pool lifecycle states.
const (
	poolOpen int32 = iota
	poolDraining
	poolClosed
)

// ErrPoolClosed is returned by Submit once the pool stopped accepting work.
var ErrPoolClosed = errors.New("worker pool is not accepting submissions")

// Pool is a bounded set of worker goroutines executing jobs. It starts
// with min workers and grows on demand up to max when submissions find the
// queue busy, reusing workers across batches instead of spawning one per
// batch. The job queue holds at most max entries, so a producer outrunning
// the destination blocks in Submit; that is the pipeline's only
// backpressure mechanism.
//
// The pool expects a single producer: Submit must not be called
// concurrently with Drain or Close.
type Pool struct {
	run  Runner
	min  int
	max  int
	jobs chan submission

	mu     sync.Mutex // guards scale-up decisions
	active atomic.Int32
	state  atomic.Int32
	wg     sync.WaitGroup
}

type submission struct {
	ctx context.Context
	job Job
	h   *Handle
}

// NewPool validates the concurrency bounds, starts min workers, and
// returns an open pool.
func NewPool(min, max int, run Runner) (*Pool, error) {
	if run == nil {
		return nil, fmt.Errorf("pool runner must not be nil")
	}
	if min < 1 || max < min {
		return nil, fmt.Errorf("invalid worker bounds: min=%d max=%d", min, max)
	}
	p := &Pool{
		run:  run,
		min:  min,
		max:  max,
		jobs: make(chan submission, max),
	}
	for i := 0; i < min; i++ {
		p.startWorker()
	}
	return p, nil
}

// startWorker launches one executor. Callers must hold mu or be in NewPool.
func (p *Pool) startWorker() {
	p.active.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.active.Add(-1)
		for sub := range p.jobs {
			sub.h.res = p.run(sub.ctx, sub.job)
			close(sub.h.done)
		}
	}()
}

// Submit hands a job to the pool and returns a handle that resolves to its
// JobResult. If every worker is busy and the pool is below max, a new
// worker is started; at max, Submit blocks until a queue slot frees (or
// ctx is canceled). Submissions are rejected once the pool leaves Open.
func (p *Pool) Submit(ctx context.Context, job Job) (*Handle, error) {
	if p.state.Load() != poolOpen {
		return nil, ErrPoolClosed
	}
	sub := submission{ctx: ctx, job: job, h: &Handle{done: make(chan struct{})}}

	// Fast path: a free slot means an idle worker or headroom.
	select {
	case p.jobs <- sub:
		return sub.h, nil
	default:
	}

	p.grow()

	select {
	case p.jobs <- sub:
		return sub.h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// grow starts one more worker when the pool is below its maximum.
func (p *Pool) grow() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(p.active.Load()) < p.max {
		p.startWorker()
	}
}

// Drain stops accepting submissions and waits for every outstanding job to
// finish. Calling Drain more than once is safe.
func (p *Pool) Drain() {
	if p.state.CompareAndSwap(poolOpen, poolDraining) {
		close(p.jobs)
	}
	p.wg.Wait()
}

// Close drains the pool if needed and releases it. Only safe after all
// outstanding handles are resolved, which Drain guarantees.
func (p *Pool) Close() {
	p.Drain()
	p.state.Store(poolClosed)
}

// Workers reports the number of live worker goroutines.
func (p *Pool) Workers() int { return int(p.active.Load()) }
