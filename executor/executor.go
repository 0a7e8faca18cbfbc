// Package executor runs independent tasks with bounded parallelism.
// The migration engine uses it for fan-out work such as multi-table
// introspection and batched bulk statements.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrency bounds a runner that was not given a limit.
const DefaultMaxConcurrency = 8

// Task is one unit of work. The context carries the per-task deadline
// when the executor has an operation timeout configured.
type Task func(ctx context.Context) (any, error)

// Result reports one task's outcome at its submission index.
type Result struct {
	Index    int
	Value    any
	Err      error
	Duration time.Duration
}

// TimedOut reports whether the task failed by exceeding the operation
// timeout.
func (r Result) TimedOut() bool {
	return errors.Is(r.Err, context.DeadlineExceeded)
}

// TaskError wraps a task failure with its submission index.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("prax: task %d failed: %v", e.Index, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Stats is a point-in-time snapshot of the executor counters. Every
// submitted task settles into exactly one of Completed, Failed or
// TimedOut; tasks canceled before starting count as Failed.
type Stats struct {
	Runs          int64
	Tasks         int64
	Completed     int64
	Failed        int64
	TimedOut      int64
	MaxConcurrent int64
}

// Executor runs task batches under a concurrency bound. The zero value
// is not usable; construct with New. An Executor is safe for concurrent
// use and may be shared across runs.
type Executor struct {
	maxConcurrency  int
	timeout         time.Duration
	continueOnError bool
	log             *slog.Logger

	runs          atomic.Int64
	tasks         atomic.Int64
	completed     atomic.Int64
	failed        atomic.Int64
	timedOut      atomic.Int64
	inflight      atomic.Int64
	maxConcurrent atomic.Int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxConcurrency bounds the number of tasks running at once.
func WithMaxConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithOperationTimeout applies a deadline to each task. Zero disables
// per-task deadlines.
func WithOperationTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithContinueOnError keeps the batch running after a task fails
// instead of canceling the remaining tasks.
func WithContinueOnError() Option {
	return func(e *Executor) { e.continueOnError = true }
}

// WithLogger routes executor logging.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// New builds an Executor. Without options it runs at most
// DefaultMaxConcurrency tasks at a time, applies no per-task deadline
// and cancels the batch on the first failure.
func New(opts ...Option) *Executor {
	e := &Executor{
		maxConcurrency: DefaultMaxConcurrency,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the tasks and returns one Result per task, indexed by
// submission order regardless of completion order.
//
// In fail-fast mode the first task error cancels the tasks still
// queued or running, and Run returns that error as a *TaskError;
// results of canceled tasks carry the context error. Task timeouts
// never trip the cancelation: a task that exceeds the operation
// timeout is one failed entry in the results, and the rest of the
// batch keeps running.
//
// When no single error aborted the batch, Run returns the failures
// joined (errors.Join), or nil if every task succeeded.
func (e *Executor) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}
	e.runs.Add(1)
	e.tasks.Add(int64(len(tasks)))

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if !e.continueOnError {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		once     sync.Once
		firstErr error
	)
	fail := func(i int, err error) {
		if e.continueOnError {
			return
		}
		once.Do(func() {
			firstErr = &TaskError{Index: i, Err: err}
			cancel()
		})
	}

	sem := semaphore.NewWeighted(int64(e.maxConcurrency))
	var wg sync.WaitGroup
	for i, task := range tasks {
		if err := sem.Acquire(runCtx, 1); err != nil {
			results[i] = Result{Index: i, Err: err}
			e.failed.Add(1)
			continue
		}
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			defer sem.Release(1)
			res := e.runOne(runCtx, i, task)
			results[i] = res
			if res.Err == nil {
				e.completed.Add(1)
				return
			}
			if res.TimedOut() {
				e.timedOut.Add(1)
				e.log.Warn("task timed out", "index", i, "timeout", e.timeout)
				return
			}
			e.failed.Add(1)
			fail(i, res.Err)
		}(i, task)
	}
	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}
	var errs []error
	for i := range results {
		if results[i].Err != nil {
			errs = append(errs, &TaskError{Index: i, Err: results[i].Err})
		}
	}
	return results, errors.Join(errs...)
}

func (e *Executor) runOne(ctx context.Context, i int, task Task) Result {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	cur := e.inflight.Add(1)
	e.recordPeak(cur)
	defer e.inflight.Add(-1)

	start := time.Now()
	v, err := task(ctx)
	return Result{Index: i, Value: v, Err: err, Duration: time.Since(start)}
}

func (e *Executor) recordPeak(cur int64) {
	for {
		peak := e.maxConcurrent.Load()
		if cur <= peak || e.maxConcurrent.CompareAndSwap(peak, cur) {
			return
		}
	}
}

// Stats returns a snapshot of the cumulative counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Runs:          e.runs.Load(),
		Tasks:         e.tasks.Load(),
		Completed:     e.completed.Load(),
		Failed:        e.failed.Load(),
		TimedOut:      e.timedOut.Load(),
		MaxConcurrent: e.maxConcurrent.Load(),
	}
}
