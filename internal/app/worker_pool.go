package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// WorkerPool bounds the number of engine invocations running at once.
// Each job runs on its own goroutine so the submitting goroutine only
// waits for the result, never for a slot held by another request.
type WorkerPool struct {
	sem    *semaphore.Weighted
	size   int64
	active atomic.Int64
}

// NewWorkerPool creates a pool with the given number of slots
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Run executes job on a pool worker and waits for it to finish.
// ctx bounds only the wait for a free slot; once started, job runs to
// completion and receives jobCtx.
func (p *WorkerPool) Run(ctx context.Context, jobCtx context.Context, job func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire worker: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		p.active.Add(1)
		err := safeRun(jobCtx, job)
		p.active.Add(-1)
		done <- err
	}()

	return <-done
}

func safeRun(ctx context.Context, job func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return job(ctx)
}

// Size returns the number of slots
func (p *WorkerPool) Size() int {
	return int(p.size)
}

// Active returns the number of jobs currently running
func (p *WorkerPool) Active() int {
	return int(p.active.Load())
}
