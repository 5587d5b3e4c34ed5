// Package worker runs tasks on a fixed number of goroutines.
package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Task represents a unit of work
type Task func(ctx context.Context) error

// WorkerPool manages concurrent processing. The first failing task cancels
// the pool context; Wait reports that error.
type WorkerPool struct {
	workerCount int
	taskQueue   chan Task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	closeMux    sync.Mutex
	errOnce     sync.Once
	err         error
	logger      zerolog.Logger
}

// NewWorkerPool creates a pool with specified number of workers bound to parent.
func NewWorkerPool(parent context.Context, workerCount int, logger zerolog.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &WorkerPool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Debug().Int("workers", wp.workerCount).Msg("worker pool started")
}

// Submit adds a task to the queue. It fails once the pool is cancelled.
func (wp *WorkerPool) Submit(task Task) error {
	if err := wp.ctx.Err(); err != nil {
		return err
	}
	select {
	case wp.taskQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Wait closes the queue, blocks until all workers exit and returns the first
// task error, or the parent's error if it was cancelled.
func (wp *WorkerPool) Wait() error {
	wp.closeMux.Lock()
	if !wp.closed {
		close(wp.taskQueue)
		wp.closed = true
	}
	wp.closeMux.Unlock()

	wp.wg.Wait()
	defer wp.cancel()

	if wp.err != nil {
		return wp.err
	}
	return wp.ctx.Err()
}

// Shutdown cancels all workers
func (wp *WorkerPool) Shutdown() {
	wp.cancel()
	_ = wp.Wait()
}

// worker processes tasks from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			if wp.ctx.Err() != nil {
				continue
			}
			if err := task(wp.ctx); err != nil {
				wp.logger.Debug().Err(err).Int("worker", id).Msg("task failed")
				wp.errOnce.Do(func() {
					wp.err = err
					wp.cancel()
				})
			}

		case <-wp.ctx.Done():
			return
		}
	}
}
