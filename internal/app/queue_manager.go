package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/yourusername/batch-download-go/pkg/logger"
)

// Job is a unit of work run by the queue manager
type Job func(ctx context.Context)

// QueueManager runs download jobs with bounded concurrency.
// Background jobs (cleanup) run outside the bound.
type QueueManager struct {
	sem         *semaphore.Weighted
	limit       int64
	multiLogger *logger.MultiLogger
	mu          sync.RWMutex
	running     bool
	ctx         context.Context
	cancel      context.CancelFunc
	workerWg    sync.WaitGroup
}

// NewQueueManager creates a new queue manager
func NewQueueManager(concurrentLimit int, multiLogger *logger.MultiLogger) *QueueManager {
	if concurrentLimit <= 0 {
		concurrentLimit = 1
	}
	return &QueueManager{
		sem:         semaphore.NewWeighted(int64(concurrentLimit)),
		limit:       int64(concurrentLimit),
		multiLogger: multiLogger,
	}
}

// Start starts accepting jobs. Jobs are cancelled when ctx is done or Stop is called.
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.running {
		return fmt.Errorf("queue manager already running")
	}
	qm.ctx, qm.cancel = context.WithCancel(ctx)
	qm.running = true

	if qm.multiLogger != nil {
		qm.multiLogger.LogBatchEvent("queue_started", zap.Int64("concurrent_limit", qm.limit))
	}
	return nil
}

// Stop cancels running jobs and waits for them to return
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	qm.cancel()
	qm.mu.Unlock()

	qm.workerWg.Wait()

	if qm.multiLogger != nil {
		qm.multiLogger.LogBatchEvent("queue_stopped")
	}
	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// Enqueue schedules a job that waits for a free worker slot. It never blocks the caller.
func (qm *QueueManager) Enqueue(job Job) error {
	ctx, err := qm.acquireRun()
	if err != nil {
		return err
	}

	go func() {
		defer qm.workerWg.Done()

		if err := qm.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer qm.sem.Release(1)

		job(ctx)
	}()
	return nil
}

// Go runs a background job without taking a worker slot
func (qm *QueueManager) Go(job Job) error {
	ctx, err := qm.acquireRun()
	if err != nil {
		return err
	}

	go func() {
		defer qm.workerWg.Done()
		job(ctx)
	}()
	return nil
}

func (qm *QueueManager) acquireRun() (context.Context, error) {
	qm.mu.RLock()
	defer qm.mu.RUnlock()

	if !qm.running {
		return nil, fmt.Errorf("queue manager not running")
	}
	qm.workerWg.Add(1)
	return qm.ctx, nil
}
