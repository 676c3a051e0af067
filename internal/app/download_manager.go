package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/yourusername/batch-download-go/internal/domain"
	"github.com/yourusername/batch-download-go/pkg/logger"
	"go.uber.org/zap"
)

// DownloadManager is the entry point for batch operations. It owns the table
// of live batches, schedules their files on the queue manager and fans status
// snapshots out through the notifier.
type DownloadManager struct {
	repo        domain.DownloadRepository
	factory     *BatchFactory
	queue       *QueueManager
	notifier    *Notifier
	multiLogger *logger.MultiLogger
	logger      *zap.Logger

	restoreMu sync.Mutex // one Restore at a time

	mu      sync.RWMutex
	batches map[domain.DownloadBatchID]*DownloadBatch
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	repo domain.DownloadRepository,
	ops domain.FileOperations,
	config *domain.Config,
	clock clockwork.Clock,
	multiLogger *logger.MultiLogger,
	logger *zap.Logger,
) *DownloadManager {
	notifier := NewNotifier(config.Callback.QueueSize, logger)
	newThrottle := func() *CallbackThrottle {
		return NewCallbackThrottle(clock, config.Callback.ThrottleInterval, notifier.Publish)
	}

	return &DownloadManager{
		repo:        repo,
		factory:     NewBatchFactory(ops, repo, config.Download.BaseDir, newThrottle, logger),
		queue:       NewQueueManager(config.Download.ConcurrentLimit, multiLogger),
		notifier:    notifier,
		multiLogger: multiLogger,
		logger:      logger,
		batches:     make(map[domain.DownloadBatchID]*DownloadBatch),
	}
}

// Start starts the worker pool
func (dm *DownloadManager) Start(ctx context.Context) error {
	return dm.queue.Start(ctx)
}

// Stop cancels running transfers, waits for workers and drains pending notifications.
// Files keep their persisted status, so a restart pauses whatever was in flight.
func (dm *DownloadManager) Stop() error {
	err := dm.queue.Stop()
	dm.notifier.Close()
	return err
}

// IsRunning reports whether the worker pool accepts transfers
func (dm *DownloadManager) IsRunning() bool {
	return dm.queue.IsRunning()
}

// Subscribe registers an observer for batch status snapshots
func (dm *DownloadManager) Subscribe(observer domain.BatchObserver) func() {
	return dm.notifier.Subscribe(observer)
}

// Submit validates and persists a batch, then schedules its files.
// Nothing is persisted when validation fails.
func (dm *DownloadManager) Submit(batch *domain.Batch) (domain.DownloadBatchID, error) {
	batch.Normalize()
	if err := batch.Validate(); err != nil {
		return "", err
	}

	dm.mu.Lock()
	if _, exists := dm.batches[batch.ID]; exists {
		dm.mu.Unlock()
		return "", fmt.Errorf("%w: %s", domain.ErrBatchAlreadyExists, batch.ID)
	}
	existing, err := dm.repo.GetBatch(batch.ID)
	if err != nil {
		dm.mu.Unlock()
		return "", domain.NewDownloadError(domain.ErrorStorage, "get_batch", err)
	}
	if existing != nil {
		dm.mu.Unlock()
		return "", fmt.Errorf("%w: %s", domain.ErrBatchAlreadyExists, batch.ID)
	}

	batchRecord, fileRecords := dm.factory.Records(batch)
	if err := dm.persistNew(batchRecord, fileRecords); err != nil {
		dm.mu.Unlock()
		return "", err
	}

	downloadBatch := dm.factory.Build(batchRecord, fileRecords)
	dm.batches[batch.ID] = downloadBatch
	dm.mu.Unlock()

	dm.logger.Info("Batch submitted",
		zap.String("batch_id", string(batch.ID)),
		zap.String("title", batch.Title),
		zap.Int("files", len(fileRecords)))
	if dm.multiLogger != nil {
		dm.multiLogger.LogBatchEvent("batch_submitted",
			zap.String("batch_id", string(batch.ID)),
			zap.Int("files", len(fileRecords)))
	}

	downloadBatch.publish()
	dm.schedule(downloadBatch, downloadBatch.Files())
	return batch.ID, nil
}

// persistNew writes the batch and all its files, removing partial writes on failure
func (dm *DownloadManager) persistNew(batchRecord *domain.BatchRecord, fileRecords []*domain.FileRecord) error {
	rollback := func() {
		for _, record := range fileRecords {
			_ = dm.repo.DeleteFile(record.BatchID, record.FileID)
		}
		_ = dm.repo.DeleteBatch(batchRecord.ID)
	}

	if err := dm.repo.PutBatch(batchRecord); err != nil {
		rollback()
		return domain.NewDownloadError(domain.ErrorStorage, "put_batch", err)
	}
	for _, record := range fileRecords {
		if err := dm.repo.PutFile(record); err != nil {
			rollback()
			return domain.NewDownloadError(domain.ErrorStorage, "put_file", err)
		}
	}
	return nil
}

func (dm *DownloadManager) schedule(batch *DownloadBatch, files []*DownloadFile) {
	for _, file := range files {
		file := file
		err := dm.queue.Enqueue(func(ctx context.Context) {
			file.Download(ctx, batch.onFileUpdate)
		})
		if err != nil {
			dm.logger.Warn("File not scheduled",
				zap.String("batch_id", string(batch.ID())),
				zap.String("file_id", string(file.ID())),
				zap.Error(err))
		}
	}
}

// adopt adds a rebuilt batch unless one with the same id is already live
func (dm *DownloadManager) adopt(batch *DownloadBatch) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if _, exists := dm.batches[batch.ID()]; exists {
		return false
	}
	dm.batches[batch.ID()] = batch
	return true
}

func (dm *DownloadManager) lookup(id domain.DownloadBatchID) (*DownloadBatch, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	batch, ok := dm.batches[id]
	return batch, ok
}

// Pause pauses every file of the batch
func (dm *DownloadManager) Pause(id domain.DownloadBatchID) error {
	batch, ok := dm.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrBatchNotFound, id)
	}
	batch.Pause()

	if dm.multiLogger != nil {
		dm.multiLogger.LogBatchEvent("batch_paused", zap.String("batch_id", string(id)))
	}
	return nil
}

// Resume queues every paused or failed file of the batch again
func (dm *DownloadManager) Resume(id domain.DownloadBatchID) error {
	batch, ok := dm.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrBatchNotFound, id)
	}
	resumed := batch.Resume()
	dm.schedule(batch, resumed)

	if dm.multiLogger != nil {
		dm.multiLogger.LogBatchEvent("batch_resumed",
			zap.String("batch_id", string(id)),
			zap.Int("files", len(resumed)))
	}
	return nil
}

// Delete stops the batch and removes its data in the background.
// Deleting an unknown batch, or one already being deleted, does nothing.
func (dm *DownloadManager) Delete(id domain.DownloadBatchID) {
	batch, ok := dm.lookup(id)
	if !ok {
		return
	}
	if !batch.Delete() {
		return
	}
	dm.cleanup(batch)
}

func (dm *DownloadManager) cleanup(batch *DownloadBatch) {
	err := dm.queue.Go(func(ctx context.Context) {
		if err := batch.Cleanup(); err != nil {
			dm.logger.Error("Batch cleanup failed", zap.String("batch_id", string(batch.ID())), zap.Error(err))
			if dm.multiLogger != nil {
				dm.multiLogger.LogAppError("Batch cleanup failed",
					zap.String("batch_id", string(batch.ID())),
					zap.Error(err))
			}
			return
		}

		dm.mu.Lock()
		delete(dm.batches, batch.ID())
		dm.mu.Unlock()

		if dm.multiLogger != nil {
			dm.multiLogger.LogBatchEvent("batch_deleted", zap.String("batch_id", string(batch.ID())))
		}
	})
	if err != nil {
		dm.logger.Warn("Batch cleanup not scheduled", zap.String("batch_id", string(batch.ID())), zap.Error(err))
	}
}

// GetBatchStatus returns the current snapshot of a batch
func (dm *DownloadManager) GetBatchStatus(id domain.DownloadBatchID) (*domain.BatchStatus, error) {
	batch, ok := dm.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, id)
	}
	snapshot := batch.Snapshot()
	return &snapshot, nil
}

// GetAllBatchStatuses returns snapshots of every live batch, oldest first
func (dm *DownloadManager) GetAllBatchStatuses() []domain.BatchStatus {
	dm.mu.RLock()
	batches := make([]*DownloadBatch, 0, len(dm.batches))
	for _, batch := range dm.batches {
		batches = append(batches, batch)
	}
	dm.mu.RUnlock()

	statuses := make([]domain.BatchStatus, 0, len(batches))
	for _, batch := range batches {
		statuses = append(statuses, batch.Snapshot())
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].CreatedAtMillis != statuses[j].CreatedAtMillis {
			return statuses[i].CreatedAtMillis < statuses[j].CreatedAtMillis
		}
		return statuses[i].BatchID < statuses[j].BatchID
	})
	return statuses
}

// GetStats counts live batches per aggregate status
func (dm *DownloadManager) GetStats() *domain.DownloadStats {
	stats := &domain.DownloadStats{}
	for _, status := range dm.GetAllBatchStatuses() {
		stats.Add(status.Status)
	}
	return stats
}

// Restore rebuilds batches from the persisted records. Transfers that were in
// flight come back PAUSED, deletions are carried through and batch records
// without files are dropped. Batches already loaded are left alone, so Restore
// also picks up batches written by the migration.
func (dm *DownloadManager) Restore() error {
	dm.restoreMu.Lock()
	defer dm.restoreMu.Unlock()

	batchRecords, err := dm.repo.GetAllBatches()
	if err != nil {
		return fmt.Errorf("failed to load batches: %w", err)
	}

	var restored, deleting int
	for _, batchRecord := range batchRecords {
		if _, loaded := dm.lookup(batchRecord.ID); loaded {
			continue
		}

		fileRecords, err := dm.repo.GetFilesByBatch(batchRecord.ID)
		if err != nil {
			return fmt.Errorf("failed to load files of batch %s: %w", batchRecord.ID, err)
		}
		if len(fileRecords) == 0 {
			dm.logger.Warn("Dropping batch without files", zap.String("batch_id", string(batchRecord.ID)))
			if err := dm.repo.DeleteBatch(batchRecord.ID); err != nil {
				return fmt.Errorf("failed to delete orphan batch %s: %w", batchRecord.ID, err)
			}
			continue
		}

		inDeletion := false
		for _, fileRecord := range fileRecords {
			switch fileRecord.Status {
			case domain.StatusQueued, domain.StatusDownloading:
				fileRecord.Status = domain.StatusPaused
				if err := dm.repo.PutFile(fileRecord); err != nil {
					return fmt.Errorf("failed to pause file %s: %w", fileRecord.FileID, err)
				}
			case domain.StatusDeletion:
				inDeletion = true
			}
		}

		batch := dm.factory.Build(batchRecord, fileRecords)
		if !dm.adopt(batch) {
			// submitted under the same id while the records were loading
			batch.throttle.Stop()
			continue
		}
		restored++

		if inDeletion || batchRecord.Status == domain.StatusDeletion {
			deleting++
			batch.Delete()
			dm.cleanup(batch)
			continue
		}
		batch.publish()
	}

	dm.logger.Info("Batches restored", zap.Int("batches", restored), zap.Int("deleting", deleting))
	return nil
}
