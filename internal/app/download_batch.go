package app

import (
	"fmt"
	"sync"

	"github.com/yourusername/batch-download-go/internal/domain"
	"go.uber.org/zap"
)

// DownloadBatch owns a fixed set of files and derives its status from theirs
type DownloadBatch struct {
	id              domain.DownloadBatchID
	title           string
	createdAtMillis int64
	files           []*DownloadFile

	store    domain.BatchStore
	throttle *CallbackThrottle
	logger   *zap.Logger

	mu     sync.Mutex
	status domain.DownloadStatus // last persisted aggregate
}

// ID returns the batch identifier
func (b *DownloadBatch) ID() domain.DownloadBatchID {
	return b.id
}

// Files returns the files owned by the batch
func (b *DownloadBatch) Files() []*DownloadFile {
	return b.files
}

// Status computes the aggregate status from the current file statuses
func (b *DownloadBatch) Status() domain.DownloadStatus {
	statuses := make([]domain.DownloadStatus, len(b.files))
	for i, f := range b.files {
		statuses[i] = f.Status()
	}
	return domain.AggregateStatus(statuses)
}

// Snapshot returns the observable state of the batch and its files
func (b *DownloadBatch) Snapshot() domain.BatchStatus {
	files := make([]domain.FileStatus, len(b.files))
	statuses := make([]domain.DownloadStatus, len(b.files))
	var errorKind domain.ErrorKind
	for i, f := range b.files {
		files[i] = f.Snapshot()
		statuses[i] = files[i].Status
		if errorKind == "" && files[i].Status == domain.StatusError {
			errorKind = files[i].ErrorKind
		}
	}

	downloaded, total, percent := domain.Percentage(files)
	return domain.BatchStatus{
		BatchID:              b.id,
		Title:                b.title,
		Status:               domain.AggregateStatus(statuses),
		CreatedAtMillis:      b.createdAtMillis,
		BytesDownloaded:      downloaded,
		BytesTotalSize:       total,
		PercentageDownloaded: percent,
		ErrorKind:            errorKind,
		Files:                files,
	}
}

func (b *DownloadBatch) record(status domain.DownloadStatus) *domain.BatchRecord {
	return &domain.BatchRecord{
		ID:              b.id,
		Title:           b.title,
		Status:          status,
		CreatedAtMillis: b.createdAtMillis,
	}
}

// onFileUpdate persists a changed aggregate before notifying observers
func (b *DownloadBatch) onFileUpdate(*DownloadFile) {
	b.publish()
}

// publish holds b.mu across snapshot, persist and hand-off so that concurrent
// file workers cannot persist or deliver an older aggregate after a newer one.
func (b *DownloadBatch) publish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.Snapshot()
	changed := snapshot.Status != b.status
	if changed {
		if err := b.store.PutBatch(b.record(snapshot.Status)); err != nil {
			b.logger.Error("Failed to persist batch status",
				zap.String("status", string(snapshot.Status)),
				zap.Error(err))
			return
		}
		b.logger.Debug("Batch status changed",
			zap.String("from", string(b.status)),
			zap.String("to", string(snapshot.Status)))
		b.status = snapshot.Status
	}

	if changed && (snapshot.Status == domain.StatusDownloaded || snapshot.Status == domain.StatusError) {
		b.throttle.Terminal(snapshot)
		return
	}
	b.throttle.Update(snapshot)
}

// Pause pauses every file of the batch
func (b *DownloadBatch) Pause() {
	for _, f := range b.files {
		f.Pause()
	}
	b.publish()
}

// Resume queues every paused or failed file again and returns the files to schedule
func (b *DownloadBatch) Resume() []*DownloadFile {
	var resumed []*DownloadFile
	for _, f := range b.files {
		if f.Resume() {
			resumed = append(resumed, f)
		}
	}
	b.publish()
	return resumed
}

// Delete marks every file for deletion and stops their transfers.
// It reports false when the batch was already being deleted.
func (b *DownloadBatch) Delete() bool {
	changed := false
	for _, f := range b.files {
		if f.MarkDeleted() {
			changed = true
		}
	}
	if changed {
		b.publish()
	}
	return changed
}

// Cleanup removes local data and every persisted record of a deleted batch
func (b *DownloadBatch) Cleanup() error {
	for _, f := range b.files {
		if err := f.Cleanup(); err != nil {
			return err
		}
	}
	if err := b.store.DeleteBatch(b.id); err != nil {
		return fmt.Errorf("failed to delete batch record %s: %w", b.id, err)
	}

	b.logger.Info("Batch deleted")
	b.mu.Lock()
	b.throttle.Terminal(b.Snapshot())
	b.throttle.Stop()
	b.mu.Unlock()
	return nil
}
