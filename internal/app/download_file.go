package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/batch-download-go/internal/domain"
	"go.uber.org/zap"
)

var errTransferStopped = errors.New("transfer stopped")

// DownloadFile drives the transfer of one file of a batch
type DownloadFile struct {
	batchID        domain.DownloadBatchID
	id             domain.DownloadFileID
	networkAddress string
	filePath       string

	downloader    domain.FileDownloader
	sizeRequester domain.FileSizeRequester
	persistence   domain.FilePersistence
	store         domain.FileStore
	logger        *zap.Logger

	mu              sync.Mutex
	status          domain.DownloadStatus
	totalSize       int64 // 0 until requested
	bytesDownloaded int64
	errorKind       domain.ErrorKind
	running         bool
	done            chan struct{}
	cancel          context.CancelFunc
}

// newDownloadFile rebuilds a file from its persisted record
func newDownloadFile(record *domain.FileRecord, ops domain.FileOperations, store domain.FileStore, logger *zap.Logger) *DownloadFile {
	return &DownloadFile{
		batchID:         record.BatchID,
		id:              record.FileID,
		networkAddress:  record.NetworkAddress,
		filePath:        record.FilePath,
		downloader:      ops.Downloader,
		sizeRequester:   ops.SizeRequester,
		persistence:     ops.NewPersistence(record.FilePath),
		store:           store,
		logger:          logger.With(zap.String("batch_id", string(record.BatchID)), zap.String("file_id", string(record.FileID))),
		status:          record.Status,
		totalSize:       record.TotalSize,
		bytesDownloaded: record.BytesDownloaded,
		errorKind:       record.ErrorKind,
	}
}

// ID returns the file identifier
func (f *DownloadFile) ID() domain.DownloadFileID {
	return f.id
}

// Status returns the current file status
func (f *DownloadFile) Status() domain.DownloadStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Snapshot returns the observable state of the file
func (f *DownloadFile) Snapshot() domain.FileStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.FileStatus{
		FileID:          f.id,
		NetworkAddress:  f.networkAddress,
		FilePath:        f.filePath,
		Status:          f.status,
		TotalSize:       f.totalSize,
		BytesDownloaded: f.bytesDownloaded,
		ErrorKind:       f.errorKind,
	}
}

// recordLocked must be called with f.mu held
func (f *DownloadFile) recordLocked() *domain.FileRecord {
	return &domain.FileRecord{
		BatchID:         f.batchID,
		FileID:          f.id,
		NetworkAddress:  f.networkAddress,
		FilePath:        f.filePath,
		Status:          f.status,
		TotalSize:       f.totalSize,
		BytesDownloaded: f.bytesDownloaded,
		ErrorKind:       f.errorKind,
	}
}

// persistLocked writes the current state before anyone is told about it
func (f *DownloadFile) persistLocked() error {
	if err := f.store.PutFile(f.recordLocked()); err != nil {
		f.logger.Error("Failed to persist file record", zap.String("status", string(f.status)), zap.Error(err))
		return domain.NewDownloadError(domain.ErrorStorage, "persist_file", err)
	}
	return nil
}

// Download runs the transfer until the file leaves DOWNLOADING. onUpdate is
// called after every persisted change. Only one Download runs per file; a
// resume that happens while a previous run winds down is picked up by that run.
func (f *DownloadFile) Download(ctx context.Context, onUpdate func(*DownloadFile)) {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.done = make(chan struct{})
	f.mu.Unlock()

	for {
		runCtx, ok := f.begin(ctx)
		if !ok {
			return
		}
		onUpdate(f)
		if f.Status() != domain.StatusDownloading {
			// failed to record the start, or paused right away
			f.releaseContext()
			continue
		}
		f.transfer(runCtx, onUpdate)
	}
}

// begin moves a QUEUED file to DOWNLOADING, or releases the worker otherwise
func (f *DownloadFile) begin(ctx context.Context) (context.Context, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != domain.StatusQueued || ctx.Err() != nil {
		f.running = false
		f.cancel = nil
		close(f.done)
		return nil, false
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.status = domain.StatusDownloading
	f.errorKind = ""
	if err := f.persistLocked(); err != nil {
		f.failLocked(err)
	}
	return runCtx, true
}

func (f *DownloadFile) transfer(ctx context.Context, onUpdate func(*DownloadFile)) {
	defer f.releaseContext()

	if err := f.ensureTotalSize(ctx); err != nil {
		f.fail(ctx, err, onUpdate)
		return
	}

	offset, err := f.resumeOffset()
	if err != nil {
		f.fail(ctx, err, onUpdate)
		return
	}

	if f.complete() {
		f.finish(ctx, onUpdate)
		return
	}

	f.logger.Info("Starting transfer",
		zap.String("address", f.networkAddress),
		zap.String("path", f.filePath),
		zap.String("offset", humanize.Bytes(uint64(offset))))

	err = f.downloader.Fetch(ctx, f.networkAddress, offset, func(chunk []byte) error {
		return f.writeChunk(ctx, chunk, onUpdate)
	})
	if err != nil {
		f.fail(ctx, err, onUpdate)
		return
	}

	f.finish(ctx, onUpdate)
}

func (f *DownloadFile) releaseContext() {
	if err := f.persistence.Close(); err != nil {
		f.logger.Warn("Failed to close file persistence", zap.Error(err))
	}
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.mu.Unlock()
}

func (f *DownloadFile) ensureTotalSize(ctx context.Context) error {
	f.mu.Lock()
	known := f.totalSize > 0
	f.mu.Unlock()
	if known {
		return nil
	}

	size, err := f.sizeRequester.RequestFileSize(ctx, f.networkAddress)
	if err != nil {
		return domain.NewDownloadError(domain.ErrorFileSize, "request_size", err)
	}
	if size <= 0 {
		return domain.NewDownloadError(domain.ErrorFileSize, "request_size", fmt.Errorf("invalid size %d", size))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != domain.StatusDownloading {
		return errTransferStopped
	}
	f.totalSize = size
	return f.persistLocked()
}

// resumeOffset aligns the local data with the persisted byte count, which is authoritative
func (f *DownloadFile) resumeOffset() (int64, error) {
	local, err := f.persistence.CurrentLength()
	if err != nil {
		return 0, domain.NewDownloadError(domain.ErrorStorage, "current_length", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case local > f.bytesDownloaded:
		if err := f.persistence.Truncate(f.bytesDownloaded); err != nil {
			return 0, domain.NewDownloadError(domain.ErrorStorage, "truncate", err)
		}
	case local < f.bytesDownloaded:
		f.logger.Warn("Local data shorter than persisted progress",
			zap.Int64("local", local),
			zap.Int64("persisted", f.bytesDownloaded))
		f.bytesDownloaded = local
		if err := f.persistLocked(); err != nil {
			return 0, err
		}
	}
	return f.bytesDownloaded, nil
}

func (f *DownloadFile) complete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalSize > 0 && f.bytesDownloaded == f.totalSize
}

func (f *DownloadFile) writeChunk(ctx context.Context, chunk []byte, onUpdate func(*DownloadFile)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	length, err := f.persistence.Write(chunk)
	if err != nil {
		return domain.NewDownloadError(domain.ErrorStorage, "write", err)
	}

	f.mu.Lock()
	if f.status != domain.StatusDownloading {
		// paused or deleted meanwhile; the surplus bytes are truncated on resume
		f.mu.Unlock()
		return errTransferStopped
	}
	if f.totalSize > 0 && length > f.totalSize {
		f.mu.Unlock()
		return domain.NewDownloadError(domain.ErrorStorage, "write",
			fmt.Errorf("received %d bytes, expected %d", length, f.totalSize))
	}
	f.bytesDownloaded = length
	err = f.persistLocked()
	f.mu.Unlock()
	if err != nil {
		return err
	}

	onUpdate(f)
	return nil
}

func (f *DownloadFile) finish(ctx context.Context, onUpdate func(*DownloadFile)) {
	f.mu.Lock()
	if f.status != domain.StatusDownloading || ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	if f.bytesDownloaded != f.totalSize {
		f.mu.Unlock()
		f.fail(ctx, domain.NewDownloadError(domain.ErrorNetwork, "fetch",
			fmt.Errorf("transfer ended at %d of %d bytes", f.bytesDownloaded, f.totalSize)), onUpdate)
		return
	}
	f.status = domain.StatusDownloaded
	if err := f.persistLocked(); err != nil {
		f.failLocked(err)
	}
	size := f.totalSize
	f.mu.Unlock()

	f.logger.Info("File downloaded", zap.String("path", f.filePath), zap.String("size", humanize.Bytes(uint64(size))))
	onUpdate(f)
}

// fail records err unless the transfer was stopped on purpose
func (f *DownloadFile) fail(ctx context.Context, err error, onUpdate func(*DownloadFile)) {
	if ctx.Err() != nil || errors.Is(err, errTransferStopped) {
		return
	}

	f.mu.Lock()
	if f.status != domain.StatusDownloading {
		f.mu.Unlock()
		return
	}
	f.failLocked(err)
	f.mu.Unlock()

	onUpdate(f)
}

func (f *DownloadFile) failLocked(err error) {
	f.status = domain.StatusError
	f.errorKind = domain.KindOf(err, domain.ErrorNetwork)
	f.logger.Warn("File transfer failed",
		zap.String("error_kind", string(f.errorKind)),
		zap.Int64("bytes_downloaded", f.bytesDownloaded),
		zap.Error(err))
	if perr := f.store.PutFile(f.recordLocked()); perr != nil {
		f.logger.Error("Failed to persist file error", zap.Error(perr))
	}
}

// Pause stops the transfer, keeping the persisted byte count
func (f *DownloadFile) Pause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != domain.StatusQueued && f.status != domain.StatusDownloading {
		return false
	}
	f.status = domain.StatusPaused
	if f.cancel != nil {
		f.cancel()
	}
	if err := f.persistLocked(); err != nil {
		f.failLocked(err)
	}
	return true
}

// Resume queues a paused or failed file again and reports whether it must be scheduled
func (f *DownloadFile) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != domain.StatusPaused && f.status != domain.StatusError {
		return false
	}
	f.status = domain.StatusQueued
	f.errorKind = ""
	if err := f.persistLocked(); err != nil {
		f.failLocked(err)
		return false
	}
	return true
}

// MarkDeleted moves the file to DELETION and stops any transfer
func (f *DownloadFile) MarkDeleted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status == domain.StatusDeletion {
		return false
	}
	f.status = domain.StatusDeletion
	if f.cancel != nil {
		f.cancel()
	}
	if err := f.persistLocked(); err != nil {
		// the in-memory status still wins; cleanup removes the record anyway
		f.logger.Warn("Deletion not persisted", zap.Error(err))
	}
	return true
}

// Cleanup removes the local bytes and the persisted record once the worker has stopped
func (f *DownloadFile) Cleanup() error {
	f.mu.Lock()
	running, done := f.running, f.done
	f.mu.Unlock()
	if running {
		<-done
	}

	if err := f.persistence.Delete(); err != nil {
		return fmt.Errorf("failed to delete local data of %s: %w", f.id, err)
	}
	if err := f.store.DeleteFile(f.batchID, f.id); err != nil {
		return fmt.Errorf("failed to delete file record %s: %w", f.id, err)
	}
	return nil
}
