package app

import (
	"path/filepath"
	"time"

	"github.com/yourusername/batch-download-go/internal/domain"
	"go.uber.org/zap"
)

// BatchFactory builds DownloadBatch instances for new submissions and for
// batches reconstructed from persisted records
type BatchFactory struct {
	ops         domain.FileOperations
	repo        domain.DownloadRepository
	baseDir     string
	newThrottle func() *CallbackThrottle
	logger      *zap.Logger
}

// NewBatchFactory creates a new batch factory
func NewBatchFactory(
	ops domain.FileOperations,
	repo domain.DownloadRepository,
	baseDir string,
	newThrottle func() *CallbackThrottle,
	logger *zap.Logger,
) *BatchFactory {
	// records keep absolute paths so rebuilding never joins the base twice
	if baseDir != "" {
		if abs, err := filepath.Abs(baseDir); err == nil {
			baseDir = abs
		}
	}
	return &BatchFactory{
		ops:         ops,
		repo:        repo,
		baseDir:     baseDir,
		newThrottle: newThrottle,
		logger:      logger,
	}
}

// Records converts a validated batch request into the records to persist.
// Every file starts QUEUED with an unknown size.
func (bf *BatchFactory) Records(batch *domain.Batch) (*domain.BatchRecord, []*domain.FileRecord) {
	batchRecord := &domain.BatchRecord{
		ID:              batch.ID,
		Title:           batch.Title,
		Status:          domain.StatusQueued,
		CreatedAtMillis: time.Now().UnixMilli(),
	}

	fileRecords := make([]*domain.FileRecord, 0, len(batch.Files))
	for _, f := range batch.Files {
		fileRecords = append(fileRecords, &domain.FileRecord{
			BatchID:        batch.ID,
			FileID:         f.ID,
			NetworkAddress: f.NetworkAddress,
			FilePath:       bf.resolvePath(f),
			Status:         domain.StatusQueued,
		})
	}
	return batchRecord, fileRecords
}

// resolvePath uses the explicit path when present, otherwise the trailing
// segment of the address. Relative paths live under the base directory.
func (bf *BatchFactory) resolvePath(f domain.BatchFile) string {
	// Validate already guaranteed a name can be derived
	p, _ := domain.ResolveFilePath(bf.baseDir, f.FilePath, f.NetworkAddress)
	return p
}

// Build creates the in-memory batch for the given records. Records imported
// from the legacy database may carry an empty or relative path, which is
// resolved the same way as for new submissions.
func (bf *BatchFactory) Build(batchRecord *domain.BatchRecord, fileRecords []*domain.FileRecord) *DownloadBatch {
	logger := bf.logger.With(zap.String("batch_id", string(batchRecord.ID)))

	files := make([]*DownloadFile, 0, len(fileRecords))
	for _, record := range fileRecords {
		if !filepath.IsAbs(record.FilePath) {
			resolved, err := domain.ResolveFilePath(bf.baseDir, record.FilePath, record.NetworkAddress)
			if err != nil {
				logger.Warn("Cannot resolve file path",
					zap.String("file_id", string(record.FileID)),
					zap.Error(err))
			} else {
				copied := *record
				copied.FilePath = resolved
				record = &copied
			}
		}
		files = append(files, newDownloadFile(record, bf.ops, bf.repo, logger))
	}

	return &DownloadBatch{
		id:              batchRecord.ID,
		title:           batchRecord.Title,
		createdAtMillis: batchRecord.CreatedAtMillis,
		files:           files,
		store:           bf.repo,
		throttle:        bf.newThrottle(),
		logger:          logger,
		status:          batchRecord.Status,
	}
}
