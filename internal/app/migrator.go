package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/yourusername/batch-download-go/internal/domain"
	"github.com/yourusername/batch-download-go/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// migrationLock serializes migration runs across every Migrator in the process
var migrationLock sync.Mutex

const migrationKey = "legacy-migration"

// completedMarkerSuffix names the file written next to the legacy database once
// its batches were imported, so a restart does not import them again
const completedMarkerSuffix = ".migrated"

// Migrator imports batches recorded by the legacy schema into the current
// stores. Concurrent starts attach to the run in flight; a completed
// migration never reads the legacy database again.
type Migrator struct {
	legacyPath  string
	open        domain.LegacyStoreOpener
	writer      domain.MigrationWriter
	multiLogger *logger.MultiLogger
	logger      *zap.Logger

	group singleflight.Group

	mu        sync.Mutex
	status    domain.MigrationStatus
	observers []domain.MigrationObserver
}

// NewMigrator creates a migrator for the legacy database at legacyPath
func NewMigrator(
	legacyPath string,
	open domain.LegacyStoreOpener,
	writer domain.MigrationWriter,
	multiLogger *logger.MultiLogger,
	logger *zap.Logger,
) *Migrator {
	return &Migrator{
		legacyPath:  legacyPath,
		open:        open,
		writer:      writer,
		multiLogger: multiLogger,
		logger:      logger,
		status:      domain.MigrationStatus{Status: domain.MigrationNotMigrated},
	}
}

// Status returns the latest migration status
func (m *Migrator) Status() domain.MigrationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe registers an observer for every later status change
func (m *Migrator) Subscribe(observer domain.MigrationObserver) {
	if observer == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, observer)
}

// StartMigration starts the migration in the background, or attaches to the
// one in flight. When the migration already completed the observer is told
// right away and nothing runs.
func (m *Migrator) StartMigration(ctx context.Context, observer domain.MigrationObserver) {
	m.Subscribe(observer)

	if status := m.Status(); status.Status == domain.MigrationComplete {
		if observer != nil {
			observer(status)
		}
		return
	}

	go func() {
		if _, err := m.Migrate(ctx); err != nil {
			m.logger.Warn("Migration did not complete", zap.Error(err))
		}
	}()
}

// Migrate runs the migration and returns its final status. Callers arriving
// while a run is in flight share its result.
func (m *Migrator) Migrate(ctx context.Context) (domain.MigrationStatus, error) {
	result, err, shared := m.group.Do(migrationKey, func() (interface{}, error) {
		return m.run(ctx)
	})
	if shared {
		m.logger.Debug("Attached to running migration")
	}
	return result.(domain.MigrationStatus), err
}

func (m *Migrator) run(ctx context.Context) (domain.MigrationStatus, error) {
	migrationLock.Lock()
	defer migrationLock.Unlock()

	if status := m.Status(); status.Status == domain.MigrationComplete {
		return status, nil
	}

	if _, err := os.Stat(m.legacyPath + completedMarkerSuffix); err == nil {
		m.logger.Info("Legacy database already migrated", zap.String("path", m.legacyPath))
		return m.setStatus(domain.MigrationStatus{Status: domain.MigrationComplete, PercentageMigrated: 100}), nil
	}

	m.setStatus(domain.MigrationStatus{Status: domain.MigrationMigrating})

	if _, err := os.Stat(m.legacyPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Info("No legacy database to migrate", zap.String("path", m.legacyPath))
			return m.setStatus(domain.MigrationStatus{Status: domain.MigrationDBNotFound}), nil
		}
		return m.failed(domain.NewDownloadError(domain.ErrorMigrationRead, "stat_legacy", err), 0)
	}

	store, err := m.open(m.legacyPath)
	if err != nil {
		return m.failed(domain.NewDownloadError(domain.ErrorMigrationRead, "open_legacy", err), 0)
	}
	defer store.Close()

	legacyBatches, err := store.ReadBatches()
	if err != nil {
		return m.failed(domain.NewDownloadError(domain.ErrorMigrationRead, "read_legacy", err), 0)
	}

	m.logger.Info("Migrating legacy batches", zap.Int("batches", len(legacyBatches)))

	total := len(legacyBatches)
	for i, legacyBatch := range legacyBatches {
		if err := ctx.Err(); err != nil {
			return m.failed(domain.NewDownloadError(domain.ErrorMigrationWrite, "migrate", err), m.Status().PercentageMigrated)
		}

		batchRecord, fileRecords, err := convertLegacyBatch(legacyBatch)
		if err != nil {
			return m.failed(domain.NewDownloadError(domain.ErrorMigrationRead, "convert", err), m.Status().PercentageMigrated)
		}
		if err := m.writer.SaveMigratedBatch(batchRecord, fileRecords); err != nil {
			return m.failed(domain.NewDownloadError(domain.ErrorMigrationWrite, "save_batch", err), m.Status().PercentageMigrated)
		}

		if m.multiLogger != nil {
			m.multiLogger.LogMigrationEvent("batch_migrated",
				zap.String("batch_id", legacyBatch.ID),
				zap.Int("files", len(fileRecords)))
		}
		m.setStatus(domain.MigrationStatus{
			Status:             domain.MigrationMigrating,
			PercentageMigrated: (i + 1) * 100 / total,
		})
	}

	m.logger.Info("Migration complete", zap.Int("batches", total))
	if err := os.WriteFile(m.legacyPath+completedMarkerSuffix, nil, 0644); err != nil {
		m.logger.Warn("Failed to record completed migration", zap.Error(err))
	}
	return m.setStatus(domain.MigrationStatus{Status: domain.MigrationComplete, PercentageMigrated: 100}), nil
}

func (m *Migrator) failed(err error, percentage int) (domain.MigrationStatus, error) {
	m.logger.Error("Migration failed", zap.Error(err))
	if m.multiLogger != nil {
		m.multiLogger.LogAppError("Migration failed", zap.Error(err))
	}
	status := m.setStatus(domain.MigrationStatus{
		Status:             domain.MigrationError,
		PercentageMigrated: percentage,
		ErrorKind:          domain.KindOf(err, domain.ErrorMigrationRead),
	})
	return status, err
}

// setStatus records the status and tells every observer, in registration order
func (m *Migrator) setStatus(status domain.MigrationStatus) domain.MigrationStatus {
	m.mu.Lock()
	m.status = status
	observers := make([]domain.MigrationObserver, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	if m.multiLogger != nil {
		m.multiLogger.LogMigrationEvent("migration_status",
			zap.String("status", string(status.Status)),
			zap.Int("percentage", status.PercentageMigrated))
	}
	for _, observer := range observers {
		observer(status)
	}
	return status
}

// convertLegacyBatch maps a legacy batch onto current records. Statuses map
// one to one; an unknown raw status fails the conversion, as does a file
// without a path whose name cannot be derived from its address.
func convertLegacyBatch(legacy domain.LegacyBatch) (*domain.BatchRecord, []*domain.FileRecord, error) {
	status, err := domain.ParseStatus(legacy.Status)
	if err != nil {
		return nil, nil, fmt.Errorf("batch %s: %w", legacy.ID, err)
	}

	batchID := domain.DownloadBatchID(legacy.ID)
	batchRecord := &domain.BatchRecord{
		ID:              batchID,
		Title:           legacy.Title,
		Status:          status,
		CreatedAtMillis: legacy.CreatedAtMillis,
	}

	fileRecords := make([]*domain.FileRecord, 0, len(legacy.Files))
	for _, file := range legacy.Files {
		fileStatus, err := domain.ParseStatus(file.Status)
		if err != nil {
			return nil, nil, fmt.Errorf("file %s of batch %s: %w", file.ID, legacy.ID, err)
		}
		filePath := file.FilePath
		if filePath == "" {
			// placed under the download directory when the batch is loaded
			if filePath, err = domain.FileNameFromAddress(file.NetworkAddress); err != nil {
				return nil, nil, fmt.Errorf("file %s of batch %s: %w", file.ID, legacy.ID, err)
			}
		}
		fileRecords = append(fileRecords, &domain.FileRecord{
			BatchID:         batchID,
			FileID:          domain.DownloadFileID(file.ID),
			NetworkAddress:  file.NetworkAddress,
			FilePath:        filePath,
			Status:          fileStatus,
			TotalSize:       file.TotalSize,
			BytesDownloaded: file.BytesDownloaded,
		})
	}
	return batchRecord, fileRecords, nil
}
