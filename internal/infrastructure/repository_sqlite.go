package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/batch-download-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteDownloadRepository implements DownloadRepository using SQLite
type SQLiteDownloadRepository struct {
	db *gorm.DB
}

// NewSQLiteDownloadRepository creates a new SQLite repository
func NewSQLiteDownloadRepository(dbPath string) (*SQLiteDownloadRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.BatchRecord{}, &domain.FileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteDownloadRepository{db: db}, nil
}

// PutBatch inserts or replaces a batch record
func (r *SQLiteDownloadRepository) PutBatch(record *domain.BatchRecord) error {
	return r.db.Save(record).Error
}

// GetBatch finds a batch record by ID, nil when absent
func (r *SQLiteDownloadRepository) GetBatch(id domain.DownloadBatchID) (*domain.BatchRecord, error) {
	var record domain.BatchRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// DeleteBatch deletes a batch record by ID
func (r *SQLiteDownloadRepository) DeleteBatch(id domain.DownloadBatchID) error {
	return r.db.Delete(&domain.BatchRecord{}, "id = ?", id).Error
}

// GetAllBatches returns every batch record, oldest first
func (r *SQLiteDownloadRepository) GetAllBatches() ([]*domain.BatchRecord, error) {
	var records []*domain.BatchRecord
	err := r.db.Order("created_at_millis ASC").Find(&records).Error
	return records, err
}

// PutFile inserts or replaces a file record
func (r *SQLiteDownloadRepository) PutFile(record *domain.FileRecord) error {
	return r.db.Save(record).Error
}

// GetFile finds a file record, nil when absent
func (r *SQLiteDownloadRepository) GetFile(batchID domain.DownloadBatchID, fileID domain.DownloadFileID) (*domain.FileRecord, error) {
	var record domain.FileRecord
	err := r.db.First(&record, "batch_id = ? AND file_id = ?", batchID, fileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// DeleteFile deletes a file record
func (r *SQLiteDownloadRepository) DeleteFile(batchID domain.DownloadBatchID, fileID domain.DownloadFileID) error {
	return r.db.Delete(&domain.FileRecord{}, "batch_id = ? AND file_id = ?", batchID, fileID).Error
}

// GetAllFiles returns every file record
func (r *SQLiteDownloadRepository) GetAllFiles() ([]*domain.FileRecord, error) {
	var records []*domain.FileRecord
	err := r.db.Order("batch_id, file_id").Find(&records).Error
	return records, err
}

// GetFilesByBatch returns the file records of one batch
func (r *SQLiteDownloadRepository) GetFilesByBatch(batchID domain.DownloadBatchID) ([]*domain.FileRecord, error) {
	var records []*domain.FileRecord
	err := r.db.Where("batch_id = ?", batchID).Order("file_id").Find(&records).Error
	return records, err
}

// SaveMigratedBatch writes a converted legacy batch and its files in one transaction.
// Re-running a migration overwrites the records it wrote before.
func (r *SQLiteDownloadRepository) SaveMigratedBatch(batch *domain.BatchRecord, files []*domain.FileRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(batch).Error; err != nil {
			return fmt.Errorf("failed to save batch %s: %w", batch.ID, err)
		}
		if len(files) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&files).Error; err != nil {
			return fmt.Errorf("failed to save files of batch %s: %w", batch.ID, err)
		}
		return nil
	})
}

// GetStats returns batch counts per persisted status
func (r *SQLiteDownloadRepository) GetStats() (*domain.DownloadStats, error) {
	statusCounts := []struct {
		Status domain.DownloadStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.BatchRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	stats := &domain.DownloadStats{}
	for _, sc := range statusCounts {
		stats.AddN(sc.Status, sc.Count)
	}
	return stats, nil
}

// Close closes the database connection
func (r *SQLiteDownloadRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
