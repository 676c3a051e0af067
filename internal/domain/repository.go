package domain

import (
	"time"
)

// BatchRecord is the persisted form of a download batch
type BatchRecord struct {
	ID              DownloadBatchID `json:"id" gorm:"primaryKey"`
	Title           string          `json:"title"`
	Status          DownloadStatus  `json:"status" gorm:"not null;index"`
	CreatedAtMillis int64           `json:"created_at_millis"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (BatchRecord) TableName() string {
	return "download_batches"
}

// FileRecord is the persisted form of a download file.
// A file id is only unique inside its batch, so both form the key.
type FileRecord struct {
	BatchID         DownloadBatchID `json:"batch_id" gorm:"primaryKey"`
	FileID          DownloadFileID  `json:"file_id" gorm:"primaryKey"`
	NetworkAddress  string          `json:"network_address" gorm:"not null"`
	FilePath        string          `json:"file_path"`
	Status          DownloadStatus  `json:"status" gorm:"not null;index"`
	TotalSize       int64           `json:"total_size"`
	BytesDownloaded int64           `json:"bytes_downloaded"`
	ErrorKind       ErrorKind       `json:"error_kind,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (FileRecord) TableName() string {
	return "download_files"
}

// BatchStore persists batch records.
// Get returns nil, nil when the record is absent; Delete of an absent record is not an error.
type BatchStore interface {
	PutBatch(record *BatchRecord) error
	GetBatch(id DownloadBatchID) (*BatchRecord, error)
	DeleteBatch(id DownloadBatchID) error
	GetAllBatches() ([]*BatchRecord, error)
}

// FileStore persists file records
type FileStore interface {
	PutFile(record *FileRecord) error
	GetFile(batchID DownloadBatchID, fileID DownloadFileID) (*FileRecord, error)
	DeleteFile(batchID DownloadBatchID, fileID DownloadFileID) error
	GetAllFiles() ([]*FileRecord, error)
	GetFilesByBatch(batchID DownloadBatchID) ([]*FileRecord, error)
}

// MigrationWriter stores one converted legacy batch and its files atomically
type MigrationWriter interface {
	SaveMigratedBatch(batch *BatchRecord, files []*FileRecord) error
}

// DownloadRepository is the full metadata persistence used by the engine
type DownloadRepository interface {
	BatchStore
	FileStore
	MigrationWriter
}

// DownloadStats represents batch counts per status
type DownloadStats struct {
	Total       int64 `json:"total"`
	Queued      int64 `json:"queued"`
	Downloading int64 `json:"downloading"`
	Paused      int64 `json:"paused"`
	Failed      int64 `json:"failed"`
	Deletion    int64 `json:"deletion"`
	Downloaded  int64 `json:"downloaded"`
}

// Add counts one batch with the given status
func (s *DownloadStats) Add(status DownloadStatus) {
	s.AddN(status, 1)
}

// AddN counts n batches with the given status
func (s *DownloadStats) AddN(status DownloadStatus, n int64) {
	s.Total += n
	switch status {
	case StatusQueued:
		s.Queued += n
	case StatusDownloading:
		s.Downloading += n
	case StatusPaused:
		s.Paused += n
	case StatusError:
		s.Failed += n
	case StatusDeletion:
		s.Deletion += n
	case StatusDownloaded:
		s.Downloaded += n
	}
}
