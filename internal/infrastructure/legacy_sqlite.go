package infrastructure

import (
	"database/sql"
	"fmt"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/yourusername/batch-download-go/internal/domain"
)

// LegacySQLiteStore reads batches from the database of the previous release.
// The database is opened read-only and never modified.
type LegacySQLiteStore struct {
	db *sql.DB
}

// OpenLegacySQLiteStore opens the legacy database at path in read-only mode
func OpenLegacySQLiteStore(path string) (domain.LegacyStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}
	return &LegacySQLiteStore{db: db}, nil
}

// ReadBatches returns every legacy batch with its files, oldest first
func (s *LegacySQLiteStore) ReadBatches() ([]domain.LegacyBatch, error) {
	rows, err := s.db.Query(`SELECT batch_id, title, status, created_at_millis FROM batches ORDER BY created_at_millis, batch_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.LegacyBatch
	index := make(map[string]int)

	for rows.Next() {
		var batch domain.LegacyBatch
		var title sql.NullString

		if err := rows.Scan(&batch.ID, &title, &batch.Status, &batch.CreatedAtMillis); err != nil {
			return nil, fmt.Errorf("failed to scan legacy batch: %w", err)
		}
		batch.Title = title.String

		index[batch.ID] = len(batches)
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.readFiles(batches, index); err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *LegacySQLiteStore) readFiles(batches []domain.LegacyBatch, index map[string]int) error {
	rows, err := s.db.Query(`SELECT file_id, batch_id, network_address, file_path, total_size, bytes_downloaded, status FROM files ORDER BY batch_id, file_id`)
	if err != nil {
		return fmt.Errorf("failed to query legacy files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var file domain.LegacyFile
		var batchID string
		var filePath sql.NullString
		var totalSize, bytesDownloaded sql.NullInt64

		err := rows.Scan(&file.ID, &batchID, &file.NetworkAddress, &filePath, &totalSize, &bytesDownloaded, &file.Status)
		if err != nil {
			return fmt.Errorf("failed to scan legacy file: %w", err)
		}
		file.FilePath = filePath.String
		file.TotalSize = totalSize.Int64
		file.BytesDownloaded = bytesDownloaded.Int64

		i, ok := index[batchID]
		if !ok {
			// file rows without a batch cannot be imported
			continue
		}
		batches[i].Files = append(batches[i].Files, file)
	}
	return rows.Err()
}

// Close closes the database connection
func (s *LegacySQLiteStore) Close() error {
	return s.db.Close()
}
