package infrastructure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/yourusername/batch-download-go/internal/domain"
)

// FilePersistence appends downloaded bytes to a file on the local disk.
// The file is opened lazily on the first write and reopened after Close.
type FilePersistence struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewFilePersistence returns a factory binding a FilePersistence to each resolved path
func NewFilePersistence() domain.FilePersistenceFactory {
	return func(filePath string) domain.FilePersistence {
		return &FilePersistence{path: filePath}
	}
}

// Write appends chunk to the file and returns its new length
func (p *FilePersistence) Write(chunk []byte) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.openLocked(); err != nil {
		return 0, err
	}
	if _, err := p.file.Write(chunk); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", p.path, err)
	}

	info, err := p.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", p.path, err)
	}
	return info.Size(), nil
}

func (p *FilePersistence) openLocked() error {
	if p.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p.path, err)
	}
	file, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p.path, err)
	}
	p.file = file
	return nil
}

// CurrentLength returns the size of the file, zero if it does not exist yet
func (p *FilePersistence) CurrentLength() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", p.path, err)
	}
	return info.Size(), nil
}

// Truncate cuts the file down to size
func (p *FilePersistence) Truncate(size int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Truncate(p.path, size); err != nil {
		if errors.Is(err, fs.ErrNotExist) && size == 0 {
			return nil
		}
		return fmt.Errorf("failed to truncate %s: %w", p.path, err)
	}
	return nil
}

// Delete closes and removes the file
func (p *FilePersistence) Delete() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.closeLocked(); err != nil {
		return err
	}
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", p.path, err)
	}
	return nil
}

// Close releases the open handle, if any
func (p *FilePersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *FilePersistence) closeLocked() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", p.path, err)
	}
	return nil
}
