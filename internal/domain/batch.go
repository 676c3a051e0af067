package domain

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DownloadBatchID identifies a batch, globally unique
type DownloadBatchID string

// DownloadFileID identifies a file, unique within its batch
type DownloadFileID string

// Batch is a submission request: a titled group of files to download
type Batch struct {
	ID    DownloadBatchID `json:"id"`
	Title string          `json:"title"`
	Files []BatchFile     `json:"files"`
}

// BatchFile is one network address to download, with an optional destination path
type BatchFile struct {
	ID             DownloadFileID `json:"id,omitempty"`
	NetworkAddress string         `json:"network_address"`
	FilePath       string         `json:"file_path,omitempty"`
}

// NewBatch creates a batch request with a fresh identifier
func NewBatch(title string) *Batch {
	return &Batch{
		ID:    DownloadBatchID(uuid.New().String()),
		Title: title,
	}
}

// DownloadFrom appends a file to the batch. An empty filePath means the name is
// taken from the last segment of the address.
func (b *Batch) DownloadFrom(networkAddress, filePath string) *Batch {
	b.Files = append(b.Files, BatchFile{
		ID:             NewDownloadFileID(networkAddress, filePath),
		NetworkAddress: networkAddress,
		FilePath:       filePath,
	})
	return b
}

// NewDownloadFileID derives a stable file identifier from its address and path
func NewDownloadFileID(networkAddress, filePath string) DownloadFileID {
	return DownloadFileID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(networkAddress+"|"+filePath)).String())
}

// Normalize fills in missing identifiers and the title
func (b *Batch) Normalize() {
	if b.ID == "" {
		b.ID = DownloadBatchID(uuid.New().String())
	}
	for i := range b.Files {
		if b.Files[i].ID == "" {
			b.Files[i].ID = NewDownloadFileID(b.Files[i].NetworkAddress, b.Files[i].FilePath)
		}
	}
	if b.Title == "" && len(b.Files) > 0 {
		if name, err := FileNameFromAddress(b.Files[0].NetworkAddress); err == nil {
			b.Title = name
		}
	}
}

// Validate rejects batches that can never be downloaded
func (b *Batch) Validate() error {
	if len(b.Files) == 0 {
		return fmt.Errorf("%w: batch %s has no files", ErrInvalidBatch, b.ID)
	}

	seen := make(map[DownloadFileID]struct{}, len(b.Files))
	for _, f := range b.Files {
		if f.NetworkAddress == "" {
			return fmt.Errorf("%w: file %s has no network address", ErrInvalidBatch, f.ID)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: duplicate file id %s", ErrInvalidBatch, f.ID)
		}
		seen[f.ID] = struct{}{}

		if f.FilePath == "" {
			if _, err := FileNameFromAddress(f.NetworkAddress); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidBatch, err)
			}
		} else if !filepath.IsAbs(f.FilePath) && !filepath.IsLocal(f.FilePath) {
			return fmt.Errorf("%w: file path %q leaves the download directory", ErrInvalidBatch, f.FilePath)
		}
	}
	return nil
}

// ResolveFilePath returns filePath, or the name derived from networkAddress
// when it is empty. Relative results are placed under baseDir.
func ResolveFilePath(baseDir, filePath, networkAddress string) (string, error) {
	p := filePath
	if p == "" {
		name, err := FileNameFromAddress(networkAddress)
		if err != nil {
			return "", err
		}
		p = name
	}
	if filepath.IsAbs(p) || baseDir == "" {
		return p, nil
	}
	return filepath.Join(baseDir, p), nil
}

// FileNameFromAddress extracts the trailing path segment of a network address
func FileNameFromAddress(networkAddress string) (string, error) {
	p := networkAddress
	if u, err := url.Parse(networkAddress); err == nil && (u.Scheme != "" || u.Path != "") {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	name := path.Base(p)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive a file name from %q", networkAddress)
	}
	return name, nil
}
