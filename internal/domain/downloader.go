//go:generate mockgen -destination=./mocks/domain.go . FileDownloader,FileSizeRequester,FilePersistence,LegacyStore

package domain

import "context"

// ChunkHandler receives the bytes of a transfer in order. The slice is only
// valid for the duration of the call. Returning an error aborts the transfer.
type ChunkHandler func(chunk []byte) error

// FileDownloader streams the bytes of one remote file
type FileDownloader interface {
	// Fetch streams the file from offset onwards, calling onChunk for every chunk.
	// Transport failures are reported as *DownloadError with kind NETWORK_ERROR.
	// Cancelling ctx stops the transfer.
	Fetch(ctx context.Context, networkAddress string, offset int64, onChunk ChunkHandler) error
}

// FileSizeRequester looks up the total byte size of a remote file
type FileSizeRequester interface {
	// RequestFileSize fails with kind FILE_SIZE_UNKNOWN if the size cannot be obtained
	RequestFileSize(ctx context.Context, networkAddress string) (int64, error)
}

// FilePersistence writes the downloaded bytes of a single file to local storage
type FilePersistence interface {
	// Write appends chunk and returns the new length
	Write(chunk []byte) (int64, error)

	// CurrentLength returns the number of bytes already written
	CurrentLength() (int64, error)

	// Truncate discards everything after size
	Truncate(size int64) error

	// Delete removes all written bytes; deleting twice is not an error
	Delete() error

	// Close releases any open handle, keeping the data
	Close() error
}

// FilePersistenceFactory creates the persistence bound to a resolved file path
type FilePersistenceFactory func(filePath string) FilePersistence

// FileOperations bundles the transfer collaborators handed to every file
type FileOperations struct {
	Downloader     FileDownloader
	SizeRequester  FileSizeRequester
	NewPersistence FilePersistenceFactory
}
