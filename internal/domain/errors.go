package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies download and migration failures
type ErrorKind string

const (
	ErrorNetwork        ErrorKind = "NETWORK_ERROR"
	ErrorFileSize       ErrorKind = "FILE_SIZE_UNKNOWN"
	ErrorStorage        ErrorKind = "STORAGE_ERROR"
	ErrorMigrationRead  ErrorKind = "MIGRATION_READ_ERROR"
	ErrorMigrationWrite ErrorKind = "MIGRATION_WRITE_ERROR"
	ErrorUnknownStatus  ErrorKind = "UNKNOWN_STATUS"
)

var (
	ErrInvalidBatch       = errors.New("invalid batch")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrBatchAlreadyExists = errors.New("batch already exists")
)

// DownloadError is a classified failure of a file transfer or migration step
type DownloadError struct {
	Kind ErrorKind // Classification surfaced through file and batch status
	Op   string    // The operation that failed (e.g. "fetch", "request_size")
	Err  error     // Underlying error, if any
}

// NewDownloadError wraps err with the given kind
func NewDownloadError(kind ErrorKind, op string, err error) *DownloadError {
	return &DownloadError{Kind: kind, Op: op, Err: err}
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s during %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Retryable reports whether resuming can be expected to succeed
func (e *DownloadError) Retryable() bool {
	switch e.Kind {
	case ErrorNetwork, ErrorFileSize, ErrorStorage:
		return true
	default:
		return false
	}
}

// UnknownStatusError is returned when a raw status value has no mapping
type UnknownStatusError struct {
	Raw string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("status %q not supported", e.Raw)
}

// KindOf extracts the ErrorKind carried by err, falling back to fallback
func KindOf(err error, fallback ErrorKind) ErrorKind {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind
	}
	var ue *UnknownStatusError
	if errors.As(err, &ue) {
		return ErrorUnknownStatus
	}
	return fallback
}
