package domain

// DownloadStatus represents the status of a download batch or of one of its files
type DownloadStatus string

const (
	StatusQueued      DownloadStatus = "QUEUED"
	StatusDownloading DownloadStatus = "DOWNLOADING"
	StatusPaused      DownloadStatus = "PAUSED"
	StatusError       DownloadStatus = "ERROR"
	StatusDeletion    DownloadStatus = "DELETION"
	StatusDownloaded  DownloadStatus = "DOWNLOADED"
)

// statusByRawValue is the exhaustive raw value table used when reading persisted
// or legacy records.
var statusByRawValue = map[string]DownloadStatus{
	"QUEUED":      StatusQueued,
	"DOWNLOADING": StatusDownloading,
	"PAUSED":      StatusPaused,
	"ERROR":       StatusError,
	"DELETION":    StatusDeletion,
	"DOWNLOADED":  StatusDownloaded,
}

// ParseStatus converts a raw value back into a DownloadStatus
func ParseStatus(raw string) (DownloadStatus, error) {
	status, ok := statusByRawValue[raw]
	if !ok {
		return "", &UnknownStatusError{Raw: raw}
	}
	return status, nil
}

// RawValue returns the persisted form of the status
func (s DownloadStatus) RawValue() string {
	return string(s)
}

// IsTerminal reports whether no forward transition happens without an external command
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusDownloaded || s == StatusError || s == StatusDeletion
}

// AggregateStatus computes a batch status from the statuses of its files.
// Precedence: DELETION > ERROR > PAUSED > DOWNLOADING > QUEUED; DOWNLOADED only
// when every file is DOWNLOADED.
func AggregateStatus(statuses []DownloadStatus) DownloadStatus {
	if len(statuses) == 0 {
		return StatusQueued
	}

	var deletion, failed, paused, downloading bool
	allDownloaded := true
	for _, s := range statuses {
		switch s {
		case StatusDeletion:
			deletion = true
		case StatusError:
			failed = true
		case StatusPaused:
			paused = true
		case StatusDownloading:
			downloading = true
		}
		if s != StatusDownloaded {
			allDownloaded = false
		}
	}

	switch {
	case deletion:
		return StatusDeletion
	case failed:
		return StatusError
	case paused:
		return StatusPaused
	case downloading:
		return StatusDownloading
	case allDownloaded:
		return StatusDownloaded
	default:
		return StatusQueued
	}
}

// BatchStatus is the snapshot of a batch handed to observers
type BatchStatus struct {
	BatchID              DownloadBatchID `json:"batch_id"`
	Title                string          `json:"title"`
	Status               DownloadStatus  `json:"status"`
	CreatedAtMillis      int64           `json:"created_at_millis"`
	BytesDownloaded      int64           `json:"bytes_downloaded"`
	BytesTotalSize       int64           `json:"bytes_total_size"`
	PercentageDownloaded int             `json:"percentage_downloaded"`
	ErrorKind            ErrorKind       `json:"error_kind,omitempty"`
	Files                []FileStatus    `json:"files,omitempty"`
}

// FileStatus is the snapshot of a single file inside a BatchStatus
type FileStatus struct {
	FileID          DownloadFileID `json:"file_id"`
	NetworkAddress  string         `json:"network_address"`
	FilePath        string         `json:"file_path"`
	Status          DownloadStatus `json:"status"`
	TotalSize       int64          `json:"total_size"`
	BytesDownloaded int64          `json:"bytes_downloaded"`
	ErrorKind       ErrorKind      `json:"error_kind,omitempty"`
}

// Percentage returns the downloaded percentage over the files with a known size.
// Files whose size is still unknown carry no weight.
func Percentage(files []FileStatus) (downloaded, total int64, percent int) {
	for _, f := range files {
		if f.TotalSize <= 0 {
			continue
		}
		downloaded += f.BytesDownloaded
		total += f.TotalSize
	}
	if total == 0 {
		return downloaded, total, 0
	}
	return downloaded, total, int(downloaded * 100 / total)
}

// BatchObserver receives throttled batch status notifications
type BatchObserver func(status BatchStatus)
