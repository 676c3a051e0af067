package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []DownloadStatus
		expected DownloadStatus
	}{
		{"deletion wins", []DownloadStatus{StatusDownloaded, StatusError, StatusDeletion}, StatusDeletion},
		{"error over paused", []DownloadStatus{StatusPaused, StatusError, StatusDownloading}, StatusError},
		{"paused over downloading", []DownloadStatus{StatusDownloading, StatusPaused}, StatusPaused},
		{"downloading over queued", []DownloadStatus{StatusQueued, StatusDownloading}, StatusDownloading},
		{"partially downloaded is queued", []DownloadStatus{StatusDownloaded, StatusQueued}, StatusQueued},
		{"all downloaded", []DownloadStatus{StatusDownloaded, StatusDownloaded}, StatusDownloaded},
		{"all queued", []DownloadStatus{StatusQueued}, StatusQueued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AggregateStatus(tt.statuses))
		})
	}
}

func TestParseStatus(t *testing.T) {
	for raw, status := range statusByRawValue {
		parsed, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
		assert.Equal(t, raw, parsed.RawValue())
	}

	_, err := ParseStatus("COMPLETED")
	require.Error(t, err)
	var unknown *UnknownStatusError
	assert.True(t, errors.As(err, &unknown))
	assert.Equal(t, "COMPLETED", unknown.Raw)
	assert.Equal(t, ErrorUnknownStatus, KindOf(err, ErrorStorage))
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusDownloaded.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
	assert.True(t, StatusDeletion.IsTerminal())
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusDownloading.IsTerminal())
	assert.False(t, StatusPaused.IsTerminal())
}

func TestPercentage_IgnoresUnknownSizes(t *testing.T) {
	files := []FileStatus{
		{TotalSize: 1000, BytesDownloaded: 500},
		{TotalSize: 0, BytesDownloaded: 0},
		{TotalSize: 1000, BytesDownloaded: 1000},
	}

	downloaded, total, percent := Percentage(files)

	assert.Equal(t, int64(1500), downloaded)
	assert.Equal(t, int64(2000), total)
	assert.Equal(t, 75, percent)
}

func TestPercentage_NothingKnown(t *testing.T) {
	_, total, percent := Percentage([]FileStatus{{}})
	assert.Zero(t, total)
	assert.Zero(t, percent)
}

func TestDownloadError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDownloadError(ErrorNetwork, "fetch", cause)

	assert.Equal(t, "NETWORK_ERROR during fetch: connection reset", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, err.Retryable())
	assert.Equal(t, ErrorNetwork, KindOf(err, ErrorStorage))
	assert.Equal(t, ErrorStorage, KindOf(cause, ErrorStorage))

	assert.False(t, NewDownloadError(ErrorMigrationRead, "read", nil).Retryable())
}

func TestBatch_DownloadFrom(t *testing.T) {
	batch := NewBatch("Movies").
		DownloadFrom("https://example.com/files/a.mp4", "").
		DownloadFrom("https://example.com/files/b.mp4", "custom/b.mp4")

	assert.NotEmpty(t, batch.ID)
	require.Len(t, batch.Files, 2)
	assert.NotEqual(t, batch.Files[0].ID, batch.Files[1].ID)
	assert.Equal(t, NewDownloadFileID("https://example.com/files/a.mp4", ""), batch.Files[0].ID)
	assert.NoError(t, batch.Validate())
}

func TestBatch_Validate(t *testing.T) {
	empty := NewBatch("empty")
	assert.ErrorIs(t, empty.Validate(), ErrInvalidBatch)

	dup := NewBatch("dup").
		DownloadFrom("https://example.com/a.bin", "").
		DownloadFrom("https://example.com/a.bin", "")
	assert.ErrorIs(t, dup.Validate(), ErrInvalidBatch)

	noName := NewBatch("no name").DownloadFrom("https://example.com/", "")
	assert.ErrorIs(t, noName.Validate(), ErrInvalidBatch)

	explicit := NewBatch("explicit").DownloadFrom("https://example.com/", "index.html")
	assert.NoError(t, explicit.Validate())
}

func TestBatch_ValidateRejectsEscapingPaths(t *testing.T) {
	tests := []struct {
		path  string
		valid bool
	}{
		{path: "movies/a.mp4", valid: true},
		{path: "movies/../a.mp4", valid: true},
		{path: "/srv/media/a.mp4", valid: true},
		{path: "../a.mp4", valid: false},
		{path: "movies/../../a.mp4", valid: false},
		{path: "..", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			batch := NewBatch("paths").DownloadFrom("https://example.com/a.mp4", tt.path)
			err := batch.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidBatch)
			}
		})
	}
}

func TestResolveFilePath(t *testing.T) {
	tests := []struct {
		name     string
		baseDir  string
		filePath string
		address  string
		want     string
		wantErr  bool
	}{
		{name: "derived", baseDir: "/downloads", address: "https://example.com/a/b.bin", want: "/downloads/b.bin"},
		{name: "relative", baseDir: "/downloads", filePath: "sub/c.bin", address: "https://example.com/x", want: "/downloads/sub/c.bin"},
		{name: "absolute", baseDir: "/downloads", filePath: "/data/c.bin", address: "https://example.com/x", want: "/data/c.bin"},
		{name: "no base dir", filePath: "c.bin", address: "https://example.com/x", want: "c.bin"},
		{name: "no name", baseDir: "/downloads", address: "https://example.com/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveFilePath(tt.baseDir, tt.filePath, tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatch_Normalize(t *testing.T) {
	batch := &Batch{Files: []BatchFile{{NetworkAddress: "https://example.com/data/archive.zip"}}}

	batch.Normalize()

	assert.NotEmpty(t, batch.ID)
	assert.NotEmpty(t, batch.Files[0].ID)
	assert.Equal(t, "archive.zip", batch.Title)
}

func TestFileNameFromAddress(t *testing.T) {
	tests := []struct {
		address  string
		expected string
		wantErr  bool
	}{
		{"https://example.com/files/movie.mp4", "movie.mp4", false},
		{"https://example.com/files/movie.mp4?token=abc", "movie.mp4", false},
		{"https://example.com/files/dir/", "dir", false},
		{"https://example.com", "", true},
		{"https://example.com/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			name, err := FileNameFromAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestDownloadStats_Add(t *testing.T) {
	var stats DownloadStats
	stats.Add(StatusQueued)
	stats.Add(StatusError)
	stats.Add(StatusDownloaded)
	stats.Add(StatusDownloaded)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Queued)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(2), stats.Downloaded)
}
