package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/batch-download-go/internal/domain"
	mock_domain "github.com/yourusername/batch-download-go/internal/domain/mocks"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const testAddress = "https://example.com/files/data.bin"

func queuedRecord() *domain.FileRecord {
	return &domain.FileRecord{
		BatchID:        "batch-1",
		FileID:         "file-1",
		NetworkAddress: testAddress,
		FilePath:       "/downloads/data.bin",
		Status:         domain.StatusQueued,
	}
}

func newTestFile(record *domain.FileRecord, ops domain.FileOperations, repo *memRepo) *DownloadFile {
	_ = repo.PutFile(record)
	return newDownloadFile(record, ops, repo, zap.NewNop())
}

// updateLog records what observers saw together with what was persisted at that moment
type updateLog struct {
	mu        sync.Mutex
	seen      []domain.FileStatus
	persisted []domain.FileRecord
}

func (l *updateLog) onUpdate(repo *memRepo) func(*DownloadFile) {
	return func(f *DownloadFile) {
		snapshot := f.Snapshot()
		record, _ := repo.GetFile(f.batchID, f.ID())
		l.mu.Lock()
		defer l.mu.Unlock()
		l.seen = append(l.seen, snapshot)
		if record != nil {
			l.persisted = append(l.persisted, *record)
		}
	}
}

func TestDownloadFile_Completes(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	disk := newMemDisk()
	repo := newMemRepo()
	file := newTestFile(queuedRecord(), server.ops(disk), repo)

	log := &updateLog{}
	file.Download(context.Background(), log.onUpdate(repo))

	snapshot := file.Snapshot()
	assert.Equal(t, domain.StatusDownloaded, snapshot.Status)
	assert.Equal(t, int64(10), snapshot.TotalSize)
	assert.Equal(t, int64(10), snapshot.BytesDownloaded)

	data, _ := disk.get("/downloads/data.bin")
	assert.Equal(t, "0123456789", string(data))

	record, err := repo.GetFile("batch-1", "file-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDownloaded, record.Status)
	assert.Equal(t, int64(10), record.BytesDownloaded)
}

func TestDownloadFile_PersistsBeforeNotifying(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	repo := newMemRepo()
	file := newTestFile(queuedRecord(), server.ops(newMemDisk()), repo)

	log := &updateLog{}
	file.Download(context.Background(), log.onUpdate(repo))

	require.NotEmpty(t, log.seen)
	require.Len(t, log.persisted, len(log.seen))
	for i, seen := range log.seen {
		assert.Equal(t, seen.Status, log.persisted[i].Status)
		assert.Equal(t, seen.BytesDownloaded, log.persisted[i].BytesDownloaded)
	}
	assert.Equal(t, domain.StatusDownloading, log.seen[0].Status)
	assert.Equal(t, domain.StatusDownloaded, log.seen[len(log.seen)-1].Status)
}

func TestDownloadFile_SizeUnknown(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	server.sizeErr = errors.New("HEAD not allowed")
	repo := newMemRepo()
	file := newTestFile(queuedRecord(), server.ops(newMemDisk()), repo)

	file.Download(context.Background(), func(*DownloadFile) {})

	snapshot := file.Snapshot()
	assert.Equal(t, domain.StatusError, snapshot.Status)
	assert.Equal(t, domain.ErrorFileSize, snapshot.ErrorKind)
	assert.Empty(t, server.fetchOffsets())

	record, _ := repo.GetFile("batch-1", "file-1")
	assert.Equal(t, domain.ErrorFileSize, record.ErrorKind)
}

func TestDownloadFile_NetworkFailureKeepsBytes(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	server.failAfter[testAddress] = 4
	repo := newMemRepo()
	file := newTestFile(queuedRecord(), server.ops(newMemDisk()), repo)

	file.Download(context.Background(), func(*DownloadFile) {})

	snapshot := file.Snapshot()
	assert.Equal(t, domain.StatusError, snapshot.Status)
	assert.Equal(t, domain.ErrorNetwork, snapshot.ErrorKind)
	assert.Equal(t, int64(4), snapshot.BytesDownloaded)

	record, _ := repo.GetFile("batch-1", "file-1")
	assert.Equal(t, int64(4), record.BytesDownloaded)
}

func TestDownloadFile_StorageFailure(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	ops := server.ops(newMemDisk())
	ops.NewPersistence = func(filePath string) domain.FilePersistence {
		return &memPersistence{disk: newMemDisk(), path: filePath, writeErr: errors.New("read-only file system")}
	}
	file := newTestFile(queuedRecord(), ops, newMemRepo())

	file.Download(context.Background(), func(*DownloadFile) {})

	assert.Equal(t, domain.StatusError, file.Status())
	assert.Equal(t, domain.ErrorStorage, file.Snapshot().ErrorKind)
}

func TestDownloadFile_MoreBytesThanExpected(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	record := queuedRecord()
	record.TotalSize = 6
	file := newTestFile(record, server.ops(newMemDisk()), newMemRepo())

	file.Download(context.Background(), func(*DownloadFile) {})

	snapshot := file.Snapshot()
	assert.Equal(t, domain.StatusError, snapshot.Status)
	assert.Equal(t, domain.ErrorStorage, snapshot.ErrorKind)
	assert.LessOrEqual(t, snapshot.BytesDownloaded, snapshot.TotalSize)
}

func TestDownloadFile_TruncatesUnpersistedBytes(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	disk := newMemDisk()
	disk.set("/downloads/data.bin", []byte("0123XX"))
	record := queuedRecord()
	record.TotalSize = 10
	record.BytesDownloaded = 4
	file := newTestFile(record, server.ops(disk), newMemRepo())

	file.Download(context.Background(), func(*DownloadFile) {})

	assert.Equal(t, domain.StatusDownloaded, file.Status())
	assert.Equal(t, []int64{4}, server.fetchOffsets())
	data, _ := disk.get("/downloads/data.bin")
	assert.Equal(t, "0123456789", string(data))
}

func TestDownloadFile_LocalDataShorterThanRecord(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	disk := newMemDisk()
	disk.set("/downloads/data.bin", []byte("01"))
	record := queuedRecord()
	record.TotalSize = 10
	record.BytesDownloaded = 4
	file := newTestFile(record, server.ops(disk), newMemRepo())

	file.Download(context.Background(), func(*DownloadFile) {})

	assert.Equal(t, domain.StatusDownloaded, file.Status())
	assert.Equal(t, []int64{2}, server.fetchOffsets())
	data, _ := disk.get("/downloads/data.bin")
	assert.Equal(t, "0123456789", string(data))
}

func mockOps(ctrl *gomock.Controller, persistence domain.FilePersistence) (domain.FileOperations, *mock_domain.MockFileDownloader, *mock_domain.MockFileSizeRequester) {
	downloader := mock_domain.NewMockFileDownloader(ctrl)
	sizeRequester := mock_domain.NewMockFileSizeRequester(ctrl)
	return domain.FileOperations{
		Downloader:     downloader,
		SizeRequester:  sizeRequester,
		NewPersistence: func(string) domain.FilePersistence { return persistence },
	}, downloader, sizeRequester
}

func TestDownloadFile_StreamsChunksThroughCollaborators(t *testing.T) {
	ctrl := gomock.NewController(t)
	persistence := mock_domain.NewMockFilePersistence(ctrl)
	ops, downloader, sizeRequester := mockOps(ctrl, persistence)

	var written int64
	sizeRequester.EXPECT().RequestFileSize(gomock.Any(), testAddress).Return(int64(5), nil)
	persistence.EXPECT().CurrentLength().Return(int64(0), nil)
	persistence.EXPECT().Write(gomock.Any()).DoAndReturn(func(chunk []byte) (int64, error) {
		written += int64(len(chunk))
		return written, nil
	}).Times(2)
	persistence.EXPECT().Close().Return(nil)
	downloader.EXPECT().Fetch(gomock.Any(), testAddress, int64(0), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ int64, onChunk domain.ChunkHandler) error {
			if err := onChunk([]byte("abc")); err != nil {
				return err
			}
			return onChunk([]byte("de"))
		})

	repo := newMemRepo()
	file := newTestFile(queuedRecord(), ops, repo)
	file.Download(context.Background(), func(*DownloadFile) {})

	snapshot := file.Snapshot()
	assert.Equal(t, domain.StatusDownloaded, snapshot.Status)
	assert.Equal(t, int64(5), snapshot.BytesDownloaded)
	record, _ := repo.GetFile("batch-1", "file-1")
	assert.Equal(t, domain.StatusDownloaded, record.Status)
}

func TestDownloadFile_TruncateFailureIsStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	persistence := mock_domain.NewMockFilePersistence(ctrl)
	ops, _, _ := mockOps(ctrl, persistence)

	persistence.EXPECT().CurrentLength().Return(int64(6), nil)
	persistence.EXPECT().Truncate(int64(4)).Return(errors.New("permission denied"))
	persistence.EXPECT().Close().Return(nil)

	record := queuedRecord()
	record.TotalSize = 10
	record.BytesDownloaded = 4
	file := newTestFile(record, ops, newMemRepo())

	file.Download(context.Background(), func(*DownloadFile) {})

	snapshot := file.Snapshot()
	assert.Equal(t, domain.StatusError, snapshot.Status)
	assert.Equal(t, domain.ErrorStorage, snapshot.ErrorKind)
	assert.Equal(t, int64(4), snapshot.BytesDownloaded)
}

func TestDownloadFile_UnrecordedStartSkipsTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	persistence := mock_domain.NewMockFilePersistence(ctrl)
	persistence.EXPECT().Close().Return(nil).AnyTimes()
	// downloader and size requester expect no calls
	ops, _, _ := mockOps(ctrl, persistence)

	repo := newMemRepo()
	file := newTestFile(queuedRecord(), ops, repo)
	repo.putFileErr = errors.New("database is locked")

	var updates []domain.DownloadStatus
	file.Download(context.Background(), func(f *DownloadFile) {
		updates = append(updates, f.Status())
	})

	snapshot := file.Snapshot()
	assert.Equal(t, domain.StatusError, snapshot.Status)
	assert.Equal(t, domain.ErrorStorage, snapshot.ErrorKind)
	assert.Equal(t, []domain.DownloadStatus{domain.StatusError}, updates)
}

func TestDownloadFile_PauseAndResume(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	server.hold = make(chan struct{})
	disk := newMemDisk()
	repo := newMemRepo()
	file := newTestFile(queuedRecord(), server.ops(disk), repo)

	done := make(chan struct{})
	go func() {
		file.Download(context.Background(), func(*DownloadFile) {})
		close(done)
	}()

	require.Eventually(t, func() bool {
		return file.Snapshot().BytesDownloaded == 4
	}, time.Second, 5*time.Millisecond)

	assert.True(t, file.Pause())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("transfer did not stop after pause")
	}

	record, _ := repo.GetFile("batch-1", "file-1")
	assert.Equal(t, domain.StatusPaused, record.Status)
	assert.Equal(t, int64(4), record.BytesDownloaded)
	assert.False(t, file.Pause(), "pausing twice is a no-op")

	close(server.hold)
	require.True(t, file.Resume())
	assert.Equal(t, domain.StatusQueued, file.Status())
	file.Download(context.Background(), func(*DownloadFile) {})

	assert.Equal(t, domain.StatusDownloaded, file.Status())
	assert.Equal(t, []int64{0, 4}, server.fetchOffsets())
	data, _ := disk.get("/downloads/data.bin")
	assert.Equal(t, "0123456789", string(data))
}

func TestDownloadFile_ResumeClearsError(t *testing.T) {
	record := queuedRecord()
	record.Status = domain.StatusError
	record.ErrorKind = domain.ErrorNetwork
	file := newTestFile(record, newFakeServer().ops(newMemDisk()), newMemRepo())

	require.True(t, file.Resume())
	assert.Equal(t, domain.StatusQueued, file.Status())
	assert.Empty(t, file.Snapshot().ErrorKind)
	assert.False(t, file.Resume(), "a queued file is not resumed again")
}

func TestDownloadFile_DeleteAndCleanup(t *testing.T) {
	server := newFakeServer()
	server.serve(testAddress, []byte("0123456789"))
	disk := newMemDisk()
	repo := newMemRepo()
	file := newTestFile(queuedRecord(), server.ops(disk), repo)
	file.Download(context.Background(), func(*DownloadFile) {})

	assert.True(t, file.MarkDeleted())
	assert.False(t, file.MarkDeleted())
	assert.Equal(t, domain.StatusDeletion, file.Status())
	assert.False(t, file.Resume(), "a deleted file cannot be resumed")

	require.NoError(t, file.Cleanup())
	_, exists := disk.get("/downloads/data.bin")
	assert.False(t, exists)
	record, err := repo.GetFile("batch-1", "file-1")
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, file.Cleanup(), "cleanup is idempotent")
}

func TestDownloadFile_IgnoresNonQueuedStart(t *testing.T) {
	record := queuedRecord()
	record.Status = domain.StatusPaused
	server := newFakeServer()
	file := newTestFile(record, server.ops(newMemDisk()), newMemRepo())

	file.Download(context.Background(), func(*DownloadFile) {
		t.Fatal("no update expected")
	})

	assert.Equal(t, domain.StatusPaused, file.Status())
	assert.Empty(t, server.fetchOffsets())
}
