package app

import (
	"context"
	"errors"
	"sync"

	"github.com/yourusername/batch-download-go/internal/domain"
)

// memRepo implements domain.DownloadRepository in memory for testing
type memRepo struct {
	mu      sync.Mutex
	batches map[domain.DownloadBatchID]domain.BatchRecord
	files   map[domain.DownloadBatchID]map[domain.DownloadFileID]domain.FileRecord

	putFileErr error
	saveErrAt  int // SaveMigratedBatch call (1-based) that fails, 0 never
	saves      int
}

func newMemRepo() *memRepo {
	return &memRepo{
		batches: make(map[domain.DownloadBatchID]domain.BatchRecord),
		files:   make(map[domain.DownloadBatchID]map[domain.DownloadFileID]domain.FileRecord),
	}
}

func (m *memRepo) PutBatch(record *domain.BatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[record.ID] = *record
	return nil
}

func (m *memRepo) GetBatch(id domain.DownloadBatchID) (*domain.BatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.batches[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *memRepo) DeleteBatch(id domain.DownloadBatchID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.batches, id)
	return nil
}

func (m *memRepo) GetAllBatches() ([]*domain.BatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]*domain.BatchRecord, 0, len(m.batches))
	for _, record := range m.batches {
		record := record
		records = append(records, &record)
	}
	return records, nil
}

func (m *memRepo) PutFile(record *domain.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putFileErr != nil {
		return m.putFileErr
	}
	m.putFileLocked(record)
	return nil
}

func (m *memRepo) putFileLocked(record *domain.FileRecord) {
	files, ok := m.files[record.BatchID]
	if !ok {
		files = make(map[domain.DownloadFileID]domain.FileRecord)
		m.files[record.BatchID] = files
	}
	files[record.FileID] = *record
}

func (m *memRepo) GetFile(batchID domain.DownloadBatchID, fileID domain.DownloadFileID) (*domain.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.files[batchID][fileID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *memRepo) DeleteFile(batchID domain.DownloadBatchID, fileID domain.DownloadFileID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files[batchID], fileID)
	if len(m.files[batchID]) == 0 {
		delete(m.files, batchID)
	}
	return nil
}

func (m *memRepo) GetAllFiles() ([]*domain.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []*domain.FileRecord
	for _, files := range m.files {
		for _, record := range files {
			record := record
			records = append(records, &record)
		}
	}
	return records, nil
}

func (m *memRepo) GetFilesByBatch(batchID domain.DownloadBatchID) ([]*domain.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []*domain.FileRecord
	for _, record := range m.files[batchID] {
		record := record
		records = append(records, &record)
	}
	return records, nil
}

func (m *memRepo) SaveMigratedBatch(batch *domain.BatchRecord, files []*domain.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErrAt != 0 && m.saves == m.saveErrAt {
		return errors.New("disk full")
	}
	m.batches[batch.ID] = *batch
	for _, file := range files {
		m.putFileLocked(file)
	}
	return nil
}

func (m *memRepo) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *memRepo) fileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, files := range m.files {
		n += len(files)
	}
	return n
}

// memDisk holds the bytes of every local file by path
type memDisk struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemDisk() *memDisk {
	return &memDisk{files: make(map[string][]byte)}
}

func (d *memDisk) factory() domain.FilePersistenceFactory {
	return func(filePath string) domain.FilePersistence {
		return &memPersistence{disk: d, path: filePath}
	}
}

func (d *memDisk) get(path string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[path]
	return append([]byte(nil), data...), ok
}

func (d *memDisk) set(path string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[path] = append([]byte(nil), data...)
}

type memPersistence struct {
	disk     *memDisk
	path     string
	writeErr error
}

func (p *memPersistence) Write(chunk []byte) (int64, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.disk.mu.Lock()
	defer p.disk.mu.Unlock()
	p.disk.files[p.path] = append(p.disk.files[p.path], chunk...)
	return int64(len(p.disk.files[p.path])), nil
}

func (p *memPersistence) CurrentLength() (int64, error) {
	p.disk.mu.Lock()
	defer p.disk.mu.Unlock()
	return int64(len(p.disk.files[p.path])), nil
}

func (p *memPersistence) Truncate(size int64) error {
	p.disk.mu.Lock()
	defer p.disk.mu.Unlock()
	p.disk.files[p.path] = p.disk.files[p.path][:size]
	return nil
}

func (p *memPersistence) Delete() error {
	p.disk.mu.Lock()
	defer p.disk.mu.Unlock()
	delete(p.disk.files, p.path)
	return nil
}

func (p *memPersistence) Close() error { return nil }

// fakeServer serves content by address in fixed-size chunks
type fakeServer struct {
	mu        sync.Mutex
	content   map[string][]byte
	chunkSize int
	failAfter map[string]int // bytes served before the connection drops
	sizeErr   error
	hold      chan struct{} // when set, every chunk after the first waits for a token
	offsets   []int64
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		content:   make(map[string][]byte),
		chunkSize: 4,
		failAfter: make(map[string]int),
	}
}

func (s *fakeServer) serve(address string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[address] = data
}

func (s *fakeServer) ops(disk *memDisk) domain.FileOperations {
	return domain.FileOperations{
		Downloader:     s,
		SizeRequester:  s,
		NewPersistence: disk.factory(),
	}
}

func (s *fakeServer) RequestFileSize(_ context.Context, address string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sizeErr != nil {
		return 0, s.sizeErr
	}
	data, ok := s.content[address]
	if !ok {
		return 0, errors.New("not found")
	}
	return int64(len(data)), nil
}

func (s *fakeServer) Fetch(ctx context.Context, address string, offset int64, onChunk domain.ChunkHandler) error {
	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	data := s.content[address]
	failAfter, fails := s.failAfter[address]
	hold := s.hold
	chunkSize := s.chunkSize
	s.mu.Unlock()

	served := 0
	for pos := int(offset); pos < len(data); pos += chunkSize {
		if served > 0 && hold != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-hold:
			}
		}
		if fails && served >= failAfter {
			return errors.New("connection reset by peer")
		}
		end := pos + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := onChunk(data[pos:end]); err != nil {
			return err
		}
		served += end - pos
	}
	return nil
}

func (s *fakeServer) fetchOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.offsets...)
}

// statusRecorder collects delivered batch snapshots
type statusRecorder struct {
	mu       sync.Mutex
	statuses []domain.BatchStatus
}

func (r *statusRecorder) observe(status domain.BatchStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) all() []domain.BatchStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.BatchStatus(nil), r.statuses...)
}

func (r *statusRecorder) last() (domain.BatchStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return domain.BatchStatus{}, false
	}
	return r.statuses[len(r.statuses)-1], true
}

func (r *statusRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}
