//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/batch-download-go/api"
	"github.com/yourusername/batch-download-go/internal/app"
	"github.com/yourusername/batch-download-go/internal/domain"
	"github.com/yourusername/batch-download-go/internal/infrastructure"
)

type testEnv struct {
	server  *httptest.Server
	files   *httptest.Server
	manager *app.DownloadManager
	baseDir string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	content := map[string][]byte{
		"/alpha.bin": bytes.Repeat([]byte("a"), 100*1024),
		"/beta.bin":  bytes.Repeat([]byte("b"), 10*1024),
	}
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := content[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, r.URL.Path, time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(files.Close)

	config := domain.DefaultConfig()
	config.Download.BaseDir = filepath.Join(dir, "downloads")
	config.Storage.DatabasePath = filepath.Join(dir, "downloads.db")
	config.Migration.LegacyDatabasePath = filepath.Join(dir, "legacy.db")
	config.Callback.ThrottleInterval = 50 * time.Millisecond

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Storage.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	log := zap.NewNop()
	downloader := infrastructure.NewHTTPDownloader(&config.Download, log)
	ops := domain.FileOperations{
		Downloader:     downloader,
		SizeRequester:  downloader,
		NewPersistence: infrastructure.NewFilePersistence(),
	}
	manager := app.NewDownloadManager(repo, ops, config, clockwork.NewRealClock(), nil, log)
	require.NoError(t, manager.Start(context.Background()))
	t.Cleanup(func() { manager.Stop() })

	migrator := app.NewMigrator(config.Migration.LegacyDatabasePath, infrastructure.OpenLegacySQLiteStore, repo, nil, log)

	router := api.SetupRouter(context.Background(), api.RouterDeps{
		Batches:   manager,
		Migration: migrator,
		Logger:    log,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, files: files, manager: manager, baseDir: config.Download.BaseDir}
}

func (e *testEnv) getBatch(t *testing.T, id string) domain.BatchStatus {
	t.Helper()
	resp, err := http.Get(e.server.URL + "/api/v1/batches/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status domain.BatchStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	return status
}

func TestAPI_SubmitAndDownloadBatch(t *testing.T) {
	env := setupTestServer(t)

	body := `{"id":"batch-1","title":"Integration","files":[
		{"network_address":"` + env.files.URL + `/alpha.bin"},
		{"network_address":"` + env.files.URL + `/beta.bin","file_path":"nested/beta.bin"}]}`
	resp, err := http.Post(env.server.URL+"/api/v1/batches", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Eventually(t, func() bool {
		return env.getBatch(t, "batch-1").Status == domain.StatusDownloaded
	}, 10*time.Second, 50*time.Millisecond)

	status := env.getBatch(t, "batch-1")
	assert.Equal(t, 100, status.PercentageDownloaded)
	assert.Equal(t, int64(110*1024), status.BytesTotalSize)

	alpha, err := os.ReadFile(filepath.Join(env.baseDir, "alpha.bin"))
	require.NoError(t, err)
	assert.Len(t, alpha, 100*1024)
	beta, err := os.ReadFile(filepath.Join(env.baseDir, "nested", "beta.bin"))
	require.NoError(t, err)
	assert.Len(t, beta, 10*1024)

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/api/v1/batches/batch-1", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(env.baseDir, "alpha.bin"))
		return os.IsNotExist(err)
	}, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		resp, err := http.Get(env.server.URL + "/api/v1/batches/batch-1")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 5*time.Second, 50*time.Millisecond)
}

func TestAPI_FailedFileMarksBatchError(t *testing.T) {
	env := setupTestServer(t)

	body := `{"id":"batch-2","files":[{"network_address":"` + env.files.URL + `/missing.bin"}]}`
	resp, err := http.Post(env.server.URL+"/api/v1/batches", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Eventually(t, func() bool {
		return env.getBatch(t, "batch-2").Status == domain.StatusError
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, domain.ErrorFileSize, env.getBatch(t, "batch-2").Files[0].ErrorKind)
}

func TestAPI_MigrationWithoutLegacyDatabase(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Post(env.server.URL+"/api/v1/migration", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := http.Get(env.server.URL + "/api/v1/migration")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var status domain.MigrationStatus
		json.NewDecoder(resp.Body).Decode(&status)
		return status.Status == domain.MigrationDBNotFound
	}, 5*time.Second, 50*time.Millisecond)
}
