package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/yourusername/batch-download-go/api"
	"github.com/yourusername/batch-download-go/internal/app"
	"github.com/yourusername/batch-download-go/internal/domain"
	"github.com/yourusername/batch-download-go/internal/infrastructure"
	"github.com/yourusername/batch-download-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: search standard locations)")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Categorised JSON logs (batch, migration, error) are optional
	var multiLog *logger.MultiLogger
	if config.Logging.LogsDir != "" {
		multiLog, err = logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			log.Fatal("Failed to initialize category logs", zap.Error(err))
		}
		defer multiLog.Close()
	}

	log.Info("Starting batch download server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("base_dir", config.Download.BaseDir),
		zap.Int("concurrent_limit", config.Download.ConcurrentLimit))

	if err := os.MkdirAll(config.Download.BaseDir, 0755); err != nil {
		log.Fatal("Failed to create download directory", zap.Error(err))
	}

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Storage.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	httpDownloader := infrastructure.NewHTTPDownloader(&config.Download, log)
	ops := domain.FileOperations{
		Downloader:     httpDownloader,
		SizeRequester:  httpDownloader,
		NewPersistence: infrastructure.NewFilePersistence(),
	}

	downloadMgr := app.NewDownloadManager(repo, ops, config, clockwork.NewRealClock(), multiLog, log)
	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	unsubscribe := downloadMgr.Subscribe(notifier.OnBatchStatus)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Restore needs a running queue, deletions found on disk are carried out on it
	if err := downloadMgr.Start(ctx); err != nil {
		log.Fatal("Failed to start download manager", zap.Error(err))
	}
	if err := downloadMgr.Restore(); err != nil {
		log.Fatal("Failed to restore batches", zap.Error(err))
	}

	migrator := app.NewMigrator(
		config.Migration.LegacyDatabasePath,
		infrastructure.OpenLegacySQLiteStore,
		repo,
		multiLog,
		log,
	)
	migrator.Subscribe(notifier.OnMigrationStatus)
	migrator.Subscribe(func(status domain.MigrationStatus) {
		if status.Status != domain.MigrationComplete {
			return
		}
		if err := downloadMgr.Restore(); err != nil {
			log.Error("Failed to load migrated batches", zap.Error(err))
		}
	})
	if config.Migration.AutoStart {
		migrator.StartMigration(ctx, nil)
	}

	router := api.SetupRouter(ctx, api.RouterDeps{
		Batches:     downloadMgr,
		Migration:   migrator,
		Logger:      log,
		MultiLogger: multiLog,
		LogsDir:     config.Logging.LogsDir,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop accepting requests before the workers go away
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := downloadMgr.Stop(); err != nil {
		log.Error("Error stopping download manager", zap.Error(err))
	}
	cancel()

	log.Info("Server exited")
}
