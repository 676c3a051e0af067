package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/batch-download-go/api/handlers"
	"github.com/yourusername/batch-download-go/api/middleware"
	"github.com/yourusername/batch-download-go/pkg/logger"
)

// RouterDeps bundles what the HTTP layer needs
type RouterDeps struct {
	Batches     handlers.BatchService
	Migration   handlers.MigrationService
	Logger      *zap.Logger
	MultiLogger *logger.MultiLogger // optional
	LogsDir     string              // empty disables the log endpoints
}

// SetupRouter sets up the HTTP router. ctx bounds background work started by
// requests, such as the migration.
func SetupRouter(ctx context.Context, deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logger, deps.MultiLogger))
	router.Use(middleware.Recovery(deps.Logger, deps.MultiLogger))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.Batches, deps.Migration)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(deps.Batches, deps.Logger)
		streamHandler := handlers.NewBatchWebSocketHandler(deps.Batches, deps.Logger)
		batches := v1.Group("/batches")
		{
			batches.POST("", downloadHandler.SubmitBatch)
			batches.GET("", downloadHandler.ListBatches)
			batches.GET("/stats", downloadHandler.GetStats)
			batches.GET("/stream", streamHandler.HandleWebSocket)
			batches.GET("/:id", downloadHandler.GetBatch)
			batches.POST("/:id/pause", downloadHandler.PauseBatch)
			batches.POST("/:id/resume", downloadHandler.ResumeBatch)
			batches.DELETE("/:id", downloadHandler.DeleteBatch)
		}

		migrationHandler := handlers.NewMigrationHandler(ctx, deps.Migration)
		v1.GET("/migration", migrationHandler.GetStatus)
		v1.POST("/migration", migrationHandler.StartMigration)

		if deps.LogsDir != "" {
			logHandler := handlers.NewLogHandler(deps.LogsDir)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/export", logHandler.ExportLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
