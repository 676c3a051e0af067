package infrastructure

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/batch-download-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications when batches or the
// migration finish
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error

	mu       sync.Mutex
	notified map[domain.DownloadBatchID]domain.DownloadStatus
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
		notified: make(map[domain.DownloadBatchID]domain.DownloadStatus),
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// OnBatchStatus notifies once each time a batch becomes DOWNLOADED or ERROR.
// It is meant to be registered as a domain.BatchObserver.
func (n *NotificationService) OnBatchStatus(status domain.BatchStatus) {
	n.mu.Lock()
	previous := n.notified[status.BatchID]
	switch status.Status {
	case domain.StatusDownloaded, domain.StatusError:
		if previous == status.Status {
			n.mu.Unlock()
			return
		}
		n.notified[status.BatchID] = status.Status
	default:
		// a resumed batch may finish again
		delete(n.notified, status.BatchID)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	name := batchName(status)
	if status.Status == domain.StatusDownloaded {
		n.Send("Download Completed", fmt.Sprintf("%s (%s)", name, humanize.Bytes(uint64(status.BytesDownloaded))))
		return
	}
	n.Send("Download Failed", fmt.Sprintf("%s: %s", name, status.ErrorKind))
}

// OnMigrationStatus notifies when a migration run completes or fails.
// It is meant to be registered as a domain.MigrationObserver.
func (n *NotificationService) OnMigrationStatus(status domain.MigrationStatus) {
	switch status.Status {
	case domain.MigrationComplete:
		n.Send("Migration Completed", "Downloads from the previous version were imported")
	case domain.MigrationError:
		n.Send("Migration Failed", fmt.Sprintf("Stopped at %d%%: %s", status.PercentageMigrated, status.ErrorKind))
	}
}

func batchName(status domain.BatchStatus) string {
	if status.Title != "" {
		return truncateString(status.Title, 30)
	}
	return truncateString(string(status.BatchID), 30)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
