package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/batch-download-go/internal/domain"
	"go.uber.org/zap"
)

const (
	streamBufferSize = 64
	pingInterval     = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// StreamMessage is one frame of the batch status stream
type StreamMessage struct {
	Type  string             `json:"type"` // snapshot, update
	Batch domain.BatchStatus `json:"batch"`
}

// BatchWebSocketHandler streams batch status notifications over WebSocket
type BatchWebSocketHandler struct {
	batches BatchService
	logger  *zap.Logger
}

// NewBatchWebSocketHandler creates a new WebSocket handler
func NewBatchWebSocketHandler(batches BatchService, log *zap.Logger) *BatchWebSocketHandler {
	return &BatchWebSocketHandler{
		batches: batches,
		logger:  log,
	}
}

// HandleWebSocket handles GET /api/v1/batches/stream. The client first gets
// the current snapshot of every batch, then each throttled notification.
// ?batch_id= restricts the stream to one batch.
func (h *BatchWebSocketHandler) HandleWebSocket(c *gin.Context) {
	only := domain.DownloadBatchID(c.Query("batch_id"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	// The observer runs on the notifier goroutine and must never block on a slow client.
	updates := make(chan domain.BatchStatus, streamBufferSize)
	unsubscribe := h.batches.Subscribe(func(status domain.BatchStatus) {
		if only != "" && status.BatchID != only {
			return
		}
		select {
		case updates <- status:
		default:
			h.logger.Debug("WebSocket client too slow, dropping update",
				zap.String("batch_id", string(status.BatchID)))
		}
	})
	defer unsubscribe()

	h.logger.Info("WebSocket client connected",
		zap.String("batch_id", string(only)),
		zap.String("remote_addr", c.Request.RemoteAddr))

	for _, status := range h.batches.GetAllBatchStatuses() {
		if only != "" && status.BatchID != only {
			continue
		}
		if err := h.write(conn, StreamMessage{Type: "snapshot", Batch: status}); err != nil {
			h.logger.Debug("Failed to send snapshot", zap.Error(err))
			return
		}
	}

	// Read messages from client so close frames and pongs are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case status := <-updates:
			if err := h.write(conn, StreamMessage{Type: "update", Batch: status}); err != nil {
				h.logger.Debug("Failed to send update", zap.Error(err))
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case <-done:
			h.logger.Info("WebSocket client disconnected", zap.String("remote_addr", c.Request.RemoteAddr))
			return
		}
	}
}

func (h *BatchWebSocketHandler) write(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
