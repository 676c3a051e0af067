package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 3, config.Download.ConcurrentLimit)
	assert.Equal(t, 32*1024, config.Download.BufferSize)
	assert.Equal(t, 30*time.Second, config.Download.RequestTimeout)
	assert.Equal(t, time.Second, config.Callback.ThrottleInterval)
	assert.Equal(t, 256, config.Callback.QueueSize)
	assert.True(t, config.Migration.AutoStart)
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}
