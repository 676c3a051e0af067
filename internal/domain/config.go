package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Callback     CallbackConfig     `mapstructure:"callback"`
	Migration    MigrationConfig    `mapstructure:"migration"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir         string        `mapstructure:"base_dir"`
	ConcurrentLimit int           `mapstructure:"concurrent_limit"`
	BufferSize      int           `mapstructure:"buffer_size"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// StorageConfig contains metadata persistence configuration
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// CallbackConfig controls how batch notifications reach observers
type CallbackConfig struct {
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
	QueueSize        int           `mapstructure:"queue_size"`
}

// MigrationConfig controls the legacy database import
type MigrationConfig struct {
	LegacyDatabasePath string `mapstructure:"legacy_database_path"`
	AutoStart          bool   `mapstructure:"auto_start"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // categorised JSON logs, empty disables them
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			BaseDir:         "$HOME/Downloads/batch-download",
			ConcurrentLimit: 3,
			BufferSize:      32 * 1024,
			RequestTimeout:  30 * time.Second,
		},
		Storage: StorageConfig{
			DatabasePath: "$HOME/.batch-download/downloads.db",
		},
		Callback: CallbackConfig{
			ThrottleInterval: time.Second,
			QueueSize:        256,
		},
		Migration: MigrationConfig{
			LegacyDatabasePath: "$HOME/.batch-download/legacy/downloads.db",
			AutoStart:          true,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.batch-download/logs",
		},
	}
}
