package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/batch-download-go/internal/domain"
)

const envPrefix = "BATCHDL"

var configSearchPaths = []string{
	"./configs",
	"$HOME/.batch-download",
	"/etc/batch-download",
}

// LoadConfig merges defaults, the YAML file and BATCHDL_* environment variables.
// An empty configPath searches the standard locations and tolerates a missing file.
func LoadConfig(configPath string) (*domain.Config, error) {
	v := newConfigViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := domain.DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolvePaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func newConfigViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		for _, p := range configSearchPaths {
			v.AddConfigPath(p)
		}
	}

	// AutomaticEnv only sees keys viper already knows about
	for key, value := range configValues(domain.DefaultConfig()) {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func resolvePaths(config *domain.Config) {
	for _, p := range []*string{
		&config.Download.BaseDir,
		&config.Storage.DatabasePath,
		&config.Migration.LegacyDatabasePath,
		&config.Logging.LogsDir,
	} {
		*p = expandPath(*p)
	}

	switch config.Logging.OutputPath {
	case "stdout", "stderr":
	default:
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}
}

// expandPath resolves environment variables and a leading ~
func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	}
	return path
}

func validateConfig(config *domain.Config) error {
	switch {
	case config.Server.Port < 1 || config.Server.Port > 65535:
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	case config.Download.BaseDir == "":
		return errors.New("download base directory not configured")
	case config.Download.ConcurrentLimit < 1:
		return errors.New("concurrent limit must be at least 1")
	case config.Download.BufferSize < 1:
		return errors.New("buffer size must be positive")
	case config.Storage.DatabasePath == "":
		return errors.New("storage database path not configured")
	case config.Callback.ThrottleInterval < 0:
		return errors.New("throttle interval cannot be negative")
	case config.Callback.QueueSize < 1:
		return errors.New("callback queue size must be at least 1")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	return nil
}

// configValues flattens the configuration into dotted viper keys
func configValues(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host":                    config.Server.Host,
		"server.port":                    config.Server.Port,
		"download.base_dir":              config.Download.BaseDir,
		"download.concurrent_limit":      config.Download.ConcurrentLimit,
		"download.buffer_size":           config.Download.BufferSize,
		"download.request_timeout":       config.Download.RequestTimeout.String(),
		"storage.database_path":          config.Storage.DatabasePath,
		"callback.throttle_interval":     config.Callback.ThrottleInterval.String(),
		"callback.queue_size":            config.Callback.QueueSize,
		"migration.legacy_database_path": config.Migration.LegacyDatabasePath,
		"migration.auto_start":           config.Migration.AutoStart,
		"notification.enabled":           config.Notification.Enabled,
		"notification.method":            config.Notification.Method,
		"logging.level":                  config.Logging.Level,
		"logging.format":                 config.Logging.Format,
		"logging.output_path":            config.Logging.OutputPath,
		"logging.logs_dir":               config.Logging.LogsDir,
	}
}

// SaveConfig writes config as YAML, creating the parent directory
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
