package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/media-proxy-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	defaults := domain.DefaultConfig()

	// Set up viper
	v := viper.New()
	v.SetConfigType("yaml")

	// If config path is provided, use it
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.media-proxy")
		v.AddConfigPath("/etc/media-proxy")
	}

	// Defaults make every key visible to AutomaticEnv
	setDefaults(v, defaults)

	// Read environment variables, e.g. MEDIAPROXY_SERVER_PORT
	v.SetEnvPrefix("MEDIAPROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Decode into a zero value: lists from the file replace the default
	// lists instead of overlaying them element by element
	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand environment variables in paths
	config = expandPaths(config)

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, config *domain.Config) {
	v.SetDefault("server.host", config.Server.Host)
	v.SetDefault("server.port", config.Server.Port)

	v.SetDefault("download.dir", config.Download.Dir)
	v.SetDefault("download.placeholder", config.Download.Placeholder)
	v.SetDefault("download.max_file_size", config.Download.MaxFileSize)
	v.SetDefault("download.workers", config.Download.Workers)
	v.SetDefault("download.sweep_on_startup", config.Download.SweepOnStartup)
	v.SetDefault("download.sweep_interval", config.Download.SweepInterval)
	v.SetDefault("download.file_ttl", config.Download.FileTTL)
	v.SetDefault("download.scan_slack", config.Download.ScanSlack)

	v.SetDefault("engine.ytdlp_binary", config.Engine.YTDLPBinary)
	v.SetDefault("engine.retries", config.Engine.Retries)
	v.SetDefault("engine.fragment_retries", config.Engine.FragmentRetries)
	v.SetDefault("engine.socket_timeout", config.Engine.SocketTimeout)
	v.SetDefault("engine.sleep_interval", config.Engine.SleepInterval)
	v.SetDefault("engine.max_sleep_interval", config.Engine.MaxSleepInterval)
	v.SetDefault("engine.sleep_requests", config.Engine.SleepRequests)
	v.SetDefault("engine.cookie_file", config.Engine.CookieFile)
	v.SetDefault("engine.user_agents", config.Engine.UserAgents)
	v.SetDefault("engine.shortener_hosts", config.Engine.ShortenerHosts)
	v.SetDefault("engine.resolve_timeout", config.Engine.ResolveTimeout)

	v.SetDefault("history.enabled", config.History.Enabled)
	v.SetDefault("history.database_path", config.History.DatabasePath)

	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
	v.SetDefault("logging.output_path", config.Logging.OutputPath)
	v.SetDefault("logging.logs_dir", config.Logging.LogsDir)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.Dir = expandPath(config.Download.Dir)
	// Outcomes report absolute paths
	if abs, err := filepath.Abs(config.Download.Dir); err == nil {
		config.Download.Dir = abs
	}
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Engine.CookieFile = expandPath(config.Engine.CookieFile)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	// Expand environment variables
	path = os.ExpandEnv(path)

	// Expand home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.Dir == "" {
		return fmt.Errorf("download directory not configured")
	}

	if config.Download.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if config.Download.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}

	if config.Engine.YTDLPBinary == "" {
		return fmt.Errorf("yt-dlp binary not configured")
	}

	if config.Engine.Retries < 0 || config.Engine.FragmentRetries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}

	if len(config.Engine.UserAgents) == 0 {
		return fmt.Errorf("at least one user agent is required")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	// Marshal config to viper
	v.Set("server", config.Server)
	v.Set("download", config.Download)
	v.Set("engine", config.Engine)
	v.Set("history", config.History)
	v.Set("logging", config.Logging)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
