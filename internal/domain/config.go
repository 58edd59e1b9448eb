package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Download DownloadConfig `mapstructure:"download"`
	Engine   EngineConfig   `mapstructure:"engine"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains settings for the downloads directory and the worker pool
type DownloadConfig struct {
	Dir            string        `mapstructure:"dir"`
	Placeholder    string        `mapstructure:"placeholder"`
	MaxFileSize    int64         `mapstructure:"max_file_size"`
	Workers        int           `mapstructure:"workers"`
	SweepOnStartup bool          `mapstructure:"sweep_on_startup"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	FileTTL        time.Duration `mapstructure:"file_ttl"`
	ScanSlack      time.Duration `mapstructure:"scan_slack"`
}

// EngineConfig contains yt-dlp invocation settings
type EngineConfig struct {
	YTDLPBinary      string        `mapstructure:"ytdlp_binary"`
	Retries          int           `mapstructure:"retries"`
	FragmentRetries  int           `mapstructure:"fragment_retries"`
	SocketTimeout    time.Duration `mapstructure:"socket_timeout"`
	SleepInterval    time.Duration `mapstructure:"sleep_interval"`
	MaxSleepInterval time.Duration `mapstructure:"max_sleep_interval"`
	SleepRequests    time.Duration `mapstructure:"sleep_requests"`
	CookieFile       string        `mapstructure:"cookie_file"`
	UserAgents       []string      `mapstructure:"user_agents"`
	ShortenerHosts   []string      `mapstructure:"shortener_hosts"`
	ResolveTimeout   time.Duration `mapstructure:"resolve_timeout"`
}

// HistoryConfig contains settings for the download history database
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // categorized JSON logs
}

// DefaultUserAgents is the fixed rotation list used by the option builder
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Download: DownloadConfig{
			Dir:            "./downloads",
			Placeholder:    ".gitkeep",
			MaxFileSize:    500 * 1024 * 1024,
			Workers:        4,
			SweepOnStartup: true,
			SweepInterval:  10 * time.Minute,
			FileTTL:        time.Hour,
			ScanSlack:      2 * time.Second,
		},
		Engine: EngineConfig{
			YTDLPBinary:      "yt-dlp",
			Retries:          5,
			FragmentRetries:  5,
			SocketTimeout:    60 * time.Second,
			SleepInterval:    time.Second,
			MaxSleepInterval: 3 * time.Second,
			SleepRequests:    500 * time.Millisecond,
			UserAgents:       append([]string(nil), DefaultUserAgents...),
			ShortenerHosts:   []string{"pin.it"},
			ResolveTimeout:   10 * time.Second,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "./data/history.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "./logs",
		},
	}
}
