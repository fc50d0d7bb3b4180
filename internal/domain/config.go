package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Browser      BrowserConfig      `mapstructure:"browser"`
	TikTok       TikTokConfig       `mapstructure:"tiktok"`
	Twitter      TwitterConfig      `mapstructure:"twitter"`
	Cache        CacheConfig        `mapstructure:"cache"`
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
	FilesDir        string        `mapstructure:"files_dir"`
	LogsDir         string        `mapstructure:"logs_dir"`
	ConcurrentLimit int           `mapstructure:"concurrent_limit"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath     string        `mapstructure:"database_path"`
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	AutoStartWorkers bool          `mapstructure:"auto_start_workers"`
}

// BrowserConfig contains headless browser configuration for Instagram and Facebook
type BrowserConfig struct {
	Binary            string        `mapstructure:"binary"` // empty = look up a local Chromium
	Headless          bool          `mapstructure:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
	Stealth           bool          `mapstructure:"stealth"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	IdleWait          time.Duration `mapstructure:"idle_wait"`
}

// TikTokConfig contains TikTok resolution API configuration
type TikTokConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TwitterConfig contains Twitter/X API v2 configuration
type TwitterConfig struct {
	APIBase     string        `mapstructure:"api_base"`
	BearerToken string        `mapstructure:"bearer_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CacheConfig contains Redis resolution cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // log, nats
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			BaseDir:         "$HOME/.social-downloader",
			FilesDir:        "$HOME/.social-downloader/downloads",
			LogsDir:         "$HOME/.social-downloader/logs",
			ConcurrentLimit: 2,
			FetchTimeout:    30 * time.Second,
		},
		Queue: QueueConfig{
			DatabasePath:     "$HOME/.social-downloader/downloads.db",
			CheckInterval:    5 * time.Second,
			AutoStartWorkers: true,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         true,
			Stealth:           true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavigationTimeout: 30 * time.Second,
			IdleWait:          500 * time.Millisecond,
		},
		TikTok: TikTokConfig{
			Endpoint: "https://snaptik.app/api/v1/download",
			Timeout:  30 * time.Second,
		},
		Twitter: TwitterConfig{
			APIBase: "https://api.twitter.com",
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: false,
			Address: "localhost:6379",
			TTL:     10 * time.Minute,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "log",
			NATSURL: "nats://localhost:4222",
			Subject: "socialdl.downloads",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
