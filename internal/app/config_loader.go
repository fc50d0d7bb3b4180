package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/wavezboy/social.downloader/internal/domain"
)

// EnvPrefix is the prefix for environment overrides, e.g. SOCIALDL_SERVER_PORT
const EnvPrefix = "SOCIALDL"

// credentialAliases lets credentials be supplied under their conventional names
var credentialAliases = map[string]string{
	"tiktok.api_key":       "SNAPTIK_API_KEY",
	"twitter.bearer_token": "TWITTER_API_KEY",
}

// secretKeys are never written by SaveConfig; they come from the environment
var secretKeys = map[string]bool{
	"tiktok.api_key":       true,
	"twitter.bearer_token": true,
	"cache.password":       true,
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.social-downloader")
		v.AddConfigPath("/etc/social-downloader")
	}

	// Register every key so AutomaticEnv can override values absent from the file.
	for key, value := range configValues(config) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, alias := range credentialAliases {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// configValues flattens a config into viper keys
func configValues(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host": config.Server.Host,
		"server.port": config.Server.Port,

		"download.base_dir":         config.Download.BaseDir,
		"download.files_dir":        config.Download.FilesDir,
		"download.logs_dir":         config.Download.LogsDir,
		"download.concurrent_limit": config.Download.ConcurrentLimit,
		"download.fetch_timeout":    config.Download.FetchTimeout,

		"queue.database_path":      config.Queue.DatabasePath,
		"queue.check_interval":     config.Queue.CheckInterval,
		"queue.auto_start_workers": config.Queue.AutoStartWorkers,

		"browser.binary":             config.Browser.Binary,
		"browser.headless":           config.Browser.Headless,
		"browser.no_sandbox":         config.Browser.NoSandbox,
		"browser.stealth":            config.Browser.Stealth,
		"browser.user_agent":         config.Browser.UserAgent,
		"browser.navigation_timeout": config.Browser.NavigationTimeout,
		"browser.idle_wait":          config.Browser.IdleWait,

		"tiktok.endpoint": config.TikTok.Endpoint,
		"tiktok.api_key":  config.TikTok.APIKey,
		"tiktok.timeout":  config.TikTok.Timeout,

		"twitter.api_base":     config.Twitter.APIBase,
		"twitter.bearer_token": config.Twitter.BearerToken,
		"twitter.timeout":      config.Twitter.Timeout,

		"cache.enabled":  config.Cache.Enabled,
		"cache.address":  config.Cache.Address,
		"cache.password": config.Cache.Password,
		"cache.db":       config.Cache.DB,
		"cache.ttl":      config.Cache.TTL,

		"notification.enabled":  config.Notification.Enabled,
		"notification.method":   config.Notification.Method,
		"notification.nats_url": config.Notification.NATSURL,
		"notification.subject":  config.Notification.Subject,

		"logging.level":       config.Logging.Level,
		"logging.format":      config.Logging.Format,
		"logging.output_path": config.Logging.OutputPath,
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.FilesDir = expandPath(config.Download.FilesDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)
	config.Browser.Binary = expandPath(config.Browser.Binary)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration. Credentials are not checked
// here; a missing key only fails the resolutions that need it.
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.FilesDir == "" {
		return fmt.Errorf("download files directory not configured")
	}

	if config.Download.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Queue.DatabasePath == "" {
		return fmt.Errorf("queue database path not configured")
	}

	if config.Queue.CheckInterval <= 0 {
		return fmt.Errorf("queue check interval must be positive")
	}

	if config.Cache.Enabled && config.Cache.Address == "" {
		return fmt.Errorf("cache enabled but no address configured")
	}

	switch config.Notification.Method {
	case "log", "nats":
	default:
		return fmt.Errorf("unknown notification method: %s", config.Notification.Method)
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

	for key, value := range configValues(config) {
		if secretKeys[key] {
			continue
		}
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
