package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all client configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Desktop DesktopConfig `mapstructure:"desktop"`
	Env     string        `mapstructure:"env"`
}

type APIConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Token     string `mapstructure:"token"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

type StreamConfig struct {
	// Transport selects the push transport: "sse" or "websocket".
	Transport string `mapstructure:"transport"`
	// Path is appended to api.base_url to form the stream endpoint.
	Path                 string `mapstructure:"path"`
	ReconnectIntervalMs  int    `mapstructure:"reconnect_interval_ms"`
	MaxReconnectAttempts int    `mapstructure:"max_reconnect_attempts"`
}

type FetchConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type DesktopConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from environment variables and config files.
// Environment variables override file values. Prefix: CRM_NOTIFY_
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("env", "development")
	v.SetDefault("api.base_url", "http://localhost:8090")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout_ms", 10000)
	v.SetDefault("stream.transport", "sse")
	v.SetDefault("stream.path", "/notifications/stream")
	v.SetDefault("stream.reconnect_interval_ms", 3000)
	v.SetDefault("stream.max_reconnect_attempts", 5)
	v.SetDefault("fetch.page_size", 20)
	v.SetDefault("desktop.enabled", true)

	// Environment variables (e.g. stream.path -> CRM_NOTIFY_STREAM_PATH)
	v.SetEnvPrefix("CRM_NOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support short env vars for shell convenience
	v.BindEnv("api.base_url", "API_URL")
	v.BindEnv("api.token", "API_TOKEN")
	v.BindEnv("stream.transport", "STREAM_TRANSPORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Timeout returns the REST call timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutMs) * time.Millisecond
}

// ReconnectInterval returns the fixed delay between scheduled reconnects.
func (s StreamConfig) ReconnectInterval() time.Duration {
	return time.Duration(s.ReconnectIntervalMs) * time.Millisecond
}

// StreamURL joins the API base URL with the stream path.
func (c *Config) StreamURL() string {
	return strings.TrimSuffix(c.API.BaseURL, "/") + c.Stream.Path
}
