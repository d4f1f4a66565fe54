package config

import "time"

// Config holds runtime settings for the teamspace client.
type Config struct {
	ServerEndpointAddr string
	// AccessToken is sent with every request; empty for servers without auth.
	AccessToken  string
	DatabasePath string
	// WorkspaceID is the workspace refreshed by periodic pulls.
	WorkspaceID string

	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	PullInterval        time.Duration
	RequestTimeout      time.Duration
	RetryBaseDelay      time.Duration
	MaxRetries          int

	// LogFile receives the log; when empty logs go to stderr.
	LogFile  string
	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.AccessToken = ""
	c.DatabasePath = "teamspace.db"
	c.WorkspaceID = ""
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 30 * time.Second
	c.PullInterval = 5 * time.Minute
	c.RequestTimeout = 10 * time.Second
	c.RetryBaseDelay = 500 * time.Millisecond
	c.MaxRetries = 5
	c.LogFile = "teamspace.log"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
