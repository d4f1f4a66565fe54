package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/flagx"
	"github.com/dmitrijs2005/teamspace/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	AccessToken         string         `json:"access_token"`
	DatabasePath        string         `json:"database_path"`
	WorkspaceID         string         `json:"workspace_id"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	PullInterval        timex.Duration `json:"pull_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	RetryBaseDelay      timex.Duration `json:"retry_base_delay"`
	MaxRetries          int            `json:"max_retries"`
	LogFile             string         `json:"log_file"`
	LogLevel            string         `json:"log_level"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays cfg with the file named by -c/-config, if any. It panics
// on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.WorkspaceID, jc.WorkspaceID)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)

	durations := []struct {
		dst *time.Duration
		v   timex.Duration
	}{
		{&cfg.OnlineCheckInterval, jc.OnlineCheckInterval},
		{&cfg.SyncInterval, jc.SyncInterval},
		{&cfg.PullInterval, jc.PullInterval},
		{&cfg.RequestTimeout, jc.RequestTimeout},
		{&cfg.RetryBaseDelay, jc.RetryBaseDelay},
	}
	for _, d := range durations {
		if d.v.Duration > 0 {
			*d.dst = d.v.Duration
		}
	}
	if jc.MaxRetries > 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
}
