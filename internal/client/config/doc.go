// Package config loads runtime configuration for the teamspace client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string          address:port of the server gRPC endpoint
//	-t string          access token
//	-d string          path to the local SQLite database
//	-w string          active workspace id
//	-i int             online status check interval (seconds)
//	-sync duration     queue drain interval
//	-pull duration     workspace refresh interval
//	-timeout duration  per-request timeout
//	-retry-delay dur   base delay of the retry backoff
//	-retries int       attempts before an operation is evicted
//	-log string        log file ("" logs to stderr)
//	-log-level string  debug, info, warn or error
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "3s" or integer
// nanoseconds. Keys that are absent or zero keep the previous value:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "…",
//	  "database_path": "teamspace.db",
//	  "workspace_id": "5f1c…",
//	  "online_check_interval": "3s",
//	  "sync_interval": "30s",
//	  "pull_interval": "5m",
//	  "request_timeout": "10s",
//	  "retry_base_delay": "500ms",
//	  "max_retries": 5,
//	  "log_file": "teamspace.log",
//	  "log_level": "info"
//	}
package config
