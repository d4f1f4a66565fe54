package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/flagx"
)

var knownFlags = []string{
	"-a", "-t", "-d", "-w", "-i",
	"-sync", "-pull", "-timeout", "-retry-delay", "-retries",
	"-log", "-log-level",
}

// parseFlags populates Config fields from command-line flags. Arguments not
// listed in knownFlags are ignored.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.WorkspaceID, "w", cfg.WorkspaceID, "active workspace id")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.DurationVar(&cfg.SyncInterval, "sync", cfg.SyncInterval, "queue drain interval")
	fs.DurationVar(&cfg.PullInterval, "pull", cfg.PullInterval, "workspace refresh interval")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	fs.DurationVar(&cfg.RetryBaseDelay, "retry-delay", cfg.RetryBaseDelay, "base retry delay")
	fs.IntVar(&cfg.MaxRetries, "retries", cfg.MaxRetries, "attempts before an operation is evicted")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
