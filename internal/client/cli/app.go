package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/client"
	"github.com/dmitrijs2005/teamspace/internal/client/config"
	"github.com/dmitrijs2005/teamspace/internal/client/engine"
	"github.com/dmitrijs2005/teamspace/internal/client/reachability"
	"github.com/dmitrijs2005/teamspace/internal/client/scheduler"
	"github.com/dmitrijs2005/teamspace/internal/client/store"
	"github.com/dmitrijs2005/teamspace/internal/filex"
	"github.com/dmitrijs2005/teamspace/internal/logging"
)

const probeTimeout = 3 * time.Second

var errForcedOffline = errors.New("offline mode forced by user")

// switchProber lets the user stay offline whatever the server's state.
type switchProber struct {
	remote  reachability.Prober
	offline atomic.Bool
}

func (p *switchProber) Ping(ctx context.Context) error {
	if p.offline.Load() {
		return errForcedOffline
	}
	return p.remote.Ping(ctx)
}

type App struct {
	config    *config.Config
	store     *store.Store
	remote    client.Client
	monitor   *reachability.Monitor
	prober    *switchProber
	engine    *engine.SyncEngine
	scheduler *scheduler.Scheduler
	logger    logging.Logger
	closers   []io.Closer

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local store and the server connection described by c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	for _, path := range []string{c.LogFile, c.DatabasePath} {
		if path == "" {
			continue
		}
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, err
		}
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:  c.LogLevel,
		File:   c.LogFile,
		Writer: os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		_ = logCloser.Close()
		return nil, err
	}

	remote, err := client.NewGRPCClient(c.ServerEndpointAddr, c.AccessToken)
	if err != nil {
		_ = st.Close()
		_ = logCloser.Close()
		return nil, err
	}

	a := newApp(c, st, remote, logger, os.Stdin, os.Stdout)
	a.closers = append(a.closers, logCloser)
	return a, nil
}

func newApp(c *config.Config, st *store.Store, remote client.Client, logger logging.Logger, in io.Reader, out io.Writer) *App {
	a := &App{
		config: c,
		store:  st,
		remote: remote,
		logger: logger,
		reader: bufio.NewReader(in),
		out:    out,
	}
	a.prober = &switchProber{remote: remote}
	a.monitor = reachability.New(false, logger)
	a.engine = engine.New(st, remote, a.monitor,
		engine.Config{
			MaxRetries:     c.MaxRetries,
			RetryBaseDelay: c.RetryBaseDelay,
			RequestTimeout: c.RequestTimeout,
		},
		engine.WithLogger(logger),
		engine.WithNotifier(a.notice),
	)
	a.scheduler = scheduler.New(a.engine, a.monitor,
		scheduler.Config{SyncInterval: c.SyncInterval, PullInterval: c.PullInterval}, logger)
	a.scheduler.SetWorkspace(c.WorkspaceID)
	return a
}

func (a *App) notice(n engine.Notice) {
	fmt.Fprintf(a.out, "! %s\n", n.Message)
}

// Run starts background connectivity checks and sync, then serves the REPL
// until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.monitor.Watch(ctx, a.config.OnlineCheckInterval, probeTimeout, a.prober)
	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	prompt := interactive()
	if prompt {
		fmt.Fprintln(a.out, "Welcome to teamspace (type 'help' for commands)")
	}
	runREPL(ctx, a, a.statusLine, a.reader, prompt)
}

func (a *App) Close() {
	ctx := context.Background()
	if err := a.remote.Close(); err != nil {
		a.logger.Warn(ctx, "closing connection", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn(ctx, "closing database", "error", err)
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *App) statusLine() string {
	mode := "offline"
	if a.monitor.Online() {
		mode = "online"
	}
	n, err := a.engine.PendingCount(context.Background())
	if err != nil || n == 0 {
		return fmt.Sprintf("(%s)", mode)
	}
	return fmt.Sprintf("(%s, %d pending)", mode, n)
}
