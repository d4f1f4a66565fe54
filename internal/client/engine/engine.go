// Package engine is the offline-first sync engine. Writes land in the local
// store and the pending-operation queue immediately; the reconciler replays
// the queue against the server in FIFO order, and pulls refresh the local
// cache from server snapshots without overwriting unsynced edits.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/client"
	"github.com/dmitrijs2005/teamspace/internal/client/store"
	"github.com/dmitrijs2005/teamspace/internal/logging"
	"github.com/dmitrijs2005/teamspace/internal/timex"
)

// Reachability is what the engine needs to know about connectivity.
type Reachability interface {
	Online() bool
}

type Config struct {
	// MaxRetries is the number of failed attempts after which an operation
	// is evicted from the queue.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:     5,
		RetryBaseDelay: 500 * time.Millisecond,
		RequestTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SyncEngine is constructed once per session and shared by the UI and the
// scheduler.
type SyncEngine struct {
	store  *store.Store
	remote client.Client
	reach  Reachability
	cfg    Config

	clock  timex.Clock
	sleep  Sleeper
	logger logging.Logger
	notify func(Notice)

	drainMu sync.Mutex
	syncing atomic.Bool

	mu         sync.Mutex
	lastError  string
	lastSyncAt *time.Time
	remapped   map[string]string
}

type Option func(*SyncEngine)

func WithClock(c timex.Clock) Option {
	return func(e *SyncEngine) { e.clock = c }
}

func WithSleeper(s Sleeper) Option {
	return func(e *SyncEngine) { e.sleep = s }
}

func WithLogger(l logging.Logger) Option {
	return func(e *SyncEngine) { e.logger = l }
}

// WithNotifier routes user-facing notices to fn. fn is called synchronously
// and must not call back into the engine.
func WithNotifier(fn func(Notice)) Option {
	return func(e *SyncEngine) { e.notify = fn }
}

func New(st *store.Store, remote client.Client, reach Reachability, cfg Config, opts ...Option) *SyncEngine {
	e := &SyncEngine{
		store:  st,
		remote: remote,
		reach:  reach,
		cfg:    cfg.withDefaults(),
		clock:  timex.SystemClock{},
		sleep:  sleepContext,
		logger: logging.NewNop(),
		notify: func(Notice) {},

		remapped: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("module", "engine")
	return e
}

func (e *SyncEngine) setLastError(msg string) {
	e.mu.Lock()
	e.lastError = msg
	e.mu.Unlock()
}

func (e *SyncEngine) setLastSync(at time.Time, lastError string) {
	e.mu.Lock()
	e.lastSyncAt = &at
	e.lastError = lastError
	e.mu.Unlock()
}

func (e *SyncEngine) recordRemap(oldID, newID string) {
	e.mu.Lock()
	e.remapped[oldID] = newID
	e.mu.Unlock()
}

// ResolveID returns the server id that replaced a temporary id during this
// session, or id itself.
func (e *SyncEngine) ResolveID(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if newID, ok := e.remapped[id]; ok {
		return newID
	}
	return id
}
