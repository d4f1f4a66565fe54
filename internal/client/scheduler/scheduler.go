// Package scheduler decides when the sync engine drains and pulls: on
// reconnect, on fixed intervals while online, and on demand.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/engine"
	"github.com/dmitrijs2005/teamspace/internal/logging"
)

// Engine is the part of engine.SyncEngine the scheduler drives.
type Engine interface {
	Drain(ctx context.Context) (engine.SyncReport, error)
	Pull(ctx context.Context, workspaceID string) (engine.PullReport, error)
	PendingCount(ctx context.Context) (int, error)
	NotifyOffline(ctx context.Context)
}

type Reachability interface {
	Online() bool
	Subscribe() <-chan bool
}

type Config struct {
	// SyncInterval is how often the queue is drained while online.
	SyncInterval time.Duration
	// PullInterval is how often the active workspace is refreshed while online.
	PullInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		SyncInterval: 30 * time.Second,
		PullInterval: 5 * time.Minute,
	}
}

type Scheduler struct {
	engine Engine
	reach  Reachability
	cfg    Config
	logger logging.Logger

	events  <-chan bool
	trigger chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu        sync.Mutex
	running   bool
	workspace string
}

func New(e Engine, reach Reachability, cfg Config, logger logging.Logger) *Scheduler {
	d := DefaultConfig()
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = d.SyncInterval
	}
	if cfg.PullInterval <= 0 {
		cfg.PullInterval = d.PullInterval
	}
	return &Scheduler{
		engine:  e,
		reach:   reach,
		cfg:     cfg,
		logger:  logger.With("module", "scheduler"),
		events:  reach.Subscribe(),
		trigger: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

// SetWorkspace selects the workspace refreshed by periodic pulls.
func (s *Scheduler) SetWorkspace(id string) {
	s.mu.Lock()
	s.workspace = id
	s.mu.Unlock()
}

func (s *Scheduler) Workspace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace
}

// Start runs the scheduling loop until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info(ctx, "Background sync scheduler started")
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

// TriggerSync asks the loop for a drain as soon as possible. Requests made
// while one is already pending are coalesced.
func (s *Scheduler) TriggerSync() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	syncTicker := time.NewTicker(s.cfg.SyncInterval)
	defer syncTicker.Stop()
	pullTicker := time.NewTicker(s.cfg.PullInterval)
	defer pullTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case online := <-s.events:
			if online {
				s.logger.Info(ctx, "Server reachable")
				s.drain(ctx, false)
				s.pull(ctx)
			} else {
				s.engine.NotifyOffline(ctx)
			}
		case <-s.trigger:
			s.drain(ctx, true)
		case <-syncTicker.C:
			s.drain(ctx, false)
		case <-pullTicker.C:
			s.pull(ctx)
		}
	}
}

// drain runs a pass when online and there is something to send; forced
// passes skip the emptiness check.
func (s *Scheduler) drain(ctx context.Context, forced bool) {
	if !s.reach.Online() {
		if forced {
			s.engine.NotifyOffline(ctx)
		}
		return
	}
	if !forced {
		n, err := s.engine.PendingCount(ctx)
		if err != nil {
			s.logger.Error(ctx, "failed to count pending operations", "error", err)
			return
		}
		if n == 0 {
			return
		}
	}
	if _, err := s.engine.Drain(ctx); err != nil {
		s.logger.Error(ctx, "drain failed", "error", err)
	}
}

func (s *Scheduler) pull(ctx context.Context) {
	ws := s.Workspace()
	if ws == "" || !s.reach.Online() {
		return
	}
	if _, err := s.engine.Pull(ctx, ws); err != nil {
		if errors.Is(err, engine.ErrNotSynced) {
			s.logger.Debug(ctx, "active workspace not synced yet", "workspace", ws)
			return
		}
		s.logger.Warn(ctx, "pull failed", "workspace", ws, "error", err)
	}
}
