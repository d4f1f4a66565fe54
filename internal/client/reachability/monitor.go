// Package reachability tracks whether the server can be reached and turns
// probe results into edge-triggered online/offline events.
package reachability

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/logging"
)

// Prober checks the server once.
type Prober interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
	logger logging.Logger
}

func New(initial bool, logger logging.Logger) *Monitor {
	return &Monitor{online: initial, logger: logger.With("module", "reachability")}
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records the current state and, on a transition, notifies subscribers.
// It reports whether the state changed.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return false
	}
	m.online = online
	for _, ch := range m.subs {
		publish(ch, online)
	}
	return true
}

// publish replaces any undelivered event; only the latest state matters.
func publish(ch chan bool, v bool) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Subscribe returns a channel receiving true on became-reachable and false
// on became-unreachable.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 1)
	m.subs = append(m.subs, ch)
	return ch
}

// Probe pings once with the given timeout and updates the state.
func (m *Monitor) Probe(ctx context.Context, p Prober, timeout time.Duration) bool {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	err := p.Ping(pctx)
	cancel()

	online := err == nil
	if m.Set(online) {
		if online {
			m.logger.Info(ctx, "Switched to online mode")
		} else {
			m.logger.Warn(ctx, "Switched to offline mode", "error", err)
		}
	}
	return online
}

// Watch probes immediately and then every interval until ctx is done.
func (m *Monitor) Watch(ctx context.Context, interval, timeout time.Duration, p Prober) {
	m.Probe(ctx, p, timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Probe(ctx, p, timeout)
		case <-ctx.Done():
			return
		}
	}
}
