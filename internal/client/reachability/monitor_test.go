package reachability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	down  atomic.Bool
	calls atomic.Int32
}

func (f *fakeProber) Ping(ctx context.Context) error {
	f.calls.Add(1)
	if f.down.Load() {
		return errors.New("unreachable")
	}
	return nil
}

func TestSet_OnlyEdgesNotify(t *testing.T) {
	m := New(false, logging.NewNop())
	ch := m.Subscribe()

	assert.False(t, m.Set(false))
	select {
	case <-ch:
		t.Fatal("no event expected without a transition")
	default:
	}

	assert.True(t, m.Set(true))
	assert.True(t, m.Online())
	assert.True(t, <-ch)

	assert.True(t, m.Set(false))
	assert.False(t, <-ch)
}

func TestSet_LatestEventWins(t *testing.T) {
	m := New(false, logging.NewNop())
	ch := m.Subscribe()

	m.Set(true)
	m.Set(false)
	m.Set(true)

	require.Len(t, ch, 1)
	assert.True(t, <-ch)
}

func TestProbe_TracksPingResult(t *testing.T) {
	m := New(false, logging.NewNop())
	p := &fakeProber{}

	assert.True(t, m.Probe(context.Background(), p, time.Second))
	assert.True(t, m.Online())

	p.down.Store(true)
	assert.False(t, m.Probe(context.Background(), p, time.Second))
	assert.False(t, m.Online())
}

func TestWatch_ProbesUntilCancelled(t *testing.T) {
	m := New(false, logging.NewNop())
	p := &fakeProber{}
	ch := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Watch(ctx, 5*time.Millisecond, time.Second, p)
		close(done)
	}()

	select {
	case v := <-ch:
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("expected online event")
	}

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
