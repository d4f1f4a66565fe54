package server

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/logging"
	"github.com/dmitrijs2005/teamspace/internal/server/auth"
	"github.com/dmitrijs2005/teamspace/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_InMemoryWhenNoDSN(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, app.db)
	require.NotNil(t, app.service)
	assert.NoError(t, app.service.Ping(context.Background()))
}

func TestNewApp_RejectsBadLogLevel(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.LogLevel = "loud"

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
}

func TestIssueDevToken(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.DevUserID = "alice"

	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Writer: &buf})
	require.NoError(t, err)
	app := &App{config: c, logger: logger}

	require.NoError(t, app.issueDevToken(context.Background()))
	assert.Contains(t, buf.String(), `"user":"alice"`)

	start := bytes.Index(buf.Bytes(), []byte(`"token":"`))
	require.GreaterOrEqual(t, start, 0)
	rest := buf.Bytes()[start+len(`"token":"`):]
	tok := string(rest[:bytes.IndexByte(rest, '"')])

	userID, err := auth.GetUserIDFromToken(tok, []byte(c.SecretKey))
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)

	app.config.DevUserID = ""
	buf.Reset()
	require.NoError(t, app.issueDevToken(context.Background()))
	assert.Empty(t, buf.String())
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
