// Package server wires the teamspace sync server: configuration, record
// storage (PostgreSQL or in-memory), token checks and the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/teamspace/internal/logging"
	"github.com/dmitrijs2005/teamspace/internal/server/auth"
	"github.com/dmitrijs2005/teamspace/internal/server/config"
	"github.com/dmitrijs2005/teamspace/internal/server/records"

	gs "github.com/dmitrijs2005/teamspace/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	service *records.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, _, err := logging.New(logging.Options{Level: c.LogLevel, Writer: os.Stdout})
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger}

	var repo records.Repository
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "No database configured, records are kept in memory")
		repo = records.NewMemoryRepository()
	} else {
		db, err := records.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		app.db = db
		repo = records.NewPostgresRepository(db)
	}

	app.service = records.NewService(repo, logger)
	return app, nil
}

// issueDevToken logs an access token for the configured development user.
func (app *App) issueDevToken(ctx context.Context) error {
	if app.config.DevUserID == "" {
		return nil
	}
	tok, err := auth.GenerateToken(app.config.DevUserID, []byte(app.config.SecretKey), app.config.AccessTokenValidityDuration)
	if err != nil {
		return fmt.Errorf("issue dev token: %w", err)
	}
	app.logger.Info(ctx, "Development access token issued",
		"user", app.config.DevUserID, "token", tok, "valid_for", app.config.AccessTokenValidityDuration.String())
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.service, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.issueDevToken(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database", "error", err)
		}
	}
}
