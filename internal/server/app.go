// Package server initializes and runs the application server: it opens the
// database, applies migrations, assembles the session and user services, and
// serves the HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dkazakov/seqtrack/internal/logging"
	"github.com/dkazakov/seqtrack/internal/server/auth"
	"github.com/dkazakov/seqtrack/internal/server/config"
	"github.com/dkazakov/seqtrack/internal/server/httpapi"
	"github.com/dkazakov/seqtrack/internal/server/repositories/repomanager"
	"github.com/dkazakov/seqtrack/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	key, err := c.DecodedSessionJWTKey()
	if err != nil {
		return nil, fmt.Errorf("session jwt key error: %w", err)
	}
	jwtMgr, err := auth.NewSessionJWT(key, c.SessionJWTTTL, c.SessionJWTIssuer, c.SessionJWTAudience, logger)
	if err != nil {
		return nil, fmt.Errorf("session jwt init error: %w", err)
	}

	hasher := auth.NewPasswordHasher(auth.PasswordParams{
		MemoryKiB:   c.PasswordMemoryKiB,
		Time:        c.PasswordTime,
		Parallelism: c.PasswordParallelism,
	})

	sm := services.NewSessionManager(db, rm, jwtMgr, c, logger)
	us, err := services.NewUserService(db, rm, hasher, sm, logger)
	if err != nil {
		return nil, fmt.Errorf("user service init error: %w", err)
	}

	api := httpapi.NewServer(c, db, us, sm, logger)

	return &App{config: c, logger: logger, db: db, api: api}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.api.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
