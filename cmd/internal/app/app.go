// Package app wires the pazar auth service runtime: config, logging, the
// database pool, migrations, HTTP routes, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	authapi "pazar/cmd/internal/auth/api"
	"pazar/cmd/internal/metrics"
)

// App is the service runtime. It owns the database pool and the HTTP
// server wiring.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool

	auth *authapi.Handler
	m    *metrics.Metrics
}

// New constructs a fully wired App from config and logger.
//
// The database is mandatory: every credential and session read goes through
// Postgres, so there is no in-memory mode to fall back to.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogPretty)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: PAZAR_DATABASE_URL is required")
	}

	tokCfg, err := ValidateSecurityConfig()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	if cfg.MigrateOnStart {
		if err := MigrateUp(ctx, cfg, log); err != nil {
			return nil, err
		}
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New("pazar")

	auth, err := authapi.NewHandler(log, pool, authapi.LoadConfigFromEnv(), tokCfg,
		authapi.WithMetrics(m))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		cfg:    cfg,
		log:    log,
		dbPool: pool,
		auth:   auth,
		m:      m,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.auth, a.m)

	var handler http.Handler = mux
	handler = a.m.Middleware(handler)
	handler = WithSecurityHeaders(handler)
	if len(a.cfg.CORSAllowedOrigins) > 0 {
		handler = WithCORS(handler, a.cfg, a.log)
	}
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
