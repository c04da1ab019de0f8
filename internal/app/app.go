package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nsharathc/quizlive/internal/auth"
	"github.com/nsharathc/quizlive/internal/config"
	"github.com/nsharathc/quizlive/internal/db/repository"
	"github.com/nsharathc/quizlive/internal/leaderboard"
	"github.com/nsharathc/quizlive/internal/logging"
	"github.com/nsharathc/quizlive/internal/server"
	"github.com/nsharathc/quizlive/internal/session"
	ws "github.com/nsharathc/quizlive/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server) and
// the in-memory session engine.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	registry  *session.Registry
	persister *session.Persister
	bgCancels []context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be configured")
	}

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	store := repository.NewSessionRepository(pool)
	verifier := auth.NewVerifier([]byte(cfg.Security.JWTSecret))

	persister := session.NewPersister(logger, session.PersisterOptions{
		QueueSize:  cfg.Persister.QueueSize,
		MaxRetries: cfg.Persister.MaxRetries,
		BaseDelay:  cfg.Persister.BaseDelay,
		OpTimeout:  cfg.Persister.OpTimeout,
	})

	wsHub := ws.NewHub(logger)
	sink := session.NewHubSink(wsHub, logger)
	archive := leaderboard.NewArchive(redisClient, logger, leaderboard.ArchiveOptions{
		TopN: cfg.Standings.TopN,
	})

	registry := session.NewRegistry(store, persister, sink, archive, logger)

	sessionHandler := session.NewHandler(registry, wsHub, verifier, logger)
	standingsHandler := leaderboard.NewHTTPHandler(archive, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Handlers{
		SessionWS:     sessionHandler.HandleWebSocket,
		SessionCreate: sessionHandler.HandleCreate,
		SessionGet:    sessionHandler.HandleGet,
		StandingsGet:  standingsHandler.HandleGet,
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		registry:  registry,
		persister: persister,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and persister worker and waits for termination
// signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	persistCtx, cancelPersist := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancelPersist)
	persistDone := make(chan struct{})
	go func() {
		defer close(persistDone)
		if err := a.persister.Run(persistCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("persister stopped")
		}
	}()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	// End live sessions first so their final flushes land on the persister
	// queue, then cancel the worker and let it drain.
	a.registry.Shutdown()

	for _, cancel := range a.bgCancels {
		cancel()
	}
	select {
	case <-persistDone:
	case <-shutdownCtx.Done():
		a.logger.Warn().Msg("persister drain timed out")
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
