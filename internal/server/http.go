package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nsharathc/quizlive/internal/config"
	"github.com/nsharathc/quizlive/internal/logging"
	httperrors "github.com/nsharathc/quizlive/pkg/http/errors"
)

// WSUpgrader handles WebSocket upgrades (configure CORS/security as needed).
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handlers groups the route handlers wired into the HTTP server. Nil
// entries leave their routes unregistered.
type Handlers struct {
	SessionWS     http.HandlerFunc
	SessionCreate http.HandlerFunc
	SessionGet    http.HandlerFunc
	StandingsGet  http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics) plus session and
// standings endpoints for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, handlers Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, pool, redis); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "dependency unavailable")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if handlers.SessionWS != nil {
		mux.HandleFunc("/ws/sessions", handlers.SessionWS)
	}
	if handlers.SessionCreate != nil {
		mux.HandleFunc("/v1/sessions", handlers.SessionCreate)
	}
	if handlers.SessionGet != nil {
		mux.HandleFunc("/v1/sessions/", handlers.SessionGet)
	}
	if handlers.StandingsGet != nil {
		mux.HandleFunc("/v1/standings/", handlers.StandingsGet)
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
