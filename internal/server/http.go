package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bennie10colado/JogoPOO-FORK/internal/auth"
	"github.com/bennie10colado/JogoPOO-FORK/internal/config"
	"github.com/bennie10colado/JogoPOO-FORK/internal/game"
)

// NewHTTPServer wires every route of the API service. The auth middleware
// wraps the whole mux; anonymous requests pass through and are rejected by
// the services that require identity.
func NewHTTPServer(
	cfg *config.App,
	logger zerolog.Logger,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	authSvc *auth.Service,
	authHandlers *auth.HTTPHandlers,
	gameHandlers *game.HTTPHandlers,
	rankHandler http.HandlerFunc,
) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Auth and accounts
	mux.HandleFunc("/v1/auth/register", authHandlers.Register)
	mux.HandleFunc("/v1/auth/register-admin", authHandlers.RegisterAdmin)
	mux.HandleFunc("/v1/auth/login", authHandlers.Login)
	mux.HandleFunc("/v1/auth/refresh", authHandlers.RefreshToken)
	mux.HandleFunc("/v1/auth/forgot-password", authHandlers.ForgotPassword)
	mux.HandleFunc("/v1/auth/reset-password", authHandlers.ResetPassword)
	mux.HandleFunc("/v1/auth/change-password", authHandlers.ChangePassword)
	mux.HandleFunc("/v1/players/me", authHandlers.GetMe)
	mux.HandleFunc("/v1/players", authHandlers.ListPlayers)

	// Player ranking
	if rankHandler != nil {
		mux.HandleFunc("/v1/players/rank", rankHandler)
	}

	// Catalog
	mux.HandleFunc("/v1/categories", gameHandlers.Categories)
	mux.HandleFunc("/v1/categories/{id}", gameHandlers.CategoryByID)
	mux.HandleFunc("/v1/questions", gameHandlers.Questions)
	mux.HandleFunc("/v1/questions/{id}", gameHandlers.QuestionByID)

	// Match configurations
	mux.HandleFunc("/v1/configs", gameHandlers.Configs)
	mux.HandleFunc("/v1/configs/presets", gameHandlers.PresetConfigs)
	mux.HandleFunc("/v1/configs/{id}", gameHandlers.ConfigByID)
	mux.HandleFunc("/v1/configs/{id}/rank", gameHandlers.ConfigRank)

	// Match sessions
	mux.HandleFunc("/v1/sessions", gameHandlers.Sessions)
	mux.HandleFunc("/v1/sessions/active", gameHandlers.ActiveSessions)
	mux.HandleFunc("/v1/sessions/rank", gameHandlers.SessionsRank)
	mux.HandleFunc("/v1/sessions/{id}", gameHandlers.SessionByID)
	mux.HandleFunc("/v1/sessions/{id}/question", gameHandlers.SessionQuestion)
	mux.HandleFunc("/v1/sessions/{id}/answer", gameHandlers.SubmitAnswer)

	handler := auth.Middleware(authSvc, logger)(mux)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	return redisClient.Ping(ctx).Err()
}
