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

	"github.com/bennie10colado/JogoPOO-FORK/internal/auth"
	"github.com/bennie10colado/JogoPOO-FORK/internal/auth/jwt"
	"github.com/bennie10colado/JogoPOO-FORK/internal/config"
	"github.com/bennie10colado/JogoPOO-FORK/internal/db/repository"
	"github.com/bennie10colado/JogoPOO-FORK/internal/game"
	"github.com/bennie10colado/JogoPOO-FORK/internal/leaderboard"
	"github.com/bennie10colado/JogoPOO-FORK/internal/logging"
	"github.com/bennie10colado/JogoPOO-FORK/internal/server"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
}

// New bootstraps config, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

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

	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	configRepo := repository.NewConfigRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be configured")
	}
	tokenCfg := jwt.TokenConfig{
		AccessSecret:  []byte(cfg.Security.JWTSecret),
		RefreshSecret: []byte(cfg.Security.JWTSecret + "_refresh"),
		Issuer:        cfg.Name,
	}

	var emailSvc *auth.EmailService
	if cfg.SMTP.Host != "" {
		emailSvc = auth.NewEmailService(auth.EmailConfig{
			SMTPHost:     cfg.SMTP.Host,
			SMTPPort:     cfg.SMTP.Port,
			SMTPUsername: cfg.SMTP.Username,
			SMTPPassword: cfg.SMTP.Password,
			FromEmail:    cfg.SMTP.FromEmail,
		}, logger)
	} else {
		logger.Warn().Msg("SMTP not configured; password recovery emails disabled")
	}

	authSvc := auth.NewService(userRepo, auth.ServiceOptions{
		TokenConfig:   tokenCfg,
		Redis:         redisClient,
		EmailSvc:      emailSvc,
		ResetTokenTTL: cfg.Security.ResetTokenTTL,
		ResetURL:      cfg.Security.PasswordResetURL,
	}, logger)
	authHandlers := auth.NewHTTPHandlers(authSvc, logger)

	leaderboardSvc := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN:      cfg.Leaderboard.TopN,
		KeyPrefix: cfg.Leaderboard.KeyPrefix,
	})

	locker := game.NewRedisLocker(redisClient, cfg.Security.SessionLockTTL, logger)
	engine := game.NewEngine(questionRepo, configRepo, sessionRepo, userRepo, locker, leaderboardSvc, logger)
	admin := game.NewAdmin(questionRepo, questionRepo)

	gameHandlers := game.NewHTTPHandlers(engine, admin, callerFromRequest, logger)
	rankHandler := leaderboard.NewHTTPHandler(leaderboardSvc, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, authSvc, authHandlers, gameHandlers, rankHandler.HandleGet)

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// callerFromRequest adapts verified JWT claims into the engine's caller
// identity. Anonymous requests map to the zero caller.
func callerFromRequest(r *http.Request) game.Caller {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return game.Caller{}
	}
	return game.Caller{ID: claims.UserID, Role: claims.Role}
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

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

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
