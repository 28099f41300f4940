package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/alvinkenyagah/hope-connect-server/internal/app/migrate"
	httpx "github.com/alvinkenyagah/hope-connect-server/internal/http"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository/postgres"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/access"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/admin"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/appointments"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/assessments"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/assignment"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/auth"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/caseload"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/chat"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/notes"
	"github.com/alvinkenyagah/hope-connect-server/internal/ws"
	"github.com/alvinkenyagah/hope-connect-server/pkg/config"
	"github.com/alvinkenyagah/hope-connect-server/pkg/crypto"
	"github.com/alvinkenyagah/hope-connect-server/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := config.GetString("ENV_FILE", ".env")
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", envFile, err)
		os.Exit(1)
	}
	cfg := config.LoadAPIConfig()
	log := logger.New("hope-connect-api", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	codec, err := crypto.NewCodec(cfg.EncryptionKey)
	if err != nil {
		log.Error("invalid encryption key", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner, err := migrate.New(ctx, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	_ = runner.Close()

	repo := postgres.New(pool)
	engine := access.New(repo, log)
	authSvc, err := auth.New(repo, log, cfg)
	if err != nil {
		log.Error("failed to configure auth", "error", err)
		os.Exit(1)
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Error("admin bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	services := httpx.Services{
		Auth:         authSvc,
		Access:       engine,
		Chat:         chat.New(repo, engine, codec, log),
		Assignment:   assignment.New(repo, log),
		Admin:        admin.New(repo, authSvc, log),
		Caseload:     caseload.New(repo, repo, log),
		Notes:        notes.New(repo, engine, log),
		Appointments: appointments.New(repo, repo, log),
		Assessments:  assessments.New(repo, engine, log),
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(ctx, addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, services, httpx.Options{
		Limiter:           limiter,
		DBHealth:          pool.Ping,
		AllowedOrigins:    cfg.ClientOrigins,
		Hub:               ws.NewHub(log),
		WSSendBuffer:      cfg.WSSendBuffer,
		WSMaxMessageBytes: cfg.WSMaxMessageBytes,
		DBTimeout:         cfg.DBTimeout,
		RealtimeContext:   ctx,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
			return err
		}
		log.Info("api server stopped")
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
