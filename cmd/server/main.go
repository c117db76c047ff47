// Command em-server starts the expense manager HTTP API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"expense-manager/internal/cache"
	"expense-manager/internal/config"
	"expense-manager/internal/crypto"
	"expense-manager/internal/limiter"
	"expense-manager/internal/migrate"
	"expense-manager/internal/report"
	"expense-manager/internal/repository/postgres"
	httpserver "expense-manager/internal/server/http"
	"expense-manager/internal/service"
	"expense-manager/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const pruneInterval = time.Hour

// main loads configuration, runs migrations, and starts the HTTP server.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	userRepo := postgres.NewUserRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)
	revocations := postgres.NewRevocationRepo(db)

	lim := limiter.NewPG(pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)

	tokens, err := token.NewService(cfg.TokenSecret, cfg.TokenAlg, revocations)
	if err != nil {
		logger.Fatal("token service", zap.Error(err))
	}
	tokens = tokens.WithAuditHook(func(reason string) {
		logger.Warn("token rejected", zap.String("reason", reason))
	})

	// Services
	hasher := crypto.NewHasher(cfg.HashCost)
	authSvc := service.NewAuthService(userRepo, hasher, tokens, lim, cfg.AccessTTL, cfg.RefreshTTL)
	ledgerSvc := service.NewLedgerService(ledgerRepo, cfg.Currency)

	agg := report.NewAggregator(ledgerRepo, cfg.Currency)
	renderer := report.NewRenderer(cfg.RowsPerPage)
	docs := cache.NewLRU[*report.DocumentModel](cfg.CacheSize, cfg.CacheTTL)
	reportSvc := service.NewReportService(agg, renderer, docs)

	// Expired per-token revocations are only garbage once the tokens
	// themselves have expired.
	go func() {
		t := time.NewTicker(pruneInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := revocations.PruneExpired(ctx, time.Now().UTC())
				if err != nil {
					logger.Warn("prune revocations", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("pruned revocations", zap.Int64("count", n))
				}
			}
		}
	}()

	app := httpserver.New(authSvc, ledgerSvc, reportSvc, tokens, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
