package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ameed2001/buildtrack/internal/core/domain"
	"github.com/ameed2001/buildtrack/internal/infra/config"
	"github.com/ameed2001/buildtrack/internal/infra/logger"
	"github.com/ameed2001/buildtrack/internal/infra/security"
	"github.com/ameed2001/buildtrack/internal/infra/telemetry"
	"github.com/ameed2001/buildtrack/internal/repository/filestore"
	"github.com/ameed2001/buildtrack/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "buildtrack: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	metrics := telemetry.New(prometheus.DefaultRegisterer)

	store := filestore.New(cfg.Store.Path, cfg.Store.StalenessWindow, log).WithMetrics(metrics)

	sessionSecret := cfg.Session.Secret
	if sessionSecret == "" {
		// Ephemeral secret: sessions do not survive a restart, which is
		// acceptable for development but should be configured in production.
		sessionSecret, err = security.GenerateSecureToken(32)
		if err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		log.Warn("session secret not configured, using an ephemeral one")
	}
	sessions := security.NewSessionManager(sessionSecret, cfg.App.Name, cfg.Session.TTL)

	audit := usecase.NewAuditService(store, log, metrics)
	accounts := usecase.NewAccountService(cfg, store, audit, sessions, log, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := seedAdmin(ctx, cfg, store, accounts, log); err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}

	if err := audit.Record(ctx, "system.start", domain.LogLevelInfo, "service started", cfg.App.Name); err != nil {
		log.Warn("startup audit entry failed", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener failed", zap.Error(err))
		}
	}()

	log.Info("buildtrack ready",
		zap.String("store", cfg.Store.Path),
		zap.Int("metrics_port", cfg.Telemetry.MetricsPort))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics listener shutdown failed", zap.Error(err))
	}

	log.Info("buildtrack stopped")
	return nil
}

// seedAdmin creates the configured administrator account when the store has
// no active ADMIN; an empty store is unadministrable otherwise.
func seedAdmin(ctx context.Context, cfg *config.AppConfig, store *filestore.Store, accounts *usecase.AccountService, log *zap.Logger) error {
	snap, err := store.Load(ctx, true)
	if err != nil {
		return err
	}

	for i := range snap.Accounts {
		if snap.Accounts[i].Role == domain.RoleAdmin && snap.Accounts[i].Status == domain.AccountStatusActive {
			return nil
		}
	}

	password := cfg.Seed.AdminPassword
	if password == "" {
		password, err = security.GenerateSecureToken(12)
		if err != nil {
			return err
		}
		log.Warn("seed admin password not configured, generated one",
			zap.String("email", cfg.Seed.AdminEmail),
			zap.String("password", password))
	}

	admin, err := accounts.Register(ctx, usecase.RegisterInput{
		Name:     cfg.Seed.AdminName,
		Email:    cfg.Seed.AdminEmail,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrEmailExists) {
			return nil
		}
		return err
	}

	log.Info("seed administrator created", zap.String("id", admin.ID))
	return nil
}
