// Package main запускает HTTP-сервер магазина школьных принадлежностей.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/schoolshop/internal/checkout"
	"github.com/mmeshcher/schoolshop/internal/config"
	"github.com/mmeshcher/schoolshop/internal/handler"
	"github.com/mmeshcher/schoolshop/internal/middleware"
	"github.com/mmeshcher/schoolshop/internal/noest"
	"github.com/mmeshcher/schoolshop/internal/notification"
	"github.com/mmeshcher/schoolshop/internal/relay"
	"github.com/mmeshcher/schoolshop/internal/repository"
	"github.com/mmeshcher/schoolshop/internal/service"
	"github.com/mmeshcher/schoolshop/internal/shipping"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	store, closeStore := newNotificationStore(ctx, cfg, sugar)
	defer closeStore()

	rates := shipping.Default()
	noestClient := noest.NewClient(cfg.NoestBaseURL, cfg.NoestTimeout)
	courier := relay.New(noestClient, cfg.NoestCredentials(), logger.Named("relay"))

	svc := service.NewService(repo, checkout.NewAssembler(rates), store, courier, logger.Named("service"))
	defer svc.Close()

	auth := middleware.NewAdminAuth(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminSecret)
	if !auth.Configured() {
		sugar.Warn("admin credentials are not set, admin API is disabled")
	}

	h := handler.NewHandler(svc, courier, rates, auth, logger)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting storefront server",
			"addr", cfg.RunAddress,
			"noest", cfg.NoestBaseURL,
			"noest_credentials", cfg.NoestAPIToken != "" && cfg.NoestUserGUID != "",
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// newNotificationStore выбирает Redis, если он настроен, иначе хранит уведомления в памяти.
func newNotificationStore(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (notification.Store, func()) {
	if cfg.RedisAddr == "" {
		return notification.NewMemoryStore(notification.DefaultCapacity), func() {}
	}

	store, err := notification.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		sugar.Fatalw("redis initialization error", "error", err.Error())
	}
	sugar.Infow("admin notifications stored in redis", "addr", cfg.RedisAddr)

	return store, func() {
		if err := store.Close(); err != nil {
			sugar.Warnw("close redis", "error", err.Error())
		}
	}
}
