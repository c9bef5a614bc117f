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

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/cache"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/db"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/memstore"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
	"github.com/vasiliy-maslov/storefront/internal/report"
	"github.com/vasiliy-maslov/storefront/internal/storage"
	"github.com/vasiliy-maslov/storefront/internal/transport"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

type repositories struct {
	catalog   catalog.Repository
	orders    order.Repository
	inventory inventory.Repository
	users     user.Repository
	reports   report.Repository
	payments  payment.Repository
	health    transport.HealthCheck
	close     func()
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.App.StoreDriver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store, data is lost on exit")
		store := memstore.New()
		return &repositories{
			catalog:   store.Catalog(),
			orders:    store.Orders(),
			inventory: store.Inventory(),
			users:     store.Users(),
			reports:   store.Reports(),
			payments:  store.Payments(),
			close:     func() {},
		}, nil
	}

	if cfg.App.AutoMigrate {
		if err := db.Migrate(cfg.Postgres, db.Up); err != nil {
			return nil, err
		}
	}

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	// Reports run their aggregate queries through sqlx over the same pool.
	sqlDB := sqlx.NewDb(stdlib.OpenDBFromPool(pg.Pool), "pgx")

	return &repositories{
		catalog:   catalog.NewRepository(pg.Pool),
		orders:    order.NewRepository(pg.Pool),
		inventory: inventory.NewRepository(pg.Pool),
		users:     user.NewRepository(pg.Pool),
		reports:   report.NewRepository(sqlDB),
		payments:  payment.NewRepository(pg.Pool),
		health:    pg.Pool.Ping,
		close: func() {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close sqlx handle")
			}
			pg.Close()
		},
	}, nil
}

func openCache(ctx context.Context, cfg config.RedisConfig) (cache.Cache, func()) {
	if cfg.Addr == "" {
		return cache.Nop{}, func() {}
	}
	redisCache, err := cache.NewRedis(ctx, cache.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unavailable, product cache disabled")
		return cache.Nop{}, func() {}
	}
	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")
	return redisCache, func() { _ = redisCache.Close() }
}

func openImageStore(ctx context.Context, cfg config.S3Config) (catalog.ImageStore, error) {
	if cfg.Bucket == "" {
		return storage.Nop{}, nil
	}
	return storage.NewS3ImageStore(ctx, cfg)
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().Str("store", cfg.App.StoreDriver).Msg("Storefront starting...")

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repos.close()

	productCache, closeCache := openCache(ctx, cfg.Redis)
	defer closeCache()

	images, err := openImageStore(ctx, cfg.S3)
	if err != nil {
		return err
	}

	orders := order.NewService(repos.orders, productCache)
	gateway := payment.NewHTTPGateway(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Timeout)

	router := transport.NewRouter(transport.Services{
		Catalog:  catalog.NewService(repos.catalog, productCache, images, cfg.Redis.ProductTTL),
		Orders:   orders,
		Payments: payment.NewService(repos.payments, gateway, orders, payment.Options{KeyID: cfg.Payment.KeyID, KeySecret: cfg.Payment.KeySecret, Currency: cfg.Payment.Currency}),
		// Restocks move stock, so they invalidate the same product cache.
		Inventory: inventory.NewService(repos.inventory, productCache),
		Reports:   report.NewService(repos.reports),
		Users:     user.NewService(repos.users),
	}, auth.NewVerifier(cfg.Auth.JWTSecret), repos.health)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stopCh)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("could not listen on %s: %w", cfg.App.Port, err)
		}
		return nil
	case sig := <-stopCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownWait)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("Storefront stopped gracefully")
	return nil
}
