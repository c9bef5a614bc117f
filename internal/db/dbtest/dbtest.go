// Package dbtest connects repository integration tests to a real Postgres.
// Tests skip unless DB_HOST_TEST is set.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

var (
	once    sync.Once
	pool    *pgxpool.Pool
	initErr error
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func migrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// Config reads the *_TEST environment variables, defaulting to a local Postgres.
func Config() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            os.Getenv("DB_HOST_TEST"),
		Port:            getenv("DB_PORT_TEST", "5432"),
		User:            getenv("DB_USER_TEST", "postgres"),
		Password:        getenv("DB_PASSWORD_TEST", "123456"),
		DBName:          getenv("DB_NAME_TEST", "storefront_test"),
		SSLMode:         getenv("DB_SSLMODE_TEST", "disable"),
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MigrationsPath:  migrationsPath(),
	}
}

// Pool returns a migrated pool shared by the whole test binary, with every table emptied.
func Pool(tb testing.TB) *pgxpool.Pool {
	tb.Helper()

	cfg := Config()
	if cfg.Host == "" {
		tb.Skip("DB_HOST_TEST not set, skipping Postgres integration test")
	}

	once.Do(func() {
		if initErr = db.Migrate(cfg, db.Up); initErr != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var pg *db.Postgres
		pg, initErr = db.New(ctx, cfg)
		if initErr == nil {
			pool = pg.Pool
		}
	})
	require.NoError(tb, initErr, "failed to prepare test database")

	Truncate(tb, pool)
	return pool
}

func Truncate(tb testing.TB, p *pgxpool.Pool) {
	tb.Helper()
	_, err := p.Exec(context.Background(),
		"TRUNCATE TABLE payment_intents, restocks, order_items, orders, reviews, products, vendors, users CASCADE")
	require.NoError(tb, err, "failed to truncate tables")
}
