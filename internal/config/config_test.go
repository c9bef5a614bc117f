package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, config.DriverMemory, cfg.App.StoreDriver)
	assert.Equal(t, 10*time.Minute, cfg.Redis.ProductTTL)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
app:
  port: "9000"
  env: production
postgres:
  host: db.internal
  user: shop
  dbname: shop
  max_conns: 20
  max_conn_lifetime: 30m
redis:
  product_ttl: 1m
auth:
  jwt_secret: from-yaml
`)
	t.Setenv("APP_PORT", "9100")
	t.Setenv("DB_MIN_CONNS", "4")

	cfg, err := config.Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.App.Port, "environment wins over the file")
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, int32(20), cfg.Postgres.MaxConns)
	assert.Equal(t, int32(4), cfg.Postgres.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.MaxConnLifetime)
	assert.Equal(t, time.Minute, cfg.Redis.ProductTTL)
	assert.Equal(t, "from-yaml", cfg.Auth.JWTSecret)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_DotEnv(t *testing.T) {
	envPath := writeFile(t, ".env", "JWT_SECRET=from-dotenv\nSTORE_DRIVER=memory\n")
	// godotenv never overrides variables that already exist, empty or not.
	for _, key := range []string{"JWT_SECRET", "STORE_DRIVER"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := config.Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	_, err := config.Load("", filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoad_RequiredValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "jwt_secret",
			env:     map[string]string{"STORE_DRIVER": "memory"},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "db_host",
			env:     map[string]string{"JWT_SECRET": "s", "DB_USER": "u", "DB_NAME": "n"},
			wantErr: "DB_HOST is required",
		},
		{
			name:    "unknown_driver",
			env:     map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "mongo"},
			wantErr: `unknown store driver "mongo"`,
		},
		{
			name:    "bad_duration",
			env:     map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "memory", "PAYMENT_TIMEOUT": "soon"},
			wantErr: "PAYMENT_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"JWT_SECRET", "STORE_DRIVER", "DB_HOST", "DB_USER", "DB_NAME"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load("", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
