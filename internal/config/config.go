// Package config loads the storefront configuration from defaults, an optional
// YAML file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type AppConfig struct {
	Name         string        `yaml:"name"`
	Port         string        `yaml:"port"`
	Env          string        `yaml:"env"`
	LogLevel     string        `yaml:"log_level"`
	StoreDriver  string        `yaml:"store_driver"`
	AutoMigrate  bool          `yaml:"auto_migrate"`
	ShutdownWait time.Duration `yaml:"shutdown_wait"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	ProductTTL time.Duration `yaml:"product_ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type PaymentConfig struct {
	BaseURL   string        `yaml:"base_url"`
	KeyID     string        `yaml:"key_id"`
	KeySecret string        `yaml:"key_secret"`
	Currency  string        `yaml:"currency"`
	Timeout   time.Duration `yaml:"timeout"`
}

type S3Config struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type Config struct {
	App      AppConfig      `yaml:"app"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Payment  PaymentConfig  `yaml:"payment"`
	S3       S3Config       `yaml:"s3"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:         "storefront",
			Port:         "8080",
			Env:          "development",
			LogLevel:     "info",
			StoreDriver:  DriverPostgres,
			ShutdownWait: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			Port:            "5432",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MigrationsPath:  "migrations",
		},
		Redis: RedisConfig{
			ProductTTL: 10 * time.Minute,
		},
		Payment: PaymentConfig{
			Currency: "INR",
			Timeout:  10 * time.Second,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Load builds the configuration. yamlPath and envPath are optional; a missing
// .env file is not an error, a missing YAML file that was asked for is.
func Load(yamlPath, envPath string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: invalid config file %s: %w", yamlPath, err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", envPath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	str("APP_NAME", &cfg.App.Name)
	str("APP_PORT", &cfg.App.Port)
	str("APP_ENV", &cfg.App.Env)
	str("LOG_LEVEL", &cfg.App.LogLevel)
	str("STORE_DRIVER", &cfg.App.StoreDriver)

	str("DB_HOST", &cfg.Postgres.Host)
	str("DB_PORT", &cfg.Postgres.Port)
	str("DB_USER", &cfg.Postgres.User)
	str("DB_PASSWORD", &cfg.Postgres.Password)
	str("DB_NAME", &cfg.Postgres.DBName)
	str("DB_SSLMODE", &cfg.Postgres.SSLMode)
	str("DB_MIGRATIONS_PATH", &cfg.Postgres.MigrationsPath)

	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)

	str("JWT_SECRET", &cfg.Auth.JWTSecret)

	str("PAYMENT_BASE_URL", &cfg.Payment.BaseURL)
	str("PAYMENT_KEY_ID", &cfg.Payment.KeyID)
	str("PAYMENT_KEY_SECRET", &cfg.Payment.KeySecret)
	str("PAYMENT_CURRENCY", &cfg.Payment.Currency)

	str("S3_BUCKET", &cfg.S3.Bucket)
	str("S3_REGION", &cfg.S3.Region)
	str("S3_ENDPOINT", &cfg.S3.Endpoint)
	str("S3_ACCESS_KEY", &cfg.S3.AccessKey)
	str("S3_SECRET_KEY", &cfg.S3.SecretKey)
	str("S3_PUBLIC_BASE_URL", &cfg.S3.PublicBaseURL)

	if v := os.Getenv("APP_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: APP_AUTO_MIGRATE: %w", err)
		}
		cfg.App.AutoMigrate = b
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DB_MAX_CONN_LIFETIME", &cfg.Postgres.MaxConnLifetime},
		{"REDIS_PRODUCT_TTL", &cfg.Redis.ProductTTL},
		{"PAYMENT_TIMEOUT", &cfg.Payment.Timeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	conns := []struct {
		key string
		dst *int32
	}{
		{"DB_MAX_CONNS", &cfg.Postgres.MaxConns},
		{"DB_MIN_CONNS", &cfg.Postgres.MinConns},
	}
	for _, c := range conns {
		if v := os.Getenv(c.key); v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				return fmt.Errorf("config: %s: %w", c.key, err)
			}
			*c.dst = int32(n)
		}
	}

	return nil
}

// Validate reports the first missing required value.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}

	switch c.App.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres.Host == "" {
			return errors.New("config: DB_HOST is required")
		}
		if c.Postgres.User == "" {
			return errors.New("config: DB_USER is required")
		}
		if c.Postgres.DBName == "" {
			return errors.New("config: DB_NAME is required")
		}
		if c.Postgres.MinConns > c.Postgres.MaxConns {
			return fmt.Errorf("config: min_conns %d exceeds max_conns %d", c.Postgres.MinConns, c.Postgres.MaxConns)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.App.StoreDriver)
	}

	return nil
}

// IsDevelopment selects human-readable console logging.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
