package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds every runtime setting of the service.
type Config struct {
	AppPort            string
	DBDriver           string
	DatabasePath       string
	DatabaseDSN        string
	AdminUsername      string
	SecretKey          string
	SessionBackend     string
	RedisURL           string
	SessionTTL         time.Duration
	ResetTokenTTL      time.Duration
	TokenSweepInterval time.Duration
	RememberMeTTL      time.Duration
	RabbitMQURL        string
	BcryptCost         int
	DisplayLocation    *time.Location
	ExposeResetTokens  bool
	SnapshotMaxBytes   int
	LogLevel           string
	LogFormat          string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_PATH", "data/database.db")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=comparador port=5432 sslmode=disable")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("SESSION_BACKEND", SessionBackendMemory)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("TOKEN_SWEEP_INTERVAL", "0s")
	v.SetDefault("REMEMBER_ME_TTL", "720h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("DISPLAY_TIMEZONE", "America/Argentina/Buenos_Aires")
	v.SetDefault("EXPOSE_RESET_TOKENS", false)
	v.SetDefault("SNAPSHOT_MAX_BYTES", 64<<20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads the configuration from v. Environment variables override defaults, and
// CONFIG_FILE, when set, names a file merged underneath the environment.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DatabasePath:       v.GetString("DATABASE_PATH"),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		AdminUsername:      v.GetString("ADMIN_USERNAME"),
		SecretKey:          v.GetString("SECRET_KEY"),
		SessionBackend:     strings.ToLower(v.GetString("SESSION_BACKEND")),
		RedisURL:           v.GetString("REDIS_URL"),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		ResetTokenTTL:      v.GetDuration("RESET_TOKEN_TTL"),
		TokenSweepInterval: v.GetDuration("TOKEN_SWEEP_INTERVAL"),
		RememberMeTTL:      v.GetDuration("REMEMBER_ME_TTL"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		ExposeResetTokens:  v.GetBool("EXPOSE_RESET_TOKENS"),
		SnapshotMaxBytes:   v.GetInt("SNAPSHOT_MAX_BYTES"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}

	loc, err := time.LoadLocation(v.GetString("DISPLAY_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE: %w", err)
	}
	cfg.DisplayLocation = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}

	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required")
	}
	if c.SessionTTL <= 0 || c.ResetTokenTTL <= 0 || c.RememberMeTTL <= 0 {
		return fmt.Errorf("SESSION_TTL, RESET_TOKEN_TTL and REMEMBER_ME_TTL must be positive")
	}
	if c.TokenSweepInterval < 0 {
		return fmt.Errorf("TOKEN_SWEEP_INTERVAL must not be negative")
	}
	if c.SnapshotMaxBytes <= 0 {
		return fmt.Errorf("SNAPSHOT_MAX_BYTES must be positive")
	}
	return nil
}
