// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 10s
}

// DBConfig holds PostgreSQL connection settings for the event journal and
// the market read model.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// CapConfig holds manager-capability token settings.  The HTTP layer encodes
// capabilities as signed bearer tokens; in-process callers never see these.
type CapConfig struct {
	TokenSecret string        // must be set
	TokenTTL    time.Duration // default 720h (30 days)
}

// EngineConfig holds pricing engine defaults applied when a create request
// leaves the corresponding field empty.
type EngineConfig struct {
	DefaultLiquidity fixedpoint.Value // default "100"
	DefaultFeeBps    int64            // default 100 (1%)
	SummaryInterval  time.Duration    // market summary broadcast period, default 5s
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Cap    CapConfig
	Engine EngineConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	if c.Cap.TokenSecret == "" {
		errs = append(errs, errors.New("CAP_TOKEN_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Engine.DefaultFeeBps < 0 || c.Engine.DefaultFeeBps > 1000 {
		errs = append(errs, fmt.Errorf(
			"ENGINE_DEFAULT_FEE_BPS must be in [0, 1000], got %d", c.Engine.DefaultFeeBps))
	}
	if c.Engine.DefaultLiquidity.Sign() <= 0 {
		errs = append(errs, fmt.Errorf(
			"ENGINE_DEFAULT_LIQUIDITY must be positive, got %s", c.Engine.DefaultLiquidity))
	}
	if c.Engine.SummaryInterval <= 0 {
		errs = append(errs, errors.New("ENGINE_SUMMARY_INTERVAL must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "outcomemarket"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── Capability tokens ─────────────────────────────────────────────────────
	cfg.Cap = CapConfig{
		TokenSecret: getEnv("CAP_TOKEN_SECRET", ""),
		TokenTTL:    getDuration("CAP_TOKEN_TTL", 30*24*time.Hour),
	}

	// ── Engine defaults ───────────────────────────────────────────────────────
	liqStr := getEnv("ENGINE_DEFAULT_LIQUIDITY", "100")
	liquidity, err := fixedpoint.Parse(liqStr)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_DEFAULT_LIQUIDITY: %w", err)
	}
	feeBps, err := getInt("ENGINE_DEFAULT_FEE_BPS", 100)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_DEFAULT_FEE_BPS: %w", err)
	}

	cfg.Engine = EngineConfig{
		DefaultLiquidity: liquidity,
		DefaultFeeBps:    int64(feeBps),
		SummaryInterval:  getDuration("ENGINE_SUMMARY_INTERVAL", 5*time.Second),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
