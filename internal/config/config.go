// Package config defines all configuration structures for the stereo-site
// service.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the saved-sketch
// store.  Disabled deployments keep sketches in memory only.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters for the shared result-cache
// tier.  When disabled the service falls back to the in-process LRU only.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters for the
// mol-block payload archive.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ProviderConfig holds the primary AI provider parameters.
type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// PubChemConfig holds PubChem PUG REST client parameters.
type PubChemConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RequestsPerSec int           `mapstructure:"requests_per_sec"`
}

// EditorConfig holds geometry-engine tunables.  All lengths are in model
// units unless suffixed Px (device pixels at scale 1).
type EditorConfig struct {
	BondLength      float64 `mapstructure:"bond_length"`
	AtomHitRadiusPx float64 `mapstructure:"atom_hit_radius_px"`
	BondHitRadiusPx float64 `mapstructure:"bond_hit_radius_px"`
	MultiBondGapPx  float64 `mapstructure:"multi_bond_gap_px"`
	RingRadius      float64 `mapstructure:"ring_radius"`
	ZoomStep        float64 `mapstructure:"zoom_step"`
	MinScale        float64 `mapstructure:"min_scale"`
	MaxScale        float64 `mapstructure:"max_scale"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
}

// CacheConfig holds result-cache sizing.
type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "text"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the entire service.
// Every infrastructure component and application service reads its settings
// from the relevant sub-struct.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Provider ProviderConfig `mapstructure:"provider"`
	PubChem  PubChemConfig  `mapstructure:"pubchem"`
	Editor   EditorConfig   `mapstructure:"editor"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database (only when the sketch store is enabled)
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required when database.enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required when database.enabled")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required when database.enabled")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
		}
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis.enabled")
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required when minio.enabled")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required when minio.enabled")
		}
	}

	// Provider
	if c.Provider.Model == "" {
		return fmt.Errorf("config: provider.model is required")
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("config: provider.max_retries must be >= 0, got %d", c.Provider.MaxRetries)
	}
	if c.Provider.BackoffMultiplier < 1 {
		return fmt.Errorf("config: provider.backoff_multiplier must be >= 1, got %g", c.Provider.BackoffMultiplier)
	}

	// PubChem
	if c.PubChem.BaseURL == "" {
		return fmt.Errorf("config: pubchem.base_url is required")
	}
	if c.PubChem.RequestsPerSec < 1 {
		return fmt.Errorf("config: pubchem.requests_per_sec must be >= 1, got %d", c.PubChem.RequestsPerSec)
	}

	// Editor
	if c.Editor.BondLength <= 0 {
		return fmt.Errorf("config: editor.bond_length must be > 0, got %g", c.Editor.BondLength)
	}
	if c.Editor.MinScale <= 0 || c.Editor.MaxScale <= c.Editor.MinScale {
		return fmt.Errorf("config: editor scale bounds [%g, %g] are invalid", c.Editor.MinScale, c.Editor.MaxScale)
	}
	if c.Editor.ZoomStep <= 1 {
		return fmt.Errorf("config: editor.zoom_step must be > 1, got %g", c.Editor.ZoomStep)
	}

	// Cache
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("config: cache.max_entries must be >= 1, got %d", c.Cache.MaxEntries)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	return nil
}
