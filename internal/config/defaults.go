// Package config provides configuration loading, defaults, and validation for
// the stereo-site service.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "stereosite"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "molblocks"

	DefaultProviderModel   = "gpt-4o-mini"
	DefaultPubChemBaseURL  = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	DefaultPubChemRPS      = 5

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Editor geometry defaults.  BondLength is the standard edge length in
	// model units; hit radii are screen-space pixels at scale 1.
	DefaultBondLength      = 60.0
	DefaultAtomHitRadiusPx = 12.0
	DefaultBondHitRadiusPx = 8.0
	DefaultMultiBondGapPx  = 4.0
	DefaultRingRadius      = 60.0
	DefaultZoomStep        = 1.2
	DefaultMinScale        = 0.2
	DefaultMaxScale        = 5.0

	DefaultCacheMaxEntries = 1024
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.  Fields
// already set by the caller are left unchanged so explicit configuration
// always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 50
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 100
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "stereo"
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Provider ──────────────────────────────────────────────────────────────
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultProviderModel
	}
	if cfg.Provider.RequestTimeout == 0 {
		cfg.Provider.RequestTimeout = 60 * time.Second
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 3
	}
	if cfg.Provider.InitialBackoff == 0 {
		cfg.Provider.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.Provider.MaxBackoff == 0 {
		cfg.Provider.MaxBackoff = 8 * time.Second
	}
	if cfg.Provider.BackoffMultiplier == 0 {
		cfg.Provider.BackoffMultiplier = 2.0
	}

	// ── PubChem ───────────────────────────────────────────────────────────────
	if cfg.PubChem.BaseURL == "" {
		cfg.PubChem.BaseURL = DefaultPubChemBaseURL
	}
	if cfg.PubChem.RequestTimeout == 0 {
		cfg.PubChem.RequestTimeout = 15 * time.Second
	}
	if cfg.PubChem.RequestsPerSec == 0 {
		cfg.PubChem.RequestsPerSec = DefaultPubChemRPS
	}

	// ── Editor ────────────────────────────────────────────────────────────────
	if cfg.Editor.BondLength == 0 {
		cfg.Editor.BondLength = DefaultBondLength
	}
	if cfg.Editor.AtomHitRadiusPx == 0 {
		cfg.Editor.AtomHitRadiusPx = DefaultAtomHitRadiusPx
	}
	if cfg.Editor.BondHitRadiusPx == 0 {
		cfg.Editor.BondHitRadiusPx = DefaultBondHitRadiusPx
	}
	if cfg.Editor.MultiBondGapPx == 0 {
		cfg.Editor.MultiBondGapPx = DefaultMultiBondGapPx
	}
	if cfg.Editor.RingRadius == 0 {
		cfg.Editor.RingRadius = DefaultRingRadius
	}
	if cfg.Editor.ZoomStep == 0 {
		cfg.Editor.ZoomStep = DefaultZoomStep
	}
	if cfg.Editor.MinScale == 0 {
		cfg.Editor.MinScale = DefaultMinScale
	}
	if cfg.Editor.MaxScale == 0 {
		cfg.Editor.MaxScale = DefaultMaxScale
	}
	if cfg.Editor.SessionTTL == 0 {
		cfg.Editor.SessionTTL = 2 * time.Hour
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
