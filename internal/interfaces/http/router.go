// Package http assembles the gin engine and the server lifecycle around it.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/prometheus"
	"github.com/kFady/stereo-site-1/internal/interfaces/http/handlers"
	"github.com/kFady/stereo-site-1/internal/interfaces/http/middleware"
)

// RouterConfig aggregates everything the router mounts.  Optional handlers
// may be nil; their routes are simply not registered.
type RouterConfig struct {
	ServerConfig config.ServerConfig
	Logger       logging.Logger
	Metrics      *prometheus.AppMetrics
	Collector    prometheus.MetricsCollector

	Sessions *handlers.SessionHandler
	Analysis *handlers.AnalysisHandler
	Sketches *handlers.SketchHandler
	Stream   *handlers.StreamHandler
	Health   *handlers.HealthHandler
}

// NewRouter builds the gin engine with the middleware chain and all routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.ServerConfig.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger, cfg.Metrics, middleware.DefaultLoggingConfig()))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.ServerConfig.AllowedOrigins)))

	if cfg.ServerConfig.RateLimitRPS > 0 {
		limiter := middleware.NewTokenBucketLimiter(
			cfg.ServerConfig.RateLimitRPS,
			cfg.ServerConfig.RateLimitBurst,
			0, // the server owns cleanup via its own limiter instance
		)
		r.Use(middleware.RateLimit(limiter, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.ServerConfig.RateLimitRPS,
			Burst:             cfg.ServerConfig.RateLimitBurst,
			SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		}))
	}

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Collector != nil {
		r.GET("/metrics", gin.WrapH(cfg.Collector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.Sessions != nil {
		cfg.Sessions.Register(api)
	}
	if cfg.Analysis != nil {
		cfg.Analysis.Register(api)
	}
	if cfg.Sketches != nil {
		cfg.Sketches.Register(api)
	}
	if cfg.Stream != nil {
		cfg.Stream.Register(api)
	}

	return r
}
