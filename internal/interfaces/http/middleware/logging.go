package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/prometheus"
	"github.com/kFady/stereo-site-1/pkg/errors"
)

// LoggingConfig controls the request logger.
type LoggingConfig struct {
	// SkipPaths are exact request paths that are not logged (health probes,
	// metrics scrapes).
	SkipPaths []string

	// SlowThreshold promotes successful requests slower than this to a
	// warning.  Zero disables the check.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips the operational endpoints and flags requests
// slower than a second.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: time.Second,
	}
}

// Logging logs each request with latency and status, choosing the level from
// the response class, and records the HTTP request metrics.  Metrics may be
// nil.
func Logging(logger logging.Logger, metrics *prometheus.AppMetrics, cfg LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	log := logger.Named("http")

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		// Use the route template so metric cardinality stays bounded.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()

		if metrics != nil {
			prometheus.RecordHTTPRequest(metrics, c.Request.Method, path, status, elapsed)
		}

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("latency", elapsed),
			logging.String("client_ip", c.ClientIP()),
			logging.String("request_id", GetRequestID(c)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case cfg.SlowThreshold > 0 && elapsed > cfg.SlowThreshold:
			log.Warn("slow request", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// Recovery converts panics into a 500 response and logs the panic value with
// the request context, instead of letting gin print to stderr.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("request handler panicked",
					logging.Any("panic", r),
					logging.String("method", c.Request.Method),
					logging.String("path", c.Request.URL.Path),
					logging.String("request_id", GetRequestID(c)))
				c.AbortWithStatusJSON(errors.HTTPStatusForCode(errors.ErrCodeInternal), gin.H{
					"success": false,
					"error": gin.H{
						"code":    string(errors.ErrCodeInternal),
						"message": errors.DefaultMessageForCode(errors.ErrCodeInternal),
					},
				})
			}
		}()
		c.Next()
	}
}
