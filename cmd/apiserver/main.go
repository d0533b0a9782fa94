// API server entry point for stereo-site: wires configuration, logging,
// metrics, optional infrastructure (Postgres, Redis, MinIO), the chemistry
// providers, and the HTTP interface, then runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/kFady/stereo-site-1/internal/application/analysis"
	appeditor "github.com/kFady/stereo-site-1/internal/application/editor"
	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/infrastructure/cache"
	"github.com/kFady/stereo-site-1/internal/infrastructure/database/postgres"
	"github.com/kFady/stereo-site-1/internal/infrastructure/database/postgres/repositories"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/prometheus"
	"github.com/kFady/stereo-site-1/internal/infrastructure/storage/minio"
	httpserver "github.com/kFady/stereo-site-1/internal/interfaces/http"
	"github.com/kFady/stereo-site-1/internal/interfaces/http/handlers"
	"github.com/kFady/stereo-site-1/internal/providers/openai"
	"github.com/kFady/stereo-site-1/internal/providers/pubchem"
)

const defaultConfigPath = "configs/config.yaml"

// Build metadata, injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	fromEnv := flag.Bool("from-env", false, "ignore the config file and load settings from STEREO_* environment variables")
	flag.Parse()

	if err := run(*configPath, *fromEnv); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, fromEnv bool) error {
	var (
		cfg *config.Config
		err error
	)
	if fromEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.SetDefault(logger)
	logger.Info("starting stereo-site API server",
		logging.String("version", version),
		logging.String("commit", gitCommit),
		logging.String("build_date", buildDate),
		logging.Int("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "stereo",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metrics := prometheus.NewAppMetrics(collector)

	healthChecks := map[string]handlers.CheckFunc{}

	// Sketch persistence is optional: without Postgres the sketch endpoints
	// are simply not mounted.
	var sketchHandler *handlers.SketchHandler
	var conn *postgres.Connection
	if cfg.Database.Enabled {
		conn, err = postgres.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer func() {
			if cerr := conn.Close(); cerr != nil {
				logger.Warn("closing postgres", logging.Err(cerr))
			}
		}()

		if cfg.Database.MigrationPath != "" {
			src := cfg.Database.MigrationPath
			if !strings.Contains(src, "://") {
				src = "file://" + src
			}
			if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database), src); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		healthChecks["database"] = conn.HealthCheck
	}

	resultCache, redisClient, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Warn("closing redis", logging.Err(cerr))
			}
		}()
		healthChecks["cache"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	var archive *minio.MolBlockArchive
	if cfg.MinIO.Enabled {
		minioClient, err := minio.NewClient(ctx, cfg.MinIO, logger)
		if err != nil {
			return fmt.Errorf("connect minio: %w", err)
		}
		archive = minio.NewMolBlockArchive(minioClient, logger)
		healthChecks["storage"] = minioClient.HealthCheck
	}

	primary := openai.NewClient(cfg.Provider, logger)
	secondary := pubchem.NewClient(cfg.PubChem, logger)
	defer secondary.Close()

	orchestrator := analysis.New(primary, secondary, resultCache, archive, cfg.Provider, logger, metrics)
	sessions := appeditor.NewService(cfg.Editor, logger, metrics)

	if conn != nil {
		sketchRepo := repositories.NewSketchRepository(conn.DB(), logger)
		sketchHandler = handlers.NewSketchHandler(sketchRepo, sessions)
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.RouterConfig{
		ServerConfig: cfg.Server,
		Logger:       logger,
		Metrics:      metrics,
		Collector:    collector,
		Sessions:     handlers.NewSessionHandler(sessions),
		Analysis:     handlers.NewAnalysisHandler(sessions, orchestrator, logger),
		Sketches:     sketchHandler,
		Stream:       handlers.NewStreamHandler(sessions, cfg.Server.AllowedOrigins, logger),
		Health:       handlers.NewHealthHandler(healthChecks),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logging.Int("port", cfg.Server.Port))
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", logging.Err(err))
	}
	// Let in-flight background enrichments finish before tearing down the
	// cache and providers they write to.
	orchestrator.WaitForEnrichment()
	sessions.Close()

	logger.Info("shutdown complete")
	return nil
}

// buildCache returns the shared result cache: Redis when enabled, otherwise
// an in-process LRU. The *redis.Client is non-nil only in the Redis case so
// the caller can close it and wire a health check.
func buildCache(ctx context.Context, cfg *config.Config, logger logging.Logger) (cache.ResultCache, *redis.Client, error) {
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return cache.NewRedisCache(client, logger, cache.WithPrefix(cfg.Redis.KeyPrefix)), client, nil
	}
	memCache, err := cache.NewMemoryCache(cfg.Cache.MaxEntries, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init memory cache: %w", err)
	}
	return memCache, nil, nil
}
