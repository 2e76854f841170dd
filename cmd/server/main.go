package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lunajoy/matchengine/internal/api"
	"github.com/lunajoy/matchengine/internal/buildconfig"
	"github.com/lunajoy/matchengine/internal/config"
	"github.com/lunajoy/matchengine/internal/seed"
	"github.com/lunajoy/matchengine/internal/service"
	"github.com/lunajoy/matchengine/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if l, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(l)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func matchConfig() service.MatchConfig {
	cfg := service.DefaultMatchConfig()
	cfg.DefaultLimit = config.MatchDefaultLimit()
	cfg.AnonymousLimit = config.MatchAnonymousLimit()
	cfg.MaxLimit = config.MatchMaxLimit()
	cfg.MinResults = config.MatchMinResults()
	cfg.EnableDiversity = config.DiversityEnabled()
	cfg.DiversityPenalty = config.DiversityPenalty()
	cfg.CFNeighbors = config.CFNeighbors()
	cfg.CFMinCommon = config.CFMinCommon()
	cfg.CFSimilarity = service.ParseSimilarityMetric(config.CFSimilarity())
	cfg.NewClinicianWindow = config.NewClinicianWindow()
	cfg.EnableNewClinicianBoost = config.NewClinicianBoostEnabled()
	cfg.SpecialtyCacheSize = config.SpecialtyCacheSize()
	cfg.ExcludeRejected = config.ExcludeRejected()
	return cfg
}

func main() {
	if err := config.Load(); err != nil {
		zap.L().Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	deps := api.Deps{
		Checks:              make(map[string]api.Pinger),
		Match:               matchConfig(),
		FavoritesPerCluster: config.FavoritesPerCluster(),
		RefreshInterval:     config.ReferenceRefreshInterval(),
	}

	switch config.StorageBackend() {
	case "postgres":
		dbURL := config.DatabaseURL()
		if dbURL == "" {
			logger.Fatal("DATABASE_URL is required for the postgres backend")
		}

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		applied, err := store.Migrate(ctx, pool, config.MigrationsPath())
		if err != nil {
			logger.Fatal("failed to apply migrations", zap.Error(err))
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", zap.Strings("files", applied))
		}

		deps.Clinicians = store.NewClinicianStore(pool)
		deps.Users = store.NewUserStore(pool)
		deps.Interactions = store.NewInteractionStore(pool)
		deps.Checks["postgres"] = pool

	default:
		mem := store.NewInMemoryStore()
		ds := seed.NewGenerator(config.SeedValue(), time.Now()).Generate(config.SeedClinicians(), config.SeedUsers())
		if err := seed.Load(ctx, ds, mem.Clinicians(), mem.Users(), mem.Interactions()); err != nil {
			logger.Fatal("failed to seed in-memory store", zap.Error(err))
		}
		logger.Info("using in-memory store",
			zap.Int("clinicians", len(ds.Clinicians)),
			zap.Int("users", len(ds.Users)),
			zap.Int("interactions", len(ds.Interactions)),
		)

		deps.Clinicians = mem.Clinicians()
		deps.Users = mem.Users()
		deps.Interactions = mem.Interactions()
	}

	if redisURL := config.RedisURL(); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()

		favorites := store.NewRedisFavorites(client, config.FavoritesCacheTTL())
		if err := favorites.Ping(ctx); err != nil {
			logger.Fatal("failed to ping redis", zap.Error(err))
		}
		logger.Info("connected to redis")
		deps.Favorites = favorites
		deps.Checks["redis"] = favorites
	}

	app := api.NewApp(deps, logger)
	defer app.Close()

	// Start background services
	app.Refresher.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		info := buildconfig.VersionInfo()
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("version", info["version"]),
			zap.String("commit", info["commit"]),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	// Stop background services
	app.Refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
