package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hms-service/internal/auth"
	"hms-service/internal/config"
	"hms-service/internal/db"
	"hms-service/internal/export"
	httphandler "hms-service/internal/http"
	"hms-service/internal/http/middleware"
	"hms-service/internal/logger"
	"hms-service/internal/repository"
	"hms-service/internal/rules"
	"hms-service/internal/search"
	"hms-service/internal/service"
	"hms-service/internal/spatial"
	"hms-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	areaRepo := repository.NewAreaRepository(database)
	resourceRepo := repository.NewResourceRepository(database)
	profileRepo := repository.NewProfileRepository(database, areaRepo)
	index := repository.NewPostgresIndex(database)

	groups, err := search.NewCachedGroupResolver(resourceRepo)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to build group resolver")
	}

	policy, err := rules.NewPolicy(cfg.Access.RestrictedTypes)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("invalid access policy")
	}
	compiler := rules.NewCompiler(policy, groups, appLogger)

	visibility := service.NewVisibilityService(compiler, groups, index, cfg.Search.ResultCap, appLogger)
	indexing := service.NewIndexingService(resourceRepo, groups, index, appLogger)

	queue := spatial.NewReindexQueue(appLogger)
	engine := spatial.NewEngine(areaRepo, resourceRepo, queue, appLogger)

	reindexCron, err := service.StartReindexWorker(queue, indexing, cfg.Reindex.Schedule, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to start reindex worker")
	}

	exporter := export.NewExporter(visibility, resourceRepo, appLogger)

	// Photo storage is optional; uploads are disabled without it.
	photos, err := storage.NewPhotoStoreFromEnv()
	if err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		appLogger.Fatal().Err(err).Msg("failed to initialize photo storage")
	}
	if err != nil {
		appLogger.Warn().Msg("photo storage not configured, report photo uploads will be disabled")
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	identify := middleware.Identify(tokenParser)

	handler := httphandler.NewHandler(
		visibility, indexing, engine, exporter,
		resourceRepo, profileRepo, photos,
		appLogger,
	)
	router := httphandler.NewRouter(handler, identify, cfg.Environment, database, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting HMS service")

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server")

	reindexCron.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited")
}
