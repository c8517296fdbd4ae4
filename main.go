package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"realty/catalog/internal/api"
	"realty/catalog/internal/api/handlers"
	"realty/catalog/internal/api/middleware"
	"realty/catalog/internal/cache"
	"realty/catalog/internal/config"
	"realty/catalog/internal/db"
	"realty/catalog/internal/logging"
	"realty/catalog/internal/services"
	"realty/catalog/internal/storage"
	"realty/catalog/internal/tasks"
)

var runMode = flag.String("m", config.RunModeAll, "Run mode: 'api', 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		logging.L().Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "catalog"})
	log := logging.L()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Error().Err(err).Msg("error disconnecting from MongoDB")
		}
	}()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}
	cancelIndex()

	listingService := services.NewListingService(db.NewListingStore(mongoDb))

	// Redis and S3 back the image pipeline only.
	var (
		redisClient    *redis.Client
		storageService storage.IS3Storage
		taskClient     handlers.IAsynqClient
	)
	if cfg.S3Enabled() {
		redisClient, err = cache.Connect(context.Background(), cache.OptionsFromConfig(cfg))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer func() {
			if err := cache.Close(redisClient); err != nil {
				log.Error().Err(err).Msg("error disconnecting from Redis")
			}
		}()

		storageService, err = storage.NewS3Storage(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize S3 storage")
		}

		client := tasks.NewClient(redisClient)
		defer client.Close()
		taskClient = client
	} else {
		log.Info().Msg("S3 not configured; image routes disabled")
	}

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	defer rateLimiter.Close()

	var wg sync.WaitGroup

	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs.
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, listingService, rateLimiter, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("port", cfg.ServiceApiPort).Msg("service API listening")
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("service API ListenAndServe error")
		}
	}()

	var mainApiSrv *http.Server
	var imageTaskSrv *asynq.Server

	log.Info().Str("mode", cfg.RunMode).Msg("starting application")

	apiMode := func() {
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(cfg, listingService, storageService, taskClient, rateLimiter),
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Str("port", cfg.ApiPort).Msg("main API listening")
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("main API ListenAndServe error")
			}
		}()
	}

	imgMode := func() {
		processor := tasks.NewTaskProcessor(cfg, storageService, listingService)
		srv, mux := tasks.SetupServer(redisClient, processor)
		imageTaskSrv = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("image processing worker starting")
			if err := srv.Run(mux); err != nil {
				log.Fatal().Err(err).Msg("image processing server error")
			}
		}()
	}

	switch cfg.RunMode {
	case config.RunModeAPI:
		apiMode()
	case config.RunModeImg:
		imgMode()
	case config.RunModeAll:
		apiMode()
		imgMode()
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case <-shutdownChan:
		log.Info().Msg("shutdown requested via service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("service API shutdown error")
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("main API shutdown error")
		}
	}
	if imageTaskSrv != nil {
		imageTaskSrv.Shutdown()
	}

	wg.Wait()
	log.Info().Msg("server gracefully stopped")
}
