package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/storyverse/internal/bootstrap"
	"anoa.com/storyverse/internal/config"
	searchService "anoa.com/storyverse/internal/modules/search/service"
	storyRepo "anoa.com/storyverse/internal/modules/story/repository"
	userRepo "anoa.com/storyverse/internal/modules/user/repository"
	"anoa.com/storyverse/internal/server"
	"anoa.com/storyverse/pkg/database"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/storage"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connector := database.NewConnector(cfg.MongoURI, cfg.MongoDatabase)
	db, err := connector.Database(ctx)
	if err != nil {
		logger.Log.Fatalf("failed to connect to mongodb: %v", err)
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Log.Fatalf("failed to ensure indexes: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedDemo(ctx, userRepo.NewUserRepository(db), storyRepo.NewStoryRepository(db)); err != nil {
			logger.Log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	redisClient := connectRedis(ctx, cfg.RedisURL)

	imageStorage, err := newImageStorage(cfg)
	if err != nil {
		logger.Log.Fatalf("failed to initialize %s storage: %v", cfg.ImageProvider, err)
	}

	var index searchService.StoryIndex
	if cfg.MeiliSearchHost != "" {
		client := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchService.Configure(client)
		index = searchService.NewStoryIndex(client.Index(searchService.StoriesIndex))
	} else {
		logger.Log.Warn("MEILISEARCH_HOST not set, search falls back to database text queries")
	}

	srv, err := server.NewServer(cfg, server.Deps{
		DB:           db,
		Redis:        redisClient,
		ImageStorage: imageStorage,
		Search:       index,
	})
	if err != nil {
		logger.Log.Fatalf("failed to build server: %v", err)
	}
	srv.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.AppEnv}).Info("storyverse listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("server exited with error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("http shutdown failed")
	}
	srv.Shutdown(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := connector.Disconnect(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("mongodb disconnect failed")
	}
}

// connectRedis returns nil when Redis is not configured or unreachable.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		logger.Log.Warn("REDIS_URL not set, caching, rate limits and live notifications are disabled")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Log.WithError(err).Error("invalid REDIS_URL, running without redis")
		return nil
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Log.WithError(err).Error("redis unreachable, running without redis")
		_ = client.Close()
		return nil
	}
	return client
}

func newImageStorage(cfg *config.Config) (storage.ImageStorage, error) {
	if cfg.ImageProvider == "imgbb" {
		return storage.Instrument(storage.NewImgBBStorage(cfg.ImgBBAPIKeys, cfg.ImgBBCooldown), "imgbb"), nil
	}
	s, err := storage.NewCloudinaryStorage(cfg.CloudinaryUploadFolder)
	if err != nil {
		return nil, err
	}
	return storage.Instrument(s, "cloudinary"), nil
}
