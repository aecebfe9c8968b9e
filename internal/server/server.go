package server

import (
	"context"
	"net/http"
	"time"

	"anoa.com/storyverse/internal/config"
	"anoa.com/storyverse/internal/job"
	"anoa.com/storyverse/internal/middleware"
	"anoa.com/storyverse/pkg/cache"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/metrics"
	"anoa.com/storyverse/pkg/storage"

	author "anoa.com/storyverse/internal/modules/author/service"

	commentHttp "anoa.com/storyverse/internal/modules/comment/delivery/http"
	commentRepo "anoa.com/storyverse/internal/modules/comment/repository"
	commentService "anoa.com/storyverse/internal/modules/comment/service"

	feedHttp "anoa.com/storyverse/internal/modules/feed/delivery/http"
	feedService "anoa.com/storyverse/internal/modules/feed/service"

	likeHttp "anoa.com/storyverse/internal/modules/like/delivery/http"
	likeRepo "anoa.com/storyverse/internal/modules/like/repository"
	likeService "anoa.com/storyverse/internal/modules/like/service"

	notiHttp "anoa.com/storyverse/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/storyverse/internal/modules/notification/repository"
	notifService "anoa.com/storyverse/internal/modules/notification/service"

	profileHttp "anoa.com/storyverse/internal/modules/profile/delivery/http"
	profileService "anoa.com/storyverse/internal/modules/profile/service"

	pulseHttp "anoa.com/storyverse/internal/modules/pulse/delivery/http"
	pulseRepo "anoa.com/storyverse/internal/modules/pulse/repository"
	pulseService "anoa.com/storyverse/internal/modules/pulse/service"

	searchService "anoa.com/storyverse/internal/modules/search/service"

	statHttp "anoa.com/storyverse/internal/modules/stat/delivery/http"
	statService "anoa.com/storyverse/internal/modules/stat/service"

	storyHttp "anoa.com/storyverse/internal/modules/story/delivery/http"
	storyRepo "anoa.com/storyverse/internal/modules/story/repository"
	storyService "anoa.com/storyverse/internal/modules/story/service"

	uploadHttp "anoa.com/storyverse/internal/modules/upload/delivery/http"
	uploadService "anoa.com/storyverse/internal/modules/upload/service"

	userHttp "anoa.com/storyverse/internal/modules/user/delivery/http"
	userRepo "anoa.com/storyverse/internal/modules/user/repository"
	userService "anoa.com/storyverse/internal/modules/user/service"

	viewService "anoa.com/storyverse/internal/modules/view/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const viewSyncSchedule = "@every 1m"

// Deps are the external clients the server is built on. Redis and Search may
// be nil; the features behind them degrade to no-ops.
type Deps struct {
	DB           *mongo.Database
	Redis        *redis.Client
	ImageStorage storage.ImageStorage
	Search       searchService.StoryIndex
}

type Server struct {
	engine    *gin.Engine
	scheduler *job.Scheduler
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	var rdb redis.Cmdable
	if deps.Redis != nil {
		rdb = deps.Redis
	}
	jsonCache := cache.New(rdb)

	userRepository := userRepo.NewUserRepository(deps.DB)
	storyRepository := storyRepo.NewStoryRepository(deps.DB)
	commentRepository := commentRepo.NewCommentRepository(deps.DB)
	storyLikeRepository := likeRepo.NewStoryLikeRepository(deps.DB)
	commentLikeRepository := likeRepo.NewCommentLikeRepository(deps.DB)
	pulseRepository := pulseRepo.NewPulseRepository(deps.DB)
	notificationRepository := notifRepo.NewNotificationRepository(deps.DB)

	resolver := author.NewResolver(userRepository)
	normalizer := storyService.NewNormalizer(resolver)

	authSvc := userService.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := userHttp.NewAuthHandler(authSvc)

	// Notification Module
	notificationSvc := notifService.NewNotificationService(notificationRepository, resolver, deps.Redis)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, cfg.AllowedOrigins)

	storyLikeSvc := likeService.NewLikeService(likeService.KindStory, storyLikeRepository,
		likeService.StoryTarget(storyRepository, userRepository), notificationSvc)
	storyLikeHandler := likeHttp.NewLikeHandler(storyLikeSvc)

	commentLikeSvc := likeService.NewLikeService(likeService.KindComment, commentLikeRepository,
		likeService.CommentTarget(commentRepository), notificationSvc)
	commentLikeHandler := likeHttp.NewLikeHandler(commentLikeSvc)

	pulseSvc := pulseService.NewPulseService(pulseRepository, storyRepository)
	pulseHandler := pulseHttp.NewPulseHandler(pulseSvc)

	commentSvc := commentService.NewCommentService(commentRepository, storyRepository, resolver, commentLikeRepository)
	commentHandler := commentHttp.NewCommentHandler(commentSvc)

	storySvc := storyService.NewService(storyRepository, userRepository, normalizer, storyService.Deps{
		Redis:    rdb,
		Storage:  deps.ImageStorage,
		Indexer:  deps.Search,
		Searcher: deps.Search,
		Likes:    storyLikeSvc,
		Moods:    pulseSvc,
		Cleanups: []storyService.Cleanup{
			func(ctx context.Context, id primitive.ObjectID) error {
				_, err := storyLikeRepository.DeleteByTargets(ctx, id)
				return err
			},
			func(ctx context.Context, id primitive.ObjectID) error {
				_, err := pulseRepository.DeleteByStory(ctx, id)
				return err
			},
			commentSvc.CleanupStory,
			func(ctx context.Context, id primitive.ObjectID) error {
				_, err := notificationRepository.DeleteByStory(ctx, id)
				return err
			},
		},
		RateLimit:         cfg.RateLimitStory,
		CompressThreshold: cfg.ContentCompressSize,
	})

	viewSvc := viewService.NewViewService(viewService.NewRedisCounters(rdb), storyRepository)
	storyHandler := storyHttp.NewStoryHandler(storySvc, viewSvc)

	feedSvc := feedService.NewService(storyRepository, normalizer, jsonCache, feedService.Config{
		Genres:       cfg.FeedGenres,
		SectionSize:  cfg.FeedSectionSize,
		QuickReadMax: cfg.FeedQuickReadMax,
		CacheTTL:     cfg.FeedCacheTTL,
	})
	feedHandler := feedHttp.NewFeedHandler(feedSvc, cfg.FeedCacheTTL)

	profileSvc := profileService.NewProfileService(userRepository, deps.ImageStorage, storyRepository)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	uploadSvc := uploadService.NewUploadService(deps.ImageStorage)
	uploadHandler := uploadHttp.NewUploadHandler(uploadSvc)

	statSvc := statService.NewStatService(userRepository, storyRepository, jsonCache)
	statHandler := statHttp.NewStatHandler(statSvc)

	scheduler := job.NewScheduler(5 * time.Minute)
	jobs := []job.Job{
		job.NewCounterReconciler(cfg.ReconcileSchedule, storyRepository, commentRepository,
			storyLikeRepository, commentLikeRepository, pulseRepository),
	}
	if rdb != nil {
		jobs = append(jobs, job.Func("view-sync", viewSyncSchedule, func(ctx context.Context) error {
			n, err := viewSvc.Flush(ctx)
			if n > 0 {
				logger.Log.WithField("stories", n).Debug("synced story reads")
			}
			return err
		}))
	}
	for _, j := range jobs {
		if err := scheduler.Register(j); err != nil {
			return nil, err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	router.Use(metrics.GinMiddleware())

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	router.GET("/metrics", metrics.Handler())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	public := api.Group("")
	public.Use(authMiddleware.OptionalAuth())
	{
		public.GET("/feed/home", feedHandler.GetHomepage)
		public.GET("/stats", statHandler.GetSiteStats)

		public.GET("/stories", storyHandler.ListStories)
		public.GET("/stories/search", storyHandler.SearchStories)
		public.GET("/stories/:id", storyHandler.GetStory)
		public.GET("/stories/:id/comments", commentHandler.ListComments)

		public.GET("/users/:username", profileHandler.GetProfileByUsername)
		public.GET("/users/:username/stories", storyHandler.GetStoriesByAuthor)
		public.GET("/users/:username/likes", storyHandler.GetLikedStories)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Story routes
		protected.POST("/stories", storyHandler.CreateStory)
		protected.PUT("/stories/:id", storyHandler.UpdateStory)
		protected.DELETE("/stories/:id", storyHandler.DeleteStory)
		protected.POST("/stories/:id/like", storyLikeHandler.Like)
		protected.DELETE("/stories/:id/like", storyLikeHandler.Unlike)
		protected.PUT("/stories/:id/pulse", pulseHandler.Vote)
		protected.DELETE("/stories/:id/pulse", pulseHandler.Retract)
		protected.POST("/stories/:id/comments", commentHandler.CreateComment)

		// Comment routes
		protected.DELETE("/comments/:id", commentHandler.DeleteComment)
		protected.POST("/comments/:id/like", commentLikeHandler.Like)
		protected.DELETE("/comments/:id/like", commentLikeHandler.Unlike)

		// Profile routes
		protected.GET("/profile", profileHandler.GetCurrentProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)
		protected.POST("/users/:username/follow", profileHandler.Follow)
		protected.DELETE("/users/:username/follow", profileHandler.Unfollow)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		protected.POST("/upload", uploadHandler.UploadImage)
	}

	return &Server{
		engine:    router,
		scheduler: scheduler,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start launches the background jobs. The HTTP listener is owned by the caller.
func (s *Server) Start() {
	s.scheduler.Start()
}

func (s *Server) Shutdown(ctx context.Context) {
	s.scheduler.Stop(ctx)
}

func setupCORS(router *gin.Engine, origins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
