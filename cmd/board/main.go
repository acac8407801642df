package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/ride-board/internal/realtime"
	"github.com/richxcame/ride-board/internal/rides"
	"github.com/richxcame/ride-board/pkg/common"
	"github.com/richxcame/ride-board/pkg/config"
	"github.com/richxcame/ride-board/pkg/database"
	"github.com/richxcame/ride-board/pkg/health"
	"github.com/richxcame/ride-board/pkg/logger"
	"github.com/richxcame/ride-board/pkg/middleware"
	"github.com/richxcame/ride-board/pkg/ratelimit"
	"github.com/richxcame/ride-board/pkg/redis"
	ws "github.com/richxcame/ride-board/pkg/websocket"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load("board")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Connect to PostgreSQL
	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)
	logger.Info("Connected to PostgreSQL database")

	// Run migrations
	if err := database.Migrate(&cfg.Database); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Wire the ride board
	repo := rides.NewRepository(pool)
	publisher := realtime.NewPublisher(redisClient)
	service := rides.NewService(repo, publisher, redisClient, &cfg.Board)
	ridesHandler := rides.NewHandler(service)

	// WebSocket hub and sync controller
	hub := ws.NewHub()
	go hub.Run()

	feed := realtime.NewRedisChangeFeed(redisClient)
	renderer := realtime.NewHubRenderer(hub)
	controller := realtime.NewController(service, feed, renderer, cfg.Board.SnapshotLimit)
	realtimeHandler := realtime.NewHandler(hub, controller)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := controller.Start(ctx); err != nil {
		logger.Fatal("Failed to start sync controller", zap.Error(err))
	}
	defer controller.Stop()

	// Set up Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Idempotency-Key", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	// Health check and metrics
	router.GET("/healthz", common.HealthCheckWithDeps(cfg.Server.ServiceName, version, map[string]func() error{
		"database": health.DatabaseChecker(pool),
		"redis":    health.RedisChecker(redisClient.Client),
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	limiter := ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)
	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	api.Use(middleware.Timeout(time.Duration(cfg.Server.WriteTimeout) * time.Second))
	ridesHandler.RegisterRoutes(api)

	// WebSocket endpoint stays outside the timeout middleware; the
	// connection is long-lived.
	wsGroup := router.Group("/api/v1")
	realtimeHandler.RegisterRoutes(wsGroup)

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	}

	go func() {
		logger.Info("Ride board starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	hub.CloseAll()
}
