package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/disputes"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/querycache"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/common"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/config"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/database"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/logger"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/middleware"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/redis"
)

const serviceName = "idr-api"

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Error reporting
	if cfg.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
		})
		if err != nil {
			logger.Fatal("Failed to initialize Sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Connect to PostgreSQL
	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("Connected to PostgreSQL database")

	// Apply schema migrations
	if err := database.RunMigrations(cfg.Database.URL(), cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Wire the pipeline
	store := disputes.NewRepository(pool)
	cache := querycache.New(redisClient, cfg.Cache.KeyPrefix, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	engine := risk.NewEngine(risk.ThresholdsFromConfig(cfg.Risk), risk.WeightsFromConfig(cfg.Risk))
	service := risk.NewService(store, cache, engine)
	handler := risk.NewHandler(service)

	// Set up Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))

	if cfg.Sentry.Enabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	// Health check and metrics (no auth required)
	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, "1.0.0", map[string]func() error{
		"postgres": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(ctx)
		},
		"redis": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx).Err()
		},
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	handler.RegisterRoutes(router)

	// Start server
	addr := ":" + cfg.Server.Port
	logger.Info("IDR intelligence API starting", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
