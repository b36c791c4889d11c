package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-service/controllers"
	"listing-service/database"
	"listing-service/kafka"
	"listing-service/repository"
	"listing-service/routes"
	"listing-service/services"
	"listing-service/writer"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// --- Database ---
	if err := database.Connect(logger); err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}

	// --- Redis (async generation jobs) ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}

	// --- Kafka producer ---
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		logger.Fatal("Kafka producer init failed", zap.Error(err))
	}
	defer producer.Close()

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// --- Dependency injection ---
	normalizer := services.NewAttributeNormalizer(nil)
	resolver := services.NewFamilyResolver(normalizer, services.LexicographicParent, logger)
	mapper := services.NewRecordMapper(normalizer, logger)
	assembler := services.NewOutputAssembler()
	sink := writer.NewCSVWriter(cfg.OutputDir, logger)

	candidateRepo := repository.NewGormCandidateRepository(database.DB)
	templateRepo := repository.NewGormTemplateRepository(database.DB)
	logRepo := repository.NewGormListingLogRepository(database.DB)

	listingService := services.NewListingService(
		candidateRepo,
		templateRepo,
		logRepo,
		resolver,
		mapper,
		assembler,
		sink,
		producer,
		services.Options{
			MaxFamilySize:  cfg.MaxFamilySize,
			MapConcurrency: cfg.MapConcurrency,
		},
		logger,
	)
	listingController := controllers.NewListingController(listingService, rdb)

	routes.RegisterListingRoutes(r, listingController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "listing-service"})
	})

	// --- Background worker for async generation jobs ---
	workerCtx, stopWorker := context.WithCancel(context.Background())
	services.StartGenerateWorker(workerCtx, rdb, listingService, logger)

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Listing Service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	stopWorker()

	httpShutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := rdb.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	log.Println("Listing Service stopped gracefully")
}
