package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/llmo-checker/backend/crawler"
	"github.com/llmo-checker/backend/db"
	"github.com/llmo-checker/backend/diagnosis"
	"github.com/llmo-checker/backend/gemini"
	"github.com/llmo-checker/backend/middleware"
	"github.com/llmo-checker/backend/stats"
	"github.com/llmo-checker/backend/urlnorm"
)

func loadEnv(logger *zap.Logger) {
	// Try .env.development first (local development), then regular .env
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			logger.Info("no .env file found, using environment variables")
		}
	}
}

func setupGinMode() {
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
}

func newLogger() *zap.Logger {
	if os.Getenv("GIN_MODE") == gin.DebugMode {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func newFetcher() crawler.Fetcher {
	if os.Getenv("FETCH_MODE") == "browser" {
		return crawler.NewBrowserFetcher()
	}
	return crawler.NewHTTPFetcher()
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	loadEnv(logger)
	setupGinMode()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	store, err := db.New(db.Config{DSN: dsn})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	statsDir := os.Getenv("STATS_DIR")
	if statsDir == "" {
		statsDir = "data"
	}
	statsStorage, err := stats.NewStorage(statsDir)
	if err != nil {
		logger.Fatal("failed to initialize stats storage", zap.Error(err))
	}
	defer statsStorage.Shutdown()

	var opts []diagnosis.Option
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		analyzer, err := gemini.New(context.Background(), gemini.Config{
			APIKey: apiKey,
			Model:  os.Getenv("GEMINI_MODEL"),
		}, logger)
		if err != nil {
			logger.Warn("AI analyzer unavailable, continuing without it", zap.Error(err))
		} else {
			opts = append(opts, diagnosis.WithAnalyzer(analyzer))
		}
	} else {
		logger.Info("GEMINI_API_KEY not set, AI analysis disabled")
	}

	service := diagnosis.NewService(
		newFetcher(),
		crawler.NewDetector(),
		store,
		statsStorage,
		logger,
		opts...,
	)

	rateLimiter := middleware.NewRateLimiter(2, 5) // 2 requests per second, bucket size of 5

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorHandler(logger))
	r.Use(rateLimiter.RateLimit())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			if err := store.Conn().PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/diagnose", diagnoseHandler(service, logger))
		api.POST("/diagnose/batch", diagnoseBatchHandler(service))
		api.GET("/diagnoses/:id", getDiagnosisHandler(store))
		api.GET("/diagnoses/:id/progress", getProgressHandler(store))
		api.GET("/history", historyHandler(store))
		api.GET("/statistics", statisticsHandler(store, statsStorage))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func diagnoseHandler(service *diagnosis.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			URL string `json:"url" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		d, err := service.Diagnose(c.Request.Context(), request.URL)
		if err != nil {
			var verr *urlnorm.ValidationError
			var ferr *crawler.FetchError
			var perr *diagnosis.PersistenceError
			switch {
			case errors.As(err, &verr):
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			case errors.As(err, &ferr):
				c.JSON(http.StatusBadGateway, gin.H{
					"error":     ferr.Error(),
					"diagnosis": d,
				})
			case errors.As(err, &perr):
				// Scoring succeeded; only the write failed. Return the
				// result with a warning rather than discarding the work.
				logger.Warn("diagnosis computed but not persisted", zap.Error(err))
				c.JSON(http.StatusOK, gin.H{
					"diagnosis": d,
					"warning":   "result could not be persisted",
				})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to diagnose URL"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"diagnosis":    d,
			"improvements": diagnosis.Improvements(d),
			"categories":   diagnosis.CategorySummaries(d),
		})
	}
}

func diagnoseBatchHandler(service *diagnosis.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			URLs []string `json:"urls" binding:"required,min=1,max=10"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body; provide 1-10 urls"})
			return
		}

		results := service.DiagnoseBatch(c.Request.Context(), request.URLs)
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

func getDiagnosisHandler(store diagnosis.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := store.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load diagnosis"})
			return
		}
		if d == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Diagnosis not found"})
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func getProgressHandler(store diagnosis.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := store.GetProgress(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load progress"})
			return
		}
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Progress not found"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func historyHandler(store diagnosis.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		url := c.Query("url")
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
				return
			}
			limit = n
		}

		items, err := store.History(c.Request.Context(), url, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": items})
	}
}

func statisticsHandler(store diagnosis.Store, statsStorage *stats.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		period := 30 * 24 * time.Hour
		dbStats, err := store.Statistics(c.Request.Context(), period)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"diagnoses": dbStats,
			"monthly":   statsStorage.GetCurrentStats(),
		})
	}
}
