package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/seo-analyser/backend/analyzer"
	"github.com/seo-analyser/backend/logging"
	"github.com/seo-analyser/backend/middleware"
)

func loadEnv() {
	// Try .env.development first (for local development), then regular .env.
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
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

func main() {
	loadEnv()
	setupGinMode()

	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	seoAnalyzer, err := analyzer.New(dataDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize analyzer", zap.Error(err))
	}
	defer seoAnalyzer.Shutdown()

	rateLimiter := middleware.NewRateLimiter(2, 5) // 2 requests per second, burst of 5

	r := gin.New()
	r.Use(middleware.ErrorHandler(logger))
	r.Use(rateLimiter.RateLimit())
	r.Use(corsMiddleware())
	r.Use(middleware.StatsMiddleware(seoAnalyzer.GetStats()))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/analyze", analyzeHandler(seoAnalyzer, logger))

		api.GET("/statistics", func(c *gin.Context) {
			devMode := os.Getenv("DEV_MODE") == "true"
			c.JSON(http.StatusOK, seoAnalyzer.GetStats().Summary(devMode))
		})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Cache-Control, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func analyzeHandler(seoAnalyzer *analyzer.Analyzer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			URL string `json:"url"`
		}

		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": analyzer.ErrEmptyInput.Error()})
			return
		}

		result, err := seoAnalyzer.Analyze(request.URL)
		if err != nil {
			status, message := classifyError(err)
			if status == http.StatusInternalServerError {
				logger.Error("analysis failed", zap.String("url", request.URL), zap.Error(err))
			}
			c.JSON(status, gin.H{"error": message})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// classifyError maps the analyzer's error taxonomy to HTTP responses.
// Validation errors are reported verbatim, upstream failures carry the
// upstream status, everything else collapses into a generic message.
func classifyError(err error) (int, string) {
	var fetchErr *analyzer.FetchError

	switch {
	case errors.Is(err, analyzer.ErrEmptyInput),
		errors.Is(err, analyzer.ErrInvalidURL),
		errors.Is(err, analyzer.ErrUnsupportedProtocol):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, fetchErr.Error()
	default:
		return http.StatusInternalServerError, "internal error while analyzing the page"
	}
}
