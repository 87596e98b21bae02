package api

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/crm-lead-import-api/internal/config"
	"github.com/crm-lead-import-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const serviceName = "crm-lead-import-api"

var startedAt = time.Now()

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	importHandler := NewImportHandler(services, cfg, log)
	leadHandler := NewLeadHandler(services, log)
	exportHandler := NewExportHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(services, log))
	router.GET("/metrics", metricsHandler(services))

	// API v1
	v1 := router.Group("/v1")
	{
		v1.GET("/templates/leads", importHandler.DownloadTemplate)

		orgs := v1.Group("/organizations/:org_id")
		{
			orgs.POST("/imports", importHandler.CreateImport)
			orgs.POST("/leads", leadHandler.CreateLead)
			orgs.GET("/leads", leadHandler.ListLeads)
			orgs.GET("/exports", exportHandler.StreamExport)
		}

		imports := v1.Group("/imports")
		{
			imports.GET("/:job_id", importHandler.GetImportStatus)
			imports.GET("/:job_id/errors", importHandler.GetImportErrors)
			imports.POST("/:job_id/commit", importHandler.CommitImport)
			imports.DELETE("/:job_id", importHandler.CancelImport)
		}

		v1.GET("/leads/:lead_id", leadHandler.GetLead)
	}

	return router
}

// healthCheck returns the health status, 503 when the database is unreachable
func healthCheck(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := services.Health.Check(c.Request.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now().Format(time.RFC3339),
				"service":   serviceName,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   serviceName,
		})
	}
}

// metricsHandler returns lead and process metrics
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		leadsCount, err := services.Export.GetCount(ctx, "")
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to read metrics"})
			return
		}

		pool := services.Health.PoolStats()

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"leads": leadsCount,
				"pool": gin.H{
					"max_open":         pool.MaxOpenConnections,
					"open":             pool.OpenConnections,
					"in_use":           pool.InUse,
					"idle":             pool.Idle,
					"wait_count":       pool.WaitCount,
					"wait_duration_ms": pool.WaitDuration.Milliseconds(),
				},
			},
			"runtime": gin.H{
				"goroutines":     runtime.NumGoroutine(),
				"uptime_seconds": int64(time.Since(startedAt).Seconds()),
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// jobErrorStatus maps service errors onto HTTP status codes
func jobErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrJobNotFound), errors.Is(err, service.ErrLeadNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrJobNotCommittable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
