package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with all routes
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	SetupRoutes(router, h)
	return router
}

// SetupRoutes registers the health, metrics and /api/v1 routes
func SetupRoutes(router *gin.Engine, h *Handler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/ask", h.Ask)
		v1.POST("/interactions/:id/rating", h.Rate)
		v1.POST("/feedback", h.SubmitFeedback)
		v1.POST("/feedback/:id/dismiss", h.DismissFeedback)
		v1.POST("/training/context", h.StepContext)

		analysis := v1.Group("/analysis")
		analysis.POST("", h.RunAnalysis)
		analysis.GET("", h.ListRuns)
		analysis.GET("/:id", h.GetRun)

		gaps := v1.Group("/gaps")
		gaps.GET("", h.ListGaps)
		gaps.GET("/:id", h.GetGap)
		gaps.POST("/:id/status", h.UpdateGapStatus)
		gaps.POST("/:id/sop", h.DraftSOP)
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
