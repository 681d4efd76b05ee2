package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/echolabs/twinsight-backend/internal/handlers"
	"github.com/echolabs/twinsight-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins      []string
	AuthMiddleware    *middleware.AuthMiddleware
	InsightHandler    *handlers.InsightHandler
	ConnectionHandler *handlers.ConnectionHandler
	EventHandler      *handlers.EventHandler
	ExtractionHandler *handlers.ExtractionHandler
	SSEHandler        *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("twinsight-backend"))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Insight reads
	protected.GET("/traits", cfg.InsightHandler.GetTraits)
	protected.GET("/evidence", cfg.InsightHandler.ListEvidence)
	protected.GET("/patterns", cfg.InsightHandler.ListPatterns)
	protected.POST("/patterns/:id/deactivate", cfg.InsightHandler.DeactivatePattern)
	protected.DELETE("/patterns/:id", cfg.InsightHandler.DeletePattern)

	// Platform connections
	protected.GET("/connections", cfg.ConnectionHandler.List)
	protected.POST("/connections", cfg.ConnectionHandler.Connect)
	protected.DELETE("/connections/:platform", cfg.ConnectionHandler.Disconnect)

	// Event mirroring feeding the temporal pipeline
	protected.POST("/events", cfg.EventHandler.SyncEvents)
	protected.POST("/activities", cfg.EventHandler.RecordActivities)

	// Extraction + tracking
	protected.POST("/extract", cfg.ExtractionHandler.Extract)
	protected.GET("/jobs", cfg.ExtractionHandler.ListJobs)
	protected.POST("/tracker/run", cfg.ExtractionHandler.RunTrackerCycle)

	// Realtime
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)

	return router
}

// SplitOrigins parses a comma-separated origin list from configuration.
func SplitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
