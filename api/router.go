package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/ingestor/api/handler"
	"github.com/use-agent/ingestor/api/middleware"
	"github.com/use-agent/ingestor/config"
)

// NewRouter creates the control API.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if keys are configured) → RateLimit
//
// Health stays outside auth so probes always work.
func NewRouter(ctx context.Context, rn handler.Runner, nav handler.NavigationSource, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(rn, nav, cfg.Ingest.SinkURL, startTime))

	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.GET("/strategies", handler.Strategies(rn))
	protected.POST("/run", handler.Run(rn))

	return r
}
