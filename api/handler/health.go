package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/ingestor/models"
)

// Version is reported by the health endpoint.
const Version = "0.2.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "degraded" when the last run ended without a delivered record.
func Health(rn Runner, nav NavigationSource, sinkURL string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
			SinkURL: sinkURL,
			LastRun: rn.Last(),
		}
		if nav != nil {
			st := nav.State()
			resp.Navigation = &st
		}
		if last := resp.LastRun; last != nil && !last.Discarded && last.Outcome != "delivered" {
			resp.Status = "degraded"
		}
		c.JSON(http.StatusOK, resp)
	}
}
