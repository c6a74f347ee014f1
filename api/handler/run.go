package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/ingestor/models"
)

// Runner is the extraction engine as seen by the API.
type Runner interface {
	Run(ctx context.Context, trigger string) (*models.RunReport, error)
	Strategies() []string
	Last() *models.RunReport
}

// NavigationSource exposes the watcher state.
type NavigationSource interface {
	State() models.NavigationState
}

// Run returns a handler for POST /api/v1/run. It extracts the page
// currently shown and waits for delivery.
//
// The run is detached from the request context: a client hanging up must
// not abort a delivery in progress.
func Run(rn Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, models.RunResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "invalid request body: " + err.Error(),
				},
			})
			return
		}
		if req.Trigger == "" {
			req.Trigger = "api"
		}

		report, err := rn.Run(context.WithoutCancel(c.Request.Context()), req.Trigger)
		if err != nil {
			detail := models.DetailOf(err)
			c.JSON(mapErrorToStatus(detail.Code), models.RunResponse{
				Success: false,
				Report:  report,
				Error:   detail,
			})
			return
		}

		c.JSON(http.StatusOK, models.RunResponse{
			Success: !report.Discarded && report.Outcome == "delivered",
			Report:  report,
		})
	}
}

// Strategies returns a handler for GET /api/v1/strategies.
func Strategies(rn Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.StrategiesResponse{Strategies: rn.Strategies()})
	}
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeBrowser:
		return http.StatusBadGateway // 502
	case models.ErrCodeTargetNotFound, models.ErrCodeContentNotFound, models.ErrCodeMissingIdentifier:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError // 500
	}
}
