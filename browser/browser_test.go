package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/ingestor/models"
)

func TestIsTrackerHost(t *testing.T) {
	assert.True(t, isTrackerHost("doubleclick.net"))
	assert.True(t, isTrackerHost("stats.g.DoubleClick.net"))
	assert.True(t, isTrackerHost("ads.reddit.com"))
	assert.False(t, isTrackerHost("www.reddit.com"))
	assert.False(t, isTrackerHost("notdoubleclick.net"))
	assert.False(t, isTrackerHost(""))
}

func TestCategorizeError(t *testing.T) {
	err := categorizeError(fmt.Errorf("eval: %w", context.DeadlineExceeded), "slow")
	assert.Equal(t, models.ErrCodeTimeout, err.Code)

	err = categorizeError(context.Canceled, "x")
	assert.Equal(t, models.ErrCodeTimeout, err.Code)

	err = categorizeError(errors.New("websocket closed"), "failed to read page address")
	assert.Equal(t, models.ErrCodeBrowser, err.Code)
	assert.Equal(t, "failed to read page address", err.Message)
}
