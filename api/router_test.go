package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/ingestor/config"
	"github.com/use-agent/ingestor/models"
)

type fakeRunner struct {
	mu       sync.Mutex
	triggers []string
	report   *models.RunReport
	err      error
}

func (f *fakeRunner) Run(_ context.Context, trigger string) (*models.RunReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return f.report, f.err
}

func (f *fakeRunner) Strategies() []string { return []string{"reddit", "github", "youtube", "generic"} }

func (f *fakeRunner) Last() *models.RunReport { return f.report }

type fakeNav struct{}

func (fakeNav) State() models.NavigationState {
	return models.NavigationState{Phase: models.NavPending, Address: "https://github.com/org/repo", Runs: 3}
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.Auth.APIKeys = nil
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

func newTestRouter(t *testing.T, rn *fakeRunner, cfg *config.Config) *gin.Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(ctx, rn, fakeNav{}, cfg, time.Now())
}

func do(r http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	rn := &fakeRunner{report: &models.RunReport{RunID: "r1", Outcome: "unreachable"}}
	r := newTestRouter(t, rn, testConfig())

	w := do(r, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "http://localhost:3002", resp.SinkURL)
	require.NotNil(t, resp.Navigation)
	assert.Equal(t, models.NavPending, resp.Navigation.Phase)
	assert.Equal(t, 3, resp.Navigation.Runs)
	require.NotNil(t, resp.LastRun)
	assert.Equal(t, "r1", resp.LastRun.RunID)
}

func TestRun(t *testing.T) {
	rn := &fakeRunner{report: &models.RunReport{RunID: "r2", Type: models.TypeGitHub, Outcome: "delivered"}}
	r := newTestRouter(t, rn, testConfig())

	w := do(r, http.MethodPost, "/api/v1/run", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, models.TypeGitHub, resp.Report.Type)

	w = do(r, http.MethodPost, "/api/v1/run", `{"trigger":"mcp"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"api", "mcp"}, rn.triggers)
}

func TestRun_ExtractionFailure(t *testing.T) {
	rn := &fakeRunner{
		report: &models.RunReport{RunID: "r3"},
		err:    models.NewExtractError(models.ErrCodeTargetNotFound, "post not found", nil),
	}
	r := newTestRouter(t, rn, testConfig())

	w := do(r, http.MethodPost, "/api/v1/run", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp models.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeTargetNotFound, resp.Error.Code)
}

func TestRun_BadBody(t *testing.T) {
	r := newTestRouter(t, &fakeRunner{}, testConfig())
	w := do(r, http.MethodPost, "/api/v1/run", `{"trigger":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStrategies(t *testing.T) {
	r := newTestRouter(t, &fakeRunner{}, testConfig())
	w := do(r, http.MethodGet, "/api/v1/strategies", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"strategies":["reddit","github","youtube","generic"]}`, w.Body.String())
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.APIKeys = []string{"secret"}
	r := newTestRouter(t, &fakeRunner{}, cfg)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/strategies", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/strategies", "", map[string]string{"X-API-Key": "nope"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/strategies", "", map[string]string{"Authorization": "Bearer secret"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/health", "", nil).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 2
	r := newTestRouter(t, &fakeRunner{}, cfg)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/strategies", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/strategies", "", nil).Code)

	w := do(r, http.MethodGet, "/api/v1/strategies", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeRateLimited)
}
