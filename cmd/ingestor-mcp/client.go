package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/use-agent/ingestor/models"
)

// client talks to the ingestor control API.
type client struct {
	apiURL string
	apiKey string
	http   *http.Client
}

func newClient(apiURL, apiKey string) *client {
	return &client{
		apiURL: apiURL,
		apiKey: apiKey,
		// A capture waits for the page and the backend.
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// do sends a request and decodes the JSON answer into out whatever the
// status code; the API reports failures in the body.
func (c *client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func (c *client) run(ctx context.Context) (*models.RunResponse, error) {
	var resp models.RunResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/run", models.RunRequest{Trigger: "mcp"}, &resp)
	return &resp, err
}

func (c *client) health(ctx context.Context) (*models.HealthResponse, error) {
	var resp models.HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &resp)
	return &resp, err
}

func (c *client) strategies(ctx context.Context) (*models.StrategiesResponse, error) {
	var resp models.StrategiesResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/strategies", nil, &resp)
	return &resp, err
}
