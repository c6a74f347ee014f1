package models

import "time"

// RunReport describes one extraction run.
type RunReport struct {
	RunID   string `json:"run_id"`
	Trigger string `json:"trigger"`

	// Address is the page address captured when the run was dispatched.
	Address string `json:"address"`

	// Strategy names the strategy whose record was used (or that failed last).
	Strategy string `json:"strategy,omitempty"`

	// Type is the metadata.type of the produced record.
	Type string `json:"type,omitempty"`

	// Fallback is true when the selected strategy failed and the generic
	// one was tried.
	Fallback bool   `json:"fallback"`
	Title    string `json:"title,omitempty"`

	// Outcome is the delivery outcome, empty when nothing was sent.
	Outcome string `json:"outcome,omitempty"`

	// Discarded is true when a newer run superseded this one before delivery.
	Discarded bool   `json:"discarded"`
	Error     string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Navigation phases.
const (
	NavIdle    = "idle"
	NavPending = "pending"
)

// NavigationState is the watcher's view of the page.
type NavigationState struct {
	Phase       string    `json:"phase"`
	Address     string    `json:"address"`
	ScheduledAt time.Time `json:"scheduled_at,omitzero"`
	Runs        int       `json:"runs"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string           `json:"status"`
	Uptime     string           `json:"uptime"`
	Version    string           `json:"version"`
	SinkURL    string           `json:"sink_url"`
	Navigation *NavigationState `json:"navigation,omitempty"`
	LastRun    *RunReport       `json:"last_run,omitempty"`
}

// RunResponse is the response for POST /api/v1/run.
type RunResponse struct {
	Success bool         `json:"success"`
	Report  *RunReport   `json:"report,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// StrategiesResponse is the response for GET /api/v1/strategies.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// RunRequest is the optional body of POST /api/v1/run.
type RunRequest struct {
	Trigger string `json:"trigger"`
}
