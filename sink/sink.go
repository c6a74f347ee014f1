// Package sink delivers extraction payloads to the ingestion backend.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/use-agent/ingestor/models"
)

// Outcome is the three-way result of a delivery attempt.
type Outcome int

const (
	// OutcomeDelivered means the backend answered with a 2xx status.
	OutcomeDelivered Outcome = iota
	// OutcomeRejected means the backend answered with any other status.
	OutcomeRejected
	// OutcomeUnreachable means no answer was received at all.
	OutcomeUnreachable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText renders the outcome by name in JSON responses.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Client posts submission payloads to the ingestion backend.
// Deliveries are never retried.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a Client for endpoint. timeout bounds a whole delivery.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured backend URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Send delivers the payload once. The returned error describes why the
// outcome is not OutcomeDelivered.
func (c *Client) Send(ctx context.Context, payload *models.Payload) (Outcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutcomeUnreachable, fmt.Errorf("sink: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return OutcomeUnreachable, fmt.Errorf("sink: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Ingestor/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return OutcomeUnreachable, fmt.Errorf("sink: deliver: %w", err)
	}
	defer resp.Body.Close()

	reply := decodeReply(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return OutcomeRejected, fmt.Errorf("sink: backend returned status %d", resp.StatusCode)
	}

	slog.Info("payload delivered",
		"url", payload.URL,
		"type", payload.Metadata["type"],
		"status", reply.Status,
		"message", reply.Message,
	)
	return OutcomeDelivered, nil
}

// decodeReply reads the backend's {status, message} answer. The body is
// informational only, so anything unreadable yields a zero reply.
func decodeReply(r io.Reader) models.IngestResponse {
	var reply models.IngestResponse
	data, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil || len(data) == 0 {
		return reply
	}
	_ = json.Unmarshal(data, &reply)
	return reply
}

// NoticeText maps an outcome to the message shown to the user.
func NoticeText(o Outcome, title string) (text string, isError bool) {
	switch o {
	case OutcomeDelivered:
		return "Archived: " + truncate(title, 30) + "...", false
	case OutcomeRejected:
		return "Server error saving page.", true
	default:
		return "Backend Server Offline", true
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Writer prints payloads as indented JSON instead of delivering them. It
// backs dry runs.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a Writer printing to out.
func NewWriter(out io.Writer) *Writer { return &Writer{out: out} }

// Send writes the payload and reports it as delivered.
func (w *Writer) Send(_ context.Context, payload *models.Payload) (Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return OutcomeUnreachable, fmt.Errorf("sink: write payload: %w", err)
	}
	return OutcomeDelivered, nil
}
