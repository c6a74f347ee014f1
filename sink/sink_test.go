package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/ingestor/models"
)

func samplePayload() *models.Payload {
	rec := models.NewRecord(models.TypeGitHub, "org/repo", "# Repo")
	rec.Metadata["repo"] = "/org/repo"
	return models.NewPayload(rec, "https://github.com/org/repo", "github.com")
}

func TestSend_Delivered(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"queued","message":"Queued"}`))
	}))
	defer srv.Close()

	outcome, err := New(srv.URL, time.Second).Send(context.Background(), samplePayload())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)

	assert.Equal(t, "https://github.com/org/repo", got["url"])
	assert.Equal(t, "github.com", got["domain"])
	assert.Equal(t, "org/repo", got["title"])
	assert.Equal(t, "# Repo", got["content_markdown"])
	assert.Equal(t, map[string]any{"type": "github", "repo": "/org/repo"}, got["metadata"])
}

func TestSend_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db locked", http.StatusInternalServerError)
	}))
	defer srv.Close()

	outcome, err := New(srv.URL, time.Second).Send(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Contains(t, err.Error(), "500")
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	outcome, err := New(endpoint, time.Second).Send(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Equal(t, OutcomeUnreachable, outcome)
}

func TestNoticeText(t *testing.T) {
	text, isErr := NoticeText(OutcomeDelivered, "A very long title that keeps going and going")
	assert.Equal(t, "Archived: A very long title that keeps g...", text)
	assert.False(t, isErr)

	text, isErr = NoticeText(OutcomeRejected, "x")
	assert.Equal(t, "Server error saving page.", text)
	assert.True(t, isErr)

	text, isErr = NoticeText(OutcomeUnreachable, "x")
	assert.Equal(t, "Backend Server Offline", text)
	assert.True(t, isErr)
}

func TestOutcome_MarshalText(t *testing.T) {
	b, err := json.Marshal(map[string]Outcome{"outcome": OutcomeRejected})
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"rejected"}`, string(b))
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	outcome, err := NewWriter(&buf).Send(context.Background(), samplePayload())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)
	assert.Contains(t, buf.String(), `"content_markdown": "# Repo"`)
	assert.Contains(t, buf.String(), `"domain": "github.com"`)
}
