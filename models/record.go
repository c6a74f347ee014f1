package models

import "strings"

// Metadata type discriminators. Each names the strategy that produced a record.
const (
	TypeRedditThread   = "reddit_thread"
	TypeGitHub         = "github"
	TypeYouTubeVideo   = "youtube_video"
	TypeGenericArticle = "generic_article"
	TypePlaceholder    = "placeholder"
)

// Placeholder strings used when a record has no real title or body.
const (
	UntitledPlaceholder   = "Untitled"
	FailedBodyPlaceholder = "Extraction failed. URL preserved."
	ServerBodyPlaceholder = "Processing on server..."
)

// Record is the normalized output of a strategy.
type Record struct {
	// Title is the page or thread title. Never empty after Normalize.
	Title string `json:"title"`

	// ContentMarkdown is the body converted to markdown. May be empty
	// (e.g. a link-only thread) but is always present on the wire.
	ContentMarkdown string `json:"content_markdown"`

	// Metadata is strategy dependent and always carries "type".
	Metadata map[string]any `json:"metadata"`
}

// NewRecord creates a Record whose metadata starts with the given type.
func NewRecord(recordType, title, content string) *Record {
	r := &Record{
		Title:           title,
		ContentMarkdown: content,
		Metadata:        map[string]any{"type": recordType},
	}
	return r.Normalize()
}

// Type returns the metadata type discriminator.
func (r *Record) Type() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	t, _ := r.Metadata["type"].(string)
	return t
}

// Normalize enforces the record invariants: title is never blank and
// metadata.type is always set (falling back to "placeholder").
func (r *Record) Normalize() *Record {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		r.Title = UntitledPlaceholder
	}
	r.ContentMarkdown = strings.TrimSpace(r.ContentMarkdown)
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	if t, _ := r.Metadata["type"].(string); t == "" {
		r.Metadata["type"] = TypePlaceholder
	}
	return r
}

// Comment is one entry of a discussion thread's comment list. Score is nil
// when the page does not expose a numeric score; Depth defaults to 0.
type Comment struct {
	Author string `json:"author"`
	Score  *int   `json:"score"`
	Body   string `json:"body"`
	Depth  int    `json:"depth"`
}

// Payload is the wire shape delivered to the ingestion sink.
// URL and Domain are captured at send time, not when the record was built.
type Payload struct {
	URL             string         `json:"url"`
	Domain          string         `json:"domain"`
	Title           string         `json:"title"`
	ContentMarkdown string         `json:"content_markdown"`
	Metadata        map[string]any `json:"metadata"`
}

// NewPayload combines a record with the page's current address and host.
func NewPayload(rec *Record, url, domain string) *Payload {
	return &Payload{
		URL:             url,
		Domain:          domain,
		Title:           rec.Title,
		ContentMarkdown: rec.ContentMarkdown,
		Metadata:        rec.Metadata,
	}
}

// IngestResponse is the body the ingestion backend replies with.
type IngestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
