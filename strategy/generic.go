package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/use-agent/ingestor/models"
)

// Generic runs readability over a detached copy of the page. It is the
// last resort of every run and never returns an error: any failure,
// including a panic inside the extractor, becomes a placeholder record.
type Generic struct{}

func NewGeneric() *Generic { return &Generic{} }

func (g *Generic) Name() string { return "generic" }

func (g *Generic) Matches(*url.URL) bool { return true }

func (g *Generic) Extract(ctx context.Context, sc *Context) (rec *models.Record, err error) {
	var fallbackTitle string
	defer func() {
		if r := recover(); r != nil {
			rec, err = g.placeholder(ctx, sc, fallbackTitle, fmt.Errorf("extractor panicked: %v", r)), nil
		}
	}()

	doc, snapErr := sc.Page.Snapshot(ctx)
	if snapErr != nil {
		return g.placeholder(ctx, sc, "", snapErr), nil
	}
	fallbackTitle = doc.Title()

	article, parseErr := sc.Readability.Parse(doc.Node(), sc.URL)
	if parseErr != nil {
		return g.placeholder(ctx, sc, fallbackTitle, parseErr), nil
	}

	content, convErr := markdownOf(sc, article.Content)
	if convErr != nil {
		return g.placeholder(ctx, sc, fallbackTitle, convErr), nil
	}

	title := article.Title
	if title == "" {
		title = fallbackTitle
	}
	rec = models.NewRecord(models.TypeGenericArticle, title, content)
	for key, value := range map[string]string{
		"byline":    article.Byline,
		"excerpt":   article.Excerpt,
		"site_name": article.SiteName,
		"language":  article.Language,
	} {
		if value != "" {
			rec.Metadata[key] = value
		}
	}
	return rec, nil
}

// placeholder keeps the address worth submitting when nothing could be
// extracted.
func (g *Generic) placeholder(ctx context.Context, sc *Context, title string, cause error) *models.Record {
	slog.Warn("generic: extraction failed, submitting placeholder",
		"url", sc.URL.String(), "error", cause,
	)
	if title == "" && sc.Page != nil {
		title = safeTitle(ctx, sc)
	}
	rec := models.NewRecord(models.TypePlaceholder, title, models.FailedBodyPlaceholder)
	rec.Metadata["error"] = cause.Error()
	return rec
}

func safeTitle(ctx context.Context, sc *Context) (title string) {
	defer func() {
		if recover() != nil {
			title = ""
		}
	}()
	title, _ = sc.Page.Title(ctx)
	return title
}
