// Package strategy holds the site-aware extraction strategies and the
// generic readability fallback.
package strategy

import (
	"context"
	"net/url"
	"time"

	"github.com/use-agent/ingestor/cleaner"
	"github.com/use-agent/ingestor/models"
	"github.com/use-agent/ingestor/page"
	"golang.org/x/net/html"
)

// DefaultWaitTimeout bounds how long a strategy waits for dynamic content.
const DefaultWaitTimeout = 5 * time.Second

// Strategy extracts one category of page.
type Strategy interface {
	// Name identifies the strategy in logs and reports.
	Name() string

	// Matches reports whether the strategy applies to the address. It must
	// be pure and fast: no DOM access, no waiting.
	Matches(u *url.URL) bool

	// Extract produces a record for the current page. It may wait for
	// dynamic content but must fail rather than hang.
	Extract(ctx context.Context, sc *Context) (*models.Record, error)
}

// Converter turns a markup fragment into markdown.
type Converter interface {
	Convert(htmlContent string, baseURL string) (string, error)
}

// ArticleExtractor isolates the main article of a detached document.
type ArticleExtractor interface {
	Parse(doc *html.Node, pageURL *url.URL) (cleaner.Article, error)
}

// Context is everything a strategy may read during one extraction.
type Context struct {
	// URL is the address captured when the run was dispatched.
	URL *url.URL

	Page        page.Page
	Markdown    Converter
	Readability ArticleExtractor
}

// Default returns the site-specific strategies in selection order.
// The generic strategy is not part of the list; the engine always holds
// it separately as the last resort.
func Default(waitTimeout time.Duration) []Strategy {
	return []Strategy{
		NewReddit(waitTimeout),
		NewGitHub(),
		NewYouTube(),
	}
}

// markdownOf converts the inner markup of a fragment, resolving links
// against the page address.
func markdownOf(sc *Context, fragment string) (string, error) {
	return sc.Markdown.Convert(fragment, sc.URL.String())
}
