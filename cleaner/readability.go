package cleaner

import (
	"errors"
	"fmt"
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/ingestor/models"
	"golang.org/x/net/html"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to count as an article.
const minContentLength = 50

// ErrNoArticle is returned when readability finds nothing worth keeping.
var ErrNoArticle = errors.New("readability could not extract content")

// Article is the subset of a readability result the strategies consume.
type Article struct {
	Title    string
	Content  string // clean HTML of the main article subtree
	Byline   string
	Excerpt  string
	SiteName string
	Language string
}

// Readability isolates the main article of a document using the Mozilla
// Readability port.
type Readability struct{}

// NewReadability creates a Readability extractor.
func NewReadability() *Readability {
	return &Readability{}
}

// Parse runs readability over doc. The parser rewrites the tree it is
// given, so callers must pass a detached copy of the page.
func (r *Readability) Parse(doc *html.Node, pageURL *nurl.URL) (Article, error) {
	if doc == nil {
		return Article{}, models.NewExtractError(models.ErrCodeExtractor, "no document", ErrNoArticle)
	}

	parsed, err := readability.FromDocument(doc, pageURL)
	if err != nil {
		return Article{}, models.NewExtractError(models.ErrCodeExtractor, "readability failed", err)
	}

	if len(strings.TrimSpace(parsed.TextContent)) < minContentLength {
		slog.Debug("readability: extracted content too short",
			"url", urlString(pageURL), "length", len(parsed.TextContent),
		)
		return Article{}, models.NewExtractError(
			models.ErrCodeExtractor,
			fmt.Sprintf("article text shorter than %d characters", minContentLength),
			ErrNoArticle,
		)
	}

	return Article{
		Title:    parsed.Title,
		Content:  parsed.Content,
		Byline:   parsed.Byline,
		Excerpt:  parsed.Excerpt,
		SiteName: parsed.SiteName,
		Language: parsed.Language,
	}, nil
}

func urlString(u *nurl.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
