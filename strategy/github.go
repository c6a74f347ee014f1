package strategy

import (
	"context"
	"net/url"

	"github.com/use-agent/ingestor/dom"
	"github.com/use-agent/ingestor/models"
	"github.com/use-agent/ingestor/page"
)

const githubDomain = "github.com"

// githubContainers are tried in order: an issue or pull request discussion
// first, then a repository readme.
var githubContainers = []string{".js-discussion", "#readme"}

// GitHub extracts discussions and readmes from any GitHub page.
type GitHub struct{}

func NewGitHub() *GitHub { return &GitHub{} }

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) Matches(u *url.URL) bool {
	return page.HostMatches(page.Host(u), githubDomain)
}

func (g *GitHub) Extract(ctx context.Context, sc *Context) (*models.Record, error) {
	doc, err := sc.Page.Snapshot(ctx)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeSnapshot, "snapshot failed", err)
	}

	for _, selector := range githubContainers {
		container, err := dom.Query(doc.Root(), selector)
		if err != nil {
			return nil, err
		}
		if container.Length() == 0 {
			continue
		}
		inner, err := dom.InnerHTML(container)
		if err != nil {
			return nil, err
		}
		content, err := markdownOf(sc, inner)
		if err != nil {
			return nil, err
		}
		rec := models.NewRecord(models.TypeGitHub, doc.Title(), content)
		rec.Metadata["repo"] = sc.URL.Path
		return rec, nil
	}

	return nil, models.NewExtractError(models.ErrCodeContentNotFound, "GitHub content not found", nil)
}
