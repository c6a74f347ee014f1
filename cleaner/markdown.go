package cleaner

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/use-agent/ingestor/models"
)

// Markdown converts rendered markup fragments into normalized markdown.
// It is safe for concurrent use.
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown creates a converter producing GitHub-flavoured output:
//
//   - base plugin: strips script, style, iframe, noscript and comments.
//   - commonmark plugin: ATX headings and fenced code blocks (its defaults).
//   - table + strikethrough plugins: the GFM extensions threads and
//     readmes rely on.
func NewMarkdown() *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
				strikethrough.NewStrikethroughPlugin(),
			),
		),
	}
}

// Convert turns an HTML fragment into markdown. baseURL resolves relative
// links and images; it may be empty.
func (m *Markdown) Convert(htmlContent string, baseURL string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}
	out, err := m.conv.ConvertString(htmlContent, converter.WithDomain(baseURL))
	if err != nil {
		return "", models.NewExtractError(models.ErrCodeExtractor, "markdown conversion failed", err)
	}
	return strings.TrimSpace(out), nil
}
