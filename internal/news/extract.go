package news

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"futures-monitor/internal/logger"
)

// articleBodySelectors are tried in order against a fetched article page.
var articleBodySelectors = []string{
	"div#ContentBody",
	"div.article-content",
	"div.article",
	"article",
}

// ExtractArticleBody pulls the readable paragraphs out of an article page.
// Returns "" when no recognizable body is found; callers keep the headline
// without content in that case.
func ExtractArticleBody(ctx context.Context, page io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		logger.Debug(ctx, "Failed to parse article page", "error", err)
		return ""
	}

	for _, sel := range articleBodySelectors {
		body := doc.Find(sel).First()
		if body.Length() == 0 {
			continue
		}

		paragraphs := []string{}
		body.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if text != "" && len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}

	return ""
}
