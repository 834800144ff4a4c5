package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"futures-monitor/internal/logger"
	"futures-monitor/internal/types"
)

// Scraper fetches headline listings from commodity news sources
type Scraper struct {
	sources []Source
	timeout time.Duration
}

// Source defines a news source configuration
type Source struct {
	Name      string
	BaseURL   string
	ListPath  string // e.g., "/news/{topic}.html"
	Selectors ListSelectors
	RateLimit time.Duration
}

// ListSelectors defines CSS selectors for extracting headline data
type ListSelectors struct {
	Container   string
	Title       string
	Link        string
	PublishedAt string
}

// NewScraper creates a scraper over the given sources; nil falls back to the
// default commodity sources
func NewScraper(sources []Source, timeout time.Duration) *Scraper {
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	return &Scraper{
		sources: sources,
		timeout: timeout,
	}
}

// DefaultSources returns the commodity-futures news sources the dashboard
// tracks
func DefaultSources() []Source {
	return []Source{
		{
			Name:     "EastmoneyFutures",
			BaseURL:  "https://futures.eastmoney.com",
			ListPath: "/a/{topic}.html",
			Selectors: ListSelectors{
				Container:   "ul#newsListContent li",
				Title:       "p.title a",
				Link:        "p.title a",
				PublishedAt: "p.time",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:     "SinaFutures",
			BaseURL:  "https://finance.sina.com.cn",
			ListPath: "/futuremarket/{topic}/",
			Selectors: ListSelectors{
				Container:   "div.news-item, ul.list_009 li",
				Title:       "a",
				Link:        "a",
				PublishedAt: "span.time",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// FetchHeadlines fetches news headlines for a topic from all sources
func (s *Scraper) FetchHeadlines(ctx context.Context, topic string, maxArticles int) ([]types.NewsArticle, error) {
	logger.Info(ctx, "Starting headline fetch", "topic", topic, "sources", len(s.sources))

	allArticles := []types.NewsArticle{}
	perSource := maxArticles / len(s.sources)
	if perSource < 1 {
		perSource = 1
	}

	for _, source := range s.sources {
		articles, err := s.scrapeSource(ctx, source, topic, perSource)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", source.Name, "topic", topic)
			continue
		}
		allArticles = append(allArticles, articles...)

		// Rate limiting between sources
		time.Sleep(source.RateLimit)
	}

	logger.Info(ctx, "Headline fetch completed", "topic", topic, "articles", len(allArticles))
	return allArticles, nil
}

// scrapeSource scrapes headlines from a single news source
func (s *Scraper) scrapeSource(ctx context.Context, source Source, topic string, maxArticles int) ([]types.NewsArticle, error) {
	articles := []types.NewsArticle{}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(source.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)

	c.SetRequestTimeout(s.timeout)

	// Set user agent to avoid being blocked
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(source.Selectors.Container, func(e *colly.HTMLElement) {
		if len(articles) >= maxArticles {
			return
		}

		title := strings.TrimSpace(e.ChildText(source.Selectors.Title))
		if title == "" {
			return
		}

		articleURL := e.ChildAttr(source.Selectors.Link, "href")
		if articleURL == "" {
			return
		}
		if !strings.HasPrefix(articleURL, "http") {
			articleURL = source.BaseURL + articleURL
		}

		publishedAt := strings.TrimSpace(e.ChildText(source.Selectors.PublishedAt))

		articles = append(articles, types.NewsArticle{
			Title:       title,
			URL:         articleURL,
			Source:      source.Name,
			PublishedAt: publishedAt,
			Topic:       topic,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "source", source.Name, "url", r.Request.URL.String())
	})

	listURL := source.BaseURL + strings.ReplaceAll(source.ListPath, "{topic}", url.PathEscape(strings.ToLower(topic)))

	if err := c.Visit(listURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", listURL, err)
	}

	c.Wait()

	return articles, nil
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
