package news

import (
	"bytes"
	"context"
	"sync"
	"time"

	"futures-monitor/internal/api"
	"futures-monitor/internal/interfaces"
	"futures-monitor/internal/logger"
	"futures-monitor/internal/types"
)

var _ interfaces.NewsProvider = (*Service)(nil)

// Service provides cached commodity news headlines for the dashboard
type Service struct {
	scraper *Scraper
	client  *api.Client
	cache   *headlineCache
	cfg     *ServiceConfig
}

// ServiceConfig configures the news service
type ServiceConfig struct {
	MaxArticles    int           // Maximum articles to fetch per topic
	CacheDuration  time.Duration // How long to cache headline data
	ScraperTimeout time.Duration // Timeout for scraping operations
	EnrichBodies   bool          // Fetch full article bodies for short entries
	Enabled        bool          // Whether news fetching is enabled
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxArticles:    10,
		CacheDuration:  30 * time.Minute,
		ScraperTimeout: 30 * time.Second,
		EnrichBodies:   false,
		Enabled:        true,
	}
}

// headlineCache stores fetched headlines temporarily
type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	articles  []types.NewsArticle
	timestamp time.Time
}

// newHeadlineCache creates a new cache
func newHeadlineCache(ttl time.Duration) *headlineCache {
	cache := &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}

	// Start cleanup goroutine
	go cache.cleanupLoop()

	return cache
}

// get retrieves cached headlines if still valid
func (c *headlineCache) get(topic string) ([]types.NewsArticle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[topic]
	if !exists {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}

	return entry.articles, true
}

// set stores headlines in cache
func (c *headlineCache) set(topic string, articles []types.NewsArticle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[topic] = &cacheEntry{
		articles:  articles,
		timestamp: time.Now(),
	}
}

// cleanupLoop periodically removes expired entries
func (c *headlineCache) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup removes expired entries
func (c *headlineCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for topic, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, topic)
		}
	}
}

// NewService creates a new news service
func NewService(sources []Source, serviceCfg *ServiceConfig) *Service {
	if serviceCfg == nil {
		serviceCfg = DefaultServiceConfig()
	}

	return &Service{
		scraper: NewScraper(sources, serviceCfg.ScraperTimeout),
		client: api.NewClient(
			api.WithTimeout(serviceCfg.ScraperTimeout),
		),
		cache: newHeadlineCache(serviceCfg.CacheDuration),
		cfg:   serviceCfg,
	}
}

// Headlines retrieves news headlines for a topic (cached or fresh)
func (s *Service) Headlines(ctx context.Context, topic string, max int) ([]types.NewsArticle, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	if max <= 0 || max > s.cfg.MaxArticles {
		max = s.cfg.MaxArticles
	}

	if cached, ok := s.cache.get(topic); ok {
		logger.Info(ctx, "Using cached headlines", "topic", topic, "articles", len(cached))
		if len(cached) > max {
			cached = cached[:max]
		}
		return cached, nil
	}

	articles, err := s.scraper.FetchHeadlines(ctx, topic, max)
	if err != nil {
		return nil, err
	}

	if s.cfg.EnrichBodies {
		articles = s.enrichArticles(ctx, articles)
	}

	s.cache.set(topic, articles)
	return articles, nil
}

// enrichArticles fetches full bodies for articles whose listing carried none
func (s *Service) enrichArticles(ctx context.Context, articles []types.NewsArticle) []types.NewsArticle {
	enriched := make([]types.NewsArticle, len(articles))
	copy(enriched, articles)

	for i := range enriched {
		if len(enriched[i].Content) >= 100 {
			continue
		}
		resp, err := s.client.GET(ctx, enriched[i].URL, api.BrowserHeaders())
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to fetch article page", err, "url", enriched[i].URL)
			continue
		}
		if body := ExtractArticleBody(ctx, bytes.NewReader(resp.Body)); body != "" {
			enriched[i].Content = body
		}

		// Rate limiting between article fetches
		time.Sleep(500 * time.Millisecond)
	}

	return enriched
}

// ClearCache removes all cached headlines
func (s *Service) ClearCache() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	s.cache.data = make(map[string]*cacheEntry)
}
