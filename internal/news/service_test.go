package news

import (
	"context"
	"strings"
	"testing"
	"time"

	"futures-monitor/internal/types"
)

func TestHeadlineCache(t *testing.T) {
	cache := newHeadlineCache(1 * time.Second)

	topic := "soybean-meal"
	articles := []types.NewsArticle{
		{Title: "豆粕期货夜盘走强", URL: "https://example.com/a1", Source: "EastmoneyFutures", Topic: topic},
	}

	// Test set and get
	cache.set(topic, articles)

	retrieved, found := cache.get(topic)
	if !found {
		t.Fatal("Expected to find cached headlines")
	}
	if len(retrieved) != 1 || retrieved[0].Title != articles[0].Title {
		t.Errorf("Expected cached article back, got %+v", retrieved)
	}

	// Test expiration
	time.Sleep(2 * time.Second)
	_, found = cache.get(topic)
	if found {
		t.Error("Expected cache entry to be expired")
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()

	if cfg.MaxArticles != 10 {
		t.Errorf("Expected MaxArticles to be 10, got %d", cfg.MaxArticles)
	}
	if cfg.CacheDuration != 30*time.Minute {
		t.Errorf("Expected CacheDuration to be 30 minutes, got %v", cfg.CacheDuration)
	}
	if !cfg.Enabled {
		t.Error("Expected Enabled to be true")
	}
}

func TestNewService(t *testing.T) {
	svc := NewService(nil, DefaultServiceConfig())

	if svc == nil {
		t.Fatal("Expected service to be created")
	}
	if svc.scraper == nil {
		t.Error("Expected scraper to be initialized")
	}
	if svc.cache == nil {
		t.Error("Expected cache to be initialized")
	}
	if len(svc.scraper.sources) == 0 {
		t.Error("Expected default sources when none are given")
	}
}

func TestClearCache(t *testing.T) {
	svc := NewService(nil, DefaultServiceConfig())
	svc.cache.set("futures", []types.NewsArticle{{Title: "t"}})

	svc.ClearCache()

	if _, found := svc.cache.get("futures"); found {
		t.Error("Expected cache to be empty after ClearCache")
	}
}

func TestDefaultSources(t *testing.T) {
	sources := DefaultSources()
	if len(sources) != 2 {
		t.Fatalf("Expected 2 default sources, got %d", len(sources))
	}
	for _, s := range sources {
		if s.Selectors.Container == "" || s.Selectors.Title == "" {
			t.Errorf("Source %s missing selectors", s.Name)
		}
		if getDomain(s.BaseURL) == "" {
			t.Errorf("Source %s has unparseable base URL %s", s.Name, s.BaseURL)
		}
	}
}

func TestExtractArticleBody(t *testing.T) {
	page := `<html><body>
<div id="ContentBody">
<p>美豆类期货夜盘收涨,受南美天气担忧提振,市场关注下周的供需报告。</p>
<p>短</p>
<p>国内豆粕现货报价今日稳中有涨,油厂开机率维持高位,下游提货节奏平稳。</p>
</div>
</body></html>`

	body := ExtractArticleBody(context.Background(), strings.NewReader(page))
	if body == "" {
		t.Fatal("Expected a non-empty body")
	}
	if strings.Contains(body, "短") {
		t.Error("Expected short paragraphs to be filtered out")
	}
	if !strings.Contains(body, "供需报告") {
		t.Errorf("Expected first paragraph in body, got %q", body)
	}
}

func TestExtractArticleBodyNoMatch(t *testing.T) {
	page := `<html><body><div class="nav"><p>无关内容,不属于正文区域的一段很长很长的文字,用来确认选择器不会误中。</p></div></body></html>`
	if body := ExtractArticleBody(context.Background(), strings.NewReader(page)); body != "" {
		t.Errorf("Expected empty body for a page without an article container, got %q", body)
	}
}
