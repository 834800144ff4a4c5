package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"futures-monitor/internal/analysislog"
	"futures-monitor/internal/calendar"
	"futures-monitor/internal/interfaces"
	"futures-monitor/internal/logger"
	"futures-monitor/internal/news"
	"futures-monitor/internal/quote"
	"futures-monitor/internal/quote/quoteobs"
	"futures-monitor/internal/store"
	"futures-monitor/internal/trace"

	"github.com/joho/godotenv"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old analysis log files if retention is configured
func compressOldLogs(ctx context.Context, cfg *store.Config) {
	if cfg.AnalysisLog.Dir != "" {
		os.Setenv("MONITOR_LOG_DIR", cfg.AnalysisLog.Dir)
	}
	if err := analysislog.CompressOlder(cfg.AnalysisLog.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeCalendar builds the trading calendar from the configured session
// windows
func initializeCalendar(ctx context.Context, cfg *store.Config) (*calendar.Calendar, error) {
	cal, err := calendar.NewFromSpecs(cfg.Session.UTCOffset, cfg.Session.Windows)
	if err != nil {
		logger.ErrorWithErr(ctx, "Invalid session windows", err)
		return nil, err
	}
	logger.Info(ctx, "Trading calendar initialized", "windows", cfg.Session.Windows)
	return cal, nil
}

// initializeQuoteProvider initializes the quote provider with observability
func initializeQuoteProvider(ctx context.Context, cfg *store.Config) interfaces.QuoteProvider {
	// Create base provider
	provider := quote.NewSinaProvider(
		cfg.Quote.BaseURL,
		time.Duration(cfg.Quote.TimeoutSeconds)*time.Second,
	)

	logger.Info(ctx, "Using sina hq quote feed", "base_url", cfg.Quote.BaseURL)

	// Wrap with observability middleware
	return quoteobs.Wrap(provider)
}

// initializeNews initializes the news service, or returns nil when disabled
func initializeNews(ctx context.Context, cfg *store.Config) *news.Service {
	if !cfg.News.Enabled {
		logger.Info(ctx, "News fetching disabled in config")
		return nil
	}

	sources := make([]news.Source, 0, len(cfg.News.Sources))
	for _, s := range cfg.News.Sources {
		sources = append(sources, news.Source{
			Name:     s.Name,
			BaseURL:  s.BaseURL,
			ListPath: s.ListPath,
			Selectors: news.ListSelectors{
				Container:   s.Container,
				Title:       s.Title,
				Link:        s.Link,
				PublishedAt: s.Published,
			},
			RateLimit: 2 * time.Second,
		})
	}

	serviceCfg := news.DefaultServiceConfig()
	serviceCfg.MaxArticles = cfg.News.MaxArticles
	serviceCfg.CacheDuration = time.Duration(cfg.News.RefreshMinutes) * time.Minute

	return news.NewService(sources, serviceCfg)
}
