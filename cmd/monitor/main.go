package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futures-monitor/internal/logger"
	"futures-monitor/internal/poller"
	"futures-monitor/internal/trace"
	"futures-monitor/internal/types"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize system: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	compressOldLogs(ctx, cfg)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	cal, err := initializeCalendar(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}

	provider := initializeQuoteProvider(ctx, cfg)
	newsSvc := initializeNews(ctx, cfg)

	p := poller.New(cal)
	fetch := func(fctx context.Context) (types.Snapshot, error) {
		return provider.Fetch(fctx, cfg.Symbol)
	}
	onResult := func(r poller.Result) {
		if r.Err != nil {
			logger.ErrorWithErr(ctx, "Snapshot fetch failed", r.Err, "symbol", cfg.Symbol)
			return
		}
		logger.Snapshot(ctx, r.Snapshot.Symbol, r.Snapshot.Price, r.Snapshot.ChangePercent,
			"volume", r.Snapshot.Volume,
			"open_interest", r.Snapshot.OpenInterest,
		)
		b, _ := json.Marshal(r.Snapshot)
		fmt.Println(string(b))
	}

	if err := p.Start(time.Duration(cfg.PollSeconds)*time.Second, fetch, onResult); err != nil {
		logger.ErrorWithErr(ctx, "Failed to start poller", err)
		os.Exit(1)
	}
	defer p.Stop()

	newsTick := time.NewTicker(time.Duration(cfg.News.RefreshMinutes) * time.Minute)
	defer newsTick.Stop()

	refreshNews := func() {
		if newsSvc == nil {
			return
		}
		articles, err := newsSvc.Headlines(ctx, "futures", cfg.News.MaxArticles)
		if err != nil {
			logger.ErrorWithErr(ctx, "News refresh failed", err)
			return
		}
		for _, a := range articles {
			logger.Info(ctx, "Headline", "title", a.Title, "source", a.Source, "published", a.PublishedAt)
		}
	}
	go refreshNews()

	logger.Info(ctx, "Monitor started",
		"symbol", cfg.Symbol,
		"poll_seconds", cfg.PollSeconds,
	)

	for {
		select {
		case <-newsTick.C:
			refreshNews()
		case <-sigc:
			logger.Info(ctx, "Shutting down...")
			p.Stop()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = logger.Shutdown(shutdownCtx)
			_ = trace.Shutdown(shutdownCtx)
			shutdownCancel()
			return
		case <-ctx.Done():
			p.Stop()
			return
		}
	}
}
