package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"futures-monitor/internal/analysislog"
	"futures-monitor/internal/logger"
	"futures-monitor/internal/store"
	"futures-monitor/internal/strategy"
	"futures-monitor/internal/stream"
	"futures-monitor/internal/types"

	"github.com/joho/godotenv"
)

func main() {
	symbolFlag := flag.String("symbol", "", "contract symbol (defaults to config)")
	levelsFlag := flag.String("levels", "", "comma-separated price levels (defaults to config)")
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Strategy.Endpoint == "" {
		fmt.Fprintln(os.Stderr, "strategy.endpoint is not configured")
		os.Exit(1)
	}
	if cfg.AnalysisLog.Dir != "" {
		os.Setenv("MONITOR_LOG_DIR", cfg.AnalysisLog.Dir)
	}

	symbol := cfg.Symbol
	if *symbolFlag != "" {
		symbol = *symbolFlag
	}
	levels := cfg.Strategy.Levels
	if *levelsFlag != "" {
		levels = nil
		for _, part := range strings.Split(*levelsFlag, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid level %q: %v\n", part, err)
				os.Exit(1)
			}
			levels = append(levels, v)
		}
	}

	ctx := context.Background()
	client := strategy.NewClient(
		cfg.Strategy.Endpoint,
		time.Duration(cfg.Strategy.TimeoutMinutes)*time.Minute,
	)

	var (
		printed   int
		reasoning string
	)
	done := make(chan int, 1)

	consumer := stream.NewConsumer(client.Open, stream.Callbacks{
		OnContent: func(cumulative string) {
			// Only the unseen tail goes to stdout so fragments stream as
			// they arrive.
			fmt.Print(cumulative[printed:])
			printed = len(cumulative)
		},
		OnReasoning: func(cumulative string) {
			reasoning = cumulative
		},
		OnDone: func(final string) {
			fmt.Println()
			logger.StreamDone(ctx, symbol, len(final))
			if err := analysislog.Append(analysislog.Entry{
				Symbol:    symbol,
				Content:   final,
				Reasoning: reasoning,
			}); err != nil {
				logger.Warn(ctx, "Failed to record analysis", "error", err)
			}
			done <- 0
		},
		OnError: func(err error) {
			logger.StreamFailure(ctx, symbol, streamFailureKind(err), "error", err)
			fmt.Fprintf(os.Stderr, "\nStream failed: %v\n", err)
			done <- 1
		},
	})

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	logger.Info(ctx, "Requesting strategy analysis", "symbol", symbol, "levels", levels)
	consumer.Start(types.StrategyRequest{Symbol: symbol, Levels: levels})

	select {
	case code := <-done:
		os.Exit(code)
	case <-sigc:
		consumer.Cancel()
		fmt.Fprintln(os.Stderr, "\nCancelled.")
		os.Exit(130)
	}
}

// streamFailureKind buckets a stream error for the structured failure log.
func streamFailureKind(err error) string {
	switch {
	case errors.Is(err, stream.ErrProtocol):
		return "protocol"
	case errors.Is(err, stream.ErrDecode):
		return "decode"
	case errors.Is(err, stream.ErrEmptyStream):
		return "empty"
	case errors.Is(err, stream.ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
