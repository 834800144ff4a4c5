package quoteobs

import (
	"context"
	"time"

	"futures-monitor/internal/interfaces"
	"futures-monitor/internal/logger"
	"futures-monitor/internal/trace"
	"futures-monitor/internal/types"
)

type observableProvider struct {
	provider interfaces.QuoteProvider
}

var _ interfaces.QuoteProvider = (*observableProvider)(nil)

func Wrap(p interfaces.QuoteProvider) interfaces.QuoteProvider {
	return &observableProvider{
		provider: p,
	}
}

func (op *observableProvider) Fetch(ctx context.Context, symbol string) (types.Snapshot, error) {
	ctx, span := trace.StartSpan(ctx, "quote.Fetch")
	defer span.End()

	start := time.Now()

	snap, err := op.provider.Fetch(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Quote fetch failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.Snapshot{}, err
	}

	logger.InfoSkip(ctx, 1, "Quote fetched",
		"symbol", symbol,
		"price", snap.Price,
		"change_percent", snap.ChangePercent,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return snap, nil
}
