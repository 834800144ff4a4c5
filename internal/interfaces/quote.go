package interfaces

import (
	"context"

	"futures-monitor/internal/types"
)

type QuoteProvider interface {
	Fetch(ctx context.Context, symbol string) (types.Snapshot, error)
}
