package interfaces

import (
	"context"

	"futures-monitor/internal/types"
)

type NewsProvider interface {
	Headlines(ctx context.Context, topic string, max int) ([]types.NewsArticle, error)
}
