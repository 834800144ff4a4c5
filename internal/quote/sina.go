package quote

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"futures-monitor/internal/api"
	"futures-monitor/internal/types"
)

// SinaProvider fetches domestic futures quotes from the sina hq feed, the
// quote source behind the dashboard's contract snapshot panel.
type SinaProvider struct {
	client *api.Client
}

func NewSinaProvider(baseURL string, timeout time.Duration) *SinaProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SinaProvider{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
	}
}

// Fetch retrieves one snapshot for a contract symbol such as "M2509". The
// feed drops requests under load, so transient failures get one quick retry;
// anything longer is left to the next poll tick.
func (p *SinaProvider) Fetch(ctx context.Context, symbol string) (types.Snapshot, error) {
	req := api.NewRequest(http.MethodGet, "/list="+symbol).WithContext(ctx)
	for k, v := range api.SinaHeaders() {
		req.WithHeader(k, v)
	}
	resp, err := p.client.DoWithRetry(req, &api.RetryConfig{
		MaxAttempts: 2,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     time.Second,
	})
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("request sina: %w", err)
	}
	return ParseFuturesLine(symbol, resp.String())
}

// ParseFuturesLine parses one domestic-futures quote line of the form
//
//	var hq_str_M2509="豆粕2509,145958,2850.0,2862.0,...";
//
// Field layout per the hq.sinajs.cn domestic futures payload: 0 name, 1 quote
// time, 2 open, 3 high, 4 low, 5 bid, 6 ask, 7 last, 8 dynamic settlement,
// 9 previous settlement, 13 open interest, 14 volume. Change is measured
// against the previous settlement, as the exchanges publish it.
func ParseFuturesLine(symbol, raw string) (types.Snapshot, error) {
	line := strings.TrimSpace(raw)
	parts := strings.SplitN(line, "=", 2)
	if len(parts) < 2 {
		return types.Snapshot{}, fmt.Errorf("malformed sina line for %s", symbol)
	}
	payload := strings.Trim(strings.TrimSuffix(strings.TrimSpace(parts[1]), ";"), "\"")
	fields := strings.Split(payload, ",")
	if len(fields) < 15 {
		return types.Snapshot{}, fmt.Errorf("short sina payload for %s: %d fields", symbol, len(fields))
	}

	price := parseFloat(fields[7])
	if price <= 0 {
		return types.Snapshot{}, fmt.Errorf("no traded price for %s", symbol)
	}
	settlement := parseFloat(fields[8])
	prevSettlement := parseFloat(fields[9])
	openInterest := parseFloat(fields[13])
	volume := parseFloat(fields[14])

	change := 0.0
	changePercent := 0.0
	if prevSettlement > 0 {
		change = price - prevSettlement
		changePercent = change / prevSettlement * 100
	}

	return types.Snapshot{
		Symbol:        symbol,
		Name:          fields[0],
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        volume,
		// The feed carries no per-contract amount; report traded notional.
		Turnover:     price * volume,
		OpenInterest: openInterest,
		Settlement:   settlement,
		Ts:           time.Now().Unix(),
	}, nil
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
