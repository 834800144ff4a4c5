package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"futures-monitor/internal/calendar"
	"futures-monitor/internal/logger"
	"futures-monitor/internal/types"
)

// FetchFunc fetches one quote snapshot. The poller never inspects the
// snapshot; it only forwards outcomes.
type FetchFunc func(ctx context.Context) (types.Snapshot, error)

// Result is one tick outcome. Exactly one of Snapshot/Err is meaningful.
type Result struct {
	Snapshot types.Snapshot
	Err      error
}

// Poller invokes a fetch on a fixed cadence, but only while the trading
// calendar reports an active session, and publishes every outcome to a single
// subscriber. Fetch failures are reported as Result values; they never stop
// future ticks.
type Poller struct {
	cal *calendar.Calendar
	now func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	active bool
	gen    uint64
}

func New(cal *calendar.Calendar) *Poller {
	return &Poller{cal: cal, now: time.Now}
}

// Start begins ticking every interval, with one immediate gated fetch before
// the first tick. Starting while already running replaces the previous timer;
// a second timer is never leaked.
func (p *Poller) Start(interval time.Duration, fetch FetchFunc, onResult func(Result)) error {
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if fetch == nil || onResult == nil {
		return errors.New("fetch and onResult are required")
	}

	p.mu.Lock()
	if p.active {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.active = true
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	go p.loop(ctx, gen, interval, fetch, onResult)
	return nil
}

// Stop cancels the timer. Safe to call when not started. Once Stop returns,
// no further Result is published, including from fetches still in flight.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.active = false
	p.cancel()
}

func (p *Poller) loop(ctx context.Context, gen uint64, interval time.Duration, fetch FetchFunc, onResult func(Result)) {
	p.fire(ctx, gen, fetch, onResult)

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			p.fire(ctx, gen, fetch, onResult)
		}
	}
}

// fire runs one gated fetch-and-publish. Fetches from successive ticks may
// overlap; results are published in fetch-completion order. The publish is
// liveness-checked under the poller mutex so Stop is a hard barrier.
func (p *Poller) fire(ctx context.Context, gen uint64, fetch FetchFunc, onResult func(Result)) {
	if !p.cal.IsActiveAt(p.now()) {
		logger.Debug(ctx, "Tick outside trading window, skipping fetch")
		return
	}

	go func() {
		snap, err := fetch(ctx)
		if err != nil {
			logger.Debug(ctx, "Quote fetch failed", "error", err)
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.active || p.gen != gen {
			return
		}
		onResult(Result{Snapshot: snap, Err: err})
	}()
}
