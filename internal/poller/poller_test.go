package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"futures-monitor/internal/calendar"
	"futures-monitor/internal/types"
)

// testCalendar returns a calendar that is open all day on weekdays, and a
// clock pinned to a Wednesday morning so weekend logic never interferes.
func testCalendar(t *testing.T) (*calendar.Calendar, func() time.Time) {
	t.Helper()
	cal, err := calendar.NewFromSpecs(8*3600, []string{"00:01-23:59"})
	if err != nil {
		t.Fatalf("NewFromSpecs failed: %v", err)
	}
	loc := time.FixedZone("CST", 8*3600)
	now := func() time.Time {
		return time.Date(2025, 6, 4, 10, 0, 0, 0, loc)
	}
	return cal, now
}

func TestStartPublishesImmediately(t *testing.T) {
	cal, now := testCalendar(t)
	p := New(cal)
	p.now = now

	results := make(chan Result, 16)
	err := p.Start(time.Hour, func(ctx context.Context) (types.Snapshot, error) {
		return types.Snapshot{Symbol: "M2509", Price: 2980}, nil
	}, func(r Result) { results <- r })
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("unexpected error result: %v", r.Err)
		}
		if r.Snapshot.Price != 2980 {
			t.Errorf("expected price 2980, got %f", r.Snapshot.Price)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an immediate result before the first tick")
	}
}

func TestTicksPublishRepeatedly(t *testing.T) {
	cal, now := testCalendar(t)
	p := New(cal)
	p.now = now

	var calls atomic.Int64
	results := make(chan Result, 64)
	err := p.Start(10*time.Millisecond, func(ctx context.Context) (types.Snapshot, error) {
		return types.Snapshot{Ts: calls.Add(1)}, nil
	}, func(r Result) { results <- r })
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	deadline := time.After(time.Second)
	for i := 0; i < 3; i++ {
		select {
		case <-results:
		case <-deadline:
			t.Fatalf("only received %d results before deadline", i)
		}
	}
}

func TestFetchErrorsArePublishedNotFatal(t *testing.T) {
	cal, now := testCalendar(t)
	p := New(cal)
	p.now = now

	fetchErr := errors.New("feed unavailable")
	results := make(chan Result, 64)
	err := p.Start(10*time.Millisecond, func(ctx context.Context) (types.Snapshot, error) {
		return types.Snapshot{}, fetchErr
	}, func(r Result) { results <- r })
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if !errors.Is(r.Err, fetchErr) {
				t.Errorf("expected fetch error in result, got %v", r.Err)
			}
		case <-time.After(time.Second):
			t.Fatal("expected error results to keep flowing after a failure")
		}
	}
}

func TestStopIsAHardBarrier(t *testing.T) {
	cal, now := testCalendar(t)
	p := New(cal)
	p.now = now

	results := make(chan Result, 256)
	err := p.Start(5*time.Millisecond, func(ctx context.Context) (types.Snapshot, error) {
		return types.Snapshot{}, nil
	}, func(r Result) { results <- r })
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-results:
	case <-time.After(time.Second):
		t.Fatal("expected at least one result before stopping")
	}

	p.Stop()
	// Drain anything published before Stop returned, then verify silence.
	for len(results) > 0 {
		<-results
	}
	time.Sleep(50 * time.Millisecond)
	if len(results) != 0 {
		t.Errorf("received %d results after Stop returned", len(results))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	cal, _ := testCalendar(t)
	p := New(cal)
	p.Stop()
	p.Stop()
}

func TestClosedSessionSkipsFetch(t *testing.T) {
	cal, err := calendar.NewFromSpecs(8*3600, []string{"09:00-10:00"})
	if err != nil {
		t.Fatalf("NewFromSpecs failed: %v", err)
	}
	p := New(cal)
	loc := time.FixedZone("CST", 8*3600)
	p.now = func() time.Time {
		// Wednesday 16:00, outside every window.
		return time.Date(2025, 6, 4, 16, 0, 0, 0, loc)
	}

	var calls atomic.Int64
	results := make(chan Result, 16)
	if err := p.Start(10*time.Millisecond, func(ctx context.Context) (types.Snapshot, error) {
		calls.Add(1)
		return types.Snapshot{}, nil
	}, func(r Result) { results <- r }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("expected zero fetches outside trading windows, got %d", n)
	}
	if len(results) != 0 {
		t.Errorf("expected zero results outside trading windows, got %d", len(results))
	}
}

func TestStartReplacesRunningTimer(t *testing.T) {
	cal, now := testCalendar(t)
	p := New(cal)
	p.now = now

	old := make(chan Result, 256)
	if err := p.Start(5*time.Millisecond, func(ctx context.Context) (types.Snapshot, error) {
		return types.Snapshot{}, nil
	}, func(r Result) { old <- r }); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	fresh := make(chan Result, 256)
	if err := p.Start(5*time.Millisecond, func(ctx context.Context) (types.Snapshot, error) {
		return types.Snapshot{}, nil
	}, func(r Result) { fresh <- r }); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	defer p.Stop()

	select {
	case <-fresh:
	case <-time.After(time.Second):
		t.Fatal("expected results from the replacement timer")
	}

	// The first timer must stop publishing once replaced.
	for len(old) > 0 {
		<-old
	}
	time.Sleep(50 * time.Millisecond)
	if len(old) != 0 {
		t.Errorf("old subscriber received %d results after replacement", len(old))
	}
}

func TestStartValidatesArguments(t *testing.T) {
	cal, _ := testCalendar(t)
	p := New(cal)

	fetch := func(ctx context.Context) (types.Snapshot, error) { return types.Snapshot{}, nil }
	onResult := func(r Result) {}

	if err := p.Start(0, fetch, onResult); err == nil {
		t.Error("expected error for zero interval")
	}
	if err := p.Start(time.Second, nil, onResult); err == nil {
		t.Error("expected error for nil fetch")
	}
	if err := p.Start(time.Second, fetch, nil); err == nil {
		t.Error("expected error for nil onResult")
	}
}
