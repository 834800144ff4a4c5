package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"

	"futures-monitor/internal/types"
)

// chunkReader serves one scripted chunk per Read call, then EOF. It lets tests
// control exactly where the byte stream is split.
type chunkReader struct {
	chunks [][]byte
	i      int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.i >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

// ctxReader blocks every Read until the opener's context is cancelled. It
// models a server that has accepted the connection but sent nothing yet.
type ctxReader struct {
	ctx context.Context
}

func (r *ctxReader) Read(p []byte) (int, error) {
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

func (r *ctxReader) Close() error { return nil }

func openerFor(chunks ...[]byte) Opener {
	return func(ctx context.Context, req types.StrategyRequest) (io.ReadCloser, error) {
		return &chunkReader{chunks: chunks}, nil
	}
}

// recorder collects the callback sequence and signals when the session
// reaches a terminal state.
type recorder struct {
	events   []string
	err      error
	terminal chan struct{}
}

func newRecorder() *recorder {
	return &recorder{terminal: make(chan struct{})}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnContent: func(cumulative string) {
			r.events = append(r.events, "content:"+cumulative)
		},
		OnReasoning: func(cumulative string) {
			r.events = append(r.events, "reasoning:"+cumulative)
		},
		OnDone: func(final string) {
			r.events = append(r.events, "done:"+final)
			close(r.terminal)
		},
		OnError: func(err error) {
			r.events = append(r.events, "error")
			r.err = err
			close(r.terminal)
		},
	}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.terminal:
	case <-time.After(2 * time.Second):
		t.Fatal("session never reached a terminal state")
	}
}

func line(payload string) []byte {
	return []byte("data: " + payload + "\n")
}

func TestContentAccumulation(t *testing.T) {
	rec := newRecorder()
	c := NewConsumer(openerFor(
		line(`{"type": "content", "content": "A"}`),
		line(`{"type": "content", "content": "B"}`),
		line(`{"type": "done"}`),
	), rec.callbacks())

	c.Start(types.StrategyRequest{Symbol: "M2509"})
	rec.wait(t)

	want := []string{"content:A", "content:AB", "done:AB"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestChunkSplitsDoNotChangeEvents(t *testing.T) {
	// One multi-line payload carrying multibyte text, fed through every
	// possible split point, must always produce the same event sequence.
	full := append(append(
		line(`{"type": "content", "content": "豆粕"}`),
		line(`{"type": "content", "content": "走强"}`)...),
		line(`{"type": "done"}`)...)

	want := []string{"content:豆粕", "content:豆粕走强", "done:豆粕走强"}

	for cut := 1; cut < len(full); cut++ {
		rec := newRecorder()
		a := append([]byte(nil), full[:cut]...)
		b := append([]byte(nil), full[cut:]...)
		c := NewConsumer(openerFor(a, b), rec.callbacks())

		c.Start(types.StrategyRequest{Symbol: "M2509"})
		rec.wait(t)

		if !reflect.DeepEqual(rec.events, want) {
			t.Fatalf("split at %d: events = %v, want %v", cut, rec.events, want)
		}
	}
}

func TestReasoningIsSeparateFromContent(t *testing.T) {
	rec := newRecorder()
	c := NewConsumer(openerFor(
		line(`{"type": "reasoning", "content": "checking levels"}`),
		line(`{"type": "content", "content": "hold"}`),
		line(`{"type": "done"}`),
	), rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	want := []string{"reasoning:checking levels", "content:hold", "done:hold"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestDoneWithNoContent(t *testing.T) {
	rec := newRecorder()
	c := NewConsumer(openerFor(line(`{"type": "done"}`)), rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	want := []string{"done:"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestEmptyStreamIsAnError(t *testing.T) {
	rec := newRecorder()
	c := NewConsumer(openerFor(), rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	if !errors.Is(rec.err, ErrEmptyStream) {
		t.Errorf("expected ErrEmptyStream, got %v", rec.err)
	}
}

func TestCleanCloseAfterContentIsDone(t *testing.T) {
	// No explicit done event, but content arrived before EOF.
	rec := newRecorder()
	c := NewConsumer(openerFor(
		line(`{"type": "content", "content": "partial"}`),
	), rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	want := []string{"content:partial", "done:partial"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestServerErrorEvent(t *testing.T) {
	rec := newRecorder()
	c := NewConsumer(openerFor(
		line(`{"type": "content", "content": "A"}`),
		line(`{"type": "error", "message": "model unavailable"}`),
	), rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	if !errors.Is(rec.err, ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", rec.err)
	}
}

func TestMalformedLinesAreDropped(t *testing.T) {
	rec := newRecorder()
	c := NewConsumer(openerFor(
		line(`{not json`),
		[]byte(": keepalive comment\n"),
		line(`{"type": "content", "content": "ok"}`),
		line(`{"type": "done"}`),
	), rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	want := []string{"content:ok", "done:ok"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestInvalidUTF8IsDecodeError(t *testing.T) {
	rec := newRecorder()
	c := NewConsumer(openerFor(
		[]byte("data: {\"type\": \"content\", \"content\": \"\xff\xfe\"}\n"),
	), rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	if !errors.Is(rec.err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", rec.err)
	}
}

func TestTruncatedRuneAtEOFIsDecodeError(t *testing.T) {
	payload := line(`{"type": "content", "content": "x"}`)
	// Stream ends mid-rune: the first two bytes of a three-byte encoding.
	rec := newRecorder()
	c := NewConsumer(openerFor(payload, []byte("\xe8\xb1")), rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	if !errors.Is(rec.err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", rec.err)
	}
}

func TestOpenFailureIsTransportError(t *testing.T) {
	rec := newRecorder()
	c := NewConsumer(func(ctx context.Context, req types.StrategyRequest) (io.ReadCloser, error) {
		return nil, fmt.Errorf("connect refused")
	}, rec.callbacks())

	c.Start(types.StrategyRequest{})
	rec.wait(t)

	if !errors.Is(rec.err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", rec.err)
	}
}

func TestCancelBeforeAnyBytes(t *testing.T) {
	opened := make(chan struct{})
	rec := newRecorder()
	c := NewConsumer(func(ctx context.Context, req types.StrategyRequest) (io.ReadCloser, error) {
		close(opened)
		return &ctxReader{ctx: ctx}, nil
	}, rec.callbacks())

	c.Start(types.StrategyRequest{})
	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("stream never opened")
	}

	c.Cancel()
	time.Sleep(50 * time.Millisecond)
	if len(rec.events) != 0 {
		t.Errorf("expected no callbacks after cancel, got %v", rec.events)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	c := NewConsumer(openerFor(), Callbacks{})
	c.Cancel()
	c.Cancel()
}

func TestStartReplacesActiveSession(t *testing.T) {
	var calls int
	rec := newRecorder()
	c := NewConsumer(func(ctx context.Context, req types.StrategyRequest) (io.ReadCloser, error) {
		calls++
		if calls == 1 {
			return &ctxReader{ctx: ctx}, nil
		}
		return &chunkReader{chunks: [][]byte{
			line(`{"type": "content", "content": "second"}`),
			line(`{"type": "done"}`),
		}}, nil
	}, rec.callbacks())

	c.Start(types.StrategyRequest{Symbol: "M2509"})
	time.Sleep(20 * time.Millisecond)
	c.Start(types.StrategyRequest{Symbol: "M2601"})
	rec.wait(t)

	want := []string{"content:second", "done:second"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestSplitIncompleteRune(t *testing.T) {
	cases := []struct {
		in       []byte
		complete string
		rest     string
	}{
		{[]byte("hello"), "hello", ""},
		{[]byte("a\xe8\xb1"), "a", "\xe8\xb1"},         // 2 of 3 bytes
		{[]byte("a\xf0\x9f\x98"), "a", "\xf0\x9f\x98"}, // 3 of 4 bytes
		{[]byte("豆"), "豆", ""},                         // complete rune stays
		{[]byte{}, "", ""},
	}

	for _, tc := range cases {
		complete, rest := splitIncompleteRune(tc.in)
		if string(complete) != tc.complete || string(rest) != tc.rest {
			t.Errorf("splitIncompleteRune(%q) = (%q, %q), want (%q, %q)",
				tc.in, complete, rest, tc.complete, tc.rest)
		}
	}
}
