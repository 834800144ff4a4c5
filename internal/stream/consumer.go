package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"futures-monitor/internal/logger"
	"futures-monitor/internal/types"
)

// dataPrefix marks protocol lines carrying an event payload. Lines without it
// are ignored.
const dataPrefix = "data: "

// Opener opens the underlying transport for a strategy request and returns
// the raw event byte stream. A non-success response must be surfaced as an
// error, not as a reader.
type Opener func(ctx context.Context, req types.StrategyRequest) (io.ReadCloser, error)

// Callbacks receive the session's lifecycle events. OnContent and OnReasoning
// are handed the cumulative text, not the delta; the consumer owns the
// running concatenation. OnDone fires exactly once with the final content.
// OnReasoning is optional.
type Callbacks struct {
	OnContent   func(cumulative string)
	OnReasoning func(cumulative string)
	OnDone      func(final string)
	OnError     func(err error)
}

// event is one decoded protocol payload.
type event struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Message string `json:"message"`
}

// Consumer drives at most one streaming strategy session at a time. Starting
// a new session cancels the previous one; once Cancel returns, no callback
// from that session can fire again.
type Consumer struct {
	open Opener
	cb   Callbacks

	mu   sync.Mutex
	sess *session
}

// session is the live state of one streaming consumption. live is guarded by
// the consumer mutex and checked immediately before every callback, which is
// what makes cancellation a hard barrier rather than a hint.
type session struct {
	cancel context.CancelFunc
	live   bool
}

func NewConsumer(open Opener, cb Callbacks) *Consumer {
	return &Consumer{open: open, cb: cb}
}

// Start opens a stream for req. Any active session is cancelled first, with
// the same no-further-callbacks guarantee as Cancel. Start returns
// immediately; all activity is reported through the callbacks.
func (c *Consumer) Start(req types.StrategyRequest) {
	c.mu.Lock()
	if c.sess != nil {
		c.sess.live = false
		c.sess.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{cancel: cancel, live: true}
	c.sess = s
	c.mu.Unlock()

	go c.run(ctx, s, req)
}

// Cancel aborts the active session and discards any partially buffered line.
// Idempotent; safe on teardown paths. After Cancel returns, no callback for
// the cancelled session fires, even if bytes are still in flight.
func (c *Consumer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return
	}
	c.sess.live = false
	c.sess.cancel()
	c.sess = nil
}

// emit runs fn only if s is still the live session. Holding the mutex across
// the callback means Cancel blocks until an in-flight callback completes, so
// a caller returning from Cancel can never observe one afterwards.
func (c *Consumer) emit(s *session, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != s || !s.live {
		return false
	}
	fn()
	return true
}

// finish moves s to a terminal state and, if it was still live, runs fn.
func (c *Consumer) finish(s *session, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != s || !s.live {
		return
	}
	s.live = false
	c.sess = nil
	fn()
}

func (c *Consumer) fail(s *session, err error) {
	c.finish(s, func() {
		if c.cb.OnError != nil {
			c.cb.OnError(err)
		}
	})
}

func (c *Consumer) run(ctx context.Context, s *session, req types.StrategyRequest) {
	defer s.cancel()

	body, err := c.open(ctx, req)
	if err != nil {
		c.fail(s, fmt.Errorf("%w: %v", ErrTransport, err))
		return
	}
	defer body.Close()

	var (
		content     strings.Builder
		reasoning   strings.Builder
		carry       []byte // trailing bytes of a rune split across chunks
		pending     string // incomplete final line of the previous chunk
		contentSeen bool
	)

	buf := make([]byte, 4096)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			chunk := append(carry, buf[:n]...)
			complete, rest := splitIncompleteRune(chunk)
			carry = append([]byte(nil), rest...)

			if !utf8.Valid(complete) {
				c.fail(s, fmt.Errorf("%w: invalid utf-8 in chunk", ErrDecode))
				return
			}

			pending += string(complete)
			lines := strings.Split(pending, "\n")
			pending = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				done := c.handleLine(ctx, s, line, &content, &reasoning, &contentSeen)
				if done {
					return
				}
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}

		if rerr != nil {
			if errors.Is(rerr, context.Canceled) || ctx.Err() != nil {
				return
			}
			if errors.Is(rerr, io.EOF) {
				// The server is expected to send an explicit done event; a
				// clean close without one still counts as success if any
				// content arrived.
				if len(carry) > 0 {
					c.fail(s, fmt.Errorf("%w: truncated rune at end of stream", ErrDecode))
					return
				}
				if contentSeen {
					final := content.String()
					c.finish(s, func() {
						if c.cb.OnDone != nil {
							c.cb.OnDone(final)
						}
					})
					return
				}
				c.fail(s, ErrEmptyStream)
				return
			}
			c.fail(s, fmt.Errorf("%w: %v", ErrTransport, rerr))
			return
		}
	}
}

// handleLine processes one complete protocol line. It reports true when the
// session reached a terminal state and reading must stop.
func (c *Consumer) handleLine(ctx context.Context, s *session, line string, content, reasoning *strings.Builder, contentSeen *bool) bool {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return false
	}
	payload := strings.TrimPrefix(line, dataPrefix)
	if payload == "" {
		return false
	}

	var ev event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		// Malformed payloads are dropped, not escalated: unknown future
		// event shapes must not kill a healthy stream.
		logger.Debug(ctx, "Dropping malformed stream line", "line", line)
		return false
	}

	switch ev.Type {
	case "content":
		content.WriteString(ev.Content)
		*contentSeen = true
		cumulative := content.String()
		return !c.emit(s, func() {
			if c.cb.OnContent != nil {
				c.cb.OnContent(cumulative)
			}
		})
	case "reasoning":
		reasoning.WriteString(ev.Content)
		cumulative := reasoning.String()
		return !c.emit(s, func() {
			if c.cb.OnReasoning != nil {
				c.cb.OnReasoning(cumulative)
			}
		})
	case "done":
		final := content.String()
		c.finish(s, func() {
			if c.cb.OnDone != nil {
				c.cb.OnDone(final)
			}
		})
		return true
	case "error":
		c.fail(s, fmt.Errorf("%w: %s", ErrProtocol, ev.Message))
		return true
	default:
		logger.Debug(ctx, "Ignoring unknown stream event type", "event_type", ev.Type)
		return false
	}
}

// splitIncompleteRune splits b into the longest prefix ending on a rune
// boundary and the trailing bytes of a rune whose encoding continues in the
// next chunk. Invalid encodings are left in the complete part for the
// validity check to reject.
func splitIncompleteRune(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && len(b)-i < utf8.UTFMax; i-- {
		n := encodedRuneLen(b[i])
		if n < 0 {
			continue // continuation byte, keep scanning backward
		}
		if i+n > len(b) {
			return b[:i], b[i:]
		}
		break
	}
	return b, nil
}

// encodedRuneLen returns the encoded length implied by a UTF-8 leading byte,
// or -1 for continuation/invalid bytes.
func encodedRuneLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return -1
	}
}
