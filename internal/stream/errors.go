package stream

import "errors"

// Failure kinds surfaced through OnError. Callers match with errors.Is; the
// wrapped error carries the underlying cause.
var (
	// ErrTransport covers connection failures and non-success status codes
	// observed before any event byte was read.
	ErrTransport = errors.New("stream transport failure")

	// ErrDecode marks byte sequences that are not valid UTF-8 even after
	// reassembling runes split across chunk boundaries.
	ErrDecode = errors.New("undecodable byte stream")

	// ErrProtocol marks an explicit error event sent by the server.
	ErrProtocol = errors.New("stream protocol error")

	// ErrEmptyStream marks a stream that ended without any content event and
	// without a completion marker.
	ErrEmptyStream = errors.New("stream ended with no content")
)
