// Package tracesourcetest provides an in-memory tracesource.EventStream
// fake for engine and analysis tests: a double that satisfies the
// production interface without touching the filesystem.
package tracesourcetest

import (
	"fmt"
	"io"

	"github.com/cuemby/traceanalyzer/pkg/tracesource"
)

// FakeStream replays a fixed, pre-ordered slice of raw messages.
type FakeStream struct {
	messages []*tracesource.RawMessage
	pos      int
	closed   bool
}

// NewFakeStream builds a FakeStream over messages, which must already be
// in non-decreasing timestamp order per (host,pid,tid) as the real reader
// guarantees.
func NewFakeStream(messages ...*tracesource.RawMessage) *FakeStream {
	return &FakeStream{messages: messages}
}

// Next returns the next message, or io.EOF once exhausted.
func (f *FakeStream) Next() (*tracesource.RawMessage, error) {
	if f.closed {
		return nil, fmt.Errorf("tracesourcetest: Next called after Close")
	}
	if f.pos >= len(f.messages) {
		return nil, io.EOF
	}
	m := f.messages[f.pos]
	f.pos++
	return m, nil
}

// Close marks the stream exhausted; idempotent.
func (f *FakeStream) Close() error {
	f.closed = true
	return nil
}
