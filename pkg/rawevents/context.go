// Package rawevents defines the typed raw event tagged union produced by
// decoding a trace message: the envelope (timestamp, context, payload) and
// the ~30 concrete payload variants grouped under the two recognized
// providers, "ros2" (the core middleware instrumentation) and "r2r" (a
// secondary provider carrying executor spin events).
package rawevents

import "github.com/cuemby/traceanalyzer/pkg/model"

// Context is the per-stream common context every event carries: which CPU
// recorded it, which process/thread it occurred in, and which host the
// trace came from.
type Context struct {
	CPUID       uint32
	Pid         uint32
	Tid         uint32
	ProcessName string
	HostName    string
}

// Event is implemented by every decoded payload. Name returns the
// "provider:event_name" discriminator the payload was decoded from.
type Event interface {
	Name() string
}

// Ros2Event marks payloads from the core middleware provider.
type Ros2Event interface {
	Event
	ros2Event()
}

// R2rEvent marks payloads from the secondary provider.
type R2rEvent interface {
	Event
	r2rEvent()
}

// Envelope is a fully decoded raw event: a typed payload plus its
// timestamp and context. It is immutable once constructed.
type Envelope struct {
	Timestamp model.Time
	Context   Context
	Payload   Event
}
