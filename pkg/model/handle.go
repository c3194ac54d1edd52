package model

import "fmt"

// Handle is a 64-bit opaque integer issued by a middleware layer. It is
// unique only within one process on one host; it must always be paired
// with a Scope before being used as a map key.
type Handle uint64

// HostID identifies a trace host, interned from its string name by the
// reconstruction engine's host interner.
type HostID uint32

// Scope pairs a host with a process id, the context every Handle must be
// combined with before it identifies a single domain object.
type Scope struct {
	Host HostID
	Pid  uint32
}

func (s Scope) String() string {
	return fmt.Sprintf("host=%d/pid=%d", s.Host, s.Pid)
}

// ScopedHandle is the actual key used inside the engine's handle maps.
type ScopedHandle struct {
	Scope  Scope
	Handle Handle
}

func (s ScopedHandle) String() string {
	return fmt.Sprintf("%s/handle=%d", s.Scope, s.Handle)
}

// Time is a signed nanosecond timestamp from a fixed epoch, as delivered
// by the trace reader's clock snapshot.
type Time int64

// Sub returns a signed duration. A negative result where an interval
// requires end >= start is a hard assertion failure for the caller,
// never silently clamped.
func (t Time) Sub(other Time) Duration {
	return Duration(t - other)
}

// Duration is a signed nanosecond span between two Time values.
type Duration int64

// GID is the 24-byte middleware-assigned globally unique identifier
// stamped on every publisher and subscriber.
type GID [24]byte
