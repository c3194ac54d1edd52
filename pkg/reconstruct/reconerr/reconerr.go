// Package reconerr is the reconstruction engine's closed error taxonomy.
// Every value here carries the raw event that triggered it, its timestamp
// and process/host context, and a reason tag, so a caller can report a
// failure once at the pipeline boundary without re-deriving what happened.
package reconerr

import (
	"fmt"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
)

// DecodeError wraps a hard decode failure (missing/wrong-type field) with
// the envelope context it occurred in. Fatal: no recovery is attempted.
type DecodeError struct {
	Discriminator string
	Context       rawevents.Context
	Timestamp     model.Time
	Cause         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at t=%d (%s): %v", e.Discriminator, e.Timestamp, e.Context.HostName, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// MissingDependency is raised when an event refers to a handle the engine
// has never seen and no fallback stub-creation path applies. Fatal.
type MissingDependency struct {
	Event     rawevents.Event
	Timestamp model.Time
	Context   rawevents.Context
	Handle    model.ScopedHandle
	Reason    string
}

func (e *MissingDependency) Error() string {
	return fmt.Sprintf("%s at t=%d: missing dependency %s: %s", e.Event.Name(), e.Timestamp, e.Handle, e.Reason)
}

// InvariantViolation is a hard assertion failure: end before start, two
// running callback instances on one thread, duration underflow. Wraps
// model.InvariantViolation with event/time/context for reporting.
type InvariantViolation struct {
	Event     rawevents.Event
	Timestamp model.Time
	Context   rawevents.Context
	Cause     *model.InvariantViolation
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s at t=%d: %v", e.Event.Name(), e.Timestamp, e.Cause)
}

func (e *InvariantViolation) Unwrap() error { return e.Cause }

// RepeatedInit is never returned as an error from the engine; it names
// the benign (same-value) repeated-initialization case, which the engine
// discards without logging. The engine does not construct it.
type RepeatedInit struct {
	Event     rawevents.Event
	Timestamp model.Time
	Field     string
}

func (e *RepeatedInit) Error() string {
	return fmt.Sprintf("%s at t=%d: repeated initialization of %s (same value, ignored)", e.Event.Name(), e.Timestamp, e.Field)
}

// OrphanPublication documents a mw-publish with no sender timestamp; it is
// logged, not returned as an error. The publication remains intact but can
// never be located by correlation.
type OrphanPublication struct {
	Event     rawevents.Event
	Timestamp model.Time
	Context   rawevents.Context
}

func (e *OrphanPublication) Error() string {
	return fmt.Sprintf("%s at t=%d: orphan publication, no sender timestamp", e.Event.Name(), e.Timestamp)
}

// CorrelationMiss documents a subscription-side message with no matching
// publication; it is logged, not returned as an error. The message becomes
// partially matched.
type CorrelationMiss struct {
	Event           rawevents.Event
	Timestamp       model.Time
	SenderTimestamp model.Time
	Topic           string
}

func (e *CorrelationMiss) Error() string {
	return fmt.Sprintf("%s at t=%d: no publication found for sender_ts=%d topic=%q", e.Event.Name(), e.Timestamp, e.SenderTimestamp, e.Topic)
}
