package model

import "sync"

// CallbackCallerKind discriminates the tagged weak reference a Callback
// uses to record what triggers it.
type CallbackCallerKind int

const (
	CallerUnknown CallbackCallerKind = iota
	CallerSubscription
	CallerService
	CallerTimer
)

// CallbackCaller is a tagged weak reference; it never owns its referent.
type CallbackCaller struct {
	Kind       CallbackCallerKind
	Subscriber WeakKnown[*Subscriber]
	Service    WeakKnown[*Service]
	Timer      WeakKnown[*Timer]
}

// String renders a short label for display-only purposes (callback
// publications report, DOT graphs); never used for correlation.
func (c CallbackCaller) String() string {
	switch c.Kind {
	case CallerSubscription:
		if sub, state := c.Subscriber.Get(); state == WeakPresent {
			sub.Lock()
			defer sub.Unlock()
			topic, _ := sub.Topic.Get()
			return "subscription:" + topic
		}
		return "subscription:<dropped>"
	case CallerService:
		if svc, state := c.Service.Get(); state == WeakPresent {
			svc.Lock()
			defer svc.Unlock()
			name, _ := svc.Name.Get()
			return "service:" + name
		}
		return "service:<dropped>"
	case CallerTimer:
		if _, state := c.Timer.Get(); state == WeakPresent {
			return "timer"
		}
		return "timer:<dropped>"
	default:
		return "<unknown>"
	}
}

// Callback has at most one running instance; a start without a preceding
// end for the previous one is a hard invariant violation.
type Callback struct {
	mu sync.Mutex

	Handle ScopedHandle
	Symbol Known[string]
	Caller CallbackCaller

	Running *CallbackInstance

	removed bool
}

func NewCallback(handle ScopedHandle, caller CallbackCaller) *Callback {
	return &Callback{Handle: handle, Caller: caller}
}

func (c *Callback) Removed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed
}

func (c *Callback) MarkRemoved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = true
}

func (c *Callback) Lock()   { c.mu.Lock() }
func (c *Callback) Unlock() { c.mu.Unlock() }

// CallbackInstance is one execution of a Callback: start time set at
// construction, optional end time, and a snapshot of what triggered it.
type CallbackInstance struct {
	mu sync.Mutex

	Callback *Callback
	Start    Time
	End      Known[Time]
	Trigger  CallbackTrigger
}

// CallbackTriggerKind mirrors CallbackCallerKind but carries the concrete
// per-invocation snapshot rather than a persistent weak reference: a
// subscription instance consumes the subscriber's pending message.
type CallbackTriggerKind int

const (
	TriggerUnknown CallbackTriggerKind = iota
	TriggerSubscription
	TriggerService
	TriggerTimer
)

type CallbackTrigger struct {
	Kind         CallbackTriggerKind
	Subscription *SubscriptionMessage
	Service      *Service
	Timer        *Timer
}

func NewCallbackInstance(cb *Callback, start Time, trigger CallbackTrigger) *CallbackInstance {
	return &CallbackInstance{Callback: cb, Start: start, Trigger: trigger}
}

// SetEnd closes the instance. Returns an error if end < start
// or if the instance is already ended.
func (ci *CallbackInstance) SetEnd(end Time) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	if _, ok := ci.End.Get(); ok {
		return &RepeatedInitError{Field: "CallbackInstance.End"}
	}
	if end < ci.Start {
		return &InvariantViolation{Reason: "callback end before start"}
	}
	_ = ci.End.Set("CallbackInstance.End", end)
	return nil
}

// Duration returns End-Start; ok is false if not yet ended.
func (ci *CallbackInstance) Duration() (Duration, bool) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	end, ok := ci.End.Get()
	if !ok {
		return 0, false
	}
	return end.Sub(ci.Start), true
}

// InvariantViolation is a hard assertion failure: end before start,
// two running instances on one thread, duration underflow, and similar.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Reason
}
