package model

import "sync"

// SpinInstance is one iteration of a node's event-processing loop, bounded
// by a timeout. Its state machine is:
//
//	(none) --spin_start--> (armed) --spin_wake--> (woken) --spin_end--> (ended)
//	            |                                               ^
//	            +---------------------- spin_timeout -----------+ (timed-out, ended)
type SpinInstance struct {
	mu sync.Mutex

	Node    *Node
	Start   Time
	Timeout Duration

	Wake Known[Time]
	End  Known[Time]

	TimedOut bool
}

func NewSpinInstance(node *Node, start Time, timeout Duration) *SpinInstance {
	return &SpinInstance{Node: node, Start: start, Timeout: timeout}
}

// SetWake records the wake timestamp. Error if already woken or ended.
func (s *SpinInstance) SetWake(t Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.End.Get(); ok {
		return &InvariantViolation{Reason: "spin wake after spin already ended"}
	}
	if t < s.Start {
		return &InvariantViolation{Reason: "spin wake before spin start"}
	}
	return s.Wake.Set("SpinInstance.Wake", t)
}

// SetEnd closes the spin normally (after a wake).
func (s *SpinInstance) SetEnd(t Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setEndLocked(t, false)
}

// SetTimeout closes the spin via the timeout path; wake may or may not
// have been observed first per the state machine.
func (s *SpinInstance) SetTimeout(t Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setEndLocked(t, true)
}

func (s *SpinInstance) setEndLocked(t Time, timedOut bool) error {
	if _, ok := s.End.Get(); ok {
		return &InvariantViolation{Reason: "spin end set twice"}
	}
	if t < s.Start {
		return &InvariantViolation{Reason: "spin end before spin start"}
	}
	if err := s.End.Set("SpinInstance.End", t); err != nil {
		return err
	}
	s.TimedOut = timedOut
	return nil
}

// Duration returns End-Wake, the time actually spent processing; ok is
// false until both are known.
func (s *SpinInstance) Duration() (Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wake, wokeOK := s.Wake.Get()
	end, endOK := s.End.Get()
	if !wokeOK || !endOK {
		return 0, false
	}
	return end.Sub(wake), true
}
