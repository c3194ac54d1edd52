package model

import "sync"

// Publisher is registered under two key->object maps, one per layer
// (middleware, client-library); RmwHandle/RclHandle are the respective
// scoped keys. It may be marked removed once handle reuse is detected,
// but is retained as long as historical PublicationMessage objects still
// reference it.
type Publisher struct {
	mu sync.Mutex

	RmwHandle Known[ScopedHandle]
	RclHandle Known[ScopedHandle]

	Topic      Known[string]
	QueueDepth Known[uint64]
	GID        Known[GID]
	Node       WeakKnown[*Node]

	removed bool
}

func NewPublisher() *Publisher { return &Publisher{} }

func (p *Publisher) Removed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removed
}

func (p *Publisher) MarkRemoved() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = true
}

func (p *Publisher) Lock()   { p.mu.Lock() }
func (p *Publisher) Unlock() { p.mu.Unlock() }

// InitSettable reports whether every field set exclusively by the init
// event family is known; used by the handle-reuse policy to decide
// whether a later init on the same key is a fresh object or a duplicate.
func (p *Publisher) InitSettable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, rmw := p.RmwHandle.Get()
	_, rcl := p.RclHandle.Get()
	_, topic := p.Topic.Get()
	_, qd := p.QueueDepth.Get()
	_, gid := p.GID.Get()
	return rmw && rcl && topic && qd && gid
}

// Subscriber additionally owns the currently-taken-but-not-yet-delivered
// message: at most one, with replacement-on-overflow logged as a drop by
// the caller (reconstruct.Engine), not enforced here.
type Subscriber struct {
	mu sync.Mutex

	RmwHandle    Known[ScopedHandle]
	RclHandle    Known[ScopedHandle]
	RclcppHandle Known[ScopedHandle]

	Topic      Known[string]
	QueueDepth Known[uint64]
	GID        Known[GID]
	Node       WeakKnown[*Node]

	// Pending is the slot holding a taken-but-not-yet-user-consumed
	// message. Exactly one of Pending being set or unset at any instant.
	Pending *SubscriptionMessage

	removed bool
}

func NewSubscriber() *Subscriber { return &Subscriber{} }

func (s *Subscriber) Removed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

func (s *Subscriber) MarkRemoved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = true
}

func (s *Subscriber) Lock()   { s.mu.Lock() }
func (s *Subscriber) Unlock() { s.mu.Unlock() }

func (s *Subscriber) InitSettable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rmw := s.RmwHandle.Get()
	_, rcl := s.RclHandle.Get()
	_, rclcpp := s.RclcppHandle.Get()
	_, topic := s.Topic.Get()
	_, qd := s.QueueDepth.Get()
	_, gid := s.GID.Get()
	return rmw && rcl && rclcpp && topic && qd && gid
}

// TakePending clears and returns the pending message slot (user-lib-take
// consumption), or nil if the slot is empty.
func (s *Subscriber) TakePending() *SubscriptionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.Pending
	s.Pending = nil
	return m
}

// SetPending installs msg into the slot, returning the previously pending
// message (non-nil means an overflow drop occurred).
func (s *Subscriber) SetPending(msg *SubscriptionMessage) (dropped *SubscriptionMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped = s.Pending
	s.Pending = msg
	return dropped
}
