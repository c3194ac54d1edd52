package model

import "sync"

// Service and Client mirror the Publisher/Subscriber layered-handle
// structure but carry no message flow of their own; they exist so that
// Callback can record them as a CallbackCaller (service-side callback)
// and so their nodes' dependency graphs stay complete.
type Service struct {
	mu sync.Mutex

	RclHandle Known[ScopedHandle]
	Name      Known[string]
	Node      WeakKnown[*Node]

	removed bool
}

func NewService() *Service { return &Service{} }

func (s *Service) Removed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

func (s *Service) MarkRemoved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = true
}

func (s *Service) Lock()   { s.mu.Lock() }
func (s *Service) Unlock() { s.mu.Unlock() }

func (s *Service) InitSettable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, h := s.RclHandle.Get()
	_, n := s.Name.Get()
	return h && n
}

type Client struct {
	mu sync.Mutex

	RclHandle Known[ScopedHandle]
	Name      Known[string]
	Node      WeakKnown[*Node]

	removed bool
}

func NewClient() *Client { return &Client{} }

func (c *Client) Removed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed
}

func (c *Client) MarkRemoved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = true
}

func (c *Client) Lock()   { c.mu.Lock() }
func (c *Client) Unlock() { c.mu.Unlock() }

func (c *Client) InitSettable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, h := c.RclHandle.Get()
	_, n := c.Name.Get()
	return h && n
}

// Timer additionally carries its period.
type Timer struct {
	mu sync.Mutex

	RclHandle Known[ScopedHandle]
	Period    Known[Duration]
	Node      WeakKnown[*Node]

	removed bool
}

func NewTimer() *Timer { return &Timer{} }

func (t *Timer) Removed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removed
}

func (t *Timer) MarkRemoved() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removed = true
}

func (t *Timer) Lock()   { t.mu.Lock() }
func (t *Timer) Unlock() { t.mu.Unlock() }

func (t *Timer) InitSettable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, h := t.RclHandle.Get()
	_, p := t.Period.Get()
	return h && p
}
