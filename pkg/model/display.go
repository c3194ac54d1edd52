package model

import "strconv"

// Display-only label rendering for every domain entity: these participate
// in no invariant and are read only by the analyses' reports and graphs.

// Repr renders "Node{/ns/name}", or "Node{unknown}" if not yet known.
func (n *Node) Repr() string {
	if name, ok := n.FullName(); ok {
		return "Node{" + name + "}"
	}
	return "Node{unknown}"
}

func nodeRepr(w WeakKnown[*Node]) string {
	node, state := w.Get()
	if state != WeakPresent {
		return "node=unknown"
	}
	name, ok := node.FullName()
	if !ok {
		return "node=unknown"
	}
	return "node=" + name
}

// Repr renders "Publisher{node=..., topic=...}".
func (p *Publisher) Repr() string {
	p.mu.Lock()
	topic, ok := p.Topic.Get()
	node := p.Node
	p.mu.Unlock()
	if !ok {
		topic = "unknown"
	}
	return "Publisher{" + nodeRepr(node) + ", topic=" + topic + "}"
}

// Repr renders "Subscriber{node=..., topic=...}".
func (s *Subscriber) Repr() string {
	s.mu.Lock()
	topic, ok := s.Topic.Get()
	node := s.Node
	s.mu.Unlock()
	if !ok {
		topic = "unknown"
	}
	return "Subscriber{" + nodeRepr(node) + ", topic=" + topic + "}"
}

// Repr renders "Service{node=..., name=...}".
func (s *Service) Repr() string {
	s.mu.Lock()
	name, ok := s.Name.Get()
	node := s.Node
	s.mu.Unlock()
	if !ok {
		name = "unknown"
	}
	return "Service{" + nodeRepr(node) + ", name=" + name + "}"
}

// Repr renders "Client{node=..., name=...}".
func (c *Client) Repr() string {
	c.mu.Lock()
	name, ok := c.Name.Get()
	node := c.Node
	c.mu.Unlock()
	if !ok {
		name = "unknown"
	}
	return "Client{" + nodeRepr(node) + ", name=" + name + "}"
}

// Repr renders "Timer{node=..., period=...}".
func (t *Timer) Repr() string {
	t.mu.Lock()
	period, ok := t.Period.Get()
	node := t.Node
	t.mu.Unlock()
	if !ok {
		return "Timer{" + nodeRepr(node) + ", period=unknown}"
	}
	return "Timer{" + nodeRepr(node) + ", period=" + period.String() + "}"
}

// Repr renders "Callback{symbol=...}".
func (c *Callback) Repr() string {
	c.mu.Lock()
	sym, ok := c.Symbol.Get()
	c.mu.Unlock()
	if !ok {
		sym = "unknown"
	}
	return "Callback{symbol=" + sym + "}"
}

func (d Duration) String() string {
	return strconv.FormatInt(int64(d), 10) + "ns"
}
