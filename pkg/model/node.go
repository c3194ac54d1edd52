package model

import "sync"

// Node is one middleware node. Its collections of Publishers, Subscribers,
// Services, Clients and Timers are owning references: the Node is the sole
// strong owner of its children, which break the cycle by holding only a
// weak back-reference to it (see WeakKnown).
type Node struct {
	mu sync.Mutex

	// RclHandle is the scoped client-library handle, the identity key this
	// Node is stored under in Store.nodesByRcl.
	RclHandle ScopedHandle

	MwHandle  Known[ScopedHandle]
	Namespace Known[string]
	Name      Known[string]

	Publishers  []*Publisher
	Subscribers []*Subscriber
	Services    []*Service
	Clients     []*Client
	Timers      []*Timer

	// Spin is the node's current in-flight spin instance, at most one.
	Spin *SpinInstance

	removed bool
}

// NewNode creates a stub Node keyed by rclHandle; fields are filled in by
// the node-init handler (or left Unknown for stub creation, e.g. the
// /rosout racing-init fallback).
func NewNode(rclHandle ScopedHandle) *Node {
	return &Node{RclHandle: rclHandle}
}

// Removed reports whether this Node has been superseded by handle reuse.
// Implements Removable.
func (n *Node) Removed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.removed
}

// MarkRemoved flags the Node as removed. Existing children and messages
// may continue to reference it; it must never again be returned by a
// handle lookup for a new event.
func (n *Node) MarkRemoved() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = true
}

// FullName concatenates namespace and name, e.g. "/" + "talker" -> "/talker".
// Returns ok=false if either half is still unknown.
func (n *Node) FullName() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ns, nsOK := n.Namespace.Get()
	name, nameOK := n.Name.Get()
	if !nsOK || !nameOK {
		return "", false
	}
	if ns == "/" {
		return "/" + name, true
	}
	return ns + "/" + name, true
}

// DisplayReady reports whether the Node has enough known fields to render
// a meaningful label; used only by display/log paths, never by invariants.
func (n *Node) DisplayReady() bool {
	_, ok := n.FullName()
	return ok
}

func (n *Node) Lock()   { n.mu.Lock() }
func (n *Node) Unlock() { n.mu.Unlock() }

func (n *Node) AddPublisher(p *Publisher) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Publishers = append(n.Publishers, p)
}

func (n *Node) AddSubscriber(s *Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Subscribers = append(n.Subscribers, s)
}

func (n *Node) AddService(s *Service) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Services = append(n.Services, s)
}

func (n *Node) AddClient(c *Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Clients = append(n.Clients, c)
}

func (n *Node) AddTimer(t *Timer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Timers = append(n.Timers, t)
}
