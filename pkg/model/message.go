package model

import "sync"

// PublicationMessage is created at the first of {user-lib-publish,
// client-lib-publish, mw-publish} and holds up to three cross-layer
// publish timestamps plus the middleware-assigned sender timestamp, the
// sole cross-process correlator to subscription-side messages.
type PublicationMessage struct {
	mu sync.Mutex

	// Ptr is the in-process message pointer used only as a handoff-map key
	// while the message travels from user-lib through client-lib to the
	// middleware; it carries no meaning once SenderTimestamp is known.
	Ptr uint64

	Publisher WeakKnown[*Publisher]

	SenderTimestamp Known[Time]
	RclcppTime      Known[Time] // user-facing layer
	RclTime         Known[Time] // client-library layer
	RmwTime         Known[Time] // middleware layer

	// Orphan is true once a mw-publish event arrived without a sender
	// timestamp: the message is intact but can never be located by
	// correlation.
	Orphan bool
}

func NewPublicationMessage(ptr uint64) *PublicationMessage {
	return &PublicationMessage{Ptr: ptr}
}

func (m *PublicationMessage) Lock()   { m.mu.Lock() }
func (m *PublicationMessage) Unlock() { m.mu.Unlock() }

// MatchKind tags a SubscriptionMessage's tri-state linkage to its
// publication. It is an explicit tagged union, not two nullable fields,
// because the invariants differ per variant.
type MatchKind int

const (
	MatchUnknown MatchKind = iota
	MatchPartial
	MatchFull
)

// SubscriptionLink is the tri-state correlation result.
type SubscriptionLink struct {
	Kind MatchKind

	// Publication is set only when Kind == MatchFull.
	Publication *PublicationMessage

	// SenderTimestamp is set whenever a correlator was observed at all,
	// i.e. Kind == MatchPartial or MatchFull.
	SenderTimestamp Time
}

// SubscriptionMessage is created at mw-take and kept in its subscriber's
// Pending slot until user-lib-take consumes it, at which point it exits
// the engine as a processed-event payload.
type SubscriptionMessage struct {
	mu sync.Mutex

	Ptr uint64

	Subscriber WeakKnown[*Subscriber]
	Link       SubscriptionLink

	RmwTime    Known[Time]
	RclTime    Known[Time]
	RclcppTime Known[Time]

	// NotPreviouslySeen is set when this message was fabricated at
	// client-lib-take or user-lib-take because no mw-take had been
	// observed for it (mid-trace start).
	NotPreviouslySeen bool
}

func NewSubscriptionMessage(ptr uint64) *SubscriptionMessage {
	return &SubscriptionMessage{Ptr: ptr}
}

func (m *SubscriptionMessage) Lock()   { m.mu.Lock() }
func (m *SubscriptionMessage) Unlock() { m.mu.Unlock() }

// ConsistentWithPublication reports whether a fully-matched message's
// recorded sender timestamp agrees with its publication's. Trivially
// true for partial and unknown matches.
func (m *SubscriptionMessage) ConsistentWithPublication() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Link.Kind != MatchFull || m.Link.Publication == nil {
		return true
	}
	pub := m.Link.Publication
	pub.Lock()
	defer pub.Unlock()
	ts, ok := pub.SenderTimestamp.Get()
	if !ok {
		return false
	}
	return ts == m.Link.SenderTimestamp
}
