// Package reconstruct is the reconstruction engine: the central
// object store keyed by scoped handles, the protocol handler for each of
// the recognized event kinds, handle-reuse detection, and message
// correlation across the middleware/client-library/user-facing layers.
package reconstruct

import "github.com/cuemby/traceanalyzer/pkg/model"

// correlationKey is the published-message correlation index's key: a
// sender timestamp and, when known, the topic it was published on. The
// timestamp alone is ambiguous across topics published in the same
// nanosecond, hence the topic tiebreaker; it is intentionally not scoped
// by host/pid since the sender timestamp is the one correlator designed
// to cross process boundaries.
type correlationKey struct {
	SenderTimestamp model.Time
	Topic           string
	HasTopic        bool
}

// ReuseCounters tracks, per domain object kind, how many times the
// handle-reuse branch fired during a run — a diagnostic surfaced through
// the analysis Driver's end-of-run counters rather than as its own
// subsystem.
type ReuseCounters struct {
	Publisher  int
	Subscriber int
	Service    int
	Client     int
	Timer      int
}

// Store holds every live and historical domain object the engine has
// constructed, plus the transient handoff maps used while a message
// travels up or down the layer stack.
type Store struct {
	hostIDs    map[string]model.HostID
	nextHostID model.HostID

	nodesByRcl map[model.ScopedHandle]*model.Node

	publishersByRmw map[model.ScopedHandle]*model.Publisher
	publishersByRcl map[model.ScopedHandle]*model.Publisher

	subscribersByRmw    map[model.ScopedHandle]*model.Subscriber
	subscribersByRcl    map[model.ScopedHandle]*model.Subscriber
	subscribersByRclcpp map[model.ScopedHandle]*model.Subscriber

	servicesByRcl map[model.ScopedHandle]*model.Service
	clientsByRcl  map[model.ScopedHandle]*model.Client
	timersByRcl   map[model.ScopedHandle]*model.Timer

	callbacksByID map[model.ScopedHandle]*model.Callback

	// publishedByUser and publishedByClientLib are transient handoff maps
	// keyed by in-process message pointer; entries move between them (and
	// finally out, into publishedMessages) as a publication climbs from
	// the user-facing layer to the middleware.
	publishedByUser      map[model.ScopedHandle]*model.PublicationMessage
	publishedByClientLib map[model.ScopedHandle]*model.PublicationMessage

	publishedMessages map[correlationKey]*model.PublicationMessage

	receivedMessages map[model.ScopedHandle]*model.SubscriptionMessage

	// runningByThread enforces the rule that at most one CallbackInstance
	// runs per (host, pid, tid) at any trace instant.
	runningByThread map[threadKey]*model.Callback

	Reuse ReuseCounters
}

// threadKey identifies one OS thread of one traced process, the unit over
// which running-callback uniqueness is enforced.
type threadKey struct {
	Scope model.Scope
	Tid   uint32
}

// NewStore builds an empty object store.
func NewStore() *Store {
	return &Store{
		hostIDs:              make(map[string]model.HostID),
		nodesByRcl:           make(map[model.ScopedHandle]*model.Node),
		publishersByRmw:      make(map[model.ScopedHandle]*model.Publisher),
		publishersByRcl:      make(map[model.ScopedHandle]*model.Publisher),
		subscribersByRmw:     make(map[model.ScopedHandle]*model.Subscriber),
		subscribersByRcl:     make(map[model.ScopedHandle]*model.Subscriber),
		subscribersByRclcpp:  make(map[model.ScopedHandle]*model.Subscriber),
		servicesByRcl:        make(map[model.ScopedHandle]*model.Service),
		clientsByRcl:         make(map[model.ScopedHandle]*model.Client),
		timersByRcl:          make(map[model.ScopedHandle]*model.Timer),
		callbacksByID:        make(map[model.ScopedHandle]*model.Callback),
		publishedByUser:      make(map[model.ScopedHandle]*model.PublicationMessage),
		publishedByClientLib: make(map[model.ScopedHandle]*model.PublicationMessage),
		publishedMessages:    make(map[correlationKey]*model.PublicationMessage),
		receivedMessages:     make(map[model.ScopedHandle]*model.SubscriptionMessage),
		runningByThread:      make(map[threadKey]*model.Callback),
	}
}

// hostID interns a hostname, assigning the next sequential id on first
// sight.
func (s *Store) hostID(name string) model.HostID {
	if id, ok := s.hostIDs[name]; ok {
		return id
	}
	id := s.nextHostID
	s.nextHostID++
	s.hostIDs[name] = id
	return id
}

func (s *Store) scope(host string, pid uint32) model.Scope {
	return model.Scope{Host: s.hostID(host), Pid: pid}
}

func (s *Store) scopedHandle(host string, pid uint32, handle uint64) model.ScopedHandle {
	return model.ScopedHandle{Scope: s.scope(host, pid), Handle: model.Handle(handle)}
}

// createOrReusePublisher implements the handle-reuse policy: if the
// object already at key has every init-settable field known, it is
// treated as a fresh object under a reused handle.
func createOrReusePublisher(m map[model.ScopedHandle]*model.Publisher, key model.ScopedHandle, counters *ReuseCounters) (*model.Publisher, bool) {
	existing, ok := m[key]
	if !ok {
		p := model.NewPublisher()
		m[key] = p
		return p, false
	}
	if existing.InitSettable() {
		existing.MarkRemoved()
		p := model.NewPublisher()
		m[key] = p
		counters.Publisher++
		return p, true
	}
	return existing, false
}

func createOrReuseSubscriber(m map[model.ScopedHandle]*model.Subscriber, key model.ScopedHandle, counters *ReuseCounters) (*model.Subscriber, bool) {
	existing, ok := m[key]
	if !ok {
		sub := model.NewSubscriber()
		m[key] = sub
		return sub, false
	}
	if existing.InitSettable() {
		existing.MarkRemoved()
		sub := model.NewSubscriber()
		m[key] = sub
		counters.Subscriber++
		return sub, true
	}
	return existing, false
}

func createOrReuseService(m map[model.ScopedHandle]*model.Service, key model.ScopedHandle, counters *ReuseCounters) (*model.Service, bool) {
	existing, ok := m[key]
	if !ok {
		svc := model.NewService()
		m[key] = svc
		return svc, false
	}
	if existing.InitSettable() {
		existing.MarkRemoved()
		svc := model.NewService()
		m[key] = svc
		counters.Service++
		return svc, true
	}
	return existing, false
}

func createOrReuseClient(m map[model.ScopedHandle]*model.Client, key model.ScopedHandle, counters *ReuseCounters) (*model.Client, bool) {
	existing, ok := m[key]
	if !ok {
		c := model.NewClient()
		m[key] = c
		return c, false
	}
	if existing.InitSettable() {
		existing.MarkRemoved()
		c := model.NewClient()
		m[key] = c
		counters.Client++
		return c, true
	}
	return existing, false
}

func createOrReuseTimer(m map[model.ScopedHandle]*model.Timer, key model.ScopedHandle, counters *ReuseCounters) (*model.Timer, bool) {
	existing, ok := m[key]
	if !ok {
		t := model.NewTimer()
		m[key] = t
		return t, false
	}
	if existing.InitSettable() {
		existing.MarkRemoved()
		t := model.NewTimer()
		m[key] = t
		counters.Timer++
		return t, true
	}
	return existing, false
}
