package analyses

import (
	"io"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// MessageLatency is the default message-latency analysis: one record
// per (topic, subscriber, publisher) triple, each holding
// every observed publish-to-take latency in nanoseconds.
type MessageLatency struct {
	out io.Writer

	records map[latencyKey]*LatencyRecord
	order   []latencyKey
}

type latencyKey struct {
	sub *model.Subscriber
	pub *model.Publisher
}

// LatencyRecord is one row of the message-latency analysis's JSON array.
type LatencyRecord struct {
	Topic          string  `json:"topic"`
	SubscriberRepr string  `json:"subscriber_repr"`
	PublisherRepr  string  `json:"publisher_repr"`
	Latencies      []int64 `json:"latencies"`
}

// NewMessageLatency constructs the analysis; out may be nil (bundle-only use).
func NewMessageLatency(out io.Writer) *MessageLatency {
	return &MessageLatency{out: out, records: map[latencyKey]*LatencyRecord{}}
}

func (*MessageLatency) Name() string    { return "message_latency" }
func (*MessageLatency) FileExt() string { return "json" }

// Initialize resets all accumulated state, so a reused instance produces
// identical output from an identical stream.
func (a *MessageLatency) Initialize() error {
	a.records = map[latencyKey]*LatencyRecord{}
	a.order = nil
	return nil
}

func (a *MessageLatency) ProcessEvent(e *processed.Envelope) error {
	take, ok := e.Payload.(processed.RclcppTake)
	if !ok || take.Message == nil {
		return nil
	}
	msg := take.Message
	msg.Lock()
	link := msg.Link
	sub, subState := msg.Subscriber.Get()
	msg.Unlock()
	if subState != model.WeakPresent {
		return nil
	}

	var latency model.Duration
	var pub *model.Publisher
	switch link.Kind {
	case model.MatchFull:
		link.Publication.Lock()
		pubTime, pubOK := link.Publication.RmwTime.Get()
		p, pState := link.Publication.Publisher.Get()
		link.Publication.Unlock()
		if !pubOK {
			return nil
		}
		msg.Lock()
		subTime, subOK := msg.RmwTime.Get()
		msg.Unlock()
		if !subOK {
			return nil
		}
		latency = subTime.Sub(pubTime)
		if pState == model.WeakPresent {
			pub = p
		}
	case model.MatchPartial:
		msg.Lock()
		subTime, subOK := msg.RmwTime.Get()
		msg.Unlock()
		if !subOK {
			return nil
		}
		// No publication observed in this trace: fall back to the sender
		// timestamp itself as the only available time base, so a partial
		// match still yields a record.
		latency = subTime.Sub(link.SenderTimestamp)
	default:
		return nil
	}

	sub.Lock()
	topic, _ := sub.Topic.Get()
	sub.Unlock()
	subRepr := sub.Repr()

	key := latencyKey{sub: sub, pub: pub}
	rec, ok := a.records[key]
	if !ok {
		pubRepr := "Publisher{unknown}"
		if pub != nil {
			pubRepr = pub.Repr()
		}
		rec = &LatencyRecord{Topic: topic, SubscriberRepr: subRepr, PublisherRepr: pubRepr}
		a.records[key] = rec
		a.order = append(a.order, key)
	}
	rec.Latencies = append(rec.Latencies, int64(latency))
	return nil
}

// Result returns the records in first-seen order, for bundle storage.
func (a *MessageLatency) Result() any {
	out := make([]LatencyRecord, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, *a.records[k])
	}
	return out
}

func (a *MessageLatency) Finalize() error {
	return writeJSON(a.out, a.Result())
}
