package analyses

import (
	"fmt"
	"io"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// PublicationInCallback is an opt-in cross-check: it flags publications
// made from inside a subscription callback whose own trigger message had
// not yet completed its user-lib take when the publication happened, a
// sign the instrumentation chain around that callback is out of order.
type PublicationInCallback struct {
	out io.Writer

	threads threadTracker

	flagged map[*model.Callback]map[string]int
	order   []*model.Callback
	topics  map[*model.Callback][]string
}

// PublicationInCallbackRecord is one flagged (callback, topic) pair.
type PublicationInCallbackRecord struct {
	Callback string `msgpack:"callback"`
	Topic    string `msgpack:"topic"`
	Count    int    `msgpack:"count"`
}

func NewPublicationInCallback(out io.Writer) *PublicationInCallback {
	return &PublicationInCallback{
		out:     out,
		threads: threadTracker{},
		flagged: map[*model.Callback]map[string]int{},
		topics:  map[*model.Callback][]string{},
	}
}

func (*PublicationInCallback) Name() string    { return "publication_in_callback" }
func (*PublicationInCallback) FileExt() string { return "txt" }

func (a *PublicationInCallback) Initialize() error {
	a.threads = threadTracker{}
	a.flagged = map[*model.Callback]map[string]int{}
	a.topics = map[*model.Callback][]string{}
	a.order = nil
	return nil
}

func (a *PublicationInCallback) ProcessEvent(e *processed.Envelope) error {
	running := a.threads.Observe(e)

	pub, ok := e.Payload.(processed.RmwPublish)
	if !ok || running == nil {
		return nil
	}
	if running.Trigger.Kind != model.TriggerSubscription || running.Trigger.Subscription == nil {
		return nil
	}

	trigger := running.Trigger.Subscription
	trigger.Lock()
	_, consumed := trigger.RclcppTime.Get()
	trigger.Unlock()
	if consumed {
		return nil
	}

	topic := "unknown"
	pub.Message.Lock()
	p, state := pub.Message.Publisher.Get()
	pub.Message.Unlock()
	if state == model.WeakPresent {
		p.Lock()
		if tp, known := p.Topic.Get(); known {
			topic = tp
		}
		p.Unlock()
	}

	cb := running.Callback
	byTopic, seen := a.flagged[cb]
	if !seen {
		byTopic = map[string]int{}
		a.flagged[cb] = byTopic
		a.order = append(a.order, cb)
	}
	if byTopic[topic] == 0 {
		a.topics[cb] = append(a.topics[cb], topic)
	}
	byTopic[topic]++
	return nil
}

// Result returns the flagged rows in first-seen order.
func (a *PublicationInCallback) Result() any {
	var out []PublicationInCallbackRecord
	for _, cb := range a.order {
		for _, topic := range a.topics[cb] {
			out = append(out, PublicationInCallbackRecord{
				Callback: cb.Repr(),
				Topic:    topic,
				Count:    a.flagged[cb][topic],
			})
		}
	}
	return out
}

func (a *PublicationInCallback) Finalize() error {
	if a.out == nil {
		return nil
	}
	tw := newTabWriter(a.out)
	fmt.Fprintln(tw, "CALLBACK\tTOPIC\tUNCONSUMED-TRIGGER PUBLICATIONS")
	for _, rec := range a.Result().([]PublicationInCallbackRecord) {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", rec.Callback, rec.Topic, rec.Count)
	}
	return tw.Flush()
}
