package analyses

import (
	"fmt"
	"io"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// CallbackPublications is the default callback-publications report: a
// human-readable table of which callbacks publish on which topics,
// attributed by observing mw-publish events on the thread a callback
// instance is running on.
type CallbackPublications struct {
	out io.Writer

	threads threadTracker

	counts map[*model.Callback]map[string]int
	order  []*model.Callback
	topics map[*model.Callback][]string
}

// CallbackPublicationRecord is one row of the report, also the structured
// shape stored in a bundle.
type CallbackPublicationRecord struct {
	Callback string `msgpack:"callback"`
	Topic    string `msgpack:"topic"`
	Count    int    `msgpack:"count"`
}

func NewCallbackPublications(out io.Writer) *CallbackPublications {
	return &CallbackPublications{
		out:     out,
		threads: threadTracker{},
		counts:  map[*model.Callback]map[string]int{},
		topics:  map[*model.Callback][]string{},
	}
}

func (*CallbackPublications) Name() string    { return "callback_publications" }
func (*CallbackPublications) FileExt() string { return "txt" }

func (a *CallbackPublications) Initialize() error {
	a.threads = threadTracker{}
	a.counts = map[*model.Callback]map[string]int{}
	a.topics = map[*model.Callback][]string{}
	a.order = nil
	return nil
}

func (a *CallbackPublications) ProcessEvent(e *processed.Envelope) error {
	running := a.threads.Observe(e)

	pub, ok := e.Payload.(processed.RmwPublish)
	if !ok || running == nil {
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
	byTopic, seen := a.counts[cb]
	if !seen {
		byTopic = map[string]int{}
		a.counts[cb] = byTopic
		a.order = append(a.order, cb)
	}
	if byTopic[topic] == 0 {
		a.topics[cb] = append(a.topics[cb], topic)
	}
	byTopic[topic]++
	return nil
}

// Result returns the rows in first-seen order.
func (a *CallbackPublications) Result() any {
	var out []CallbackPublicationRecord
	for _, cb := range a.order {
		for _, topic := range a.topics[cb] {
			out = append(out, CallbackPublicationRecord{
				Callback: cb.Repr(),
				Topic:    topic,
				Count:    a.counts[cb][topic],
			})
		}
	}
	return out
}

func (a *CallbackPublications) Finalize() error {
	if a.out == nil {
		return nil
	}
	tw := newTabWriter(a.out)
	fmt.Fprintln(tw, "CALLBACK\tTOPIC\tPUBLICATIONS")
	for _, rec := range a.Result().([]CallbackPublicationRecord) {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", rec.Callback, rec.Topic, rec.Count)
	}
	return tw.Flush()
}
