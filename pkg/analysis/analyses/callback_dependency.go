package analyses

import (
	"io"

	"github.com/cuemby/traceanalyzer/pkg/graphviz"
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// CallbackDependency is the default callback-dependency analysis: a
// Graphviz digraph with one node per callback and an edge from
// callback A to callback B whenever A published on a topic that triggers
// B. Publication attribution uses the same thread tracking as the
// callback-publications report.
type CallbackDependency struct {
	out io.Writer

	threads threadTracker

	publishes   map[*model.Callback]map[string]bool
	pubTopics   map[*model.Callback][]string
	callbacks   []*model.Callback
	seen        map[*model.Callback]bool
	subscribers map[string][]*model.Callback
}

// CallbackDependencyEdge is the structured shape of one edge, stored when
// the analysis is routed to a bundle instead of a .dot file.
type CallbackDependencyEdge struct {
	From  string `msgpack:"from"`
	To    string `msgpack:"to"`
	Topic string `msgpack:"topic"`
}

func NewCallbackDependency(out io.Writer) *CallbackDependency {
	return &CallbackDependency{
		out:         out,
		threads:     threadTracker{},
		publishes:   map[*model.Callback]map[string]bool{},
		pubTopics:   map[*model.Callback][]string{},
		seen:        map[*model.Callback]bool{},
		subscribers: map[string][]*model.Callback{},
	}
}

func (*CallbackDependency) Name() string    { return "callback_dependency" }
func (*CallbackDependency) FileExt() string { return "dot" }

func (a *CallbackDependency) Initialize() error {
	a.threads = threadTracker{}
	a.publishes = map[*model.Callback]map[string]bool{}
	a.pubTopics = map[*model.Callback][]string{}
	a.callbacks = nil
	a.seen = map[*model.Callback]bool{}
	a.subscribers = map[string][]*model.Callback{}
	return nil
}

func (a *CallbackDependency) note(cb *model.Callback) {
	if !a.seen[cb] {
		a.seen[cb] = true
		a.callbacks = append(a.callbacks, cb)
	}
}

func (a *CallbackDependency) ProcessEvent(e *processed.Envelope) error {
	running := a.threads.Observe(e)

	switch p := e.Payload.(type) {
	case processed.RclcppSubscriptionCallbackAdded:
		a.note(p.Callback)
		if sub, state := p.Callback.Caller.Subscriber.Get(); state == model.WeakPresent {
			sub.Lock()
			topic, known := sub.Topic.Get()
			sub.Unlock()
			if known {
				a.subscribers[topic] = append(a.subscribers[topic], p.Callback)
			}
		}
	case processed.RclcppTimerCallbackAdded:
		a.note(p.Callback)
	case processed.RclcppServiceCallbackAdded:
		a.note(p.Callback)
	case processed.RmwPublish:
		if running == nil {
			return nil
		}
		p.Message.Lock()
		pub, state := p.Message.Publisher.Get()
		p.Message.Unlock()
		if state != model.WeakPresent {
			return nil
		}
		pub.Lock()
		topic, known := pub.Topic.Get()
		pub.Unlock()
		if !known {
			return nil
		}
		cb := running.Callback
		a.note(cb)
		if a.publishes[cb] == nil {
			a.publishes[cb] = map[string]bool{}
		}
		if !a.publishes[cb][topic] {
			a.publishes[cb][topic] = true
			a.pubTopics[cb] = append(a.pubTopics[cb], topic)
		}
	}
	return nil
}

// Result returns the dependency edges in deterministic (first-seen) order.
func (a *CallbackDependency) Result() any {
	var out []CallbackDependencyEdge
	for _, from := range a.callbacks {
		for _, topic := range a.pubTopics[from] {
			for _, to := range a.subscribers[topic] {
				out = append(out, CallbackDependencyEdge{From: from.Repr(), To: to.Repr(), Topic: topic})
			}
		}
	}
	return out
}

func (a *CallbackDependency) Finalize() error {
	if a.out == nil {
		return nil
	}
	g := graphviz.New()
	for _, cb := range a.callbacks {
		if _, err := g.AddNode("", cb.Repr(), cb.Repr(), map[string]string{"shape": "box"}); err != nil {
			return err
		}
	}
	for _, edge := range a.Result().([]CallbackDependencyEdge) {
		if err := g.AddEdge(edge.From, edge.To, map[string]string{"label": edge.Topic}); err != nil {
			return err
		}
	}
	return g.Render(a.out)
}
