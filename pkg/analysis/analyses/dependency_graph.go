package analyses

import (
	"fmt"
	"io"

	"github.com/cuemby/traceanalyzer/pkg/config"
	"github.com/cuemby/traceanalyzer/pkg/graphviz"
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
	"github.com/cuemby/traceanalyzer/pkg/quantile"
)

// DependencyGraph is the default dependency-graph analysis: a Graphviz
// digraph with one cluster per middleware node, its publishers
// and subscribers as graph nodes, and an edge from every publisher to
// every subscriber sharing its topic. When latency samples were observed
// for a (publisher, subscriber) pair the edge is colored on a green-to-red
// scale, the minimum stretched by the configured multiplier.
type DependencyGraph struct {
	out io.Writer
	cfg config.Config

	nodes      []*model.Node
	nodeSeen   map[*model.Node]bool
	publishers []*model.Publisher
	pubSeen    map[*model.Publisher]bool
	subs       []*model.Subscriber
	subSeen    map[*model.Subscriber]bool

	latencies map[pairKey][]int64
}

type pairKey struct {
	pub *model.Publisher
	sub *model.Subscriber
}

// DependencyGraphEdge is the structured shape of one edge for bundle
// storage.
type DependencyGraphEdge struct {
	Publisher  string  `msgpack:"publisher"`
	Subscriber string  `msgpack:"subscriber"`
	Topic      string  `msgpack:"topic"`
	MeanNs     float64 `msgpack:"mean_ns"`
	Samples    int     `msgpack:"samples"`
}

func NewDependencyGraph(cfg config.Config, out io.Writer) *DependencyGraph {
	return &DependencyGraph{
		out:       out,
		cfg:       cfg,
		nodeSeen:  map[*model.Node]bool{},
		pubSeen:   map[*model.Publisher]bool{},
		subSeen:   map[*model.Subscriber]bool{},
		latencies: map[pairKey][]int64{},
	}
}

func (*DependencyGraph) Name() string    { return "dependency_graph" }
func (*DependencyGraph) FileExt() string { return "dot" }

func (a *DependencyGraph) Initialize() error {
	a.nodes = nil
	a.nodeSeen = map[*model.Node]bool{}
	a.publishers = nil
	a.pubSeen = map[*model.Publisher]bool{}
	a.subs = nil
	a.subSeen = map[*model.Subscriber]bool{}
	a.latencies = map[pairKey][]int64{}
	return nil
}

func (a *DependencyGraph) noteNode(w model.WeakKnown[*model.Node]) {
	if n, state := w.Get(); state == model.WeakPresent && !a.nodeSeen[n] {
		a.nodeSeen[n] = true
		a.nodes = append(a.nodes, n)
	}
}

func (a *DependencyGraph) ProcessEvent(e *processed.Envelope) error {
	switch p := e.Payload.(type) {
	case processed.RclPublisherInit:
		if !a.pubSeen[p.Publisher] {
			a.pubSeen[p.Publisher] = true
			a.publishers = append(a.publishers, p.Publisher)
		}
		p.Publisher.Lock()
		node := p.Publisher.Node
		p.Publisher.Unlock()
		a.noteNode(node)
	case processed.RclSubscriptionInit:
		if !a.subSeen[p.Subscriber] {
			a.subSeen[p.Subscriber] = true
			a.subs = append(a.subs, p.Subscriber)
		}
		p.Subscriber.Lock()
		node := p.Subscriber.Node
		p.Subscriber.Unlock()
		a.noteNode(node)
	case processed.RclcppTake:
		if p.Message == nil {
			return nil
		}
		p.Message.Lock()
		link := p.Message.Link
		sub, subState := p.Message.Subscriber.Get()
		subTime, subOK := p.Message.RmwTime.Get()
		p.Message.Unlock()
		if link.Kind != model.MatchFull || subState != model.WeakPresent || !subOK {
			return nil
		}
		link.Publication.Lock()
		pubTime, pubOK := link.Publication.RmwTime.Get()
		pub, pubState := link.Publication.Publisher.Get()
		link.Publication.Unlock()
		if !pubOK || pubState != model.WeakPresent {
			return nil
		}
		key := pairKey{pub: pub, sub: sub}
		a.latencies[key] = append(a.latencies[key], int64(subTime.Sub(pubTime)))
	}
	return nil
}

func topicOfPublisher(p *model.Publisher) (string, bool) {
	p.Lock()
	defer p.Unlock()
	return p.Topic.Get()
}

func topicOfSubscriber(s *model.Subscriber) (string, bool) {
	s.Lock()
	defer s.Unlock()
	return s.Topic.Get()
}

// edges pairs every publisher with every subscriber on its topic, in
// first-seen order.
func (a *DependencyGraph) edges() []DependencyGraphEdge {
	var out []DependencyGraphEdge
	for _, pub := range a.publishers {
		topic, ok := topicOfPublisher(pub)
		if !ok {
			continue
		}
		for _, sub := range a.subs {
			subTopic, ok := topicOfSubscriber(sub)
			if !ok || subTopic != topic {
				continue
			}
			samples := a.latencies[pairKey{pub: pub, sub: sub}]
			out = append(out, DependencyGraphEdge{
				Publisher:  pub.Repr(),
				Subscriber: sub.Repr(),
				Topic:      topic,
				MeanNs:     quantile.Mean(samples),
				Samples:    len(samples),
			})
		}
	}
	return out
}

// Result returns the edge list for bundle storage.
func (a *DependencyGraph) Result() any {
	return a.edges()
}

func (a *DependencyGraph) Finalize() error {
	if a.out == nil {
		return nil
	}
	g := graphviz.New()

	clusterOf := map[*model.Node]string{}
	for _, n := range a.nodes {
		label, ok := n.FullName()
		if !ok {
			label = n.Repr()
		}
		cluster, err := g.AddCluster(label)
		if err != nil {
			return err
		}
		clusterOf[n] = cluster
	}

	parentOf := func(w model.WeakKnown[*model.Node]) string {
		if n, state := w.Get(); state == model.WeakPresent {
			return clusterOf[n]
		}
		return ""
	}

	for _, pub := range a.publishers {
		pub.Lock()
		node := pub.Node
		pub.Unlock()
		if _, err := g.AddNode(parentOf(node), pub.Repr(), pub.Repr(), map[string]string{"shape": "oval"}); err != nil {
			return err
		}
	}
	for _, sub := range a.subs {
		sub.Lock()
		node := sub.Node
		sub.Unlock()
		if _, err := g.AddNode(parentOf(node), sub.Repr(), sub.Repr(), map[string]string{"shape": "box"}); err != nil {
			return err
		}
	}

	edges := a.edges()
	minMean, maxMean := 0.0, 0.0
	first := true
	for _, e := range edges {
		if e.Samples == 0 {
			continue
		}
		if first || e.MeanNs < minMean {
			minMean = e.MeanNs
		}
		if first || e.MeanNs > maxMean {
			maxMean = e.MeanNs
		}
		first = false
	}

	for _, e := range edges {
		attrs := map[string]string{"label": e.Topic}
		if e.Samples > 0 {
			attrs["color"] = graphviz.HeatColor(e.MeanNs, minMean, maxMean, a.cfg.UtilizationColorMinMultiplier)
			attrs["tooltip"] = fmt.Sprintf("mean %.0fns over %d samples", e.MeanNs, e.Samples)
		}
		if err := g.AddEdge(e.Publisher, e.Subscriber, attrs); err != nil {
			return err
		}
	}
	return g.Render(a.out)
}
