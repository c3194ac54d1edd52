package analyses

import (
	"io"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// SpinDuration is the default spin-duration analysis: for every closed
// spin instance, the time the node actually spent processing (end minus
// wake), grouped per node.
type SpinDuration struct {
	out io.Writer

	durations map[*model.Node][]int64
	order     []*model.Node
}

// SpinDurationRecord is one row of the JSON array.
type SpinDurationRecord struct {
	Node         string  `json:"node"`
	SpinDuration []int64 `json:"spin_duration"`
}

func NewSpinDuration(out io.Writer) *SpinDuration {
	return &SpinDuration{out: out, durations: map[*model.Node][]int64{}}
}

func (*SpinDuration) Name() string    { return "spin_duration" }
func (*SpinDuration) FileExt() string { return "json" }

func (a *SpinDuration) Initialize() error {
	a.durations = map[*model.Node][]int64{}
	a.order = nil
	return nil
}

func (a *SpinDuration) observe(spin *model.SpinInstance) {
	d, ok := spin.Duration()
	if !ok {
		return
	}
	if _, seen := a.durations[spin.Node]; !seen {
		a.order = append(a.order, spin.Node)
	}
	a.durations[spin.Node] = append(a.durations[spin.Node], int64(d))
}

func (a *SpinDuration) ProcessEvent(e *processed.Envelope) error {
	switch p := e.Payload.(type) {
	case processed.SpinEnd:
		a.observe(p.Spin)
	case processed.SpinTimeout:
		a.observe(p.Spin)
	}
	return nil
}

// Result returns per-node spin durations in first-seen order.
func (a *SpinDuration) Result() any {
	out := make([]SpinDurationRecord, 0, len(a.order))
	for _, node := range a.order {
		name, ok := node.FullName()
		if !ok {
			name = node.Repr()
		}
		out = append(out, SpinDurationRecord{Node: name, SpinDuration: a.durations[node]})
	}
	return out
}

func (a *SpinDuration) Finalize() error {
	return writeJSON(a.out, a.Result())
}
