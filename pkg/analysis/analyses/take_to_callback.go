package analyses

import (
	"io"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// TakeToCallbackLatency is the default message-take-to-callback latency
// analysis: for every subscription-triggered callback start, the span
// from the trigger message's middleware take to the callback's start,
// grouped per callback.
type TakeToCallbackLatency struct {
	out io.Writer

	latencies map[*model.Callback][]int64
	order     []*model.Callback
}

// TakeToCallbackRecord is one row of the JSON array.
type TakeToCallbackRecord struct {
	Callback  string  `json:"callback"`
	Latencies []int64 `json:"latencies"`
}

func NewTakeToCallbackLatency(out io.Writer) *TakeToCallbackLatency {
	return &TakeToCallbackLatency{out: out, latencies: map[*model.Callback][]int64{}}
}

func (*TakeToCallbackLatency) Name() string    { return "take_to_callback_latency" }
func (*TakeToCallbackLatency) FileExt() string { return "json" }

func (a *TakeToCallbackLatency) Initialize() error {
	a.latencies = map[*model.Callback][]int64{}
	a.order = nil
	return nil
}

func (a *TakeToCallbackLatency) ProcessEvent(e *processed.Envelope) error {
	start, ok := e.Payload.(processed.CallbackStart)
	if !ok {
		return nil
	}
	inst := start.Instance
	if inst.Trigger.Kind != model.TriggerSubscription || inst.Trigger.Subscription == nil {
		return nil
	}
	msg := inst.Trigger.Subscription
	msg.Lock()
	takeTime, known := msg.RmwTime.Get()
	msg.Unlock()
	if !known {
		return nil
	}
	cb := inst.Callback
	if _, seen := a.latencies[cb]; !seen {
		a.order = append(a.order, cb)
	}
	a.latencies[cb] = append(a.latencies[cb], int64(inst.Start.Sub(takeTime)))
	return nil
}

// Result returns per-callback latency arrays in first-seen order.
func (a *TakeToCallbackLatency) Result() any {
	out := make([]TakeToCallbackRecord, 0, len(a.order))
	for _, cb := range a.order {
		out = append(out, TakeToCallbackRecord{Callback: cb.Repr(), Latencies: a.latencies[cb]})
	}
	return out
}

func (a *TakeToCallbackLatency) Finalize() error {
	return writeJSON(a.out, a.Result())
}
