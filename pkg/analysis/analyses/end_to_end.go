package analyses

import (
	"io"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// EndToEnd is the opt-in end-to-end latency analysis: for every callback
// completion whose trigger was a fully-matched subscription message, the
// span from the publication's earliest recorded publish timestamp to the
// callback's end.
type EndToEnd struct {
	out io.Writer

	spans map[*model.Callback][]int64
	order []*model.Callback
}

// EndToEndRecord is one row of the JSON array.
type EndToEndRecord struct {
	Callback string  `json:"callback"`
	Spans    []int64 `json:"spans"`
}

func NewEndToEnd(out io.Writer) *EndToEnd {
	return &EndToEnd{out: out, spans: map[*model.Callback][]int64{}}
}

func (*EndToEnd) Name() string    { return "end_to_end" }
func (*EndToEnd) FileExt() string { return "json" }

func (a *EndToEnd) Initialize() error {
	a.spans = map[*model.Callback][]int64{}
	a.order = nil
	return nil
}

// publishTime picks the earliest layer timestamp the publication carries:
// user-facing if instrumented, else client-lib, else middleware.
func publishTime(pub *model.PublicationMessage) (model.Time, bool) {
	pub.Lock()
	defer pub.Unlock()
	if t, ok := pub.RclcppTime.Get(); ok {
		return t, true
	}
	if t, ok := pub.RclTime.Get(); ok {
		return t, true
	}
	if t, ok := pub.RmwTime.Get(); ok {
		return t, true
	}
	return 0, false
}

func (a *EndToEnd) ProcessEvent(e *processed.Envelope) error {
	end, ok := e.Payload.(processed.CallbackEnd)
	if !ok {
		return nil
	}
	inst := end.Instance
	if inst.Trigger.Kind != model.TriggerSubscription || inst.Trigger.Subscription == nil {
		return nil
	}
	msg := inst.Trigger.Subscription
	msg.Lock()
	link := msg.Link
	msg.Unlock()
	if link.Kind != model.MatchFull || link.Publication == nil {
		return nil
	}
	start, ok := publishTime(link.Publication)
	if !ok {
		return nil
	}
	d, ok := inst.Duration()
	if !ok {
		return nil
	}
	finished := inst.Start + model.Time(d)
	cb := inst.Callback
	if _, seen := a.spans[cb]; !seen {
		a.order = append(a.order, cb)
	}
	a.spans[cb] = append(a.spans[cb], int64(finished.Sub(start)))
	return nil
}

// Result returns per-callback spans in first-seen order.
func (a *EndToEnd) Result() any {
	out := make([]EndToEndRecord, 0, len(a.order))
	for _, cb := range a.order {
		out = append(out, EndToEndRecord{Callback: cb.Repr(), Spans: a.spans[cb]})
	}
	return out
}

func (a *EndToEnd) Finalize() error {
	return writeJSON(a.out, a.Result())
}
