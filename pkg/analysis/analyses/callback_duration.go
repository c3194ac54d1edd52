package analyses

import (
	"io"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// CallbackDuration is the default callback-duration analysis: one record
// per callback, carrying every observed execution duration and
// the inter-arrival time between successive starts.
type CallbackDuration struct {
	out io.Writer

	durations map[*model.Callback]*callbackSeries
	order     []*model.Callback
}

type callbackSeries struct {
	durations    []int64
	interArrival []int64
	lastStart    model.Time
	started      bool
}

// CallbackDurationRecord is one row of the callback-duration JSON array.
// The caller description is resolved at Finalize, once every init event
// has had a chance to fill in node names.
type CallbackDurationRecord struct {
	Node             string  `json:"node"`
	CallerType       string  `json:"caller_type"`
	CallerParam      string  `json:"caller_param"`
	Durations        []int64 `json:"durations"`
	InterArrivalTime []int64 `json:"inter_arrival_time"`
}

func NewCallbackDuration(out io.Writer) *CallbackDuration {
	return &CallbackDuration{out: out, durations: map[*model.Callback]*callbackSeries{}}
}

func (*CallbackDuration) Name() string    { return "callback_duration" }
func (*CallbackDuration) FileExt() string { return "json" }

func (a *CallbackDuration) Initialize() error {
	a.durations = map[*model.Callback]*callbackSeries{}
	a.order = nil
	return nil
}

func (a *CallbackDuration) series(cb *model.Callback) *callbackSeries {
	s, ok := a.durations[cb]
	if !ok {
		s = &callbackSeries{}
		a.durations[cb] = s
		a.order = append(a.order, cb)
	}
	return s
}

func (a *CallbackDuration) ProcessEvent(e *processed.Envelope) error {
	switch p := e.Payload.(type) {
	case processed.CallbackStart:
		s := a.series(p.Instance.Callback)
		if s.started {
			s.interArrival = append(s.interArrival, int64(p.Instance.Start.Sub(s.lastStart)))
		}
		s.lastStart = p.Instance.Start
		s.started = true
	case processed.CallbackEnd:
		d, ok := p.Instance.Duration()
		if !ok {
			return nil
		}
		s := a.series(p.Instance.Callback)
		s.durations = append(s.durations, int64(d))
	}
	return nil
}

// Result returns the records in first-seen order.
func (a *CallbackDuration) Result() any {
	out := make([]CallbackDurationRecord, 0, len(a.order))
	for _, cb := range a.order {
		s := a.durations[cb]
		node, callerType, callerParam := callerDescription(cb)
		out = append(out, CallbackDurationRecord{
			Node:             node,
			CallerType:       callerType,
			CallerParam:      callerParam,
			Durations:        s.durations,
			InterArrivalTime: s.interArrival,
		})
	}
	return out
}

func (a *CallbackDuration) Finalize() error {
	return writeJSON(a.out, a.Result())
}
