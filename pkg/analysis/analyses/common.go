// Package analyses holds the concrete statistical reducers that observe
// the reconstructed event stream through the analysis.Analysis interface:
// the nine default analyses plus the two opt-in ones.
package analyses

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cuemby/traceanalyzer/pkg/config"
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
)

// Sink is where a Finalize call writes its artifact. A nil Sink is valid
// (the analysis still computes Result(), for bundle-only runs).
type Sink interface {
	io.Writer
}

// writeJSON marshals v as indented JSON to w.
func writeJSON(w io.Writer, v any) error {
	if w == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a tabwriter configured for the plain-text reports
// (3-space padding, tab-separated columns).
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 2, 3, ' ', 0)
}

// quantilesOf returns cfg.Quantiles, or a sane default if the config
// wasn't supplied (e.g. a bundle-only unit test constructing an analysis
// directly).
func quantilesOf(cfg config.Config) []float64 {
	if len(cfg.Quantiles) == 0 {
		return []float64{0.5, 0.9, 0.99}
	}
	return cfg.Quantiles
}

// repr renders a short display label, used by analyses that report a
// human-readable subscriber/publisher/node identity instead of a raw
// handle.
func repr(kind, name string) string {
	if name == "" {
		return fmt.Sprintf("%s{unknown}", kind)
	}
	return fmt.Sprintf("%s{%s}", kind, name)
}

// threadID keys per-thread state inside an analysis: the same (host, pid,
// tid) triple the engine enforces running-callback uniqueness over, so a
// tracker never holds more than one instance per key.
type threadID struct {
	host string
	pid  uint32
	tid  uint32
}

func threadOf(e *processed.Envelope) threadID {
	return threadID{host: e.Context.HostName, pid: e.Context.Pid, tid: e.Context.Tid}
}

// threadTracker attributes mid-stream events (publications, mostly) to
// the callback instance currently running on the event's thread. Analyses
// that need "was this publish made from inside a callback?" feed it every
// CallbackStart/CallbackEnd they observe.
type threadTracker map[threadID]*model.CallbackInstance

// Observe updates the tracker from one processed event and returns the
// instance running on the event's thread (nil outside any callback). The
// CallbackStart event itself reports its own new instance; CallbackEnd
// reports nil.
func (t threadTracker) Observe(e *processed.Envelope) *model.CallbackInstance {
	switch p := e.Payload.(type) {
	case processed.CallbackStart:
		t[threadOf(e)] = p.Instance
		return p.Instance
	case processed.CallbackEnd:
		delete(t, threadOf(e))
		return nil
	default:
		return t[threadOf(e)]
	}
}

// callerDescription renders a callback's caller as (node, type, parameter)
// strings for reporting: the subscription topic, the service name, or the
// timer period.
func callerDescription(cb *model.Callback) (node, callerType, callerParam string) {
	node, callerType, callerParam = "unknown", "unknown", ""
	switch cb.Caller.Kind {
	case model.CallerSubscription:
		callerType = "subscription"
		if sub, state := cb.Caller.Subscriber.Get(); state == model.WeakPresent {
			sub.Lock()
			callerParam, _ = sub.Topic.Get()
			owner, ownerState := sub.Node.Get()
			sub.Unlock()
			if ownerState == model.WeakPresent {
				if name, ok := owner.FullName(); ok {
					node = name
				}
			}
		}
	case model.CallerService:
		callerType = "service"
		if svc, state := cb.Caller.Service.Get(); state == model.WeakPresent {
			svc.Lock()
			callerParam, _ = svc.Name.Get()
			owner, ownerState := svc.Node.Get()
			svc.Unlock()
			if ownerState == model.WeakPresent {
				if name, ok := owner.FullName(); ok {
					node = name
				}
			}
		}
	case model.CallerTimer:
		callerType = "timer"
		if tm, state := cb.Caller.Timer.Get(); state == model.WeakPresent {
			tm.Lock()
			if period, ok := tm.Period.Get(); ok {
				callerParam = period.String()
			}
			owner, ownerState := tm.Node.Get()
			tm.Unlock()
			if ownerState == model.WeakPresent {
				if name, ok := owner.FullName(); ok {
					node = name
				}
			}
		}
	}
	return node, callerType, callerParam
}
