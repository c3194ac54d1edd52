package analyses

import (
	"fmt"
	"io"
	"sort"

	"github.com/cuemby/traceanalyzer/pkg/config"
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
	"github.com/cuemby/traceanalyzer/pkg/quantile"
)

// utilizationCollector accumulates, per traced thread, the callback busy
// durations and the observed event-time span. Both utilization analyses
// share it; they differ only in how Finalize reduces the durations.
type utilizationCollector struct {
	threads map[threadID]*threadUtilization
}

type threadUtilization struct {
	durations []int64
	first     model.Time
	last      model.Time
	seen      bool
}

func newUtilizationCollector() utilizationCollector {
	return utilizationCollector{threads: map[threadID]*threadUtilization{}}
}

func (c *utilizationCollector) observe(e *processed.Envelope) {
	tid := threadOf(e)
	tu, ok := c.threads[tid]
	if !ok {
		tu = &threadUtilization{}
		c.threads[tid] = tu
	}
	if !tu.seen || e.Timestamp < tu.first {
		tu.first = e.Timestamp
	}
	if !tu.seen || e.Timestamp > tu.last {
		tu.last = e.Timestamp
	}
	tu.seen = true

	if end, isEnd := e.Payload.(processed.CallbackEnd); isEnd {
		if d, known := end.Instance.Duration(); known {
			tu.durations = append(tu.durations, int64(d))
		}
	}
}

// UtilizationRecord is one (host, tid) row.
type UtilizationRecord struct {
	Host        string  `msgpack:"host"`
	Tid         uint32  `msgpack:"tid"`
	Utilization float64 `msgpack:"utilization"`
	BusyNs      int64   `msgpack:"busy_ns"`
	SpanNs      int64   `msgpack:"span_ns"`
}

func (c *utilizationCollector) reduce(trim func([]int64) []int64) []UtilizationRecord {
	keys := make([]threadID, 0, len(c.threads))
	for k := range c.threads {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].host != keys[j].host {
			return keys[i].host < keys[j].host
		}
		if keys[i].pid != keys[j].pid {
			return keys[i].pid < keys[j].pid
		}
		return keys[i].tid < keys[j].tid
	})

	out := make([]UtilizationRecord, 0, len(keys))
	for _, k := range keys {
		tu := c.threads[k]
		span := int64(tu.last.Sub(tu.first))
		var busy int64
		for _, d := range trim(tu.durations) {
			busy += d
		}
		util := 0.0
		if span > 0 {
			util = float64(busy) / float64(span)
		}
		out = append(out, UtilizationRecord{Host: k.host, Tid: k.tid, Utilization: util, BusyNs: busy, SpanNs: span})
	}
	return out
}

func writeUtilization(w io.Writer, records []UtilizationRecord) error {
	if w == nil {
		return nil
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "HOST\tTID\tUTILIZATION\tBUSY\tSPAN")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%dns\t%dns\n", r.Host, r.Tid, r.Utilization, r.BusyNs, r.SpanNs)
	}
	return tw.Flush()
}

// Utilization is the default quantile-based utilization analysis:
// per-thread busy ratio with outlier callback durations above the
// highest configured quantile discarded before summing, so one runaway
// callback does not dominate the ratio.
type Utilization struct {
	out io.Writer
	cfg config.Config

	collector utilizationCollector
}

func NewUtilization(cfg config.Config, out io.Writer) *Utilization {
	return &Utilization{out: out, cfg: cfg, collector: newUtilizationCollector()}
}

func (*Utilization) Name() string    { return "utilization" }
func (*Utilization) FileExt() string { return "txt" }

func (a *Utilization) Initialize() error {
	a.collector = newUtilizationCollector()
	return nil
}

func (a *Utilization) ProcessEvent(e *processed.Envelope) error {
	a.collector.observe(e)
	return nil
}

func (a *Utilization) Result() any {
	qs := quantilesOf(a.cfg)
	cut := qs[len(qs)-1]
	for _, q := range qs {
		if q > cut {
			cut = q
		}
	}
	return a.collector.reduce(func(durations []int64) []int64 {
		return quantile.TrimAbove(durations, cut)
	})
}

func (a *Utilization) Finalize() error {
	return writeUtilization(a.out, a.Result().([]UtilizationRecord))
}

// RealUtilization is the default real-utilization analysis: the same
// per-thread busy ratio with no trimming at all.
type RealUtilization struct {
	out io.Writer

	collector utilizationCollector
}

func NewRealUtilization(out io.Writer) *RealUtilization {
	return &RealUtilization{out: out, collector: newUtilizationCollector()}
}

func (*RealUtilization) Name() string    { return "real_utilization" }
func (*RealUtilization) FileExt() string { return "txt" }

func (a *RealUtilization) Initialize() error {
	a.collector = newUtilizationCollector()
	return nil
}

func (a *RealUtilization) ProcessEvent(e *processed.Envelope) error {
	a.collector.observe(e)
	return nil
}

func (a *RealUtilization) Result() any {
	return a.collector.reduce(func(durations []int64) []int64 { return durations })
}

func (a *RealUtilization) Finalize() error {
	return writeUtilization(a.out, a.Result().([]UtilizationRecord))
}
