// Package analysis is the uniform observer interface and the Driver
// that runs the pipeline: decode -> reconstruct -> fan-out to every
// registered Analysis, in registration order, for each processed event.
package analysis

import (
	"errors"
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/cuemby/traceanalyzer/pkg/decode"
	"github.com/cuemby/traceanalyzer/pkg/processed"
	"github.com/cuemby/traceanalyzer/pkg/reconstruct"
	"github.com/cuemby/traceanalyzer/pkg/tracesource"
)

// Analysis is the uniform capability every statistical reducer
// implements. The Driver calls Initialize once before any events,
// ProcessEvent once per processed event in order, and Finalize once
// after the last event. There is no cancellation: this is an offline
// batch pipeline.
type Analysis interface {
	// Name identifies the analysis for logging, bundle keys, and output
	// filenames.
	Name() string
	Initialize() error
	ProcessEvent(e *processed.Envelope) error
	Finalize() error
}

// Counters are the Driver's five end-of-run counters,
// emitted once the stream is exhausted.
type Counters struct {
	Processed   int
	Failed      int
	Unsupported int
	NonCore     int
	NonCoreMsg  int

	// Reuse mirrors reconstruct.ReuseCounters: per-kind handle-reuse
	// branch counts, a run-level diagnostic.
	Reuse reconstruct.ReuseCounters
}

// driverMetrics are batch-local prometheus collectors: gathered once at
// Finalize via a local registry rather than scraped live, since an
// offline run has no server to expose.
type driverMetrics struct {
	registry    *prometheus.Registry
	eventsTotal *prometheus.CounterVec
}

func newDriverMetrics() *driverMetrics {
	reg := prometheus.NewRegistry()
	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "traceanalyzer_events_total",
		Help: "Count of trace events processed by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(eventsTotal)
	return &driverMetrics{registry: reg, eventsTotal: eventsTotal}
}

// Driver owns the reconstruction engine and a slice of registered
// analyses, and drives the single-threaded pipeline end to end.
type Driver struct {
	engine   *reconstruct.Engine
	analyses []Analysis
	logger   zerolog.Logger
	metrics  *driverMetrics
	Counters Counters
}

// New creates a Driver wrapping a fresh reconstruction engine.
func New(logger zerolog.Logger) *Driver {
	return &Driver{
		engine:  reconstruct.New(logger),
		logger:  logger,
		metrics: newDriverMetrics(),
	}
}

// Engine exposes the underlying reconstruction engine, e.g. for a final
// dependency-graph dump that needs the whole object store rather than the
// per-event processed stream.
func (d *Driver) Engine() *reconstruct.Engine { return d.engine }

// Register appends an analysis to the fan-out list; analyses observe
// events in registration order.
func (d *Driver) Register(a Analysis) {
	d.analyses = append(d.analyses, a)
}

// Run decodes and reconstructs every message in stream, fanning out each
// processed event to every registered analysis, then calls Initialize
// before the first event and Finalize after the last. A decode error or
// an engine error (reconerr.InvariantViolation, reconerr.MissingDependency)
// aborts the run; every non-fatal outcome is counted and the run
// continues.
func (d *Driver) Run(stream tracesource.EventStream) (Counters, error) {
	for _, a := range d.analyses {
		if err := a.Initialize(); err != nil {
			return d.Counters, fmt.Errorf("analysis %s: initialize: %w", a.Name(), err)
		}
	}

	for {
		raw, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return d.Counters, fmt.Errorf("tracesource: %w", err)
		}

		env, outcome, err := decode.Decode(raw.Discriminator, raw.Fields, raw.Timestamp, raw.Context)
		if err != nil {
			d.Counters.Failed++
			d.metrics.eventsTotal.WithLabelValues("failed").Inc()
			return d.Counters, fmt.Errorf("decode %s: %w", raw.Discriminator, err)
		}
		switch outcome {
		case decode.OtherProvider:
			d.Counters.NonCoreMsg++
			d.metrics.eventsTotal.WithLabelValues("non_core_message").Inc()
			continue
		case decode.Unsupported:
			d.Counters.Unsupported++
			d.metrics.eventsTotal.WithLabelValues("unsupported").Inc()
			continue
		}

		pe, reconOutcome, err := d.engine.Process(env)
		if err != nil {
			d.Counters.Failed++
			d.metrics.eventsTotal.WithLabelValues("failed").Inc()
			return d.Counters, fmt.Errorf("reconstruct %s at t=%d: %w", env.Payload.Name(), env.Timestamp, err)
		}
		if reconOutcome == reconstruct.NonCore {
			d.Counters.NonCore++
			d.metrics.eventsTotal.WithLabelValues("non_core").Inc()
			continue
		}

		d.Counters.Processed++
		d.metrics.eventsTotal.WithLabelValues("processed").Inc()
		for _, a := range d.analyses {
			if err := a.ProcessEvent(pe); err != nil {
				return d.Counters, fmt.Errorf("analysis %s: process event: %w", a.Name(), err)
			}
		}
	}

	d.Counters.Reuse = d.engine.Store().Reuse

	for _, a := range d.analyses {
		if err := a.Finalize(); err != nil {
			return d.Counters, fmt.Errorf("analysis %s: finalize: %w", a.Name(), err)
		}
	}
	return d.Counters, nil
}

// Gather returns the Driver's own prometheus metric families, for a
// caller that wants to fold them into a bundle or print them alongside
// Counters.
func (d *Driver) Gather() ([]*dto.MetricFamily, error) {
	return d.metrics.registry.Gather()
}
