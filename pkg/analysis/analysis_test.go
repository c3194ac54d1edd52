package analysis_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/traceanalyzer/pkg/analysis"
	"github.com/cuemby/traceanalyzer/pkg/decode"
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
	"github.com/cuemby/traceanalyzer/pkg/tracesource"
	"github.com/cuemby/traceanalyzer/pkg/tracesource/tracesourcetest"
)

type recordingAnalysis struct {
	name        string
	initialized bool
	finalized   bool
	seen        []processed.Event
}

func (r *recordingAnalysis) Name() string { return r.name }
func (r *recordingAnalysis) Initialize() error {
	r.initialized = true
	return nil
}
func (r *recordingAnalysis) ProcessEvent(e *processed.Envelope) error {
	r.seen = append(r.seen, e.Payload)
	return nil
}
func (r *recordingAnalysis) Finalize() error {
	r.finalized = true
	return nil
}

func baseCtx(host string, pid uint32) rawevents.Context {
	return rawevents.Context{Pid: pid, Tid: pid, ProcessName: "proc", HostName: host}
}

func rawMsg(ts model.Time, discriminator string, fields decode.RawFields, c rawevents.Context) *tracesource.RawMessage {
	return &tracesource.RawMessage{Discriminator: discriminator, Fields: fields, Timestamp: ts, Context: c}
}

func TestDriverCountsAndFansOutInOrder(t *testing.T) {
	c := baseCtx("hostA", 100)
	stream := tracesourcetest.NewFakeStream(
		rawMsg(0, "ros2:rcl_node_init", decode.RawFields{
			"node_handle": uint64(1), "rmw_handle": uint64(10),
			"node_name": "n1", "namespace": "/",
		}, c),
		rawMsg(1, "ros2:rmw_publisher_init", decode.RawFields{
			"rmw_publisher_handle": uint64(20), "gid": [24]byte{1},
		}, c),
		// rcl_init is recognized but outside the protocol table: non-core.
		rawMsg(2, "ros2:rcl_init", decode.RawFields{
			"context_handle": uint64(99), "version": "1.0",
		}, c),
		// unknown event name under a recognized provider: unsupported.
		rawMsg(3, "ros2:no_such_event", decode.RawFields{}, c),
		// unrecognized provider: non-core message.
		rawMsg(4, "other:thing", decode.RawFields{}, c),
	)

	first := &recordingAnalysis{name: "first"}
	second := &recordingAnalysis{name: "second"}
	order := []string{}

	d := analysis.New(zerolog.Nop())
	d.Register(wrapOrder(first, &order))
	d.Register(wrapOrder(second, &order))

	counters, err := d.Run(stream)
	require.NoError(t, err)
	require.Equal(t, 2, counters.Processed) // node init + publisher init
	require.Equal(t, 1, counters.NonCore)   // rcl_init
	require.Equal(t, 1, counters.Unsupported)
	require.Equal(t, 1, counters.NonCoreMsg)
	require.Equal(t, 0, counters.Failed)

	require.True(t, first.initialized)
	require.True(t, first.finalized)
	require.Len(t, first.seen, 2)
	require.Len(t, second.seen, 2)

	// first analysis observes each event before second does.
	require.Equal(t, []string{"first", "second", "first", "second"}, order)
}

// wrapOrder decorates an Analysis so ProcessEvent calls are recorded in a
// shared slice, proving fan-out happens in registration order per event.
func wrapOrder(a *recordingAnalysis, order *[]string) analysis.Analysis {
	return &orderTracking{recordingAnalysis: a, order: order}
}

type orderTracking struct {
	*recordingAnalysis
	order *[]string
}

func (o *orderTracking) ProcessEvent(e *processed.Envelope) error {
	*o.order = append(*o.order, o.name)
	return o.recordingAnalysis.ProcessEvent(e)
}

func TestDriverAbortsOnDecodeError(t *testing.T) {
	c := baseCtx("hostA", 1)
	stream := tracesourcetest.NewFakeStream(
		rawMsg(0, "ros2:rcl_node_init", decode.RawFields{ /* missing required fields */ }, c),
	)
	d := analysis.New(zerolog.Nop())
	_, err := d.Run(stream)
	require.Error(t, err)
}

func TestDriverAbortsOnMissingDependency(t *testing.T) {
	c := baseCtx("hostA", 1)
	stream := tracesourcetest.NewFakeStream(
		rawMsg(0, "ros2:rclcpp_subscription_callback_added", decode.RawFields{
			"subscription": uint64(1), "callback": uint64(7),
		}, c),
	)
	d := analysis.New(zerolog.Nop())
	_, err := d.Run(stream)
	require.Error(t, err) // subscription not yet observed at rclcpp layer
}
