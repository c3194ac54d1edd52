package analyses_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/traceanalyzer/pkg/analysis"
	"github.com/cuemby/traceanalyzer/pkg/analysis/analyses"
	"github.com/cuemby/traceanalyzer/pkg/config"
	"github.com/cuemby/traceanalyzer/pkg/decode"
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
	"github.com/cuemby/traceanalyzer/pkg/tracesource"
	"github.com/cuemby/traceanalyzer/pkg/tracesource/tracesourcetest"
)

func ctxFor(host string, pid, tid uint32) rawevents.Context {
	return rawevents.Context{Pid: pid, Tid: tid, ProcessName: "proc", HostName: host}
}

func msg(ts model.Time, name string, fields decode.RawFields, c rawevents.Context) *tracesource.RawMessage {
	return &tracesource.RawMessage{Discriminator: name, Fields: fields, Timestamp: ts, Context: c}
}

// pubSubScenario is a minimal cross-process publish/subscribe sequence;
// withPublish=false drops the mw-publish so correlation can only be
// partial.
func pubSubScenario(withPublish bool) []*tracesource.RawMessage {
	p := ctxFor("H", 1, 1)
	q := ctxFor("H", 2, 2)
	events := []*tracesource.RawMessage{
		msg(0, "ros2:rcl_node_init", decode.RawFields{"node_handle": uint64(1), "rmw_handle": uint64(10), "namespace": "/", "node_name": "n1"}, p),
		msg(1, "ros2:rmw_publisher_init", decode.RawFields{"rmw_publisher_handle": uint64(20), "gid": [24]byte{1}}, p),
		msg(2, "ros2:rcl_publisher_init", decode.RawFields{"publisher_handle": uint64(21), "node_handle": uint64(1), "rmw_publisher_handle": uint64(20), "topic_name": "/t", "queue_depth": uint64(10)}, p),
		msg(3, "ros2:rmw_subscription_init", decode.RawFields{"rmw_subscription_handle": uint64(30), "gid": [24]byte{2}}, q),
		msg(4, "ros2:rcl_subscription_init", decode.RawFields{"subscription_handle": uint64(31), "node_handle": uint64(2), "rmw_subscription_handle": uint64(30), "topic_name": "/t", "queue_depth": uint64(10)}, q),
		msg(5, "ros2:rcl_node_init", decode.RawFields{"node_handle": uint64(2), "rmw_handle": uint64(11), "namespace": "/", "node_name": "n2"}, q),
	}
	if withPublish {
		events = append(events,
			msg(100, "ros2:rmw_publish", decode.RawFields{"message": uint64(0xA), "rmw_publisher_handle": uint64(20), "timestamp": int64(9000)}, p),
		)
	}
	return append(events,
		msg(200, "ros2:rmw_take", decode.RawFields{"rmw_subscription_handle": uint64(30), "message": uint64(0xB), "source_timestamp": int64(9000), "taken": uint64(1)}, q),
		msg(201, "ros2:rcl_take", decode.RawFields{"message": uint64(0xB)}, q),
		msg(202, "ros2:rclcpp_take", decode.RawFields{"message": uint64(0xB)}, q),
	)
}

func runWith(t *testing.T, a analysis.Analysis, events []*tracesource.RawMessage) {
	t.Helper()
	d := analysis.New(zerolog.Nop())
	d.Register(a)
	_, err := d.Run(tracesourcetest.NewFakeStream(events...))
	require.NoError(t, err)
}

func TestMessageLatencyFullyMatched(t *testing.T) {
	a := analyses.NewMessageLatency(nil)
	runWith(t, a, pubSubScenario(true))

	records := a.Result().([]analyses.LatencyRecord)
	require.Len(t, records, 1)
	require.Equal(t, "/t", records[0].Topic)
	require.Equal(t, []int64{100}, records[0].Latencies)
}

func TestMessageLatencyPartialMatchStillEmits(t *testing.T) {
	a := analyses.NewMessageLatency(nil)
	runWith(t, a, pubSubScenario(false))

	records := a.Result().([]analyses.LatencyRecord)
	require.Len(t, records, 1)
	require.Equal(t, "/t", records[0].Topic)
	require.Len(t, records[0].Latencies, 1)
}

// timerCallbackScenario runs one timer callback of 30ns on tid 7 and a
// publish made from inside it.
func timerCallbackScenario() []*tracesource.RawMessage {
	c := ctxFor("H", 1, 7)
	return []*tracesource.RawMessage{
		msg(0, "ros2:rcl_node_init", decode.RawFields{"node_handle": uint64(1), "rmw_handle": uint64(10), "namespace": "/", "node_name": "n1"}, c),
		msg(1, "ros2:rcl_timer_init", decode.RawFields{"timer_handle": uint64(100), "period": int64(1_000_000)}, c),
		msg(2, "ros2:rclcpp_timer_callback_added", decode.RawFields{"timer_handle": uint64(100), "callback": uint64(7)}, c),
		msg(3, "ros2:rclcpp_timer_link_node", decode.RawFields{"timer_handle": uint64(100), "node_handle": uint64(1)}, c),
		msg(4, "ros2:rclcpp_callback_register", decode.RawFields{"callback": uint64(7), "symbol": "tick()"}, c),
		msg(5, "ros2:rmw_publisher_init", decode.RawFields{"rmw_publisher_handle": uint64(20), "gid": [24]byte{1}}, c),
		msg(6, "ros2:rcl_publisher_init", decode.RawFields{"publisher_handle": uint64(21), "node_handle": uint64(1), "rmw_publisher_handle": uint64(20), "topic_name": "/out", "queue_depth": uint64(10)}, c),
		msg(10, "ros2:callback_start", decode.RawFields{"callback": uint64(7), "is_intra_process": uint64(0)}, c),
		msg(20, "ros2:rmw_publish", decode.RawFields{"message": uint64(0xA), "rmw_publisher_handle": uint64(20), "timestamp": int64(9000)}, c),
		msg(40, "ros2:callback_end", decode.RawFields{"callback": uint64(7)}, c),
		msg(50, "ros2:callback_start", decode.RawFields{"callback": uint64(7), "is_intra_process": uint64(0)}, c),
		msg(55, "ros2:callback_end", decode.RawFields{"callback": uint64(7)}, c),
	}
}

func TestCallbackDurationRecordsTimerCallback(t *testing.T) {
	a := analyses.NewCallbackDuration(nil)
	runWith(t, a, timerCallbackScenario())

	records := a.Result().([]analyses.CallbackDurationRecord)
	require.Len(t, records, 1)
	require.Equal(t, "/n1", records[0].Node)
	require.Equal(t, "timer", records[0].CallerType)
	require.Equal(t, []int64{30, 5}, records[0].Durations)
	require.Equal(t, []int64{40}, records[0].InterArrivalTime)
}

func TestCallbackPublicationsAttributesByThread(t *testing.T) {
	a := analyses.NewCallbackPublications(nil)
	runWith(t, a, timerCallbackScenario())

	records := a.Result().([]analyses.CallbackPublicationRecord)
	require.Len(t, records, 1)
	require.Equal(t, "/out", records[0].Topic)
	require.Equal(t, 1, records[0].Count)
	require.Contains(t, records[0].Callback, "tick()")
}

func TestSpinDurationPerNode(t *testing.T) {
	c := ctxFor("H", 1, 1)
	events := []*tracesource.RawMessage{
		msg(0, "ros2:rcl_node_init", decode.RawFields{"node_handle": uint64(1), "rmw_handle": uint64(10), "namespace": "/", "node_name": "n1"}, c),
		msg(0, "r2r:spin_start", decode.RawFields{"node_handle": uint64(1), "timeout_s": uint64(0), "timeout_ns": uint64(5_000_000)}, c),
		msg(2_000_000, "r2r:spin_wake", decode.RawFields{"node_handle": uint64(1)}, c),
		msg(3_000_000, "r2r:spin_end", decode.RawFields{"node_handle": uint64(1)}, c),
	}

	a := analyses.NewSpinDuration(nil)
	runWith(t, a, events)

	records := a.Result().([]analyses.SpinDurationRecord)
	require.Len(t, records, 1)
	require.Equal(t, "/n1", records[0].Node)
	require.Equal(t, []int64{1_000_000}, records[0].SpinDuration)
}

func TestUtilizationPerThread(t *testing.T) {
	a := analyses.NewRealUtilization(nil)
	runWith(t, a, timerCallbackScenario())

	records := a.Result().([]analyses.UtilizationRecord)
	require.Len(t, records, 1)
	require.Equal(t, "H", records[0].Host)
	require.Equal(t, uint32(7), records[0].Tid)
	// 35ns busy over the 55ns span between first and last event.
	require.Equal(t, int64(35), records[0].BusyNs)
	require.Equal(t, int64(55), records[0].SpanNs)
	require.InDelta(t, 35.0/55.0, records[0].Utilization, 1e-9)
}

func TestTakeToCallbackLatency(t *testing.T) {
	q := ctxFor("H", 2, 2)
	events := []*tracesource.RawMessage{
		msg(0, "ros2:rmw_subscription_init", decode.RawFields{"rmw_subscription_handle": uint64(30), "gid": [24]byte{2}}, q),
		msg(1, "ros2:rcl_subscription_init", decode.RawFields{"subscription_handle": uint64(31), "node_handle": uint64(2), "rmw_subscription_handle": uint64(30), "topic_name": "/t", "queue_depth": uint64(10)}, q),
		msg(2, "ros2:rclcpp_subscription_init", decode.RawFields{"subscription_handle": uint64(31), "subscription": uint64(32)}, q),
		msg(3, "ros2:rclcpp_subscription_callback_added", decode.RawFields{"subscription": uint64(32), "callback": uint64(40)}, q),
		msg(10, "ros2:rmw_take", decode.RawFields{"rmw_subscription_handle": uint64(30), "message": uint64(0xB), "source_timestamp": int64(5), "taken": uint64(1)}, q),
		msg(25, "ros2:callback_start", decode.RawFields{"callback": uint64(40), "is_intra_process": uint64(0)}, q),
		msg(30, "ros2:callback_end", decode.RawFields{"callback": uint64(40)}, q),
	}

	a := analyses.NewTakeToCallbackLatency(nil)
	runWith(t, a, events)

	records := a.Result().([]analyses.TakeToCallbackRecord)
	require.Len(t, records, 1)
	require.Equal(t, []int64{15}, records[0].Latencies)
}

func TestRegistryDefaults(t *testing.T) {
	selected := analyses.Selected(config.Default())
	require.Len(t, selected, 9)
	for _, s := range selected {
		require.True(t, s.Default, s.Name)
	}
}

func TestRegistryEnableAndExclude(t *testing.T) {
	cfg := config.Default()
	cfg.EnabledAnalyses = []string{"end-to-end"}
	cfg.Exclude = []string{"utilization"}

	selected := analyses.Selected(cfg)
	names := map[string]bool{}
	for _, s := range selected {
		names[s.Name] = true
	}
	require.True(t, names["end_to_end"])
	require.False(t, names["utilization"])
	require.True(t, names["real_utilization"])
	require.Len(t, selected, 9) // 9 defaults - 1 excluded + 1 enabled
}

// Initialize resets accumulated state: replaying the same stream through
// the same analysis instance yields the same result, not a doubled one.
func TestInitializeIsIdempotent(t *testing.T) {
	a := analyses.NewMessageLatency(nil)
	runWith(t, a, pubSubScenario(true))
	first := a.Result()

	runWith(t, a, pubSubScenario(true))
	require.Equal(t, first, a.Result())
}

// Running the same stream twice through fresh pipelines yields
// byte-identical artifacts.
func TestReentrancyIdenticalOutputs(t *testing.T) {
	render := func() string {
		var buf bytes.Buffer
		a := analyses.NewMessageLatency(&buf)
		d := analysis.New(zerolog.Nop())
		d.Register(a)
		b := analyses.NewCallbackDependency(&buf)
		d.Register(b)
		_, runErr := d.Run(tracesourcetest.NewFakeStream(pubSubScenario(true)...))
		require.NoError(t, runErr)
		return buf.String()
	}
	require.Equal(t, render(), render())
}
