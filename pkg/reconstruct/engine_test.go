package reconstruct_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
	"github.com/cuemby/traceanalyzer/pkg/reconstruct"
	"github.com/cuemby/traceanalyzer/pkg/reconstruct/reconerr"
)

func ctx(host string, pid, tid uint32) rawevents.Context {
	return rawevents.Context{Pid: pid, Tid: tid, ProcessName: "proc", HostName: host}
}

func env(t model.Time, c rawevents.Context, payload rawevents.Event) *rawevents.Envelope {
	return &rawevents.Envelope{Timestamp: t, Context: c, Payload: payload}
}

func process(t *testing.T, e *reconstruct.Engine, envelope *rawevents.Envelope) processed.Event {
	t.Helper()
	pe, outcome, err := e.Process(envelope)
	require.NoError(t, err)
	require.Equal(t, reconstruct.Core, outcome)
	require.NotNil(t, pe)
	return pe.Payload
}

// feedS1 replays a minimal single publish/subscribe pair and returns
// the final user-lib take.
func feedS1(t *testing.T, e *reconstruct.Engine) processed.RclcppTake {
	t.Helper()
	p := ctx("H", 1, 1)
	q := ctx("H", 2, 2)

	process(t, e, env(0, p, rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, Namespace: "/", NodeName: "n1"}))
	process(t, e, env(1, p, rawevents.RmwPublisherInit{RmwPublisherHandle: 20, GID: [24]byte{1}}))
	process(t, e, env(2, p, rawevents.RclPublisherInit{PublisherHandle: 21, NodeHandle: 1, RmwPublisherHandle: 20, TopicName: "/t", QueueDepth: 10}))
	process(t, e, env(3, q, rawevents.RmwSubscriptionInit{RmwSubscriptionHandle: 30, GID: [24]byte{2}}))
	process(t, e, env(4, q, rawevents.RclSubscriptionInit{SubscriptionHandle: 31, NodeHandle: 2, RmwSubscriptionHandle: 30, TopicName: "/t", QueueDepth: 10}))
	// node init arrives after its subscription referenced it: tolerated.
	process(t, e, env(5, q, rawevents.RclNodeInit{NodeHandle: 2, RmwHandle: 11, Namespace: "/", NodeName: "n2"}))

	pubHandle := uint64(20)
	senderTs := int64(9000)
	process(t, e, env(100, p, rawevents.RmwPublish{RmwPublisherHandle: &pubHandle, Message: 0xA, Timestamp: &senderTs}))

	take := process(t, e, env(200, q, rawevents.RmwTake{RmwSubscriptionHandle: 30, Message: 0xB, SourceTimestamp: 9000, Taken: true}))
	require.IsType(t, processed.RmwTake{}, take)
	process(t, e, env(201, q, rawevents.RclTake{Message: 0xB}))
	final := process(t, e, env(202, q, rawevents.RclcppTake{Message: 0xB}))
	out, ok := final.(processed.RclcppTake)
	require.True(t, ok)
	return out
}

func TestSinglePubSubPairFullyMatches(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	take := feedS1(t, e)

	require.False(t, take.NotPreviouslySeen)
	msg := take.Message
	msg.Lock()
	link := msg.Link
	rmwTime, _ := msg.RmwTime.Get()
	rclcppTime, _ := msg.RclcppTime.Get()
	msg.Unlock()

	require.Equal(t, model.MatchFull, link.Kind)
	require.NotNil(t, link.Publication)
	require.Equal(t, model.Time(9000), link.SenderTimestamp)
	require.Equal(t, model.Time(200), rmwTime)
	require.Equal(t, model.Time(202), rclcppTime)

	link.Publication.Lock()
	senderTs, ok := link.Publication.SenderTimestamp.Get()
	pubTime, _ := link.Publication.RmwTime.Get()
	link.Publication.Unlock()
	require.True(t, ok)
	require.Equal(t, model.Time(9000), senderTs)
	require.Equal(t, model.Time(100), pubTime)

	require.True(t, msg.ConsistentWithPublication())
}

func TestMissingPublishPartiallyMatches(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	q := ctx("H", 2, 2)

	process(t, e, env(3, q, rawevents.RmwSubscriptionInit{RmwSubscriptionHandle: 30, GID: [24]byte{2}}))
	process(t, e, env(4, q, rawevents.RclSubscriptionInit{SubscriptionHandle: 31, NodeHandle: 2, RmwSubscriptionHandle: 30, TopicName: "/t", QueueDepth: 10}))

	take := process(t, e, env(200, q, rawevents.RmwTake{RmwSubscriptionHandle: 30, Message: 0xB, SourceTimestamp: 9000, Taken: true}))
	msg := take.(processed.RmwTake).Message
	msg.Lock()
	link := msg.Link
	msg.Unlock()

	require.Equal(t, model.MatchPartial, link.Kind)
	require.Nil(t, link.Publication)
	require.Equal(t, model.Time(9000), link.SenderTimestamp)
}

func TestSourceTimestampZeroIsSentinel(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	q := ctx("H", 2, 2)

	process(t, e, env(0, q, rawevents.RmwSubscriptionInit{RmwSubscriptionHandle: 30, GID: [24]byte{2}}))
	take := process(t, e, env(1, q, rawevents.RmwTake{RmwSubscriptionHandle: 30, Message: 0xB, SourceTimestamp: 0, Taken: true}))
	msg := take.(processed.RmwTake).Message
	msg.Lock()
	link := msg.Link
	msg.Unlock()

	require.Equal(t, model.MatchPartial, link.Kind)
	require.Equal(t, model.Time(0), link.SenderTimestamp)
}

func TestHandleReuseMarksOldPublisherRemoved(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	take := feedS1(t, e)

	// Keep a reference to the original publisher via the matched message.
	take.Message.Lock()
	pub := take.Message.Link.Publication
	take.Message.Unlock()
	pub.Lock()
	oldPub, state := pub.Publisher.Get()
	pub.Unlock()
	require.Equal(t, model.WeakPresent, state)

	// A second rcl_publisher_init on the same rcl handle with a new rmw
	// handle and topic: the old object is superseded.
	p := ctx("H", 1, 1)
	process(t, e, env(300, p, rawevents.RmwPublisherInit{RmwPublisherHandle: 22, GID: [24]byte{3}}))
	newInit := process(t, e, env(301, p, rawevents.RclPublisherInit{PublisherHandle: 21, NodeHandle: 1, RmwPublisherHandle: 22, TopicName: "/t2", QueueDepth: 10}))
	newPub := newInit.(processed.RclPublisherInit).Publisher

	require.NotSame(t, oldPub, newPub)
	require.True(t, oldPub.Removed())
	require.False(t, newPub.Removed())

	newPub.Lock()
	topic, ok := newPub.Topic.Get()
	newPub.Unlock()
	require.True(t, ok)
	require.Equal(t, "/t2", topic)

	// The historical publication still refers to the removed publisher,
	// whose weak reference now reports Dropped.
	pub.Lock()
	_, state = pub.Publisher.Get()
	pub.Unlock()
	require.Equal(t, model.WeakDropped, state)

	// A subsequent publish on rcl=21 resolves to the new publisher.
	pubEvent := process(t, e, env(302, p, rawevents.RclPublish{PublisherHandle: 21, Message: 0xC}))
	msg := pubEvent.(processed.RclPublish).Message
	msg.Lock()
	got, state := msg.Publisher.Get()
	msg.Unlock()
	require.Equal(t, model.WeakPresent, state)
	require.Same(t, newPub, got)
}

func TestSecondCallbackStartOnSameThreadIsFatal(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	c := ctx("H", 1, 7)

	process(t, e, env(0, c, rawevents.RclTimerInit{TimerHandle: 100, Period: 1000}))
	process(t, e, env(1, c, rawevents.RclcppTimerCallbackAdded{TimerHandle: 100, Callback: 7}))
	process(t, e, env(2, c, rawevents.RclTimerInit{TimerHandle: 101, Period: 1000}))
	process(t, e, env(3, c, rawevents.RclcppTimerCallbackAdded{TimerHandle: 101, Callback: 8}))

	process(t, e, env(10, c, rawevents.CallbackStart{Callback: 7}))
	_, _, err := e.Process(env(20, c, rawevents.CallbackStart{Callback: 8}))
	require.Error(t, err)
	var iv *reconerr.InvariantViolation
	require.ErrorAs(t, err, &iv)
	require.Contains(t, err.Error(), "7")
	require.Contains(t, err.Error(), "8")
}

func TestCallbackOnDifferentThreadsMayOverlap(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	t1 := ctx("H", 1, 7)
	t2 := ctx("H", 1, 8)

	process(t, e, env(0, t1, rawevents.RclTimerInit{TimerHandle: 100, Period: 1000}))
	process(t, e, env(1, t1, rawevents.RclcppTimerCallbackAdded{TimerHandle: 100, Callback: 7}))
	process(t, e, env(2, t2, rawevents.RclTimerInit{TimerHandle: 101, Period: 1000}))
	process(t, e, env(3, t2, rawevents.RclcppTimerCallbackAdded{TimerHandle: 101, Callback: 8}))

	process(t, e, env(10, t1, rawevents.CallbackStart{Callback: 7}))
	process(t, e, env(20, t2, rawevents.CallbackStart{Callback: 8}))
	process(t, e, env(30, t1, rawevents.CallbackEnd{Callback: 7}))
	process(t, e, env(40, t2, rawevents.CallbackEnd{Callback: 8}))
}

func TestSpinStateMachine(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	c := ctx("H", 1, 1)

	process(t, e, env(0, c, rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, Namespace: "/", NodeName: "n1"}))
	started := process(t, e, env(0, c, rawevents.SpinStart{NodeHandle: 1, TimeoutS: 0, TimeoutNs: 5_000_000}))
	spin := started.(processed.SpinStart).Spin
	process(t, e, env(2_000_000, c, rawevents.SpinWake{NodeHandle: 1}))
	process(t, e, env(3_000_000, c, rawevents.SpinEnd{NodeHandle: 1}))

	require.Equal(t, model.Time(0), spin.Start)
	require.Equal(t, model.Duration(5_000_000), spin.Timeout)
	require.False(t, spin.TimedOut)
	d, ok := spin.Duration()
	require.True(t, ok)
	require.Equal(t, model.Duration(1_000_000), d)
}

func TestSpinTimeoutClosesWithoutWake(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	c := ctx("H", 1, 1)

	process(t, e, env(0, c, rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, Namespace: "/", NodeName: "n1"}))
	started := process(t, e, env(0, c, rawevents.SpinStart{NodeHandle: 1, TimeoutS: 0, TimeoutNs: 5_000_000}))
	spin := started.(processed.SpinStart).Spin
	process(t, e, env(5_000_000, c, rawevents.SpinTimeout{NodeHandle: 1}))

	require.True(t, spin.TimedOut)
	_, ok := spin.Duration()
	require.False(t, ok) // never woke
}

func TestMidTraceStartFabricatesMessage(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	c := ctx("H", 2, 2)

	pe, outcome, err := e.Process(env(0, c, rawevents.RclcppTake{Message: 0xB}))
	require.NoError(t, err)
	require.Equal(t, reconstruct.Core, outcome)

	take := pe.Payload.(processed.RclcppTake)
	require.True(t, take.NotPreviouslySeen)
	take.Message.Lock()
	rclcppTime, ok := take.Message.RclcppTime.Get()
	take.Message.Unlock()
	require.True(t, ok)
	require.Equal(t, model.Time(0), rclcppTime)
}

func TestHandlesAreScopedByHostAndPid(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())

	a := process(t, e, env(0, ctx("H1", 1, 1), rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, Namespace: "/", NodeName: "a"}))
	b := process(t, e, env(1, ctx("H2", 1, 1), rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, Namespace: "/", NodeName: "b"}))
	c := process(t, e, env(2, ctx("H1", 2, 2), rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, Namespace: "/", NodeName: "c"}))

	nodeA := a.(processed.RclNodeInit).Node
	nodeB := b.(processed.RclNodeInit).Node
	nodeC := c.(processed.RclNodeInit).Node
	require.NotSame(t, nodeA, nodeB)
	require.NotSame(t, nodeA, nodeC)
	require.NotSame(t, nodeB, nodeC)

	nameA, _ := nodeA.FullName()
	require.Equal(t, "/a", nameA)
}

func TestSubscriberSlotDiscipline(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	take := feedS1(t, e)

	// After the user-lib take, the subscriber's pending slot is empty.
	take.Message.Lock()
	sub, state := take.Message.Subscriber.Get()
	take.Message.Unlock()
	require.Equal(t, model.WeakPresent, state)
	require.Nil(t, sub.TakePending())
}

func TestDuplicateNodeInitSameValuesIsBenign(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	c := ctx("H", 1, 1)

	first := process(t, e, env(0, c, rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, Namespace: "/", NodeName: "n1"}))
	second := process(t, e, env(1, c, rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, Namespace: "/", NodeName: "n1"}))
	require.Same(t, first.(processed.RclNodeInit).Node, second.(processed.RclNodeInit).Node)
}

func TestOrphanPublicationIsKeptButUncorrelatable(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	p := ctx("H", 1, 1)
	q := ctx("H", 2, 2)

	process(t, e, env(0, p, rawevents.RmwPublisherInit{RmwPublisherHandle: 20, GID: [24]byte{1}}))
	pubHandle := uint64(20)
	pe := process(t, e, env(100, p, rawevents.RmwPublish{RmwPublisherHandle: &pubHandle, Message: 0xA}))
	msg := pe.(processed.RmwPublish).Message
	require.True(t, msg.Orphan)

	process(t, e, env(150, q, rawevents.RmwSubscriptionInit{RmwSubscriptionHandle: 30, GID: [24]byte{2}}))
	take := process(t, e, env(200, q, rawevents.RmwTake{RmwSubscriptionHandle: 30, Message: 0xB, SourceTimestamp: 9000, Taken: true}))
	link := take.(processed.RmwTake).Message
	link.Lock()
	kind := link.Link.Kind
	link.Unlock()
	require.Equal(t, model.MatchPartial, kind)
}

func TestCallbackTriggerSnapshotConsumesPendingMessage(t *testing.T) {
	e := reconstruct.New(zerolog.Nop())
	q := ctx("H", 2, 2)

	process(t, e, env(0, q, rawevents.RmwSubscriptionInit{RmwSubscriptionHandle: 30, GID: [24]byte{2}}))
	process(t, e, env(1, q, rawevents.RclSubscriptionInit{SubscriptionHandle: 31, NodeHandle: 2, RmwSubscriptionHandle: 30, TopicName: "/t", QueueDepth: 10}))
	process(t, e, env(2, q, rawevents.RclcppSubscriptionInit{SubscriptionHandle: 31, Subscription: 32}))
	process(t, e, env(3, q, rawevents.RclcppSubscriptionCallbackAdded{Subscription: 32, Callback: 40}))

	take := process(t, e, env(10, q, rawevents.RmwTake{RmwSubscriptionHandle: 30, Message: 0xB, SourceTimestamp: 5, Taken: true}))
	msg := take.(processed.RmwTake).Message

	started := process(t, e, env(20, q, rawevents.CallbackStart{Callback: 40}))
	inst := started.(processed.CallbackStart).Instance
	require.Equal(t, model.TriggerSubscription, inst.Trigger.Kind)
	require.Same(t, msg, inst.Trigger.Subscription)

	ended := process(t, e, env(30, q, rawevents.CallbackEnd{Callback: 40}))
	d, ok := ended.(processed.CallbackEnd).Instance.Duration()
	require.True(t, ok)
	require.Equal(t, model.Duration(10), d)
}
