package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKnownSetOnce(t *testing.T) {
	var k Known[string]
	require.False(t, k.IsKnown())

	require.NoError(t, k.Set("f", "a"))
	v, ok := k.Get()
	require.True(t, ok)
	require.Equal(t, "a", v)
}

func TestKnownRepeatedSetSameValueIsBenign(t *testing.T) {
	var k Known[int]
	require.NoError(t, k.Set("f", 7))
	require.NoError(t, k.Set("f", 7))
}

func TestKnownRepeatedSetDifferentValueErrors(t *testing.T) {
	var k Known[int]
	require.NoError(t, k.Set("f", 7))
	err := k.Set("f", 8)
	var repeated *RepeatedInitError
	require.ErrorAs(t, err, &repeated)
	require.Equal(t, "f", repeated.Field)

	// The receiver is unchanged.
	v, _ := k.Get()
	require.Equal(t, 7, v)
}

func TestKnownMustGetPanicsOnUnknown(t *testing.T) {
	var k Known[int]
	require.Panics(t, func() { k.MustGet() })
}

func TestWeakKnownStates(t *testing.T) {
	var w WeakKnown[*Publisher]
	_, state := w.Get()
	require.Equal(t, WeakUnknown, state)

	p := NewPublisher()
	require.NoError(t, w.Set("f", p))
	got, state := w.Get()
	require.Equal(t, WeakPresent, state)
	require.Same(t, p, got)

	p.MarkRemoved()
	_, state = w.Get()
	require.Equal(t, WeakDropped, state)
}

func TestCallbackInstanceEndBeforeStartIsInvariantViolation(t *testing.T) {
	cb := NewCallback(ScopedHandle{}, CallbackCaller{Kind: CallerTimer})
	inst := NewCallbackInstance(cb, 100, CallbackTrigger{Kind: TriggerTimer})

	var iv *InvariantViolation
	require.ErrorAs(t, inst.SetEnd(99), &iv)

	require.NoError(t, inst.SetEnd(150))
	d, ok := inst.Duration()
	require.True(t, ok)
	require.Equal(t, Duration(50), d)
}

func TestSpinWakeAfterEndIsInvariantViolation(t *testing.T) {
	node := NewNode(ScopedHandle{})
	spin := NewSpinInstance(node, 0, 5_000_000)
	require.NoError(t, spin.SetEnd(10))

	var iv *InvariantViolation
	require.ErrorAs(t, spin.SetWake(20), &iv)
	require.ErrorAs(t, spin.SetEnd(30), &iv)
}

func TestNodeFullName(t *testing.T) {
	n := NewNode(ScopedHandle{})
	_, ok := n.FullName()
	require.False(t, ok)

	require.NoError(t, n.Namespace.Set("ns", "/"))
	require.NoError(t, n.Name.Set("name", "talker"))
	name, ok := n.FullName()
	require.True(t, ok)
	require.Equal(t, "/talker", name)

	nested := NewNode(ScopedHandle{})
	require.NoError(t, nested.Namespace.Set("ns", "/robot"))
	require.NoError(t, nested.Name.Set("name", "camera"))
	name, _ = nested.FullName()
	require.Equal(t, "/robot/camera", name)
}

func TestSubscriberPendingSlot(t *testing.T) {
	s := NewSubscriber()
	require.Nil(t, s.TakePending())

	m1 := NewSubscriptionMessage(0xA)
	require.Nil(t, s.SetPending(m1))

	// Overflow: installing a second message reports the dropped first.
	m2 := NewSubscriptionMessage(0xB)
	require.Same(t, m1, s.SetPending(m2))

	require.Same(t, m2, s.TakePending())
	require.Nil(t, s.TakePending())
}
