package decode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/traceanalyzer/pkg/decode"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
)

func TestDecodeNodeInit(t *testing.T) {
	env, outcome, err := decode.Decode("ros2:rcl_node_init", decode.RawFields{
		"node_handle": uint64(1), "rmw_handle": uint64(10),
		"node_name": "n1", "namespace": "/",
	}, 42, rawevents.Context{HostName: "h"})
	require.NoError(t, err)
	require.Equal(t, decode.Decoded, outcome)
	require.Equal(t, rawevents.RclNodeInit{NodeHandle: 1, RmwHandle: 10, NodeName: "n1", Namespace: "/"}, env.Payload)
}

func TestDecodeMissingFieldIsHardError(t *testing.T) {
	_, _, err := decode.Decode("ros2:rcl_node_init", decode.RawFields{
		"node_handle": uint64(1),
	}, 0, rawevents.Context{})
	var missing *decode.MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "rmw_handle", missing.Field)
}

func TestDecodeWrongTypeIsHardError(t *testing.T) {
	_, _, err := decode.Decode("ros2:rcl_node_init", decode.RawFields{
		"node_handle": "not a handle", "rmw_handle": uint64(10),
		"node_name": "n1", "namespace": "/",
	}, 0, rawevents.Context{})
	var wrong *decode.WrongTypeError
	require.ErrorAs(t, err, &wrong)
}

func TestDecodeUnknownEventNameIsUnsupported(t *testing.T) {
	env, outcome, err := decode.Decode("ros2:no_such_event", decode.RawFields{}, 0, rawevents.Context{})
	require.NoError(t, err)
	require.Nil(t, env)
	require.Equal(t, decode.Unsupported, outcome)
}

func TestDecodeForeignProviderIsOtherMessage(t *testing.T) {
	env, outcome, err := decode.Decode("dds:writer", decode.RawFields{}, 0, rawevents.Context{})
	require.NoError(t, err)
	require.Nil(t, env)
	require.Equal(t, decode.OtherProvider, outcome)

	// No colon at all: not a recognized discriminator.
	_, outcome, err = decode.Decode("garbage", decode.RawFields{}, 0, rawevents.Context{})
	require.NoError(t, err)
	require.Equal(t, decode.OtherProvider, outcome)
}

func TestDecodeGID(t *testing.T) {
	gid := [24]byte{1, 2, 3}
	env, outcome, err := decode.Decode("ros2:rmw_publisher_init", decode.RawFields{
		"rmw_publisher_handle": uint64(20), "gid": gid,
	}, 0, rawevents.Context{})
	require.NoError(t, err)
	require.Equal(t, decode.Decoded, outcome)
	require.Equal(t, gid, env.Payload.(rawevents.RmwPublisherInit).GID)
}

func TestDecodeTakenCoercedFromInteger(t *testing.T) {
	env, _, err := decode.Decode("ros2:rmw_take", decode.RawFields{
		"rmw_subscription_handle": uint64(30), "message": uint64(0xB),
		"source_timestamp": int64(9000), "taken": uint64(1),
	}, 0, rawevents.Context{})
	require.NoError(t, err)
	require.True(t, env.Payload.(rawevents.RmwTake).Taken)

	env, _, err = decode.Decode("ros2:rmw_take", decode.RawFields{
		"rmw_subscription_handle": uint64(30), "message": uint64(0xB),
		"source_timestamp": int64(9000), "taken": uint64(0),
	}, 0, rawevents.Context{})
	require.NoError(t, err)
	require.False(t, env.Payload.(rawevents.RmwTake).Taken)
}

func TestDecodeOptionalPublishFields(t *testing.T) {
	// Both optional fields absent: still decodes.
	env, outcome, err := decode.Decode("ros2:rmw_publish", decode.RawFields{
		"message": uint64(0xA),
	}, 0, rawevents.Context{})
	require.NoError(t, err)
	require.Equal(t, decode.Decoded, outcome)
	pub := env.Payload.(rawevents.RmwPublish)
	require.Nil(t, pub.RmwPublisherHandle)
	require.Nil(t, pub.Timestamp)

	env, _, err = decode.Decode("ros2:rmw_publish", decode.RawFields{
		"message": uint64(0xA), "rmw_publisher_handle": uint64(20), "timestamp": int64(9000),
	}, 0, rawevents.Context{})
	require.NoError(t, err)
	pub = env.Payload.(rawevents.RmwPublish)
	require.Equal(t, uint64(20), *pub.RmwPublisherHandle)
	require.Equal(t, int64(9000), *pub.Timestamp)
}

func TestDecodeSpinEvents(t *testing.T) {
	env, outcome, err := decode.Decode("r2r:spin_start", decode.RawFields{
		"node_handle": uint64(1), "timeout_s": uint64(0), "timeout_ns": uint64(5_000_000),
	}, 0, rawevents.Context{})
	require.NoError(t, err)
	require.Equal(t, decode.Decoded, outcome)
	require.Equal(t, rawevents.SpinStart{NodeHandle: 1, TimeoutS: 0, TimeoutNs: 5_000_000}, env.Payload)
}
