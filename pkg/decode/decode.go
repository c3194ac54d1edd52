package decode

import (
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
)

// Outcome classifies the result of a decode attempt that did not error.
type Outcome int

const (
	// Decoded: payload recognized and returned.
	Decoded Outcome = iota
	// Unsupported: the provider is recognized ("ros2" or "r2r") but the
	// event name within it is not. Counted, skipped — not an error.
	Unsupported
	// OtherProvider: the discriminator's provider is neither of the two
	// recognized providers. Routed past the engine as a "non-core message".
	OtherProvider
)

// Decode turns one raw trace message into a typed rawevents.Envelope.
// discriminator is the full "provider:event_name" string. A recognized
// event name with a missing or mistyped required field is a hard error
// (*MissingFieldError / *WrongTypeError); an unrecognized event name under
// a recognized provider yields Outcome==Unsupported with a nil envelope
// and a nil error.
func Decode(discriminator string, fields RawFields, ts model.Time, ctx rawevents.Context) (*rawevents.Envelope, Outcome, error) {
	provider, name, ok := splitDiscriminator(discriminator)
	if !ok {
		return nil, OtherProvider, nil
	}

	var (
		payload rawevents.Event
		err     error
	)

	switch provider {
	case "ros2":
		payload, err = decodeRos2(name, fields)
	case "r2r":
		payload, err = decodeR2r(name, fields)
	default:
		return nil, OtherProvider, nil
	}
	if err != nil {
		return nil, Decoded, err
	}
	if payload == nil {
		return nil, Unsupported, nil
	}
	return &rawevents.Envelope{Timestamp: ts, Context: ctx, Payload: payload}, Decoded, nil
}

func splitDiscriminator(d string) (provider, name string, ok bool) {
	for i := 0; i < len(d); i++ {
		if d[i] == ':' {
			return d[:i], d[i+1:], true
		}
	}
	return "", "", false
}

func decodeRos2(name string, f RawFields) (rawevents.Event, error) {
	const ev = "ros2:"
	switch name {
	case "rcl_init":
		ch, err := getUint64(ev+name, f, "context_handle")
		if err != nil {
			return nil, err
		}
		ver, err := getString(ev+name, f, "version")
		if err != nil {
			return nil, err
		}
		return rawevents.RclInit{ContextHandle: ch, Version: ver}, nil

	case "rcl_node_init":
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		rh, err := getUint64(ev+name, f, "rmw_handle")
		if err != nil {
			return nil, err
		}
		nn, err := getString(ev+name, f, "node_name")
		if err != nil {
			return nil, err
		}
		ns, err := getString(ev+name, f, "namespace")
		if err != nil {
			return nil, err
		}
		return rawevents.RclNodeInit{NodeHandle: nh, RmwHandle: rh, NodeName: nn, Namespace: ns}, nil

	case "rmw_publisher_init":
		ph, err := getUint64(ev+name, f, "rmw_publisher_handle")
		if err != nil {
			return nil, err
		}
		gid, err := getGID(ev+name, f, "gid")
		if err != nil {
			return nil, err
		}
		return rawevents.RmwPublisherInit{RmwPublisherHandle: ph, GID: gid}, nil

	case "rcl_publisher_init":
		ph, err := getUint64(ev+name, f, "publisher_handle")
		if err != nil {
			return nil, err
		}
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		rmwh, err := getUint64(ev+name, f, "rmw_publisher_handle")
		if err != nil {
			return nil, err
		}
		topic, err := getString(ev+name, f, "topic_name")
		if err != nil {
			return nil, err
		}
		qd, err := getUint64(ev+name, f, "queue_depth")
		if err != nil {
			return nil, err
		}
		return rawevents.RclPublisherInit{PublisherHandle: ph, NodeHandle: nh, RmwPublisherHandle: rmwh, TopicName: topic, QueueDepth: qd}, nil

	case "rclcpp_publish":
		msg, err := getUint64(ev+name, f, "message")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppPublish{Message: msg}, nil

	case "rclcpp_intra_publish":
		ph, err := getUint64(ev+name, f, "publisher_handle")
		if err != nil {
			return nil, err
		}
		msg, err := getUint64(ev+name, f, "message")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppIntraPublish{PublisherHandle: ph, Message: msg}, nil

	case "rcl_publish":
		ph, err := getUint64(ev+name, f, "publisher_handle")
		if err != nil {
			return nil, err
		}
		msg, err := getUint64(ev+name, f, "message")
		if err != nil {
			return nil, err
		}
		return rawevents.RclPublish{PublisherHandle: ph, Message: msg}, nil

	case "rmw_publish":
		msg, err := getUint64(ev+name, f, "message")
		if err != nil {
			return nil, err
		}
		return rawevents.RmwPublish{
			RmwPublisherHandle: getOptUint64(f, "rmw_publisher_handle"),
			Message:            msg,
			Timestamp:          getOptInt64(f, "timestamp"),
		}, nil

	case "rmw_subscription_init":
		sh, err := getUint64(ev+name, f, "rmw_subscription_handle")
		if err != nil {
			return nil, err
		}
		gid, err := getGID(ev+name, f, "gid")
		if err != nil {
			return nil, err
		}
		return rawevents.RmwSubscriptionInit{RmwSubscriptionHandle: sh, GID: gid}, nil

	case "rcl_subscription_init":
		sh, err := getUint64(ev+name, f, "subscription_handle")
		if err != nil {
			return nil, err
		}
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		rmwh, err := getUint64(ev+name, f, "rmw_subscription_handle")
		if err != nil {
			return nil, err
		}
		topic, err := getString(ev+name, f, "topic_name")
		if err != nil {
			return nil, err
		}
		qd, err := getUint64(ev+name, f, "queue_depth")
		if err != nil {
			return nil, err
		}
		return rawevents.RclSubscriptionInit{SubscriptionHandle: sh, NodeHandle: nh, RmwSubscriptionHandle: rmwh, TopicName: topic, QueueDepth: qd}, nil

	case "rclcpp_subscription_init":
		sh, err := getUint64(ev+name, f, "subscription_handle")
		if err != nil {
			return nil, err
		}
		sub, err := getUint64(ev+name, f, "subscription")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppSubscriptionInit{SubscriptionHandle: sh, Subscription: sub}, nil

	case "rclcpp_subscription_callback_added":
		sub, err := getUint64(ev+name, f, "subscription")
		if err != nil {
			return nil, err
		}
		cb, err := getUint64(ev+name, f, "callback")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppSubscriptionCallbackAdded{Subscription: sub, Callback: cb}, nil

	case "rmw_take":
		sh, err := getUint64(ev+name, f, "rmw_subscription_handle")
		if err != nil {
			return nil, err
		}
		msg, err := getUint64(ev+name, f, "message")
		if err != nil {
			return nil, err
		}
		srcTs, err := getInt64(ev+name, f, "source_timestamp")
		if err != nil {
			return nil, err
		}
		taken, err := getBool(ev+name, f, "taken")
		if err != nil {
			return nil, err
		}
		return rawevents.RmwTake{RmwSubscriptionHandle: sh, Message: msg, SourceTimestamp: srcTs, Taken: taken}, nil

	case "rcl_take":
		msg, err := getUint64(ev+name, f, "message")
		if err != nil {
			return nil, err
		}
		return rawevents.RclTake{Message: msg}, nil

	case "rclcpp_take":
		msg, err := getUint64(ev+name, f, "message")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppTake{Message: msg}, nil

	case "rcl_service_init":
		sh, err := getUint64(ev+name, f, "service_handle")
		if err != nil {
			return nil, err
		}
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		rmwh, err := getUint64(ev+name, f, "rmw_service_handle")
		if err != nil {
			return nil, err
		}
		sn, err := getString(ev+name, f, "service_name")
		if err != nil {
			return nil, err
		}
		return rawevents.RclServiceInit{ServiceHandle: sh, NodeHandle: nh, RmwServiceHandle: rmwh, ServiceName: sn}, nil

	case "rclcpp_service_callback_added":
		sh, err := getUint64(ev+name, f, "service_handle")
		if err != nil {
			return nil, err
		}
		cb, err := getUint64(ev+name, f, "callback")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppServiceCallbackAdded{ServiceHandle: sh, Callback: cb}, nil

	case "rcl_client_init":
		ch, err := getUint64(ev+name, f, "client_handle")
		if err != nil {
			return nil, err
		}
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		rmwh, err := getUint64(ev+name, f, "rmw_client_handle")
		if err != nil {
			return nil, err
		}
		sn, err := getString(ev+name, f, "service_name")
		if err != nil {
			return nil, err
		}
		return rawevents.RclClientInit{ClientHandle: ch, NodeHandle: nh, RmwClientHandle: rmwh, ServiceName: sn}, nil

	case "rcl_timer_init":
		th, err := getUint64(ev+name, f, "timer_handle")
		if err != nil {
			return nil, err
		}
		period, err := getInt64(ev+name, f, "period")
		if err != nil {
			return nil, err
		}
		return rawevents.RclTimerInit{TimerHandle: th, Period: period}, nil

	case "rclcpp_timer_callback_added":
		th, err := getUint64(ev+name, f, "timer_handle")
		if err != nil {
			return nil, err
		}
		cb, err := getUint64(ev+name, f, "callback")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppTimerCallbackAdded{TimerHandle: th, Callback: cb}, nil

	case "rclcpp_timer_link_node":
		th, err := getUint64(ev+name, f, "timer_handle")
		if err != nil {
			return nil, err
		}
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppTimerLinkNode{TimerHandle: th, NodeHandle: nh}, nil

	case "rclcpp_callback_register":
		cb, err := getUint64(ev+name, f, "callback")
		if err != nil {
			return nil, err
		}
		sym, err := getString(ev+name, f, "symbol")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppCallbackRegister{Callback: cb, Symbol: sym}, nil

	case "callback_start":
		cb, err := getUint64(ev+name, f, "callback")
		if err != nil {
			return nil, err
		}
		intra, err := getBool(ev+name, f, "is_intra_process")
		if err != nil {
			return nil, err
		}
		return rawevents.CallbackStart{Callback: cb, IsIntraProcess: intra}, nil

	case "callback_end":
		cb, err := getUint64(ev+name, f, "callback")
		if err != nil {
			return nil, err
		}
		return rawevents.CallbackEnd{Callback: cb}, nil

	case "rcl_lifecycle_state_machine_init":
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		sm, err := getUint64(ev+name, f, "state_machine")
		if err != nil {
			return nil, err
		}
		return rawevents.RclLifecycleStateMachineInit{NodeHandle: nh, StateMachine: sm}, nil

	case "rcl_lifecycle_transition":
		sm, err := getUint64(ev+name, f, "state_machine")
		if err != nil {
			return nil, err
		}
		start, err := getString(ev+name, f, "start_label")
		if err != nil {
			return nil, err
		}
		goal, err := getString(ev+name, f, "goal_label")
		if err != nil {
			return nil, err
		}
		return rawevents.RclLifecycleTransition{StateMachine: sm, StartLabel: start, GoalLabel: goal}, nil

	case "rclcpp_executor_get_next_ready":
		return rawevents.RclcppExecutorGetNextReady{}, nil

	case "rclcpp_executor_wait_for_work":
		to, err := getInt64(ev+name, f, "timeout")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppExecutorWaitForWork{Timeout: to}, nil

	case "rclcpp_executor_execute":
		h, err := getUint64(ev+name, f, "handle")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppExecutorExecute{Handle: h}, nil

	case "rclcpp_ipb_to_subscription":
		ipb, err := getUint64(ev+name, f, "ipb")
		if err != nil {
			return nil, err
		}
		sub, err := getUint64(ev+name, f, "subscription")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppIpbToSubscription{IPB: ipb, Subscription: sub}, nil

	case "rclcpp_buffer_to_ipb":
		buf, err := getUint64(ev+name, f, "buffer")
		if err != nil {
			return nil, err
		}
		ipb, err := getUint64(ev+name, f, "ipb")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppBufferToIpb{Buffer: buf, IPB: ipb}, nil

	case "rclcpp_construct_ring_buffer":
		buf, err := getUint64(ev+name, f, "buffer")
		if err != nil {
			return nil, err
		}
		cap, err := getUint64(ev+name, f, "capacity")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppConstructRingBuffer{Buffer: buf, Capacity: cap}, nil

	case "rclcpp_ring_buffer_enqueue":
		buf, err := getUint64(ev+name, f, "buffer")
		if err != nil {
			return nil, err
		}
		idx, err := getUint64(ev+name, f, "index")
		if err != nil {
			return nil, err
		}
		size, err := getUint64(ev+name, f, "size")
		if err != nil {
			return nil, err
		}
		ow, err := getBool(ev+name, f, "overwritten")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppRingBufferEnqueue{Buffer: buf, Index: idx, Size: size, Overwritten: ow}, nil

	case "rclcpp_ring_buffer_dequeue":
		buf, err := getUint64(ev+name, f, "buffer")
		if err != nil {
			return nil, err
		}
		idx, err := getUint64(ev+name, f, "index")
		if err != nil {
			return nil, err
		}
		size, err := getUint64(ev+name, f, "size")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppRingBufferDequeue{Buffer: buf, Index: idx, Size: size}, nil

	case "rclcpp_ring_buffer_clear":
		buf, err := getUint64(ev+name, f, "buffer")
		if err != nil {
			return nil, err
		}
		return rawevents.RclcppRingBufferClear{Buffer: buf}, nil

	default:
		return nil, nil // Unsupported
	}
}

func decodeR2r(name string, f RawFields) (rawevents.Event, error) {
	const ev = "r2r:"
	switch name {
	case "spin_start":
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		ts, err := getUint64(ev+name, f, "timeout_s")
		if err != nil {
			return nil, err
		}
		tns, err := getUint64(ev+name, f, "timeout_ns")
		if err != nil {
			return nil, err
		}
		return rawevents.SpinStart{NodeHandle: nh, TimeoutS: ts, TimeoutNs: tns}, nil

	case "spin_wake":
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		return rawevents.SpinWake{NodeHandle: nh}, nil

	case "spin_end":
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		return rawevents.SpinEnd{NodeHandle: nh}, nil

	case "spin_timeout":
		nh, err := getUint64(ev+name, f, "node_handle")
		if err != nil {
			return nil, err
		}
		return rawevents.SpinTimeout{NodeHandle: nh}, nil

	case "update_time":
		sub, err := getUint64(ev+name, f, "subscriber")
		if err != nil {
			return nil, err
		}
		s, err := getInt64(ev+name, f, "time_s")
		if err != nil {
			return nil, err
		}
		ns, err := getInt64(ev+name, f, "time_ns")
		if err != nil {
			return nil, err
		}
		return rawevents.UpdateTime{Subscriber: sub, TimeS: int32(s), TimeNs: uint32(ns)}, nil

	default:
		return nil, nil // Unsupported
	}
}
