package rawevents

// GIDSize is the fixed width of a middleware GID field.
const GIDSize = 24

// RclInit corresponds to "ros2:rcl_init".
type RclInit struct {
	ContextHandle uint64
	Version       string
}

func (RclInit) Name() string { return "ros2:rcl_init" }
func (RclInit) ros2Event()   {}

// RclNodeInit corresponds to "ros2:rcl_node_init".
type RclNodeInit struct {
	NodeHandle uint64
	RmwHandle  uint64
	NodeName   string
	Namespace  string
}

func (RclNodeInit) Name() string { return "ros2:rcl_node_init" }
func (RclNodeInit) ros2Event()   {}

// RmwPublisherInit corresponds to "ros2:rmw_publisher_init".
type RmwPublisherInit struct {
	RmwPublisherHandle uint64
	GID                [GIDSize]byte
}

func (RmwPublisherInit) Name() string { return "ros2:rmw_publisher_init" }
func (RmwPublisherInit) ros2Event()   {}

// RclPublisherInit corresponds to "ros2:rcl_publisher_init".
type RclPublisherInit struct {
	PublisherHandle    uint64
	NodeHandle         uint64
	RmwPublisherHandle uint64
	TopicName          string
	QueueDepth         uint64
}

func (RclPublisherInit) Name() string { return "ros2:rcl_publisher_init" }
func (RclPublisherInit) ros2Event()   {}

// RclcppPublish corresponds to "ros2:rclcpp_publish" (user-facing layer).
type RclcppPublish struct {
	Message uint64
}

func (RclcppPublish) Name() string { return "ros2:rclcpp_publish" }
func (RclcppPublish) ros2Event()   {}

// RclcppIntraPublish corresponds to "ros2:rclcpp_intra_publish".
type RclcppIntraPublish struct {
	PublisherHandle uint64
	Message         uint64
}

func (RclcppIntraPublish) Name() string { return "ros2:rclcpp_intra_publish" }
func (RclcppIntraPublish) ros2Event()   {}

// RclPublish corresponds to "ros2:rcl_publish" (client-library layer).
type RclPublish struct {
	PublisherHandle uint64
	Message         uint64
}

func (RclPublish) Name() string { return "ros2:rcl_publish" }
func (RclPublish) ros2Event()   {}

// RmwPublish corresponds to "ros2:rmw_publish" (middleware layer). Both
// the publisher handle and the sender timestamp may be absent.
type RmwPublish struct {
	RmwPublisherHandle *uint64
	Message            uint64
	Timestamp          *int64
}

func (RmwPublish) Name() string { return "ros2:rmw_publish" }
func (RmwPublish) ros2Event()   {}

// RmwSubscriptionInit corresponds to "ros2:rmw_subscription_init".
type RmwSubscriptionInit struct {
	RmwSubscriptionHandle uint64
	GID                   [GIDSize]byte
}

func (RmwSubscriptionInit) Name() string { return "ros2:rmw_subscription_init" }
func (RmwSubscriptionInit) ros2Event()   {}

// RclSubscriptionInit corresponds to "ros2:rcl_subscription_init".
type RclSubscriptionInit struct {
	SubscriptionHandle    uint64
	NodeHandle            uint64
	RmwSubscriptionHandle uint64
	TopicName             string
	QueueDepth            uint64
}

func (RclSubscriptionInit) Name() string { return "ros2:rcl_subscription_init" }
func (RclSubscriptionInit) ros2Event()   {}

// RclcppSubscriptionInit corresponds to "ros2:rclcpp_subscription_init".
type RclcppSubscriptionInit struct {
	SubscriptionHandle uint64
	Subscription       uint64
}

func (RclcppSubscriptionInit) Name() string { return "ros2:rclcpp_subscription_init" }
func (RclcppSubscriptionInit) ros2Event()   {}

// RclcppSubscriptionCallbackAdded corresponds to
// "ros2:rclcpp_subscription_callback_added".
type RclcppSubscriptionCallbackAdded struct {
	Subscription uint64
	Callback     uint64
}

func (RclcppSubscriptionCallbackAdded) Name() string {
	return "ros2:rclcpp_subscription_callback_added"
}
func (RclcppSubscriptionCallbackAdded) ros2Event() {}

// RmwTake corresponds to "ros2:rmw_take".
type RmwTake struct {
	RmwSubscriptionHandle uint64
	Message               uint64
	SourceTimestamp       int64
	Taken                 bool
}

func (RmwTake) Name() string { return "ros2:rmw_take" }
func (RmwTake) ros2Event()   {}

// RclTake corresponds to "ros2:rcl_take".
type RclTake struct {
	Message uint64
}

func (RclTake) Name() string { return "ros2:rcl_take" }
func (RclTake) ros2Event()   {}

// RclcppTake corresponds to "ros2:rclcpp_take".
type RclcppTake struct {
	Message uint64
}

func (RclcppTake) Name() string { return "ros2:rclcpp_take" }
func (RclcppTake) ros2Event()   {}

// RclServiceInit corresponds to "ros2:rcl_service_init".
type RclServiceInit struct {
	ServiceHandle    uint64
	NodeHandle       uint64
	RmwServiceHandle uint64
	ServiceName      string
}

func (RclServiceInit) Name() string { return "ros2:rcl_service_init" }
func (RclServiceInit) ros2Event()   {}

// RclcppServiceCallbackAdded corresponds to
// "ros2:rclcpp_service_callback_added".
type RclcppServiceCallbackAdded struct {
	ServiceHandle uint64
	Callback      uint64
}

func (RclcppServiceCallbackAdded) Name() string { return "ros2:rclcpp_service_callback_added" }
func (RclcppServiceCallbackAdded) ros2Event()   {}

// RclClientInit corresponds to "ros2:rcl_client_init".
type RclClientInit struct {
	ClientHandle    uint64
	NodeHandle      uint64
	RmwClientHandle uint64
	ServiceName     string
}

func (RclClientInit) Name() string { return "ros2:rcl_client_init" }
func (RclClientInit) ros2Event()   {}

// RclTimerInit corresponds to "ros2:rcl_timer_init".
type RclTimerInit struct {
	TimerHandle uint64
	Period      int64
}

func (RclTimerInit) Name() string { return "ros2:rcl_timer_init" }
func (RclTimerInit) ros2Event()   {}

// RclcppTimerCallbackAdded corresponds to "ros2:rclcpp_timer_callback_added".
type RclcppTimerCallbackAdded struct {
	TimerHandle uint64
	Callback    uint64
}

func (RclcppTimerCallbackAdded) Name() string { return "ros2:rclcpp_timer_callback_added" }
func (RclcppTimerCallbackAdded) ros2Event()   {}

// RclcppTimerLinkNode corresponds to "ros2:rclcpp_timer_link_node".
type RclcppTimerLinkNode struct {
	TimerHandle uint64
	NodeHandle  uint64
}

func (RclcppTimerLinkNode) Name() string { return "ros2:rclcpp_timer_link_node" }
func (RclcppTimerLinkNode) ros2Event()   {}

// RclcppCallbackRegister corresponds to "ros2:rclcpp_callback_register".
type RclcppCallbackRegister struct {
	Callback uint64
	Symbol   string
}

func (RclcppCallbackRegister) Name() string { return "ros2:rclcpp_callback_register" }
func (RclcppCallbackRegister) ros2Event()   {}

// CallbackStart corresponds to "ros2:callback_start".
type CallbackStart struct {
	Callback       uint64
	IsIntraProcess bool
}

func (CallbackStart) Name() string { return "ros2:callback_start" }
func (CallbackStart) ros2Event()   {}

// CallbackEnd corresponds to "ros2:callback_end".
type CallbackEnd struct {
	Callback uint64
}

func (CallbackEnd) Name() string { return "ros2:callback_end" }
func (CallbackEnd) ros2Event()   {}

// The following variants are recognized and decoded but play no role in
// the reconstruction protocol; the engine counts them as "non-core
// events" and passes them through without mutating the store.

type RclLifecycleStateMachineInit struct {
	NodeHandle   uint64
	StateMachine uint64
}

func (RclLifecycleStateMachineInit) Name() string { return "ros2:rcl_lifecycle_state_machine_init" }
func (RclLifecycleStateMachineInit) ros2Event()   {}

type RclLifecycleTransition struct {
	StateMachine uint64
	StartLabel   string
	GoalLabel    string
}

func (RclLifecycleTransition) Name() string { return "ros2:rcl_lifecycle_transition" }
func (RclLifecycleTransition) ros2Event()   {}

type RclcppExecutorGetNextReady struct{}

func (RclcppExecutorGetNextReady) Name() string { return "ros2:rclcpp_executor_get_next_ready" }
func (RclcppExecutorGetNextReady) ros2Event()   {}

type RclcppExecutorWaitForWork struct {
	Timeout int64
}

func (RclcppExecutorWaitForWork) Name() string { return "ros2:rclcpp_executor_wait_for_work" }
func (RclcppExecutorWaitForWork) ros2Event()   {}

type RclcppExecutorExecute struct {
	Handle uint64
}

func (RclcppExecutorExecute) Name() string { return "ros2:rclcpp_executor_execute" }
func (RclcppExecutorExecute) ros2Event()   {}

type RclcppIpbToSubscription struct {
	IPB          uint64
	Subscription uint64
}

func (RclcppIpbToSubscription) Name() string { return "ros2:rclcpp_ipb_to_subscription" }
func (RclcppIpbToSubscription) ros2Event()   {}

type RclcppBufferToIpb struct {
	Buffer uint64
	IPB    uint64
}

func (RclcppBufferToIpb) Name() string { return "ros2:rclcpp_buffer_to_ipb" }
func (RclcppBufferToIpb) ros2Event()   {}

type RclcppConstructRingBuffer struct {
	Buffer   uint64
	Capacity uint64
}

func (RclcppConstructRingBuffer) Name() string { return "ros2:rclcpp_construct_ring_buffer" }
func (RclcppConstructRingBuffer) ros2Event()   {}

type RclcppRingBufferEnqueue struct {
	Buffer      uint64
	Index       uint64
	Size        uint64
	Overwritten bool
}

func (RclcppRingBufferEnqueue) Name() string { return "ros2:rclcpp_ring_buffer_enqueue" }
func (RclcppRingBufferEnqueue) ros2Event()   {}

type RclcppRingBufferDequeue struct {
	Buffer uint64
	Index  uint64
	Size   uint64
}

func (RclcppRingBufferDequeue) Name() string { return "ros2:rclcpp_ring_buffer_dequeue" }
func (RclcppRingBufferDequeue) ros2Event()   {}

type RclcppRingBufferClear struct {
	Buffer uint64
}

func (RclcppRingBufferClear) Name() string { return "ros2:rclcpp_ring_buffer_clear" }
func (RclcppRingBufferClear) ros2Event()   {}
