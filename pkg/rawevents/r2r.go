package rawevents

// SpinStart corresponds to "r2r:spin_start".
type SpinStart struct {
	NodeHandle uint64
	TimeoutS   uint64
	TimeoutNs  uint64
}

func (SpinStart) Name() string { return "r2r:spin_start" }
func (SpinStart) r2rEvent()    {}

// SpinWake corresponds to "r2r:spin_wake".
type SpinWake struct {
	NodeHandle uint64
}

func (SpinWake) Name() string { return "r2r:spin_wake" }
func (SpinWake) r2rEvent()    {}

// SpinEnd corresponds to "r2r:spin_end".
type SpinEnd struct {
	NodeHandle uint64
}

func (SpinEnd) Name() string { return "r2r:spin_end" }
func (SpinEnd) r2rEvent()    {}

// SpinTimeout corresponds to "r2r:spin_timeout".
type SpinTimeout struct {
	NodeHandle uint64
}

func (SpinTimeout) Name() string { return "r2r:spin_timeout" }
func (SpinTimeout) r2rEvent()    {}

// UpdateTime corresponds to "r2r:update_time": a secondary-provider event
// that stamps a subscriber with a software clock correction, unrelated to
// message correlation; kept as a non-core event.
type UpdateTime struct {
	Subscriber uint64
	TimeS      int32
	TimeNs     uint32
}

func (UpdateTime) Name() string { return "r2r:update_time" }
func (UpdateTime) r2rEvent()    {}
