package reconstruct

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/processed"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
	"github.com/cuemby/traceanalyzer/pkg/reconstruct/reconerr"
)

// Outcome classifies what Process did with one envelope that did not
// error: Core means a processed.Envelope was produced for the analysis
// fan-out; NonCore means the event was recognized but plays no role in
// the reconstruction protocol (lifecycle/executor/ring-buffer diagnostics,
// the secondary provider's clock-correction event) and nothing was built.
type Outcome int

const (
	Core Outcome = iota
	NonCore
)

// Engine is the reconstruction engine: one Store plus the per-event
// protocol handlers. It is not safe for concurrent use — the pipeline
// feeds it one envelope at a time from a single goroutine.
type Engine struct {
	store  *Store
	logger zerolog.Logger
}

// New creates an Engine with a fresh Store.
func New(logger zerolog.Logger) *Engine {
	return &Engine{store: NewStore(), logger: logger}
}

// Store exposes the object graph, e.g. for a final dependency-graph dump.
func (e *Engine) Store() *Store { return e.store }

// Process advances the engine by one decoded raw event.
func (e *Engine) Process(env *rawevents.Envelope) (_ *processed.Envelope, _ Outcome, err error) {
	ctx := env.Context
	t := env.Timestamp

	// Handlers that return a fatal error without the triggering event get
	// it filled in here, so every returned error names event, time and context.
	defer func() {
		switch x := err.(type) {
		case *reconerr.MissingDependency:
			if x.Event == nil {
				x.Event, x.Timestamp, x.Context = env.Payload, t, ctx
			}
		case *reconerr.InvariantViolation:
			if x.Event == nil {
				x.Event, x.Timestamp, x.Context = env.Payload, t, ctx
			}
		}
	}()

	wrap := func(payload processed.Event) *processed.Envelope {
		return &processed.Envelope{Timestamp: t, Context: ctx, Payload: payload}
	}

	switch ev := env.Payload.(type) {
	case rawevents.RclNodeInit:
		return wrap(e.nodeInit(ev, ctx)), Core, nil
	case rawevents.RmwPublisherInit:
		return wrap(e.mwPublisherInit(ev, ctx)), Core, nil
	case rawevents.RclPublisherInit:
		return wrap(e.rclPublisherInit(ev, ctx)), Core, nil
	case rawevents.RclcppPublish:
		return wrap(e.userPublish(ev, ctx, t)), Core, nil
	case rawevents.RclcppIntraPublish:
		return wrap(e.intraPublish(ev, ctx)), Core, nil
	case rawevents.RclPublish:
		return wrap(e.clientLibPublish(ev, ctx, t)), Core, nil
	case rawevents.RmwPublish:
		return wrap(e.mwPublish(ev, ctx, t, env)), Core, nil
	case rawevents.RmwSubscriptionInit:
		return wrap(e.mwSubscriptionInit(ev, ctx)), Core, nil
	case rawevents.RclSubscriptionInit:
		return wrap(e.rclSubscriptionInit(ev, ctx)), Core, nil
	case rawevents.RclcppSubscriptionInit:
		return wrap(e.rclcppSubscriptionInit(ev, ctx)), Core, nil
	case rawevents.RclcppSubscriptionCallbackAdded:
		r, err := e.subscriptionCallbackAdded(ev, ctx)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.RmwTake:
		return wrap(e.mwTake(ev, ctx, t, env)), Core, nil
	case rawevents.RclTake:
		return wrap(e.clientLibTake(ev, ctx, t)), Core, nil
	case rawevents.RclcppTake:
		return wrap(e.userLibTake(ev, ctx, t)), Core, nil
	case rawevents.RclServiceInit:
		return wrap(e.serviceInit(ev, ctx)), Core, nil
	case rawevents.RclcppServiceCallbackAdded:
		r, err := e.serviceCallbackAdded(ev, ctx)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.RclClientInit:
		return wrap(e.clientInit(ev, ctx)), Core, nil
	case rawevents.RclTimerInit:
		return wrap(e.timerInit(ev, ctx)), Core, nil
	case rawevents.RclcppTimerCallbackAdded:
		r, err := e.timerCallbackAdded(ev, ctx)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.RclcppTimerLinkNode:
		r, err := e.timerLinkNode(ev, ctx)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.RclcppCallbackRegister:
		r, err := e.callbackRegister(ev, ctx, env)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.CallbackStart:
		r, err := e.callbackStart(ev, ctx, t, env)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.CallbackEnd:
		r, err := e.callbackEnd(ev, ctx, t, env)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil

	case rawevents.SpinStart:
		r, err := e.spinStart(ev, ctx, t)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.SpinWake:
		r, err := e.spinWake(ev, ctx, t, env)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.SpinEnd:
		r, err := e.spinEnd(ev, ctx, t, env)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil
	case rawevents.SpinTimeout:
		r, err := e.spinTimeout(ev, ctx, t, env)
		if err != nil {
			return nil, Core, err
		}
		return wrap(r), Core, nil

	default:
		// rcl_init, lifecycle/executor/ipb/ring-buffer diagnostics, and
		// r2r's update_time are recognized but sit outside the protocol
		// table; counted as non-core, never mutate the store.
		return nil, NonCore, nil
	}
}

func (e *Engine) scoped(ctx rawevents.Context, handle uint64) model.ScopedHandle {
	return e.store.scopedHandle(ctx.HostName, ctx.Pid, handle)
}

func (e *Engine) setKnown(field string, set func() error) {
	if err := set(); err != nil {
		e.logger.Debug().Str("field", field).Err(err).Msg("benign repeated field set ignored")
	}
}

// --- node ---

func (e *Engine) nodeInit(ev rawevents.RclNodeInit, ctx rawevents.Context) processed.RclNodeInit {
	key := e.scoped(ctx, ev.NodeHandle)
	node, ok := e.store.nodesByRcl[key]
	if !ok {
		node = model.NewNode(key)
		e.store.nodesByRcl[key] = node
	}
	node.Lock()
	mwKey := e.scoped(ctx, ev.RmwHandle)
	e.setKnown("Node.MwHandle", func() error { return node.MwHandle.Set("Node.MwHandle", mwKey) })
	e.setKnown("Node.Namespace", func() error { return node.Namespace.Set("Node.Namespace", ev.Namespace) })
	e.setKnown("Node.Name", func() error { return node.Name.Set("Node.Name", ev.NodeName) })
	node.Unlock()
	return processed.RclNodeInit{Node: node}
}

// nodeOrStub returns the node at key, creating an uninitialized stub (and
// logging it) if none exists yet — the `/rosout` racing-init fallback
// generalized to any publisher/subscriber whose node-init event has not
// yet been observed.
func (e *Engine) nodeOrStub(key model.ScopedHandle, topic string) *model.Node {
	node, ok := e.store.nodesByRcl[key]
	if ok {
		return node
	}
	e.logger.Warn().Str("node_handle", key.String()).Str("topic", topic).
		Msg("node init not yet observed, creating stub (rosout-style racing init)")
	node = model.NewNode(key)
	e.store.nodesByRcl[key] = node
	return node
}

// --- publisher ---

func (e *Engine) mwPublisherInit(ev rawevents.RmwPublisherInit, ctx rawevents.Context) processed.RmwPublisherInit {
	key := e.scoped(ctx, ev.RmwPublisherHandle)
	pub, _ := createOrReusePublisher(e.store.publishersByRmw, key, &e.store.Reuse)
	pub.Lock()
	e.setKnown("Publisher.RmwHandle", func() error { return pub.RmwHandle.Set("Publisher.RmwHandle", key) })
	e.setKnown("Publisher.GID", func() error { return pub.GID.Set("Publisher.GID", model.GID(ev.GID)) })
	pub.Unlock()
	return processed.RmwPublisherInit{Publisher: pub}
}

func (e *Engine) rclPublisherInit(ev rawevents.RclPublisherInit, ctx rawevents.Context) processed.RclPublisherInit {
	rmwKey := e.scoped(ctx, ev.RmwPublisherHandle)
	pub, ok := e.store.publishersByRmw[rmwKey]
	if !ok {
		pub = model.NewPublisher()
		pub.Lock()
		_ = pub.RmwHandle.Set("Publisher.RmwHandle", rmwKey)
		pub.Unlock()
		e.store.publishersByRmw[rmwKey] = pub
	}

	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node := e.nodeOrStub(nodeKey, ev.TopicName)

	pub.Lock()
	e.setKnown("Publisher.RclHandle", func() error {
		return pub.RclHandle.Set("Publisher.RclHandle", e.scoped(ctx, ev.PublisherHandle))
	})
	e.setKnown("Publisher.Topic", func() error { return pub.Topic.Set("Publisher.Topic", ev.TopicName) })
	e.setKnown("Publisher.QueueDepth", func() error { return pub.QueueDepth.Set("Publisher.QueueDepth", ev.QueueDepth) })
	e.setKnown("Publisher.Node", func() error { return pub.Node.Set("Publisher.Node", node) })
	pub.Unlock()

	rclKey := e.scoped(ctx, ev.PublisherHandle)
	if old, ok := e.store.publishersByRcl[rclKey]; ok && old != pub {
		old.MarkRemoved()
	}
	e.store.publishersByRcl[rclKey] = pub

	node.AddPublisher(pub)

	return processed.RclPublisherInit{Publisher: pub}
}

// --- publish (publication) ---

func (e *Engine) userPublish(ev rawevents.RclcppPublish, ctx rawevents.Context, t model.Time) processed.RclcppPublish {
	key := e.scoped(ctx, ev.Message)
	msg := model.NewPublicationMessage(ev.Message)
	msg.Lock()
	_ = msg.RclcppTime.Set("PublicationMessage.RclcppTime", t)
	msg.Unlock()
	e.store.publishedByUser[key] = msg
	return processed.RclcppPublish{Message: msg}
}

func (e *Engine) intraPublish(ev rawevents.RclcppIntraPublish, ctx rawevents.Context) processed.RclcppIntraPublish {
	key := e.scoped(ctx, ev.Message)
	msg, ok := e.store.publishedByUser[key]
	if !ok {
		msg = model.NewPublicationMessage(ev.Message)
	}
	pubKey := e.scoped(ctx, ev.PublisherHandle)
	if pub, ok := e.store.publishersByRcl[pubKey]; ok {
		msg.Lock()
		e.setKnown("PublicationMessage.Publisher", func() error { return msg.Publisher.Set("PublicationMessage.Publisher", pub) })
		msg.Unlock()
	}
	return processed.RclcppIntraPublish{Message: msg}
}

func (e *Engine) clientLibPublish(ev rawevents.RclPublish, ctx rawevents.Context, t model.Time) processed.RclPublish {
	key := e.scoped(ctx, ev.Message)
	msg, ok := e.store.publishedByUser[key]
	if ok {
		delete(e.store.publishedByUser, key)
	} else {
		msg = model.NewPublicationMessage(ev.Message)
	}
	e.store.publishedByClientLib[key] = msg

	pubKey := e.scoped(ctx, ev.PublisherHandle)
	pub, ok := e.store.publishersByRcl[pubKey]
	if !ok {
		pub = model.NewPublisher()
		pub.Lock()
		_ = pub.RclHandle.Set("Publisher.RclHandle", pubKey)
		pub.Unlock()
		e.store.publishersByRcl[pubKey] = pub
	}

	msg.Lock()
	e.setKnown("PublicationMessage.Publisher", func() error { return msg.Publisher.Set("PublicationMessage.Publisher", pub) })
	_ = msg.RclTime.Set("PublicationMessage.RclTime", t)
	msg.Unlock()

	return processed.RclPublish{Message: msg}
}

func (e *Engine) mwPublish(ev rawevents.RmwPublish, ctx rawevents.Context, t model.Time, env *rawevents.Envelope) processed.RmwPublish {
	key := e.scoped(ctx, ev.Message)
	msg, ok := e.store.publishedByClientLib[key]
	if ok {
		delete(e.store.publishedByClientLib, key)
	} else {
		msg = model.NewPublicationMessage(ev.Message)
	}

	if ev.RmwPublisherHandle != nil {
		pubKey := e.scoped(ctx, *ev.RmwPublisherHandle)
		if pub, ok := e.store.publishersByRmw[pubKey]; ok {
			msg.Lock()
			e.setKnown("PublicationMessage.Publisher", func() error { return msg.Publisher.Set("PublicationMessage.Publisher", pub) })
			msg.Unlock()
		}
	}

	msg.Lock()
	_ = msg.RmwTime.Set("PublicationMessage.RmwTime", t)
	var topic string
	var hasTopic bool
	if pub, state := msg.Publisher.Get(); state == model.WeakPresent {
		pub.Lock()
		if tp, ok := pub.Topic.Get(); ok {
			topic, hasTopic = tp, true
		}
		pub.Unlock()
	}

	if ev.Timestamp != nil {
		ts := model.Time(*ev.Timestamp)
		_ = msg.SenderTimestamp.Set("PublicationMessage.SenderTimestamp", ts)
		msg.Unlock()
		ckey := correlationKey{SenderTimestamp: ts, Topic: topic, HasTopic: hasTopic}
		if old, ok := e.store.publishedMessages[ckey]; ok && old != msg {
			e.logger.Warn().Str("correlation_key", topic).Int64("sender_ts", int64(ts)).
				Msg("replacing different publication with same sender timestamp")
		}
		e.store.publishedMessages[ckey] = msg
	} else {
		msg.Orphan = true
		msg.Unlock()
		e.logger.Warn().Err(&reconerr.OrphanPublication{Event: env.Payload, Timestamp: t, Context: ctx}).Msg("orphan publication")
	}

	return processed.RmwPublish{Message: msg}
}

// --- subscriber ---

func (e *Engine) mwSubscriptionInit(ev rawevents.RmwSubscriptionInit, ctx rawevents.Context) processed.RmwSubscriptionInit {
	key := e.scoped(ctx, ev.RmwSubscriptionHandle)
	sub, _ := createOrReuseSubscriber(e.store.subscribersByRmw, key, &e.store.Reuse)
	sub.Lock()
	e.setKnown("Subscriber.RmwHandle", func() error { return sub.RmwHandle.Set("Subscriber.RmwHandle", key) })
	e.setKnown("Subscriber.GID", func() error { return sub.GID.Set("Subscriber.GID", model.GID(ev.GID)) })
	sub.Unlock()
	return processed.RmwSubscriptionInit{Subscriber: sub}
}

func (e *Engine) rclSubscriptionInit(ev rawevents.RclSubscriptionInit, ctx rawevents.Context) processed.RclSubscriptionInit {
	rmwKey := e.scoped(ctx, ev.RmwSubscriptionHandle)
	sub, ok := e.store.subscribersByRmw[rmwKey]
	if !ok {
		sub = model.NewSubscriber()
		sub.Lock()
		_ = sub.RmwHandle.Set("Subscriber.RmwHandle", rmwKey)
		sub.Unlock()
		e.store.subscribersByRmw[rmwKey] = sub
	}

	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node := e.nodeOrStub(nodeKey, ev.TopicName)

	sub.Lock()
	rclKey := e.scoped(ctx, ev.SubscriptionHandle)
	e.setKnown("Subscriber.RclHandle", func() error { return sub.RclHandle.Set("Subscriber.RclHandle", rclKey) })
	e.setKnown("Subscriber.Topic", func() error { return sub.Topic.Set("Subscriber.Topic", ev.TopicName) })
	e.setKnown("Subscriber.QueueDepth", func() error { return sub.QueueDepth.Set("Subscriber.QueueDepth", ev.QueueDepth) })
	e.setKnown("Subscriber.Node", func() error { return sub.Node.Set("Subscriber.Node", node) })
	sub.Unlock()

	if old, ok := e.store.subscribersByRcl[rclKey]; ok && old != sub {
		old.MarkRemoved()
	}
	e.store.subscribersByRcl[rclKey] = sub

	node.AddSubscriber(sub)

	return processed.RclSubscriptionInit{Subscriber: sub}
}

func (e *Engine) rclcppSubscriptionInit(ev rawevents.RclcppSubscriptionInit, ctx rawevents.Context) processed.RclcppSubscriptionInit {
	rclKey := e.scoped(ctx, ev.SubscriptionHandle)
	sub, ok := e.store.subscribersByRcl[rclKey]
	if !ok {
		sub = model.NewSubscriber()
		sub.Lock()
		_ = sub.RclHandle.Set("Subscriber.RclHandle", rclKey)
		sub.Unlock()
		e.store.subscribersByRcl[rclKey] = sub
	}
	rclcppKey := e.scoped(ctx, ev.Subscription)
	sub.Lock()
	e.setKnown("Subscriber.RclcppHandle", func() error { return sub.RclcppHandle.Set("Subscriber.RclcppHandle", rclcppKey) })
	sub.Unlock()
	e.store.subscribersByRclcpp[rclcppKey] = sub
	return processed.RclcppSubscriptionInit{Subscriber: sub}
}

func (e *Engine) subscriptionCallbackAdded(ev rawevents.RclcppSubscriptionCallbackAdded, ctx rawevents.Context) (processed.RclcppSubscriptionCallbackAdded, error) {
	subKey := e.scoped(ctx, ev.Subscription)
	sub, ok := e.store.subscribersByRclcpp[subKey]
	if !ok {
		return processed.RclcppSubscriptionCallbackAdded{}, &reconerr.MissingDependency{
			Handle: subKey, Reason: "subscription not yet observed at rclcpp layer",
		}
	}
	cbKey := e.scoped(ctx, ev.Callback)
	caller := model.CallbackCaller{Kind: model.CallerSubscription}
	_ = caller.Subscriber.Set("CallbackCaller.Subscriber", sub)
	cb := model.NewCallback(cbKey, caller)
	e.store.callbacksByID[cbKey] = cb
	return processed.RclcppSubscriptionCallbackAdded{Callback: cb}, nil
}

// --- take (subscription message) ---

func (e *Engine) mwTake(ev rawevents.RmwTake, ctx rawevents.Context, t model.Time, env *rawevents.Envelope) processed.RmwTake {
	subKey := e.scoped(ctx, ev.RmwSubscriptionHandle)
	sub, ok := e.store.subscribersByRmw[subKey]
	if !ok {
		e.logger.Warn().Str("rmw_subscription_handle", subKey.String()).Msg("mw take on unknown subscriber, creating stub")
		sub = model.NewSubscriber()
		sub.Lock()
		_ = sub.RmwHandle.Set("Subscriber.RmwHandle", subKey)
		sub.Unlock()
		e.store.subscribersByRmw[subKey] = sub
	}

	msg := model.NewSubscriptionMessage(ev.Message)
	msg.Lock()
	_ = msg.Subscriber.Set("SubscriptionMessage.Subscriber", sub)
	_ = msg.RmwTime.Set("SubscriptionMessage.RmwTime", t)

	var topic string
	var hasTopic bool
	sub.Lock()
	if tp, ok := sub.Topic.Get(); ok {
		topic, hasTopic = tp, true
	}
	sub.Unlock()

	switch {
	case ev.SourceTimestamp == 0:
		e.logger.Debug().Msg("source timestamp sentinel (0): no correlator available")
		msg.Link = model.SubscriptionLink{Kind: model.MatchPartial, SenderTimestamp: 0}
	default:
		ts := model.Time(ev.SourceTimestamp)
		ckey := correlationKey{SenderTimestamp: ts, Topic: topic, HasTopic: hasTopic}
		pub, found := e.store.publishedMessages[ckey]
		if !found {
			pub, found = e.store.publishedMessages[correlationKey{SenderTimestamp: ts}]
		}
		if found {
			msg.Link = model.SubscriptionLink{Kind: model.MatchFull, Publication: pub, SenderTimestamp: ts}
		} else {
			e.logger.Debug().Err(&reconerr.CorrelationMiss{Event: env.Payload, Timestamp: t, SenderTimestamp: ts, Topic: topic}).Msg("correlation miss")
			msg.Link = model.SubscriptionLink{Kind: model.MatchPartial, SenderTimestamp: ts}
		}
	}
	msg.Unlock()

	if ev.Taken {
		msgKey := e.scoped(ctx, ev.Message)
		if dropped := sub.SetPending(msg); dropped != nil {
			e.logger.Warn().Msg("subscriber pending-message slot overflow, dropping previous message")
		}
		e.store.receivedMessages[msgKey] = msg
	}

	return processed.RmwTake{Message: msg, Taken: ev.Taken}
}

func (e *Engine) clientLibTake(ev rawevents.RclTake, ctx rawevents.Context, t model.Time) processed.RclTake {
	key := e.scoped(ctx, ev.Message)
	msg, ok := e.store.receivedMessages[key]
	if !ok {
		e.logger.Warn().Str("message", key.String()).Msg("client-lib take on message not previously seen (mid-trace start)")
		msg = model.NewSubscriptionMessage(ev.Message)
		msg.NotPreviouslySeen = true
	}
	msg.Lock()
	_ = msg.RclTime.Set("SubscriptionMessage.RclTime", t)
	msg.Unlock()
	return processed.RclTake{Message: msg}
}

func (e *Engine) userLibTake(ev rawevents.RclcppTake, ctx rawevents.Context, t model.Time) processed.RclcppTake {
	key := e.scoped(ctx, ev.Message)
	msg, ok := e.store.receivedMessages[key]
	if !ok {
		e.logger.Warn().Str("message", key.String()).Msg("user-lib take on message not previously seen (mid-trace start)")
		msg = model.NewSubscriptionMessage(ev.Message)
		msg.NotPreviouslySeen = true
	} else {
		delete(e.store.receivedMessages, key)
	}

	msg.Lock()
	_ = msg.RclcppTime.Set("SubscriptionMessage.RclcppTime", t)
	notPreviouslySeen := msg.NotPreviouslySeen
	msg.Unlock()

	if sub, state := msg.Subscriber.Get(); state == model.WeakPresent {
		sub.TakePending()
	}

	return processed.RclcppTake{Message: msg, NotPreviouslySeen: notPreviouslySeen}
}

// --- service / client / timer ---

func (e *Engine) serviceInit(ev rawevents.RclServiceInit, ctx rawevents.Context) processed.RclServiceInit {
	key := e.scoped(ctx, ev.ServiceHandle)
	svc, _ := createOrReuseService(e.store.servicesByRcl, key, &e.store.Reuse)
	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node := e.nodeOrStub(nodeKey, ev.ServiceName)
	svc.Lock()
	e.setKnown("Service.RclHandle", func() error { return svc.RclHandle.Set("Service.RclHandle", key) })
	e.setKnown("Service.Name", func() error { return svc.Name.Set("Service.Name", ev.ServiceName) })
	e.setKnown("Service.Node", func() error { return svc.Node.Set("Service.Node", node) })
	svc.Unlock()
	node.AddService(svc)
	return processed.RclServiceInit{Service: svc}
}

func (e *Engine) serviceCallbackAdded(ev rawevents.RclcppServiceCallbackAdded, ctx rawevents.Context) (processed.RclcppServiceCallbackAdded, error) {
	svcKey := e.scoped(ctx, ev.ServiceHandle)
	svc, ok := e.store.servicesByRcl[svcKey]
	if !ok {
		return processed.RclcppServiceCallbackAdded{}, &reconerr.MissingDependency{Handle: svcKey, Reason: "service not yet observed"}
	}
	cbKey := e.scoped(ctx, ev.Callback)
	caller := model.CallbackCaller{Kind: model.CallerService}
	_ = caller.Service.Set("CallbackCaller.Service", svc)
	cb := model.NewCallback(cbKey, caller)
	e.store.callbacksByID[cbKey] = cb
	return processed.RclcppServiceCallbackAdded{Callback: cb}, nil
}

func (e *Engine) clientInit(ev rawevents.RclClientInit, ctx rawevents.Context) processed.RclClientInit {
	key := e.scoped(ctx, ev.ClientHandle)
	cli, _ := createOrReuseClient(e.store.clientsByRcl, key, &e.store.Reuse)
	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node := e.nodeOrStub(nodeKey, ev.ServiceName)
	cli.Lock()
	e.setKnown("Client.RclHandle", func() error { return cli.RclHandle.Set("Client.RclHandle", key) })
	e.setKnown("Client.Name", func() error { return cli.Name.Set("Client.Name", ev.ServiceName) })
	e.setKnown("Client.Node", func() error { return cli.Node.Set("Client.Node", node) })
	cli.Unlock()
	node.AddClient(cli)
	return processed.RclClientInit{Client: cli}
}

func (e *Engine) timerInit(ev rawevents.RclTimerInit, ctx rawevents.Context) processed.RclTimerInit {
	key := e.scoped(ctx, ev.TimerHandle)
	timer, _ := createOrReuseTimer(e.store.timersByRcl, key, &e.store.Reuse)
	timer.Lock()
	e.setKnown("Timer.RclHandle", func() error { return timer.RclHandle.Set("Timer.RclHandle", key) })
	e.setKnown("Timer.Period", func() error { return timer.Period.Set("Timer.Period", model.Duration(ev.Period)) })
	timer.Unlock()
	return processed.RclTimerInit{Timer: timer}
}

func (e *Engine) timerCallbackAdded(ev rawevents.RclcppTimerCallbackAdded, ctx rawevents.Context) (processed.RclcppTimerCallbackAdded, error) {
	timerKey := e.scoped(ctx, ev.TimerHandle)
	timer, ok := e.store.timersByRcl[timerKey]
	if !ok {
		return processed.RclcppTimerCallbackAdded{}, &reconerr.MissingDependency{Handle: timerKey, Reason: "timer not yet observed"}
	}
	cbKey := e.scoped(ctx, ev.Callback)
	caller := model.CallbackCaller{Kind: model.CallerTimer}
	_ = caller.Timer.Set("CallbackCaller.Timer", timer)
	cb := model.NewCallback(cbKey, caller)
	e.store.callbacksByID[cbKey] = cb
	return processed.RclcppTimerCallbackAdded{Callback: cb}, nil
}

func (e *Engine) timerLinkNode(ev rawevents.RclcppTimerLinkNode, ctx rawevents.Context) (processed.RclcppTimerLinkNode, error) {
	timerKey := e.scoped(ctx, ev.TimerHandle)
	timer, ok := e.store.timersByRcl[timerKey]
	if !ok {
		return processed.RclcppTimerLinkNode{}, &reconerr.MissingDependency{Handle: timerKey, Reason: "timer not yet observed"}
	}
	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node := e.nodeOrStub(nodeKey, "")
	timer.Lock()
	e.setKnown("Timer.Node", func() error { return timer.Node.Set("Timer.Node", node) })
	timer.Unlock()
	node.AddTimer(timer)
	return processed.RclcppTimerLinkNode{Timer: timer}, nil
}

// --- callback lifecycle ---

func (e *Engine) callbackRegister(ev rawevents.RclcppCallbackRegister, ctx rawevents.Context, env *rawevents.Envelope) (processed.RclcppCallbackRegister, error) {
	key := e.scoped(ctx, ev.Callback)
	cb, ok := e.store.callbacksByID[key]
	if !ok {
		return processed.RclcppCallbackRegister{}, &reconerr.MissingDependency{Handle: key, Reason: "callback not yet observed"}
	}
	cb.Lock()
	e.setKnown("Callback.Symbol", func() error { return cb.Symbol.Set("Callback.Symbol", ev.Symbol) })
	cb.Unlock()
	return processed.RclcppCallbackRegister{Callback: cb}, nil
}

func (e *Engine) triggerFor(caller model.CallbackCaller) model.CallbackTrigger {
	switch caller.Kind {
	case model.CallerSubscription:
		if sub, state := caller.Subscriber.Get(); state == model.WeakPresent {
			msg := sub.TakePending()
			return model.CallbackTrigger{Kind: model.TriggerSubscription, Subscription: msg}
		}
	case model.CallerService:
		if svc, state := caller.Service.Get(); state == model.WeakPresent {
			return model.CallbackTrigger{Kind: model.TriggerService, Service: svc}
		}
	case model.CallerTimer:
		if timer, state := caller.Timer.Get(); state == model.WeakPresent {
			return model.CallbackTrigger{Kind: model.TriggerTimer, Timer: timer}
		}
	}
	return model.CallbackTrigger{Kind: model.TriggerUnknown}
}

func (e *Engine) callbackStart(ev rawevents.CallbackStart, ctx rawevents.Context, t model.Time, env *rawevents.Envelope) (processed.CallbackStart, error) {
	key := e.scoped(ctx, ev.Callback)
	cb, ok := e.store.callbacksByID[key]
	if !ok {
		return processed.CallbackStart{}, &reconerr.MissingDependency{Handle: key, Reason: "callback not yet observed"}
	}

	tk := threadKey{Scope: key.Scope, Tid: ctx.Tid}
	if prev, running := e.store.runningByThread[tk]; running {
		return processed.CallbackStart{}, &reconerr.InvariantViolation{
			Event: env.Payload, Timestamp: t, Context: ctx,
			Cause: &model.InvariantViolation{Reason: fmt.Sprintf(
				"callback_start of callback %d on tid=%d while callback %d is still running",
				key.Handle, ctx.Tid, prev.Handle.Handle)},
		}
	}

	cb.Lock()
	if cb.Running != nil {
		cb.Unlock()
		return processed.CallbackStart{}, &reconerr.InvariantViolation{
			Event: env.Payload, Timestamp: t, Context: ctx,
			Cause: &model.InvariantViolation{Reason: "callback_start while a previous instance is still running"},
		}
	}
	trigger := e.triggerFor(cb.Caller)
	instance := model.NewCallbackInstance(cb, t, trigger)
	cb.Running = instance
	cb.Unlock()
	e.store.runningByThread[tk] = cb
	return processed.CallbackStart{Instance: instance, IsIntraProcess: ev.IsIntraProcess}, nil
}

func (e *Engine) callbackEnd(ev rawevents.CallbackEnd, ctx rawevents.Context, t model.Time, env *rawevents.Envelope) (processed.CallbackEnd, error) {
	key := e.scoped(ctx, ev.Callback)
	cb, ok := e.store.callbacksByID[key]
	if !ok {
		return processed.CallbackEnd{}, &reconerr.MissingDependency{Handle: key, Reason: "callback not yet observed"}
	}
	cb.Lock()
	instance := cb.Running
	cb.Running = nil
	cb.Unlock()
	delete(e.store.runningByThread, threadKey{Scope: key.Scope, Tid: ctx.Tid})
	if instance == nil {
		return processed.CallbackEnd{}, &reconerr.InvariantViolation{
			Event: env.Payload, Timestamp: t, Context: ctx,
			Cause: &model.InvariantViolation{Reason: "callback_end with no running instance"},
		}
	}
	if err := instance.SetEnd(t); err != nil {
		if iv, ok := err.(*model.InvariantViolation); ok {
			return processed.CallbackEnd{}, &reconerr.InvariantViolation{Event: env.Payload, Timestamp: t, Context: ctx, Cause: iv}
		}
		e.logger.Debug().Err(err).Msg("callback end: benign repeated end ignored")
	}
	return processed.CallbackEnd{Instance: instance}, nil
}

// --- spin ---

func (e *Engine) spinStart(ev rawevents.SpinStart, ctx rawevents.Context, t model.Time) (processed.SpinStart, error) {
	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node := e.nodeOrStub(nodeKey, "")
	timeout := model.Duration(ev.TimeoutS)*model.Duration(1e9) + model.Duration(ev.TimeoutNs)

	node.Lock()
	if node.Spin != nil {
		if _, ended := node.Spin.End.Get(); !ended {
			node.Unlock()
			return processed.SpinStart{}, &reconerr.InvariantViolation{
				Cause: &model.InvariantViolation{Reason: "spin_start while a previous spin is still in flight"},
			}
		}
	}
	spin := model.NewSpinInstance(node, t, timeout)
	node.Spin = spin
	node.Unlock()
	return processed.SpinStart{Spin: spin}, nil
}

func (e *Engine) spinWake(ev rawevents.SpinWake, ctx rawevents.Context, t model.Time, env *rawevents.Envelope) (processed.SpinWake, error) {
	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node, ok := e.store.nodesByRcl[nodeKey]
	if !ok {
		return processed.SpinWake{}, &reconerr.MissingDependency{Handle: nodeKey, Reason: "node not yet observed"}
	}
	node.Lock()
	spin := node.Spin
	node.Unlock()
	if spin == nil {
		return processed.SpinWake{}, &reconerr.MissingDependency{Handle: nodeKey, Reason: "spin_wake with no active spin"}
	}
	if err := spin.SetWake(t); err != nil {
		if iv, ok := err.(*model.InvariantViolation); ok {
			return processed.SpinWake{}, &reconerr.InvariantViolation{Event: env.Payload, Timestamp: t, Context: ctx, Cause: iv}
		}
		// Repeated wake at the identical timestamp is benign; a differing
		// one is a RepeatedInitError, logged rather than treated as fatal.
		e.logger.Debug().Err(err).Msg("spin wake: repeated wake ignored")
	}
	return processed.SpinWake{Spin: spin}, nil
}

func (e *Engine) spinEnd(ev rawevents.SpinEnd, ctx rawevents.Context, t model.Time, env *rawevents.Envelope) (processed.SpinEnd, error) {
	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node, ok := e.store.nodesByRcl[nodeKey]
	if !ok {
		return processed.SpinEnd{}, &reconerr.MissingDependency{Handle: nodeKey, Reason: "node not yet observed"}
	}
	node.Lock()
	spin := node.Spin
	node.Unlock()
	if spin == nil {
		return processed.SpinEnd{}, &reconerr.MissingDependency{Handle: nodeKey, Reason: "spin_end with no active spin"}
	}
	if err := spin.SetEnd(t); err != nil {
		return processed.SpinEnd{}, &reconerr.InvariantViolation{Event: env.Payload, Timestamp: t, Context: ctx, Cause: err.(*model.InvariantViolation)}
	}
	return processed.SpinEnd{Spin: spin}, nil
}

func (e *Engine) spinTimeout(ev rawevents.SpinTimeout, ctx rawevents.Context, t model.Time, env *rawevents.Envelope) (processed.SpinTimeout, error) {
	nodeKey := e.scoped(ctx, ev.NodeHandle)
	node, ok := e.store.nodesByRcl[nodeKey]
	if !ok {
		return processed.SpinTimeout{}, &reconerr.MissingDependency{Handle: nodeKey, Reason: "node not yet observed"}
	}
	node.Lock()
	spin := node.Spin
	node.Unlock()
	if spin == nil {
		return processed.SpinTimeout{}, &reconerr.MissingDependency{Handle: nodeKey, Reason: "spin_timeout with no active spin"}
	}
	if err := spin.SetTimeout(t); err != nil {
		return processed.SpinTimeout{}, &reconerr.InvariantViolation{Event: env.Payload, Timestamp: t, Context: ctx, Cause: err.(*model.InvariantViolation)}
	}
	return processed.SpinTimeout{Spin: spin}, nil
}
