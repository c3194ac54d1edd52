// Package processed defines the reconstruction engine's output: one typed
// value per core event, carrying references to the domain objects it
// touched rather than raw handles. This is what pkg/analysis observers
// consume; once an analysis has seen a processed event it may retain
// shared-ownership handles into its own structures, but the engine never
// hands out anything else afterward.
package processed

import (
	"github.com/cuemby/traceanalyzer/pkg/model"
	"github.com/cuemby/traceanalyzer/pkg/rawevents"
)

// Event is implemented by every processed-event payload.
type Event interface {
	processedEvent()
}

// Envelope pairs a processed payload with the timestamp and context of the
// raw event it was derived from.
type Envelope struct {
	Timestamp model.Time
	Context   rawevents.Context
	Payload   Event
}

type RclNodeInit struct{ Node *model.Node }

func (RclNodeInit) processedEvent() {}

type RmwPublisherInit struct{ Publisher *model.Publisher }

func (RmwPublisherInit) processedEvent() {}

type RclPublisherInit struct{ Publisher *model.Publisher }

func (RclPublisherInit) processedEvent() {}

type RclcppPublish struct{ Message *model.PublicationMessage }

func (RclcppPublish) processedEvent() {}

type RclcppIntraPublish struct{ Message *model.PublicationMessage }

func (RclcppIntraPublish) processedEvent() {}

type RclPublish struct{ Message *model.PublicationMessage }

func (RclPublish) processedEvent() {}

// RmwPublish is the point at which a publication becomes correlatable (or
// is flagged Orphan); analyses that key off publish completion observe it
// here.
type RmwPublish struct{ Message *model.PublicationMessage }

func (RmwPublish) processedEvent() {}

type RmwSubscriptionInit struct{ Subscriber *model.Subscriber }

func (RmwSubscriptionInit) processedEvent() {}

type RclSubscriptionInit struct{ Subscriber *model.Subscriber }

func (RclSubscriptionInit) processedEvent() {}

type RclcppSubscriptionInit struct{ Subscriber *model.Subscriber }

func (RclcppSubscriptionInit) processedEvent() {}

type RclcppSubscriptionCallbackAdded struct{ Callback *model.Callback }

func (RclcppSubscriptionCallbackAdded) processedEvent() {}

// RmwTake carries the subscription message plus whether the rmw layer
// actually took it (taken=false means a message was polled but discarded
// by the middleware, e.g. a failed deserialization).
type RmwTake struct {
	Message *model.SubscriptionMessage
	Taken   bool
}

func (RmwTake) processedEvent() {}

type RclTake struct{ Message *model.SubscriptionMessage }

func (RclTake) processedEvent() {}

// RclcppTake is message latency's terminal event: once observed here the
// message's full cross-layer timestamp set is final.
type RclcppTake struct {
	Message *model.SubscriptionMessage
	// NotPreviouslySeen mirrors the domain object's flag for analyses that
	// want to exclude mid-trace-start fabrications from latency stats.
	NotPreviouslySeen bool
}

func (RclcppTake) processedEvent() {}

type RclServiceInit struct{ Service *model.Service }

func (RclServiceInit) processedEvent() {}

type RclcppServiceCallbackAdded struct{ Callback *model.Callback }

func (RclcppServiceCallbackAdded) processedEvent() {}

type RclClientInit struct{ Client *model.Client }

func (RclClientInit) processedEvent() {}

type RclTimerInit struct{ Timer *model.Timer }

func (RclTimerInit) processedEvent() {}

type RclcppTimerCallbackAdded struct{ Callback *model.Callback }

func (RclcppTimerCallbackAdded) processedEvent() {}

type RclcppTimerLinkNode struct{ Timer *model.Timer }

func (RclcppTimerLinkNode) processedEvent() {}

type RclcppCallbackRegister struct{ Callback *model.Callback }

func (RclcppCallbackRegister) processedEvent() {}

type CallbackStart struct {
	Instance       *model.CallbackInstance
	IsIntraProcess bool
}

func (CallbackStart) processedEvent() {}

// CallbackEnd carries the closed instance; Duration is always available
// since End was just set.
type CallbackEnd struct{ Instance *model.CallbackInstance }

func (CallbackEnd) processedEvent() {}

type SpinStart struct{ Spin *model.SpinInstance }

func (SpinStart) processedEvent() {}

type SpinWake struct{ Spin *model.SpinInstance }

func (SpinWake) processedEvent() {}

type SpinEnd struct{ Spin *model.SpinInstance }

func (SpinEnd) processedEvent() {}

type SpinTimeout struct{ Spin *model.SpinInstance }

func (SpinTimeout) processedEvent() {}
