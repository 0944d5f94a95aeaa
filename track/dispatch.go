package track

import (
	log "github.com/sirupsen/logrus"

	M "relaytrack/model"
)

// Sender is the server side delivery channel. Implemented by the
// collector client.
type Sender interface {
	Send(eventType string, event *Event, settings *M.TrackingSettings,
		reqCtx *RequestContext) error
}

// Dispatcher routes built events to the client side queue and,
// when enabled, to the server side delivery channel. The two
// channels are independent: a server side failure never retracts
// the client side entry.
type Dispatcher struct {
	sender Sender
}

func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Dispatch enqueues the event for client side emission and sends it
// through the delivery channel when server side tracking is on.
// Delivery failures are contained here; at most logged when the
// site's debug mode is set.
func (dispatcher *Dispatcher) Dispatch(scope *Scope, settings *M.TrackingSettings,
	event *Event) {

	if scope == nil || event == nil {
		return
	}

	scope.enqueue(event)

	if !settings.ServerSideSend || dispatcher.sender == nil {
		return
	}

	if err := dispatcher.sender.Send(string(event.Kind), event, settings,
		scope.Context); err != nil {

		if settings.DebugMode {
			log.WithFields(log.Fields{"event_type": event.Kind,
				"event_name": event.Name}).WithError(err).Error(
				"Server side delivery failed.")
		}
	}
}

// Finalize renders the whole queue into the inline snippet, once.
// Later calls return an empty snippet.
func (dispatcher *Dispatcher) Finalize(scope *Scope) string {
	if scope == nil || scope.finalized {
		return ""
	}
	scope.finalized = true

	return RenderSnippet(scope.pending)
}
