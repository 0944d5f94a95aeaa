package track

// Scope is the explicit request-scoped pipeline state: the request
// context snapshot and the ordered queue of events pending client
// side emission. One scope per CMS page render, flushed exactly once
// through Dispatcher.Finalize.
type Scope struct {
	Context *RequestContext

	pending   []*Event
	finalized bool
}

func NewScope(reqCtx *RequestContext) *Scope {
	return &Scope{Context: reqCtx, pending: make([]*Event, 0, 4)}
}

func (scope *Scope) enqueue(event *Event) {
	scope.pending = append(scope.pending, event)
}

// Pending returns the queued client side events in enqueue order.
func (scope *Scope) Pending() []*Event {
	return scope.pending
}

func (scope *Scope) Finalized() bool {
	return scope.finalized
}
