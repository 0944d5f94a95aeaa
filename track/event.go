package track

import (
	U "relaytrack/util"
)

type EventKind string

// Event kinds map 1:1 to the collector endpoints and the client
// analytics object's methods.
const (
	EventKindPage     EventKind = "page"
	EventKindIdentify EventKind = "identify"
	EventKindTrack    EventKind = "track"
)

// Event is the canonical record built per trigger. Immutable after
// dispatch, never persisted. Timestamp and messageId are assigned by
// the server side delivery channel, not here.
type Event struct {
	Kind EventKind
	// Name is required for track events.
	Name   string
	UserID string
	// Properties holds traits for identify events.
	Properties U.PropertiesMap
}

// RequestContext is the per request snapshot the pipeline runs
// against. All fields are externally supplied by the CMS request.
type RequestContext struct {
	UserID   string
	Roles    []string
	LoggedIn bool

	PageID    int64
	PageURL   string
	PageTitle string
	Referrer  string

	UserAgent string
	ClientIP  string
	DNT       bool
}
