package trigger

import (
	"encoding/json"

	"github.com/pkg/errors"

	M "relaytrack/model"
	"relaytrack/track"
	U "relaytrack/util"
)

// Kind names a typed trigger the CMS can raise. Each kind has a
// registered definition instead of stringly hook names.
type Kind string

const (
	KindPageView         Kind = "page_view"
	KindUserLogin        Kind = "user_login"
	KindUserRegistration Kind = "user_registration"
	KindFormSubmitted    Kind = "form_submitted"
	KindCustomEvent      Kind = "custom_event"

	KindProductViewed     Kind = "product_viewed"
	KindProductAdded      Kind = "product_added"
	KindProductRemoved    Kind = "product_removed"
	KindCartViewed        Kind = "cart_viewed"
	KindCheckoutStarted   Kind = "checkout_started"
	KindOrderCompleted    Kind = "order_completed"
	KindOrderUpdated      Kind = "order_updated"
	KindOrderRefunded     Kind = "order_refunded"
	KindOrderCancelled    Kind = "order_cancelled"
	KindCouponApplied     Kind = "coupon_applied"
	KindCouponRemoved     Kind = "coupon_removed"
	KindProductSearch     Kind = "product_search"
	KindProductListViewed Kind = "product_list_viewed"
)

// Per trigger processing outcomes. Suppression is a normal outcome,
// not an error.
const (
	StatusDispatched = "dispatched"
	StatusSuppressed = "suppressed"
	StatusDisabled   = "disabled"
	StatusFailed     = "failed"
	StatusUnknown    = "unknown_trigger"
)

type Result struct {
	Trigger Kind   `json:"trigger"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type definition struct {
	enabled func(settings *M.TrackingSettings) bool
	build   func(raw json.RawMessage, settings *M.TrackingSettings,
		reqCtx *track.RequestContext) ([]*track.Event, error)
}

var registry = map[Kind]definition{}

func register(kind Kind, def definition) {
	registry[kind] = def
}

// Process runs one trigger through the pipeline: gate, per kind
// enable flag, builder, dispatcher. The gate is re-evaluated per
// trigger, not cached across the request.
func Process(dispatcher *track.Dispatcher, scope *track.Scope,
	settings *M.TrackingSettings, kind Kind, raw json.RawMessage) Result {

	def, exists := registry[kind]
	if !exists {
		return Result{Trigger: kind, Status: StatusUnknown}
	}

	if !track.ShouldTrack(settings, scope.Context) {
		return Result{Trigger: kind, Status: StatusSuppressed}
	}

	if !def.enabled(settings) {
		return Result{Trigger: kind, Status: StatusDisabled}
	}

	events, err := def.build(raw, settings, scope.Context)
	if err != nil {
		return Result{Trigger: kind, Status: StatusFailed, Error: err.Error()}
	}

	for _, event := range events {
		dispatcher.Dispatch(scope, settings, event)
	}

	return Result{Trigger: kind, Status: StatusDispatched}
}

// Kinds returns the registered trigger kinds.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	return kinds
}

// UserPayload carries the actor fields the CMS extracts for login
// and registration triggers.
type UserPayload struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (payload *UserPayload) traits() U.PropertiesMap {
	return U.PropertiesMap{
		"email":     payload.Email,
		"username":  payload.Username,
		"firstName": payload.FirstName,
		"lastName":  payload.LastName,
	}
}

// FormPayload carries the fields the CMS extracts from a submitted
// form.
type FormPayload struct {
	FormID   string `json:"form_id"`
	FormName string `json:"form_name"`
	PageURL  string `json:"page_url"`
}

// CustomEventPayload is an explicit track call raised by the CMS.
// The event name must be on the site's custom event allow list.
type CustomEventPayload struct {
	Name       string          `json:"event_name"`
	Properties U.PropertiesMap `json:"event_properties"`
	UserID     string          `json:"user_id"`
}

func init() {
	register(KindPageView, definition{
		enabled: func(settings *M.TrackingSettings) bool { return settings.TrackPageViews },
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var data track.PageData
			if err := json.Unmarshal(raw, &data); err != nil {
				return nil, errors.Wrap(err, "invalid page_view payload")
			}
			return []*track.Event{track.BuildPage(&data, settings)}, nil
		},
	})

	register(KindUserLogin, definition{
		enabled: func(settings *M.TrackingSettings) bool { return settings.TrackUserEvents },
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload UserPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrap(err, "invalid user_login payload")
			}

			identify, err := track.BuildIdentify(payload.UserID, payload.traits(), settings)
			if err != nil {
				return nil, err
			}

			loggedIn, err := track.BuildTrack("User Logged In",
				U.PropertiesMap{"username": payload.Username},
				payload.UserID, settings, reqCtx)
			if err != nil {
				return nil, err
			}

			return []*track.Event{identify, loggedIn}, nil
		},
	})

	register(KindUserRegistration, definition{
		enabled: func(settings *M.TrackingSettings) bool { return settings.TrackUserEvents },
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload UserPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrap(err, "invalid user_registration payload")
			}

			identify, err := track.BuildIdentify(payload.UserID, payload.traits(), settings)
			if err != nil {
				return nil, err
			}

			registered, err := track.BuildTrack("User Registered",
				U.PropertiesMap{"username": payload.Username, "email": payload.Email},
				payload.UserID, settings, reqCtx)
			if err != nil {
				return nil, err
			}

			return []*track.Event{identify, registered}, nil
		},
	})

	register(KindFormSubmitted, definition{
		enabled: func(settings *M.TrackingSettings) bool { return settings.TrackFormSubmissions },
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload FormPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrap(err, "invalid form_submitted payload")
			}
			if payload.FormID == "" {
				return nil, errors.New("form_submitted requires a form_id")
			}

			event, err := track.BuildTrack("Form Submitted",
				U.PropertiesMap{"form_id": payload.FormID, "form_name": payload.FormName,
					"url": payload.PageURL}, "", settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})

	register(KindCustomEvent, definition{
		enabled: func(settings *M.TrackingSettings) bool { return true },
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload CustomEventPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrap(err, "invalid custom_event payload")
			}

			if !settings.IsCustomEventAllowed(payload.Name) {
				return nil, errors.Errorf("custom event not allowed: %s", payload.Name)
			}

			event, err := track.BuildTrack(payload.Name, payload.Properties,
				payload.UserID, settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})
}
