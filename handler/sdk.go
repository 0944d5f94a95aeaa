package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	mid "relaytrack/middleware"
	"relaytrack/track"
	"relaytrack/trigger"
	U "relaytrack/util"
)

// ClientContextPayload is the request context snapshot the CMS
// forwards for the page render being processed.
type ClientContextPayload struct {
	UserID   string   `json:"user_id"`
	Roles    []string `json:"roles"`
	LoggedIn bool     `json:"logged_in"`

	PageID    int64  `json:"page_id"`
	PageURL   string `json:"page_url"`
	PageTitle string `json:"page_title"`
	Referrer  string `json:"referrer"`

	// Forwarded from the visitor's request when the CMS fronts it.
	UserAgent string `json:"user_agent"`
	ClientIP  string `json:"client_ip"`
	DNT       bool   `json:"dnt"`
}

type TriggerEnvelope struct {
	Type    trigger.Kind    `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type CollectPayload struct {
	Context  ClientContextPayload `json:"context"`
	Triggers []TriggerEnvelope    `json:"triggers"`
}

type CollectResponse struct {
	Snippet string           `json:"snippet,omitempty"`
	Results []trigger.Result `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type SDKTrackPayload struct {
	Name       string          `json:"event_name"`
	Properties U.PropertiesMap `json:"event_properties"`
	UserID     string          `json:"user_id"`

	Context ClientContextPayload `json:"context"`
}

type SDKIdentifyPayload struct {
	UserID string          `json:"user_id"`
	Traits U.PropertiesMap `json:"traits"`

	Context ClientContextPayload `json:"context"`
}

type SDKPagePayload struct {
	Page track.PageData `json:"page"`

	Context ClientContextPayload `json:"context"`
}

type SDKEventResponse struct {
	Snippet string `json:"snippet,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

const messageTrackingDisabled = "tracking_disabled"

var sdkDispatcher *track.Dispatcher

// requestContext merges the CMS supplied context with what is
// visible on the relay request itself.
func requestContext(c *gin.Context, payload *ClientContextPayload) *track.RequestContext {
	reqCtx := &track.RequestContext{
		UserID:    payload.UserID,
		Roles:     payload.Roles,
		LoggedIn:  payload.LoggedIn,
		PageID:    payload.PageID,
		PageURL:   payload.PageURL,
		PageTitle: payload.PageTitle,
		Referrer:  payload.Referrer,
		UserAgent: payload.UserAgent,
		ClientIP:  payload.ClientIP,
		DNT:       payload.DNT || U.HasDNTHeader(c.Request),
	}

	if reqCtx.UserAgent == "" {
		reqCtx.UserAgent = c.Request.UserAgent()
	}
	if reqCtx.ClientIP == "" {
		reqCtx.ClientIP = U.GetClientIP(c.Request)
	}

	return reqCtx
}

// CollectHandler processes all triggers of one CMS page render and
// returns the inline snippet for the response footer.
func CollectHandler(c *gin.Context) {
	var payload CollectPayload
	if err := json.NewDecoder(c.Request.Body).Decode(&payload); err != nil {
		c.JSON(http.StatusBadRequest, CollectResponse{Error: "Invalid collect payload."})
		return
	}

	settings := mid.GetScopeSettings(c)
	scope := track.NewScope(requestContext(c, &payload.Context))

	results := make([]trigger.Result, 0, len(payload.Triggers))
	for _, envelope := range payload.Triggers {
		result := trigger.Process(sdkDispatcher, scope, settings,
			envelope.Type, envelope.Payload)
		results = append(results, result)
	}

	c.JSON(http.StatusOK, CollectResponse{
		Snippet: sdkDispatcher.Finalize(scope),
		Results: results,
	})
}

// TrackHandler dispatches a single named event.
func TrackHandler(c *gin.Context) {
	var payload SDKTrackPayload
	if err := json.NewDecoder(c.Request.Body).Decode(&payload); err != nil {
		c.JSON(http.StatusBadRequest, SDKEventResponse{Error: "Invalid track payload."})
		return
	}

	settings := mid.GetScopeSettings(c)
	scope := track.NewScope(requestContext(c, &payload.Context))

	if !track.ShouldTrack(settings, scope.Context) {
		c.JSON(http.StatusOK, SDKEventResponse{Message: messageTrackingDisabled})
		return
	}

	event, err := track.BuildTrack(payload.Name, payload.Properties,
		payload.UserID, settings, scope.Context)
	if err != nil {
		c.JSON(http.StatusBadRequest, SDKEventResponse{Error: err.Error()})
		return
	}

	sdkDispatcher.Dispatch(scope, settings, event)
	c.JSON(http.StatusOK, SDKEventResponse{Snippet: sdkDispatcher.Finalize(scope)})
}

// IdentifyHandler dispatches a single identify event.
func IdentifyHandler(c *gin.Context) {
	var payload SDKIdentifyPayload
	if err := json.NewDecoder(c.Request.Body).Decode(&payload); err != nil {
		c.JSON(http.StatusBadRequest, SDKEventResponse{Error: "Invalid identify payload."})
		return
	}

	settings := mid.GetScopeSettings(c)
	scope := track.NewScope(requestContext(c, &payload.Context))

	if !track.ShouldTrack(settings, scope.Context) {
		c.JSON(http.StatusOK, SDKEventResponse{Message: messageTrackingDisabled})
		return
	}

	event, err := track.BuildIdentify(payload.UserID, payload.Traits, settings)
	if err != nil {
		c.JSON(http.StatusBadRequest, SDKEventResponse{Error: err.Error()})
		return
	}

	sdkDispatcher.Dispatch(scope, settings, event)
	c.JSON(http.StatusOK, SDKEventResponse{Snippet: sdkDispatcher.Finalize(scope)})
}

// PageHandler dispatches a single page view event.
func PageHandler(c *gin.Context) {
	var payload SDKPagePayload
	if err := json.NewDecoder(c.Request.Body).Decode(&payload); err != nil {
		c.JSON(http.StatusBadRequest, SDKEventResponse{Error: "Invalid page payload."})
		return
	}

	settings := mid.GetScopeSettings(c)
	scope := track.NewScope(requestContext(c, &payload.Context))

	if !track.ShouldTrack(settings, scope.Context) {
		c.JSON(http.StatusOK, SDKEventResponse{Message: messageTrackingDisabled})
		return
	}

	if !settings.TrackPageViews {
		c.JSON(http.StatusOK, SDKEventResponse{Message: "page_views_disabled"})
		return
	}

	sdkDispatcher.Dispatch(scope, settings, track.BuildPage(&payload.Page, settings))
	c.JSON(http.StatusOK, SDKEventResponse{Snippet: sdkDispatcher.Finalize(scope)})
}

// StatusHandler - Liveness endpoint.
func StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
