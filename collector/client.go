package collector

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	M "relaytrack/model"
	"relaytrack/track"
	U "relaytrack/util"
)

const LibraryName = "relaytrack"
const LibraryVersion = "1.2.0"

const DefaultBaseURL = "https://api.segment.io"
const requestTimeout = 10 * time.Second

// TransportError is a network level delivery failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("collector transport failure: %v", e.Err)
}

// RejectedError is a non-200 response from the collector.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("collector rejected event with status %d", e.StatusCode)
}

// Client delivers events to a Segment compatible collector over
// POST {base}/v1/{page|identify|track} with the site's write key as
// Basic auth username. Best effort, at most once: no retry, no
// backoff, no queueing.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type libraryContext struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type pageContext struct {
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

type eventContext struct {
	Library   libraryContext `json:"library"`
	Page      pageContext    `json:"page"`
	UserAgent string         `json:"userAgent,omitempty"`
	IP        string         `json:"ip,omitempty"`
}

// buildContext computes the context object fresh per event at send
// time. IP is omitted when anonymization is configured.
func buildContext(settings *M.TrackingSettings, reqCtx *track.RequestContext) *eventContext {
	context := &eventContext{
		Library: libraryContext{Name: LibraryName, Version: LibraryVersion},
	}

	if reqCtx == nil {
		return context
	}

	context.Page = pageContext{
		URL:      reqCtx.PageURL,
		Title:    reqCtx.PageTitle,
		Referrer: reqCtx.Referrer,
	}
	context.UserAgent = reqCtx.UserAgent

	if !settings.AnonymizeIP {
		context.IP = reqCtx.ClientIP
	}

	return context
}

// buildPayload assembles the final wire payload: the event's own
// fields plus timestamp, a fresh messageId and the context object.
func buildPayload(event *track.Event, settings *M.TrackingSettings,
	reqCtx *track.RequestContext) map[string]interface{} {

	payload := map[string]interface{}{}

	switch event.Kind {
	case track.EventKindPage:
		payload["properties"] = event.Properties
		if name, exists := event.Properties["name"]; exists {
			payload["name"] = name
		}
	case track.EventKindIdentify:
		payload["traits"] = event.Properties
	case track.EventKindTrack:
		payload["event"] = event.Name
		payload["properties"] = event.Properties
	}

	// Anonymous events carry no user id at all.
	if event.UserID != "" {
		payload["userId"] = event.UserID
	}

	payload["timestamp"] = U.TimeNowISO()
	payload["messageId"] = U.GetUUID()
	payload["context"] = buildContext(settings, reqCtx)

	return payload
}

func basicAuthHeader(writeKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(writeKey+":"))
}

// Send issues a single authenticated POST for the event. A nil error
// is success; failures are *TransportError or *RejectedError and are
// never retried.
func (client *Client) Send(eventType string, event *track.Event,
	settings *M.TrackingSettings, reqCtx *track.RequestContext) error {

	payload := buildPayload(event, settings, reqCtx)

	body, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Err: err}
	}

	url := fmt.Sprintf("%s/v1/%s", client.baseURL, eventType)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Authorization", basicAuthHeader(settings.WriteKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &RejectedError{StatusCode: resp.StatusCode}
	}

	if settings.DebugMode {
		log.WithFields(log.Fields{"event_type": eventType}).Debug(
			"Delivered event to collector.")
	}

	return nil
}
