package collector

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	M "relaytrack/model"
	"relaytrack/track"
	U "relaytrack/util"
)

func testSettings() *M.TrackingSettings {
	settings := M.DefaultSettings()
	settings.WriteKey = "wk_test_1234"
	settings.ServerSideSend = true
	return settings
}

func testRequestContext() *track.RequestContext {
	return &track.RequestContext{
		PageURL:   "https://shop.example.com/checkout",
		PageTitle: "Checkout",
		Referrer:  "https://shop.example.com/cart",
		UserAgent: "Mozilla/5.0",
		ClientIP:  "203.0.113.10",
	}
}

func TestSendTrackEvent(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	event := &track.Event{Kind: track.EventKindTrack, Name: "Order Completed",
		UserID: "7", Properties: U.PropertiesMap{"value": 42, "currency": "USD"}}

	err := client.Send("track", event, testSettings(), testRequestContext())
	assert.Nil(t, err)

	assert.Equal(t, "/v1/track", gotPath)
	expectedAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("wk_test_1234:"))
	assert.Equal(t, expectedAuth, gotAuth)
	assert.Equal(t, "application/json", gotContentType)

	assert.Equal(t, "Order Completed", gotBody["event"])
	assert.Equal(t, "7", gotBody["userId"])

	properties := gotBody["properties"].(map[string]interface{})
	assert.Equal(t, float64(42), properties["value"])
	assert.Equal(t, "USD", properties["currency"])

	// Assigned at dispatch time.
	assert.True(t, U.IsValidUUID(gotBody["messageId"].(string)))
	timestamp, err := time.Parse(time.RFC3339, gotBody["timestamp"].(string))
	assert.Nil(t, err)
	assert.WithinDuration(t, time.Now().UTC(), timestamp, time.Minute)

	context := gotBody["context"].(map[string]interface{})
	library := context["library"].(map[string]interface{})
	assert.Equal(t, LibraryName, library["name"])
	assert.Equal(t, LibraryVersion, library["version"])
	page := context["page"].(map[string]interface{})
	assert.Equal(t, "https://shop.example.com/checkout", page["url"])
	assert.Equal(t, "Mozilla/5.0", context["userAgent"])
	assert.Equal(t, "203.0.113.10", context["ip"])
}

func TestSendAnonymizesIP(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	settings := testSettings()
	settings.AnonymizeIP = true

	event := &track.Event{Kind: track.EventKindPage,
		Properties: U.PropertiesMap{"url": "https://shop.example.com/"}}
	err := NewClient(server.URL).Send("page", event, settings, testRequestContext())
	assert.Nil(t, err)

	context := gotBody["context"].(map[string]interface{})
	_, hasIP := context["ip"]
	assert.False(t, hasIP)

	// Anonymous page event carries no user id.
	_, hasUserID := gotBody["userId"]
	assert.False(t, hasUserID)
}

func TestSendIdentifyShape(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	event := &track.Event{Kind: track.EventKindIdentify, UserID: "42",
		Properties: U.PropertiesMap{"email": "jane@example.com"}}
	err := NewClient(server.URL).Send("identify", event, testSettings(), testRequestContext())
	assert.Nil(t, err)

	assert.Equal(t, "/v1/identify", gotPath)
	assert.Equal(t, "42", gotBody["userId"])
	traits := gotBody["traits"].(map[string]interface{})
	assert.Equal(t, "jane@example.com", traits["email"])
}

func TestSendRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	event := &track.Event{Kind: track.EventKindTrack, Name: "Order Completed"}
	err := NewClient(server.URL).Send("track", event, testSettings(), testRequestContext())

	rejected, ok := err.(*RejectedError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, rejected.StatusCode)
}

func TestSendTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // unreachable endpoint

	event := &track.Event{Kind: track.EventKindTrack, Name: "Order Completed"}
	err := NewClient(server.URL).Send("track", event, testSettings(), testRequestContext())

	_, ok := err.(*TransportError)
	assert.True(t, ok)
}

func TestFreshMessageIDPerSend(t *testing.T) {
	var messageIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&body))
		messageIDs = append(messageIDs, body["messageId"].(string))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	event := &track.Event{Kind: track.EventKindTrack, Name: "Order Completed", UserID: "7"}

	assert.Nil(t, client.Send("track", event, testSettings(), testRequestContext()))
	assert.Nil(t, client.Send("track", event, testSettings(), testRequestContext()))

	assert.Len(t, messageIDs, 2)
	assert.NotEqual(t, messageIDs[0], messageIDs[1])
}
