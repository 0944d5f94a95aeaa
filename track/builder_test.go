package track

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	M "relaytrack/model"
	U "relaytrack/util"
)

func TestBuildPageSingular(t *testing.T) {
	settings := configuredSettings()

	event := BuildPage(&PageData{
		URL:      "https://shop.example.com/hello-world",
		Title:    "Hello World - Example Shop",
		Referrer: "https://www.google.com/",
		PageType: PageTypeSingular,
		PostName: "Hello World",
		Category: "News",
		Author:   "Jane Doe",
		Date:     "2024-03-01",
	}, settings)

	assert.Equal(t, EventKindPage, event.Kind)
	assert.Equal(t, "https://shop.example.com/hello-world", event.Properties["url"])
	assert.Equal(t, "Hello World", event.Properties["name"])
	assert.Equal(t, "News", event.Properties["category"])
	assert.Equal(t, "Jane Doe", event.Properties["author"])
}

func TestBuildPagePerType(t *testing.T) {
	settings := configuredSettings()

	event := BuildPage(&PageData{PageType: PageTypeSearch, SearchTerm: "red shoes"}, settings)
	assert.Equal(t, "Search Results", event.Properties["name"])
	assert.Equal(t, "red shoes", event.Properties["search_term"])

	event = BuildPage(&PageData{PageType: PageTypeNotFound}, settings)
	assert.Equal(t, "404 Not Found", event.Properties["name"])
	assert.Equal(t, "Error", event.Properties["category"])

	event = BuildPage(&PageData{PageType: PageTypeTag, TermName: "sale"}, settings)
	assert.Equal(t, "sale", event.Properties["name"])
	assert.Equal(t, "Tag", event.Properties["category"])
}

func TestBuildPageCustomPropertiesDoNotOverride(t *testing.T) {
	settings := configuredSettings()
	settings.CustomProperties = map[string]U.PropertiesMap{
		M.PropertyBucketPage: {"title": "overridden", "site_section": "blog"},
	}

	event := BuildPage(&PageData{URL: "https://shop.example.com/", Title: "Home"}, settings)

	// Computed fields win; configured properties only fill gaps.
	assert.Equal(t, "Home", event.Properties["title"])
	assert.Equal(t, "blog", event.Properties["site_section"])
}

func TestBuildPageGlobalBucketFallback(t *testing.T) {
	settings := configuredSettings()
	settings.CustomProperties = map[string]U.PropertiesMap{
		M.PropertyBucketGlobal: {"environment": "production"},
	}

	event := BuildPage(&PageData{URL: "https://shop.example.com/"}, settings)
	assert.Equal(t, "production", event.Properties["environment"])
}

func TestBuildIdentify(t *testing.T) {
	settings := configuredSettings()
	settings.CustomProperties = map[string]U.PropertiesMap{
		M.PropertyBucketIdentify: {"plan": "free"},
	}

	traits := U.PropertiesMap{"email": "jane@example.com", "username": "jane"}
	event, err := BuildIdentify("42", traits, settings)
	assert.Nil(t, err)
	assert.Equal(t, EventKindIdentify, event.Kind)
	assert.Equal(t, "42", event.UserID)
	assert.Equal(t, "jane@example.com", event.Properties["email"])
	assert.Equal(t, "free", event.Properties["plan"])

	// Builder copies, the caller's traits stay untouched.
	assert.NotContains(t, traits, "plan")

	_, err = BuildIdentify("", traits, settings)
	assert.Equal(t, ErrEmptyUserID, err)
}

func TestBuildTrackUserResolution(t *testing.T) {
	settings := configuredSettings()
	reqCtx := &RequestContext{UserID: "9", LoggedIn: true}

	// Explicit argument takes priority.
	event, err := BuildTrack("Order Completed", nil, "77", settings, reqCtx)
	assert.Nil(t, err)
	assert.Equal(t, "77", event.UserID)

	// Else the authenticated actor.
	event, err = BuildTrack("Order Completed", nil, "", settings, reqCtx)
	assert.Nil(t, err)
	assert.Equal(t, "9", event.UserID)

	// Else anonymous.
	event, err = BuildTrack("Order Completed", nil, "", settings,
		&RequestContext{UserID: "9", LoggedIn: false})
	assert.Nil(t, err)
	assert.Empty(t, event.UserID)

	_, err = BuildTrack("", nil, "", settings, reqCtx)
	assert.Equal(t, ErrEmptyEventName, err)
	_, err = BuildTrack("   ", nil, "", settings, reqCtx)
	assert.Equal(t, ErrEmptyEventName, err)
}

func TestBuildTrackDeterministic(t *testing.T) {
	settings := configuredSettings()
	properties := U.PropertiesMap{"value": 42, "currency": "USD"}

	first, err := BuildTrack("Order Completed", properties, "7", settings, nil)
	assert.Nil(t, err)
	second, err := BuildTrack("Order Completed", properties, "7", settings, nil)
	assert.Nil(t, err)

	// Identical inputs, identical events. messageId/timestamp are
	// assigned later, by the delivery channel.
	assert.True(t, reflect.DeepEqual(first, second))
}

func TestRenderStatementUnknownKind(t *testing.T) {
	_, err := RenderStatement(&Event{Kind: EventKind("bogus")})
	assert.NotNil(t, err)
}

func TestTrackEventClientRoundTrip(t *testing.T) {
	settings := configuredSettings()

	event, err := BuildTrack("Order Completed",
		U.PropertiesMap{"value": 42, "currency": "USD"}, "", settings, nil)
	assert.Nil(t, err)

	statement, err := RenderStatement(event)
	assert.Nil(t, err)
	assert.Contains(t, statement, `analytics.track("Order Completed",`)

	// No field loss through serialization.
	start := len(`analytics.track("Order Completed",`)
	encoded := statement[start : len(statement)-len(");")]
	var decoded map[string]interface{}
	assert.Nil(t, json.Unmarshal([]byte(encoded), &decoded))
	assert.Equal(t, float64(42), decoded["value"])
	assert.Equal(t, "USD", decoded["currency"])
	assert.Len(t, decoded, 2)
}
