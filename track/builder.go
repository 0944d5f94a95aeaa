package track

import (
	"strings"

	"github.com/pkg/errors"

	M "relaytrack/model"
	U "relaytrack/util"
)

// Page types the CMS reports for page view events.
const (
	PageTypeSingular = "singular"
	PageTypeCategory = "category"
	PageTypeTag      = "tag"
	PageTypeSearch   = "search"
	PageTypeNotFound = "not_found"
)

var ErrEmptyEventName = errors.New("track event requires a non-empty name")
var ErrEmptyUserID = errors.New("identify event requires a user id")

// PageData carries the page descriptors extracted by the CMS for the
// current render.
type PageData struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Referrer string `json:"referrer"`

	PageType string `json:"page_type"`

	// Singular content fields.
	PostName string `json:"post_name"`
	Category string `json:"category"`
	Author   string `json:"author"`
	Date     string `json:"date"`

	// Taxonomy archive name.
	TermName string `json:"term_name"`

	SearchTerm string `json:"search_term"`
}

// BuildPage shapes a page event from the computed page descriptors
// and the configured page property bucket. Computed fields always win
// over configured custom properties.
func BuildPage(data *PageData, settings *M.TrackingSettings) *Event {
	properties := U.PropertiesMap{
		"url":      data.URL,
		"title":    data.Title,
		"referrer": data.Referrer,
	}

	switch data.PageType {
	case PageTypeSingular:
		properties["name"] = data.PostName
		properties["category"] = data.Category
		properties["author"] = data.Author
		properties["date"] = data.Date
	case PageTypeCategory:
		properties["name"] = data.TermName
		properties["category"] = "Category"
	case PageTypeTag:
		properties["name"] = data.TermName
		properties["category"] = "Tag"
	case PageTypeSearch:
		properties["name"] = "Search Results"
		properties["search_term"] = data.SearchTerm
	case PageTypeNotFound:
		properties["name"] = "404 Not Found"
		properties["category"] = "Error"
	}

	U.FillMissingProperties(&properties, settings.GetCustomProperties(M.PropertyBucketPage))

	return &Event{Kind: EventKindPage, Properties: properties}
}

// BuildIdentify shapes an identify event from the actor's traits and
// the configured identify property bucket.
func BuildIdentify(userID string, traits U.PropertiesMap,
	settings *M.TrackingSettings) (*Event, error) {

	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}

	mergedTraits := U.CopyProperties(traits)
	U.FillMissingProperties(&mergedTraits, settings.GetCustomProperties(M.PropertyBucketIdentify))

	return &Event{Kind: EventKindIdentify, UserID: userID, Properties: mergedTraits}, nil
}

// BuildTrack shapes a named track event. The explicit user id wins,
// else the authenticated actor of the request, else the event stays
// anonymous.
func BuildTrack(name string, properties U.PropertiesMap, explicitUserID string,
	settings *M.TrackingSettings, reqCtx *RequestContext) (*Event, error) {

	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyEventName
	}

	userID := explicitUserID
	if userID == "" && reqCtx != nil && reqCtx.LoggedIn {
		userID = reqCtx.UserID
	}

	mergedProperties := U.CopyProperties(properties)
	U.FillMissingProperties(&mergedProperties, settings.GetCustomProperties(M.PropertyBucketTrack))

	return &Event{Kind: EventKindTrack, Name: name, UserID: userID,
		Properties: mergedProperties}, nil
}
