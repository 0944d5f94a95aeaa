package model

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	U "relaytrack/util"
)

// Custom property buckets by event kind. The global bucket is used
// when no kind specific bucket is configured.
const (
	PropertyBucketPage     = "page"
	PropertyBucketIdentify = "identify"
	PropertyBucketTrack    = "track"
	PropertyBucketGlobal   = "global"
)

// TrackingSettings is the per site tracking configuration document.
// Loaded once per request through the settings store and read only
// to the tracking core after that.
type TrackingSettings struct {
	Enabled   bool   `json:"enabled"`
	WriteKey  string `json:"write_key"`
	DebugMode bool   `json:"debug_mode"`

	TrackUserEvents      bool `json:"track_user_events"`
	TrackPageViews       bool `json:"track_page_views"`
	TrackFormSubmissions bool `json:"track_form_submissions"`

	AnonymizeIP    bool `json:"anonymize_ip"`
	RespectDNT     bool `json:"respect_dnt"`
	CookieConsent  bool `json:"cookie_consent"`
	ServerSideSend bool `json:"server_side_tracking"`

	// Commerce events.
	CommerceEnabled      bool `json:"commerce_enabled"`
	TrackProductViewed   bool `json:"track_product_viewed"`
	TrackProductAdded    bool `json:"track_product_added"`
	TrackProductRemoved  bool `json:"track_product_removed"`
	TrackCartViewed      bool `json:"track_cart_viewed"`
	TrackCheckoutStarted bool `json:"track_checkout_started"`
	TrackOrderCompleted  bool `json:"track_order_completed"`
	TrackOrderUpdated    bool `json:"track_order_updated"`
	TrackOrderRefunded   bool `json:"track_order_refunded"`
	TrackOrderCancelled  bool `json:"track_order_cancelled"`
	TrackCouponEvents    bool `json:"track_coupon_events"`
	TrackProductSearches bool `json:"track_product_searches"`
	TrackProductLists    bool `json:"track_product_lists"`

	ExcludeUserRoles []string `json:"exclude_user_roles"`
	ExcludePages     []int64  `json:"exclude_pages"`
	CustomEvents     []string `json:"custom_events"`

	// Configured properties appended to built events, keyed by bucket.
	CustomProperties map[string]U.PropertiesMap `json:"custom_properties"`
}

// DefaultSettings - Documented defaults, applied before any stored
// document is read over them.
func DefaultSettings() *TrackingSettings {
	return &TrackingSettings{
		Enabled:   true,
		WriteKey:  "",
		DebugMode: false,

		TrackUserEvents:      true,
		TrackPageViews:       true,
		TrackFormSubmissions: false,

		AnonymizeIP:    false,
		RespectDNT:     true,
		CookieConsent:  false,
		ServerSideSend: false,

		CommerceEnabled:      true,
		TrackProductViewed:   true,
		TrackProductAdded:    true,
		TrackProductRemoved:  true,
		TrackCartViewed:      true,
		TrackCheckoutStarted: true,
		TrackOrderCompleted:  true,
		TrackOrderUpdated:    true,
		TrackOrderRefunded:   true,
		TrackOrderCancelled:  true,
		TrackCouponEvents:    true,
		TrackProductSearches: true,
		TrackProductLists:    true,

		ExcludeUserRoles: []string{},
		ExcludePages:     []int64{},
		CustomEvents:     []string{},
		CustomProperties: map[string]U.PropertiesMap{},
	}
}

// SettingsFromJSON decodes a stored settings document over the
// defaults, so missing keys keep their default value.
func SettingsFromJSON(document []byte) (*TrackingSettings, error) {
	settings := DefaultSettings()
	if len(document) == 0 {
		return settings, nil
	}

	if err := json.Unmarshal(document, settings); err != nil {
		return nil, errors.Wrap(err, "invalid settings document")
	}
	return settings, nil
}

func (s *TrackingSettings) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// IsConfigured - Tracking requires a write key and the enabled flag.
func (s *TrackingSettings) IsConfigured() bool {
	return strings.TrimSpace(s.WriteKey) != "" && s.Enabled
}

// GetCustomProperties returns the configured bucket for the event
// kind, falling back to the global bucket.
func (s *TrackingSettings) GetCustomProperties(bucket string) U.PropertiesMap {
	if s.CustomProperties == nil {
		return nil
	}
	if properties, exists := s.CustomProperties[bucket]; exists {
		return properties
	}
	return s.CustomProperties[PropertyBucketGlobal]
}

// IsCustomEventAllowed - Explicit custom events are tracked only when
// allow listed. An empty list allows nothing.
func (s *TrackingSettings) IsCustomEventAllowed(name string) bool {
	return U.StringValueIn(name, s.CustomEvents)
}

// Validate normalizes the settings in place and reports the first
// problem found. Used on every admin save and import.
func (s *TrackingSettings) Validate() error {
	s.WriteKey = strings.TrimSpace(s.WriteKey)

	for i := range s.ExcludeUserRoles {
		s.ExcludeUserRoles[i] = U.TrimAndLower(s.ExcludeUserRoles[i])
	}

	for i := range s.CustomEvents {
		s.CustomEvents[i] = strings.TrimSpace(s.CustomEvents[i])
		if s.CustomEvents[i] == "" {
			return errors.New("custom_events must not contain empty names")
		}
	}

	for bucket, properties := range s.CustomProperties {
		if bucket != PropertyBucketPage && bucket != PropertyBucketIdentify &&
			bucket != PropertyBucketTrack && bucket != PropertyBucketGlobal {
			return errors.Errorf("unknown custom property bucket: %s", bucket)
		}

		for key, value := range properties {
			if strings.TrimSpace(key) == "" {
				return errors.Errorf("empty custom property key on bucket %s", bucket)
			}
			if !U.IsScalar(value) {
				return errors.Errorf("custom property %s.%s must be a scalar", bucket, key)
			}
		}
	}

	return nil
}
