package model

import (
	"time"
)

// Site is one CMS installation using the relay. The token
// authenticates sdk requests from the CMS, the settings document
// holds the site's TrackingSettings as JSON.
type Site struct {
	ID   uint64 `gorm:"primary_key:true;" json:"id"`
	Name string `gorm:"not null;" json:"name"`
	// An index created on token.
	Token     string    `gorm:"size:32" json:"token"`
	Settings  string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrackingSettings decodes the site's stored settings document over
// the defaults.
func (site *Site) TrackingSettings() (*TrackingSettings, error) {
	return SettingsFromJSON([]byte(site.Settings))
}
