package handler

import (
	"io/ioutil"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	mid "relaytrack/middleware"
	M "relaytrack/model"
)

type SettingsResponse struct {
	Settings *M.TrackingSettings `json:"settings,omitempty"`
	Message  string              `json:"message,omitempty"`
	Error    string              `json:"error,omitempty"`
}

var settingsStore M.SiteStore

// GetSettingsHandler returns the site's effective settings, defaults
// applied.
func GetSettingsHandler(c *gin.Context) {
	settings := mid.GetScopeSettings(c)
	c.JSON(http.StatusOK, SettingsResponse{Settings: settings})
}

// UpdateSettingsHandler replaces the site's settings document. The
// body is decoded over the defaults, so a partial document keeps
// default values for missing keys.
func UpdateSettingsHandler(c *gin.Context) {
	updateSettingsFromBody(c, "Settings updated.")
}

// ImportSettingsHandler accepts an exported settings document.
// Invalid JSON is a structured failure, never a crash.
func ImportSettingsHandler(c *gin.Context) {
	updateSettingsFromBody(c, "Settings imported.")
}

func updateSettingsFromBody(c *gin.Context, successMessage string) {
	site := mid.GetScopeSite(c)

	body, err := ioutil.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError,
			SettingsResponse{Error: "Failed to read settings document."})
		return
	}

	settings, err := M.SettingsFromJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest,
			SettingsResponse{Error: "Invalid JSON settings document."})
		return
	}

	if err := settings.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, SettingsResponse{Error: err.Error()})
		return
	}

	if errCode := settingsStore.UpdateSettings(site.ID, settings); errCode != http.StatusAccepted {
		log.WithFields(log.Fields{"site_id": site.ID, "err_code": errCode}).Error(
			"Failed to update site settings.")
		c.JSON(errCode, SettingsResponse{Error: "Failed to save settings."})
		return
	}

	c.JSON(http.StatusOK, SettingsResponse{Settings: settings, Message: successMessage})
}

// ExportSettingsHandler returns the raw settings document for
// download.
func ExportSettingsHandler(c *gin.Context) {
	settings := mid.GetScopeSettings(c)

	document, err := settings.ToJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError,
			SettingsResponse{Error: "Failed to serialize settings."})
		return
	}

	c.Data(http.StatusOK, "application/json", document)
}

// ResetSettingsHandler restores the documented defaults.
func ResetSettingsHandler(c *gin.Context) {
	site := mid.GetScopeSite(c)

	defaults := M.DefaultSettings()
	if errCode := settingsStore.UpdateSettings(site.ID, defaults); errCode != http.StatusAccepted {
		c.JSON(errCode, SettingsResponse{Error: "Failed to reset settings."})
		return
	}

	c.JSON(http.StatusOK, SettingsResponse{Settings: defaults, Message: "Settings reset."})
}
