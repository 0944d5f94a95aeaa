package handler

import (
	"github.com/gin-gonic/gin"

	mid "relaytrack/middleware"
	M "relaytrack/model"
	"relaytrack/track"
)

// InitSDKRoutes registers the sdk surface: trigger collection,
// single event endpoints and the site settings admin API. All
// routes except the status probe require a site token.
func InitSDKRoutes(r *gin.Engine, store M.SiteStore, sender track.Sender) {
	sdkDispatcher = track.NewDispatcher(sender)
	settingsStore = store

	r.GET("/sdk/service/status", StatusHandler)

	sdkRoutes := r.Group("/sdk")
	sdkRoutes.Use(mid.SetRequestID())
	sdkRoutes.Use(mid.SetScopeSiteByToken(store))

	sdkRoutes.POST("/collect", CollectHandler)
	sdkRoutes.POST("/event/track", TrackHandler)
	sdkRoutes.POST("/user/identify", IdentifyHandler)
	sdkRoutes.POST("/page", PageHandler)

	sdkRoutes.GET("/project/settings", GetSettingsHandler)
	sdkRoutes.PUT("/project/settings", UpdateSettingsHandler)
	sdkRoutes.POST("/project/settings/import", ImportSettingsHandler)
	sdkRoutes.GET("/project/settings/export", ExportSettingsHandler)
	sdkRoutes.POST("/project/settings/reset", ResetSettingsHandler)
}
