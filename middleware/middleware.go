package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	C "relaytrack/config"
	M "relaytrack/model"
	U "relaytrack/util"
)

// scope constants.
const SCOPE_SITE = "site"
const SCOPE_SETTINGS = "settings"
const SCOPE_REQUEST_ID = "requestId"

// cors prefix constants.
const PREFIX_PATH_SDK = "/sdk/"

// SetScopeSiteByToken - Request scope set by site token on the
// 'Authorization' header. The settings document is decoded once here
// and read only for the rest of the request.
func SetScopeSiteByToken(store M.SiteStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Request.Header.Get("Authorization"))
		if token == "" {
			errorMessage := "Missing authorization header"
			log.WithFields(log.Fields{"error": errorMessage}).Error("Request failed with auth failure.")
			c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]string{"error": errorMessage})
			return
		}

		site, errCode := store.GetSiteByToken(token)
		if errCode != http.StatusFound {
			errorMessage := "Invalid token"
			log.WithFields(log.Fields{"error": errorMessage}).Error("Request failed because of invalid token.")
			c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]string{"error": errorMessage})
			return
		}

		settings, err := site.TrackingSettings()
		if err != nil {
			log.WithFields(log.Fields{"site_id": site.ID}).WithError(err).Error(
				"Failed to decode site settings.")
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				map[string]string{"error": "Invalid site settings"})
			return
		}

		U.SetScope(c, SCOPE_SITE, site)
		U.SetScope(c, SCOPE_SETTINGS, settings)

		c.Next()
	}
}

// SetRequestID attaches a unique id to the request scope and the
// response for tracing.
func SetRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := xid.New().String()
		U.SetScope(c, SCOPE_REQUEST_ID, requestID)
		c.Writer.Header().Set("X-Request-Id", requestID)
		c.Next()
	}
}

// CustomCors for customised cors configuration based on conditions.
func CustomCors() gin.HandlerFunc {
	return func(c *gin.Context) {
		corsConfig := cors.DefaultConfig()

		if strings.HasPrefix(c.Request.URL.Path, PREFIX_PATH_SDK) {
			corsConfig.AllowAllOrigins = true
			corsConfig.AddAllowHeaders("Authorization")
		} else if C.IsDevelopment() {
			corsConfig.AllowOrigins = []string{"http://localhost:8080", "http://localhost:3000"}
		}

		cors.New(corsConfig)(c)
		c.Next()
	}
}

// GetScopeSite returns the authenticated site from the request scope.
func GetScopeSite(c *gin.Context) *M.Site {
	iface := U.GetScopeByKey(c, SCOPE_SITE)
	if iface == nil {
		return nil
	}
	return iface.(*M.Site)
}

// GetScopeSettings returns the site settings from the request scope.
func GetScopeSettings(c *gin.Context) *M.TrackingSettings {
	iface := U.GetScopeByKey(c, SCOPE_SETTINGS)
	if iface == nil {
		return nil
	}
	return iface.(*M.TrackingSettings)
}
