package util

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SetScope sets scope to the context with a key/value.
func SetScope(c *gin.Context, key string, value interface{}) {
	scopeValue, exists := c.Get("scopes")
	if !exists {
		// Initializes scope with the key and value.
		c.Set("scopes", map[string]interface{}{key: value})
		return
	}

	scopeValue.(map[string]interface{})[key] = value
}

// GetScopeByKey gets specific scope by key from scopes.
func GetScopeByKey(c *gin.Context, key string) interface{} {
	scopeValue, exists := c.Get("scopes")
	if exists {
		return scopeValue.(map[string]interface{})[key]
	}
	return nil
}

// GetClientIP - First public address on X-Forwarded-For,
// else the direct remote address.
func GetClientIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		for _, ip := range strings.Split(r.Header.Get(header), ",") {
			ip = strings.TrimSpace(ip)
			if ip == "" {
				continue
			}
			parsed := net.ParseIP(ip)
			if parsed != nil && !parsed.IsLoopback() && !parsed.IsPrivate() {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HasDNTHeader - Inbound Do-Not-Track signal on the original
// visitor request, forwarded by the CMS.
func HasDNTHeader(r *http.Request) bool {
	return r.Header.Get("DNT") == "1"
}
