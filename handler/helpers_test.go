package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	M "relaytrack/model"
	"relaytrack/track"
)

func setupRouter(t *testing.T, sender track.Sender) (*gin.Engine, *M.InMemoryStore, *M.Site) {
	gin.SetMode(gin.TestMode)

	store := M.NewInMemoryStore()
	site, errCode := store.CreateSite(&M.Site{Name: "Example Shop"})
	assert.Equal(t, http.StatusCreated, errCode)

	settings := M.DefaultSettings()
	settings.WriteKey = "wk_test_1234"
	assert.Equal(t, http.StatusAccepted, store.UpdateSettings(site.ID, settings))

	r := gin.New()
	InitSDKRoutes(r, store, sender)
	return r, store, site
}

func updateSiteSettings(t *testing.T, store *M.InMemoryStore, site *M.Site,
	mutate func(settings *M.TrackingSettings)) {

	current, _ := store.GetSiteByToken(site.Token)
	settings, err := current.TrackingSettings()
	assert.Nil(t, err)
	mutate(settings)
	assert.Equal(t, http.StatusAccepted, store.UpdateSettings(site.ID, settings))
}

func servePostRequest(r *gin.Engine, uri string, body []byte,
	headers map[string]string) *httptest.ResponseRecorder {

	req, _ := http.NewRequest(http.MethodPost, uri, bytes.NewBuffer(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func serveGetRequest(r *gin.Engine, uri string,
	headers map[string]string) *httptest.ResponseRecorder {

	req, _ := http.NewRequest(http.MethodGet, uri, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func servePutRequest(r *gin.Engine, uri string, body []byte,
	headers map[string]string) *httptest.ResponseRecorder {

	req, _ := http.NewRequest(http.MethodPut, uri, bytes.NewBuffer(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSONResponseToMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func authHeaders(site *M.Site) map[string]string {
	return map[string]string{"Authorization": site.Token}
}
