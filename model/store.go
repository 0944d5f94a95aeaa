package model

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gomodule/redigo/redis"
	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"

	U "relaytrack/util"
)

const tokenGenRetryLimit = 5
const settingsCacheTTLSeconds = 300

// SiteStore is the persisted configuration store the tracking core
// reads from. Injected into handlers, never owned by the core.
type SiteStore interface {
	GetSiteByToken(token string) (*Site, int)
	CreateSite(site *Site) (*Site, int)
	UpdateSettings(siteID uint64, settings *TrackingSettings) int
}

// Store persists sites on MySQL through gorm with a read-through
// redis cache for settings documents.
type Store struct {
	db    *gorm.DB
	cache *redis.Pool
}

func NewStore(db *gorm.DB, cache *redis.Pool) *Store {
	return &Store{db: db, cache: cache}
}

func settingsCacheKey(token string) string {
	return fmt.Sprintf("rt:site:settings:%s", token)
}

func (store *Store) isTokenExist(token string) (bool, error) {
	var count uint64
	if err := store.db.Model(&Site{}).Where("token = ?", token).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (store *Store) generateUniqueToken() (string, error) {
	for tryCount := 0; tryCount < tokenGenRetryLimit; tryCount++ {
		token := U.RandomLowerAlphaNumString(32)
		exists, err := store.isTokenExist(token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}
	return "", fmt.Errorf("token generation failed after %d attempts", tokenGenRetryLimit)
}

func (store *Store) CreateSite(site *Site) (*Site, int) {
	if site.ID > 0 {
		log.Error("CreateSite failed. SiteId provided.")
		return nil, http.StatusBadRequest
	}

	token, err := store.generateUniqueToken()
	if err != nil {
		log.WithError(err).Error("CreateSite failed on token generation.")
		return nil, http.StatusInternalServerError
	}
	site.Token = token

	if site.Settings == "" {
		document, err := DefaultSettings().ToJSON()
		if err != nil {
			return nil, http.StatusInternalServerError
		}
		site.Settings = string(document)
	}

	if err := store.db.Create(site).Error; err != nil {
		log.WithFields(log.Fields{"site": site}).WithError(err).Error("CreateSite failed.")
		return nil, http.StatusInternalServerError
	}

	return site, http.StatusCreated
}

func (store *Store) GetSiteByToken(token string) (*Site, int) {
	cleanToken := strings.TrimSpace(token)
	if len(cleanToken) == 0 {
		return nil, http.StatusBadRequest
	}

	if site, found := store.getSiteFromCache(cleanToken); found {
		return site, http.StatusFound
	}

	var site Site
	if err := store.db.Where("token = ?", cleanToken).First(&site).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, http.StatusNotFound
		}
		return nil, http.StatusInternalServerError
	}

	store.addSiteToCache(&site)
	return &site, http.StatusFound
}

func (store *Store) UpdateSettings(siteID uint64, settings *TrackingSettings) int {
	if siteID == 0 {
		return http.StatusBadRequest
	}

	if err := settings.Validate(); err != nil {
		log.WithFields(log.Fields{"site_id": siteID}).WithError(err).Error(
			"UpdateSettings failed on validation.")
		return http.StatusBadRequest
	}

	document, err := settings.ToJSON()
	if err != nil {
		return http.StatusInternalServerError
	}

	var site Site
	if err := store.db.Where("id = ?", siteID).First(&site).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	}

	if err := store.db.Model(&site).Update("settings", string(document)).Error; err != nil {
		log.WithFields(log.Fields{"site_id": siteID}).WithError(err).Error(
			"UpdateSettings failed.")
		return http.StatusInternalServerError
	}

	store.removeSiteFromCache(site.Token)
	return http.StatusAccepted
}

func (store *Store) getSiteFromCache(token string) (*Site, bool) {
	if store.cache == nil {
		return nil, false
	}

	conn := store.cache.Get()
	defer conn.Close()

	values, err := redis.Values(conn.Do("HMGET", settingsCacheKey(token), "id", "name", "settings"))
	if err != nil || len(values) != 3 || values[0] == nil {
		return nil, false
	}

	var site Site
	if _, err := redis.Scan(values, &site.ID, &site.Name, &site.Settings); err != nil {
		return nil, false
	}
	site.Token = token

	return &site, true
}

func (store *Store) addSiteToCache(site *Site) {
	if store.cache == nil {
		return
	}

	conn := store.cache.Get()
	defer conn.Close()

	key := settingsCacheKey(site.Token)
	if _, err := conn.Do("HMSET", key, "id", site.ID, "name", site.Name,
		"settings", site.Settings); err != nil {
		log.WithError(err).Error("Failed to add site to settings cache.")
		return
	}
	if _, err := conn.Do("EXPIRE", key, settingsCacheTTLSeconds); err != nil {
		log.WithError(err).Error("Failed to set expiry on settings cache.")
	}
}

func (store *Store) removeSiteFromCache(token string) {
	if store.cache == nil {
		return
	}

	conn := store.cache.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", settingsCacheKey(token)); err != nil {
		log.WithError(err).Error("Failed to invalidate settings cache.")
	}
}

// InMemoryStore backs tests and single site deployments without a
// database.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID uint64
	sites  map[string]*Site
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, sites: map[string]*Site{}}
}

func (store *InMemoryStore) CreateSite(site *Site) (*Site, int) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if site.ID > 0 {
		return nil, http.StatusBadRequest
	}

	site.ID = store.nextID
	store.nextID++
	site.Token = U.RandomLowerAlphaNumString(32)

	if site.Settings == "" {
		document, err := DefaultSettings().ToJSON()
		if err != nil {
			return nil, http.StatusInternalServerError
		}
		site.Settings = string(document)
	}

	store.sites[site.Token] = site
	return site, http.StatusCreated
}

func (store *InMemoryStore) GetSiteByToken(token string) (*Site, int) {
	cleanToken := strings.TrimSpace(token)
	if len(cleanToken) == 0 {
		return nil, http.StatusBadRequest
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	site, exists := store.sites[cleanToken]
	if !exists {
		return nil, http.StatusNotFound
	}
	return site, http.StatusFound
}

func (store *InMemoryStore) UpdateSettings(siteID uint64, settings *TrackingSettings) int {
	if err := settings.Validate(); err != nil {
		return http.StatusBadRequest
	}

	document, err := settings.ToJSON()
	if err != nil {
		return http.StatusInternalServerError
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	for _, site := range store.sites {
		if site.ID == siteID {
			site.Settings = string(document)
			return http.StatusAccepted
		}
	}
	return http.StatusNotFound
}
