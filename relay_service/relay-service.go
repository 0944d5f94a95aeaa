package main

import (
	"flag"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"relaytrack/collector"
	C "relaytrack/config"
	H "relaytrack/handler"
	mid "relaytrack/middleware"
	M "relaytrack/model"
)

func main() {
	env := flag.String("env", "development", "")
	port := flag.Int("port", 8085, "")

	dbHost := flag.String("db_host", "localhost", "")
	dbPort := flag.Int("db_port", 3306, "")
	dbUser := flag.String("db_user", "relaytrack", "")
	dbName := flag.String("db_name", "relaytrack", "")
	dbPass := flag.String("db_pass", "relaytrack", "")
	disableDB := flag.Bool("disable_db", false,
		"Run on the in-memory site store. Development only.")

	redisHost := flag.String("redis_host", "", "")
	redisPort := flag.Int("redis_port", 6379, "")

	collectorURL := flag.String("collector_url", collector.DefaultBaseURL,
		"Base URL of the Segment compatible collector.")
	flag.Parse()

	config := &C.Configuration{
		AppName: "relay_service",
		Env:     *env,
		Port:    *port,
		DBInfo: C.DBConf{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Name:     *dbName,
			Password: *dbPass,
		},
		RedisHost:    *redisHost,
		RedisPort:    *redisPort,
		CollectorURL: *collectorURL,
		DisableDB:    *disableDB,
	}

	if err := C.InitConfig(config); err != nil {
		log.WithError(err).Fatal("Failed to initialize.")
		return
	}

	var store M.SiteStore
	if config.DisableDB {
		store = M.NewInMemoryStore()
	} else {
		db := C.GetServices().Db
		defer db.Close()

		if err := db.AutoMigrate(&M.Site{}).Error; err != nil {
			log.WithError(err).Fatal("Failed to migrate sites table.")
			return
		}
		store = M.NewStore(db, C.GetServices().Redis)
	}

	if !C.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mid.CustomCors())

	H.InitSDKRoutes(r, store, collector.NewClient(config.CollectorURL))

	log.WithFields(log.Fields{"port": *port}).Info("Starting relay service.")
	r.Run(":" + strconv.Itoa(*port))
}
