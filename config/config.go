package config

import (
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	U "relaytrack/util"
)

const DEVELOPMENT = "development"

// Environment variable prefix for overrides, e.g
// RELAYTRACK_COLLECTOR_URL.
const envPrefix = "relaytrack"

type DBConf struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type Configuration struct {
	AppName      string `ignored:"true"`
	Env          string `split_words:"true"`
	Port         int    `split_words:"true"`
	DBInfo       DBConf `ignored:"true"`
	RedisHost    string `split_words:"true"`
	RedisPort    int    `split_words:"true"`
	CollectorURL string `split_words:"true"`
	// DisableDB runs the relay on the in-memory site store. Single
	// site setups and tests.
	DisableDB bool `split_words:"true"`
	// ErrorNotifier receives error level log entries for external
	// reporting. Optional.
	ErrorNotifier U.Notifier `ignored:"true"`
}

type Services struct {
	Db    *gorm.DB
	Redis *redis.Pool
}

var configuration *Configuration
var services *Services = &Services{}

func initLogging(config *Configuration) {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	if IsDevelopment() {
		log.SetLevel(log.DebugLevel)
	}

	if config.ErrorNotifier != nil {
		log.AddHook(&U.Hook{N: config.ErrorNotifier})
	}
}

// overrideFromEnv applies RELAYTRACK_* environment variables over
// the flag provided configuration.
func overrideFromEnv(config *Configuration) error {
	return envconfig.Process(envPrefix, config)
}

func initDB(config *Configuration) error {
	dbInfo := config.DBInfo
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbInfo.User, dbInfo.Password, dbInfo.Host, dbInfo.Port, dbInfo.Name)

	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return errors.Wrap(err, "failed to connect to db")
	}

	if IsDevelopment() {
		db.LogMode(true)
	}

	services.Db = db
	return nil
}

func initRedis(config *Configuration) {
	if config.RedisHost == "" {
		return
	}

	services.Redis = &redis.Pool{
		MaxIdle:     20,
		MaxActive:   50,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp",
				fmt.Sprintf("%s:%d", config.RedisHost, config.RedisPort))
		},
	}
}

// InitConfig initializes logging and the shared services from the
// given configuration. Call once from main.
func InitConfig(config *Configuration) error {
	if err := overrideFromEnv(config); err != nil {
		return errors.Wrap(err, "failed to read environment overrides")
	}

	configuration = config
	initLogging(config)

	if !config.DisableDB {
		if err := initDB(config); err != nil {
			return err
		}
	}
	initRedis(config)

	return nil
}

func GetConfig() *Configuration {
	return configuration
}

func GetServices() *Services {
	return services
}

func IsDevelopment() bool {
	return configuration == nil || configuration.Env == DEVELOPMENT
}
