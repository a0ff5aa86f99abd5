// Package config loads simulator settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every setting the fleet simulator and the renter need.
type Config struct {
	Store      StoreConfig
	Simulation SimulationConfig
	Routing    RoutingConfig
	Log        LogConfig
	Events     EventsConfig
	HTTP       HTTPConfig
	Renter     RenterConfig
}

type StoreConfig struct {
	Backend            string // "mongo" or "memory"
	URI                string
	Database           string
	Collection         string
	CustomerCollection string
	Timeout            time.Duration
}

type SimulationConfig struct {
	TickInterval        time.Duration
	PollInterval        time.Duration
	ReportInterval      time.Duration
	DepletionRate       float64
	ChargeRate          float64
	LowBatteryThreshold float64
	RoutePadding        int
	MinLat              float64
	MaxLat              float64
	MinLon              float64
	MaxLon              float64
	City                string
	NumberOfUnits       int
}

type RoutingConfig struct {
	Provider    string // "geoapify" or "osrm"
	GeoapifyKey string
	GeoapifyURL string
	OSRMURL     string
	Mode        string
	Timeout     time.Duration
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxAgeDays int
}

type EventsConfig struct {
	Broker        string // "none", "mqtt" or "nats"
	MQTTBrokerURL string
	MQTTClientID  string
	TopicPrefix   string // MQTT topic / NATS subject prefix
	NATSURL       string
}

type HTTPConfig struct {
	Port        string
	JWTSecret   string
	TokenExpiry time.Duration
}

type RenterConfig struct {
	APIURL        string
	APIKey        string
	Email         string
	Password      string
	WatchInterval time.Duration
	MinBalance    float64
}

// Load reads .env (if any) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:            getEnv("STORE_BACKEND", "mongo"),
			URI:                getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:           getEnv("MONGO_DB", "spark-rentals"),
			Collection:         getEnv("MONGO_COLLECTION", "scooters"),
			CustomerCollection: getEnv("MONGO_CUSTOMER_COLLECTION", "users"),
			Timeout:            getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		},
		Simulation: SimulationConfig{
			TickInterval:        getEnvDuration("TICK_INTERVAL", time.Second),
			PollInterval:        getEnvDuration("POLL_INTERVAL", 20*time.Second),
			ReportInterval:      getEnvDuration("REPORT_INTERVAL", 10*time.Second),
			DepletionRate:       getEnvFloat("BATTERY_DEPLETION_RATE", 0.01),
			ChargeRate:          getEnvFloat("BATTERY_CHARGE_RATE", 0.5),
			LowBatteryThreshold: getEnvFloat("LOW_BATTERY_THRESHOLD", 10),
			RoutePadding:        getEnvInt("SIMULATION_ROUTE_PADDING", 10),
			MinLat:              getEnvFloat("SIMULATION_MIN_LAT", 56.155),
			MaxLat:              getEnvFloat("SIMULATION_MAX_LAT", 56.190),
			MinLon:              getEnvFloat("SIMULATION_MIN_LON", 15.555),
			MaxLon:              getEnvFloat("SIMULATION_MAX_LON", 15.620),
			City:                getEnv("SIMULATION_CITY", "Karlskrona"),
			NumberOfUnits:       getEnvInt("NUMBER_OF_UNITS", 0),
		},
		Routing: RoutingConfig{
			Provider:    getEnv("ROUTING_PROVIDER", "geoapify"),
			GeoapifyKey: os.Getenv("GEOAPIFY_KEY"),
			GeoapifyURL: getEnv("GEOAPIFY_URL", "https://api.geoapify.com"),
			OSRMURL:     getEnv("OSRM_URL", "https://router.project-osrm.org"),
			Mode:        getEnv("ROUTING_MODE", "walk"),
			Timeout:     getEnvDuration("ROUTING_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "INFO"),
			FilePath:   os.Getenv("LOG_FILE"),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		},
		Events: EventsConfig{
			Broker:        getEnv("EVENTS_BROKER", "none"),
			MQTTBrokerURL: getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
			MQTTClientID:  getEnv("MQTT_CLIENT_ID", "fleet-twin"),
			TopicPrefix:   getEnv("EVENTS_TOPIC_PREFIX", "fleet"),
			NATSURL:       getEnv("NATS_URL", "nats://localhost:4222"),
		},
		HTTP: HTTPConfig{
			Port:        getEnv("PORT", "8080"),
			JWTSecret:   getEnv("JWT_SECRET", "default-secret-key-change-in-production"),
			TokenExpiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Renter: RenterConfig{
			APIURL:        getEnv("API_URL", "http://localhost:1337"),
			APIKey:        os.Getenv("REST_API_KEY"),
			Email:         os.Getenv("SIMULATION_EMAIL"),
			Password:      os.Getenv("SIMULATION_PASSWORD"),
			WatchInterval: getEnvDuration("RENT_WATCH_INTERVAL", 5*time.Second),
			MinBalance:    getEnvFloat("MIN_BALANCE", 50),
		},
	}
}

// GetLogLevel maps the configured level name onto a logrus level.
func (c LogConfig) GetLogLevel() log.Level {
	switch c.Level {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": val, "default": def}).Warn("Invalid integer, using default")
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": val, "default": def}).Warn("Invalid number, using default")
		return def
	}
	return f
}

// getEnvDuration accepts Go durations ("1500ms") or whole milliseconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	log.WithFields(log.Fields{"key": key, "value": val, "default": def}).Warn("Invalid duration, using default")
	return def
}
