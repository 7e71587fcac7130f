package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Baseline store backends.
const (
	StoreMongo  = "mongo"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds everything the server and CLI need. Values come from defaults,
// then an optional YAML file, then environment variables.
type Config struct {
	Env      string `yaml:"env"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`

	Baseline struct {
		Store      string `yaml:"store"`
		FilePath   string `yaml:"file_path"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"baseline"`

	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	VIN struct {
		NinjasAPIKey string `yaml:"ninjas_api_key"`
	} `yaml:"vin"`

	Recalls struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"recalls"`

	Push struct {
		VAPIDPublicKey  string `yaml:"vapid_public_key"`
		VAPIDPrivateKey string `yaml:"vapid_private_key"`
		Subject         string `yaml:"subject"`
	} `yaml:"push"`

	MQTT struct {
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"client_id"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`

	Sweep struct {
		Interval    time.Duration `yaml:"interval"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"sweep"`

	Forecast struct {
		Horizon float64 `yaml:"horizon"`
	} `yaml:"forecast"`

	HTTP struct {
		CORSOrigins     []string `yaml:"cors_origins"`
		RateLimit       int      `yaml:"rate_limit"`
		RateLimitWindow int      `yaml:"rate_limit_window_seconds"`
		MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	} `yaml:"http"`

	// RecordUnmappedCategories stores category strings the mapper could not place.
	RecordUnmappedCategories bool `yaml:"record_unmapped_categories"`
}

// Default returns the development defaults.
func Default() *Config {
	c := &Config{
		Env:      "development",
		Port:     "8080",
		LogLevel: "info",
	}
	c.Mongo.URI = "mongodb://localhost:27017"
	c.Mongo.Database = "carmemo"
	c.Baseline.Store = StoreMongo
	c.Baseline.FilePath = "data/baselines.json"
	c.Baseline.SQLitePath = "data/carmemo.db"
	c.MQTT.ClientID = "carmemo-api"
	c.MQTT.TopicPrefix = "carmemo"
	c.Sweep.Interval = time.Hour
	c.Sweep.Concurrency = 4
	c.Forecast.Horizon = 20000
	c.HTTP.CORSOrigins = []string{"http://localhost:4200"}
	c.HTTP.RateLimit = 120
	c.HTTP.RateLimitWindow = 60
	c.HTTP.MaxUploadBytes = 10 << 20
	c.RecordUnmappedCategories = true
	return c
}

// LoadDotEnv loads .env into the environment when present.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.WithError(err).Debug("No .env file loaded")
	}
}

// Load builds the configuration. path may be empty; CARMEMO_CONFIG is used then.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CARMEMO_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("APP_ENV", &c.Env)
	str("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)
	str("MONGO_URI", &c.Mongo.URI)
	str("MONGO_DB", &c.Mongo.Database)
	str("BASELINE_STORE", &c.Baseline.Store)
	str("BASELINE_FILE", &c.Baseline.FilePath)
	str("SQLITE_PATH", &c.Baseline.SQLitePath)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	str("GEMINI_MODEL", &c.Gemini.Model)
	str("API_NINJAS_KEY", &c.VIN.NinjasAPIKey)
	str("RECALLS_URL", &c.Recalls.BaseURL)
	str("VAPID_PUBLIC_KEY", &c.Push.VAPIDPublicKey)
	str("VAPID_PRIVATE_KEY", &c.Push.VAPIDPrivateKey)
	str("VAPID_SUBJECT", &c.Push.Subject)
	str("MQTT_BROKER", &c.MQTT.Broker)
	str("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	str("MQTT_TOPIC_PREFIX", &c.MQTT.TopicPrefix)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.HTTP.CORSOrigins = origins
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SWEEP_INTERVAL: %w", err)
		}
		c.Sweep.Interval = d
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.HTTP.RateLimit = n
	}
	if v := os.Getenv("FORECAST_HORIZON"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FORECAST_HORIZON: %w", err)
		}
		c.Forecast.Horizon = h
	}
	if v := os.Getenv("RECORD_UNMAPPED_CATEGORIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RECORD_UNMAPPED_CATEGORIES: %w", err)
		}
		c.RecordUnmappedCategories = b
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Baseline.Store {
	case StoreMongo, StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("baseline store %q: must be mongo, file or sqlite", c.Baseline.Store)
	}
	if c.Forecast.Horizon <= 0 {
		return errors.New("forecast horizon must be positive")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return errors.New("both VAPID keys must be set to enable push")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) PushEnabled() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}

func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

// ConfigureLogging applies the level and picks JSON output in production.
func (c *Config) ConfigureLogging() {
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if c.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
