package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all batch settings, populated from environment variables.
type Config struct {
	DatasetPath string
	OutputPath  string
	CitiesFile  string
	Cities      []City

	SaveMonthly bool
	SaveSummary bool
	PlotEnabled bool

	LogLevel        string
	LogFormat       string
	HTTPAddr        string // empty disables serving results after the batch
	ShutdownTimeout time.Duration

	// Optional result sinks. Each is disabled while its address is empty.
	KafkaBrokers []string
	KafkaTopic   string
	SQLitePath   string
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	saveMonthly, err := parseBool("SAVE_MONTHLY", true)
	if err != nil {
		return nil, err
	}
	saveSummary, err := parseBool("SAVE_SUMMARY", true)
	if err != nil {
		return nil, err
	}
	plotEnabled, err := parseBool("PLOT_ENABLED", true)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		DatasetPath:     sharedcfg.EnvOrDefault("DATASET_PATH", "data/kongqi_data"),
		OutputPath:      sharedcfg.EnvOrDefault("OUTPUT_PATH", "data/output"),
		CitiesFile:      os.Getenv("CITIES_FILE"),
		SaveMonthly:     saveMonthly,
		SaveSummary:     saveSummary,
		PlotEnabled:     plotEnabled,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "pm25-city-stats"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		InfluxURL:    os.Getenv("INFLUXDB_URL"),
		InfluxToken:  os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUXDB_ORG"),
		InfluxBucket: sharedcfg.EnvOrDefault("INFLUXDB_BUCKET", "pm25"),
	}

	if cfg.CitiesFile != "" {
		cfg.Cities, err = LoadCities(cfg.CitiesFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg.Cities = DefaultCities()
	}

	if cfg.DatasetPath == "" {
		return nil, errors.New("DATASET_PATH is required")
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("OUTPUT_PATH is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.InfluxURL != "" && (cfg.InfluxToken == "" || cfg.InfluxOrg == "") {
		return nil, errors.New("INFLUXDB_URL is set but INFLUXDB_TOKEN or INFLUXDB_ORG is not")
	}

	return cfg, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}
