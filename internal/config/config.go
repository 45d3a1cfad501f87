package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geocoding provider configuration.
	GeocoderAPIKey      string
	GeocoderBaseURL     string
	GeocoderTimeout     time.Duration
	GeocoderMinInterval time.Duration
	GeocoderCacheSize   int
	GeocoderCacheH3Res  int

	// Home market used for filters, bias, and defaults.
	HomeCountry     string
	HomeCountryCode string
	HomeCity        string
	BiasLat         float64
	BiasLon         float64

	// Coarse IP geolocation for auto-detect without a device fix.
	IPAPIEnabled bool
	IPAPIBaseURL string

	// Resolved-address sink. Disabled when KafkaBrokers is empty.
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	minInterval, err := parsePositiveDuration("GEOCODER_MIN_INTERVAL", "100ms")
	if err != nil {
		return nil, err
	}

	h3Res, err := strconv.Atoi(sharedcfg.EnvOrDefault("GEOCODER_CACHE_H3_RES", "12"))
	if err != nil || h3Res < 0 || h3Res > 15 {
		return nil, errors.New("invalid GEOCODER_CACHE_H3_RES: must be between 0 and 15")
	}

	biasLat, err := parseFloat("BIAS_LAT", "12.9716", 90)
	if err != nil {
		return nil, err
	}
	biasLon, err := parseFloat("BIAS_LON", "77.5946", 180)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeocoderAPIKey:      os.Getenv("GEOCODER_API_KEY"),
		GeocoderBaseURL:     sharedcfg.EnvOrDefault("GEOCODER_BASE_URL", "https://api.geoapify.com/v1/geocode"),
		GeocoderTimeout:     geocoderTimeout,
		GeocoderMinInterval: minInterval,
		GeocoderCacheSize:   parseCacheSize(),
		GeocoderCacheH3Res:  h3Res,

		HomeCountry:     sharedcfg.EnvOrDefault("HOME_COUNTRY", "India"),
		HomeCountryCode: sharedcfg.EnvOrDefault("HOME_COUNTRY_CODE", "in"),
		HomeCity:        sharedcfg.EnvOrDefault("HOME_CITY", "Bangalore"),
		BiasLat:         biasLat,
		BiasLon:         biasLon,

		IPAPIEnabled: os.Getenv("IPAPI_ENABLED") == "true",
		IPAPIBaseURL: sharedcfg.EnvOrDefault("IPAPI_BASE_URL", "http://ip-api.com/json"),

		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "resolved-locations"),
	}

	if cfg.GeocoderAPIKey == "" {
		return nil, errors.New("GEOCODER_API_KEY is required")
	}

	return cfg, nil
}

// PublishEnabled reports whether resolved addresses go to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key, def string, bound float64) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v < -bound || v > bound {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
