package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string `validate:"required"`
	LogLevel        string `validate:"oneof=debug info warn warning error"`
	LogFormat       string `validate:"oneof=json text"`
	ShutdownTimeout time.Duration
	StaticDir       string

	// Cache slot.
	CacheDir      string        `validate:"required"`
	CacheDuration time.Duration `validate:"gt=0"`
	TempDir       string

	// Upstream bucket.
	UpstreamBaseURL  string        `validate:"required,url"`
	UserAgent        string        `validate:"required"`
	ListingTimeout   time.Duration `validate:"gt=0"`
	DownloadTimeout  time.Duration `validate:"gt=0"`
	LookbackDays     int           `validate:"min=1,max=31"`
	BreakerFailures  int           `validate:"min=1"`
	BreakerCooldown  time.Duration `validate:"gt=0"`
	UpdateFrequency  string        `validate:"required"`
	PrefetchInterval time.Duration `validate:"gte=0"`
	SingleFlight     bool

	// Projection knobs.
	Stride          int `validate:"min=1"`
	MinReflectivity float64
}

// Load reads configuration from an optional .env file and the environment,
// applying defaults where unset.
func Load() (*Config, error) {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        httpAddr(),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,
		StaticDir:       os.Getenv("STATIC_DIR"),
		CacheDir:        sharedcfg.EnvOrDefault("CACHE_DIR", "cache"),
		TempDir:         os.Getenv("TEMP_DIR"),
		UpstreamBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("UPSTREAM_BASE_URL", "https://noaa-mrms-pds.s3.amazonaws.com"), "/"),
		UserAgent:       sharedcfg.EnvOrDefault("UPSTREAM_USER_AGENT", defaultUserAgent),
		UpdateFrequency: sharedcfg.EnvOrDefault("UPDATE_FREQUENCY", "2 minutes"),
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"CACHE_DURATION", "300s", &cfg.CacheDuration},
		{"LISTING_TIMEOUT", "10s", &cfg.ListingTimeout},
		{"DOWNLOAD_TIMEOUT", "60s", &cfg.DownloadTimeout},
		{"UPSTREAM_BREAKER_COOLDOWN", "60s", &cfg.BreakerCooldown},
		{"PREFETCH_INTERVAL", "0s", &cfg.PrefetchInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(sharedcfg.EnvOrDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dest = v
	}

	if cfg.LookbackDays, err = envInt("LOOKBACK_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.BreakerFailures, err = envInt("UPSTREAM_BREAKER_FAILURES", 5); err != nil {
		return nil, err
	}
	if cfg.Stride, err = envInt("RADAR_STRIDE", 10); err != nil {
		return nil, err
	}
	if cfg.MinReflectivity, err = envFloat("RADAR_MIN_REFLECTIVITY", 15); err != nil {
		return nil, err
	}
	if cfg.SingleFlight, err = envBool("SINGLE_FLIGHT", true); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}

	return cfg, nil
}

// defaultUserAgent identifies as a desktop browser.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// httpAddr prefers HTTP_ADDR and falls back to the PaaS-style PORT variable.
func httpAddr() string {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		return v
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// envNames maps struct fields back to the variables that set them.
var envNames = map[string]string{
	"HTTPAddr":         "HTTP_ADDR",
	"LogLevel":         "LOG_LEVEL",
	"LogFormat":        "LOG_FORMAT",
	"CacheDir":         "CACHE_DIR",
	"CacheDuration":    "CACHE_DURATION",
	"UpstreamBaseURL":  "UPSTREAM_BASE_URL",
	"UserAgent":        "UPSTREAM_USER_AGENT",
	"ListingTimeout":   "LISTING_TIMEOUT",
	"DownloadTimeout":  "DOWNLOAD_TIMEOUT",
	"LookbackDays":     "LOOKBACK_DAYS",
	"BreakerFailures":  "UPSTREAM_BREAKER_FAILURES",
	"BreakerCooldown":  "UPSTREAM_BREAKER_COOLDOWN",
	"UpdateFrequency":  "UPDATE_FREQUENCY",
	"PrefetchInterval": "PREFETCH_INTERVAL",
	"Stride":           "RADAR_STRIDE",
}

// describe rewrites validator errors in terms of environment variables.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := envNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		msgs = append(msgs, fmt.Sprintf("invalid %s: failed %q (%s)", name, fe.Tag(), fe.Param()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
