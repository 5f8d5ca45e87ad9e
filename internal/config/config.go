package config

import (
	"crypto/rand"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Inkwell server.
type Config struct {
	DBPath        string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	HomePage      string
	ListCacheTTL  time.Duration
	CSRFKey       []byte
	CSRFSecure    bool
	RateLimit     RateLimitConfig
	ShutdownGrace time.Duration
}

// RateLimitConfig controls the per-client request limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultDBPath        = "./data/inkwell.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultHomePage      = "home"
	defaultListCacheTTL  = 30 * time.Minute
	defaultShutdownGrace = 10 * time.Second

	defaultRateLimitRPS   = 5.0
	defaultRateLimitBurst = 10
	defaultClientTTL      = 5 * time.Minute

	csrfKeyLength = 32
)

// Load reads configuration values from environment variables, applying
// defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		HomePage:      getEnv("HOME_PAGE", defaultHomePage),
		ListCacheTTL:  defaultListCacheTTL,
		ShutdownGrace: defaultShutdownGrace,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: defaultRateLimitRPS,
			Burst:             defaultRateLimitBurst,
			ClientTTL:         defaultClientTTL,
		},
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	if ttlValue := os.Getenv("LIST_CACHE_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid LIST_CACHE_TTL value: %s", ttlValue)
		}
		cfg.ListCacheTTL = ttl
	}

	key, err := csrfKey(os.Getenv("CSRF_KEY"))
	if err != nil {
		return nil, err
	}
	cfg.CSRFKey = key
	cfg.CSRFSecure = cfg.Environment == "production"

	if rpsValue := os.Getenv("RATE_LIMIT_RPS"); rpsValue != "" {
		rps, err := strconv.ParseFloat(rpsValue, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", rpsValue)
		}
		cfg.RateLimit.RequestsPerSecond = rps
	}

	if burstValue := os.Getenv("RATE_LIMIT_BURST"); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid RATE_LIMIT_BURST value: %s", burstValue)
		}
		cfg.RateLimit.Burst = burst
	}

	return cfg, nil
}

// csrfKey decodes the configured anti-forgery key, or generates a random
// one when none is set. A generated key means issued tokens do not survive
// a restart, which is acceptable for a single-instance wiki.
func csrfKey(value string) ([]byte, error) {
	if value == "" {
		key := make([]byte, csrfKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, eris.Wrap(err, "generating CSRF key")
		}
		return key, nil
	}

	if len(value) < csrfKeyLength {
		return nil, eris.Errorf("CSRF_KEY must be at least %d characters", csrfKeyLength)
	}

	return []byte(value), nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
