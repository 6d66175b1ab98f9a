package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, assembled from environment
// variables plus an optional policy file (see policy.go).
type Config struct {
	Server   Server
	Registry Registry
	Redis    Redis
	Kafka    Kafka

	// Organization is the local trust domain ORG_MEMBERSHIP proofs must match.
	Organization string
	// Bus names the event bus used for BUS_MEMBERSHIP proofs.
	Bus string
	// PolicyFile points at the YAML file holding the classification gate and
	// redaction policies. Empty means built-in defaults.
	PolicyFile string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Registry selects the provider catalog backend.
type Registry struct {
	// Backend is "memory", "postgres", or "redis".
	Backend     string
	PostgresDSN string
}

// Redis captures connection settings for the Redis-backed registry.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit publisher settings. Empty brokers disable the
// Kafka sink.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds the configuration from environment variables so main stays
// lean. Unset variables fall back to development defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("TRUSTGRID_ADDR", ":8080"),
			ShutdownTimeout: envDuration("TRUSTGRID_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Registry: Registry{
			Backend:     envOr("TRUSTGRID_REGISTRY_BACKEND", "memory"),
			PostgresDSN: os.Getenv("TRUSTGRID_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("TRUSTGRID_REDIS_URL"),
			PoolSize:     envInt("TRUSTGRID_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TRUSTGRID_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("TRUSTGRID_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TRUSTGRID_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("TRUSTGRID_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("TRUSTGRID_KAFKA_BROKERS")),
			Topic:   envOr("TRUSTGRID_KAFKA_TOPIC", "trustgrid.resolution.audit"),
		},
		Organization: envOr("TRUSTGRID_ORGANIZATION", "local.trustgrid"),
		Bus:          envOr("TRUSTGRID_BUS", "default"),
		PolicyFile:   os.Getenv("TRUSTGRID_POLICY_FILE"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
