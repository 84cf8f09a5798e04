package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	defaultBackend           = BackendMemory
	defaultRedisURL          = "redis://localhost:6379"
	defaultEventSubject      = "depositor.events"
	defaultPIDNamespace      = "depositor"
	defaultChecksumAlgorithm = "SHA-256"
	defaultLockTTL           = 30 * time.Minute
	defaultValidateWorkers   = 4
	defaultParentLookup      = "identifier"

	envBackend           = "DEPOSITOR_BACKEND"
	envRedisURL          = "REDIS_URL"
	envNATSURL           = "NATS_URL"
	envEventSubject      = "DEPOSITOR_EVENT_SUBJECT"
	envPIDNamespace      = "DEPOSITOR_PID_NAMESPACE"
	envChecksumAlgorithm = "DEPOSITOR_CHECKSUM_ALGORITHM"
	envMetricsAddr       = "DEPOSITOR_METRICS_ADDR"
	envLockTTL           = "DEPOSITOR_LOCK_TTL"
	envValidateWorkers   = "DEPOSITOR_VALIDATE_WORKERS"
	envParentLookup      = "DEPOSITOR_PARENT_LOOKUP"
)

// Config holds runtime configuration for a deposit run.
type Config struct {
	// Backend selects the repository and event store implementation.
	Backend  string
	RedisURL string
	// NatsURL enables preservation event fan-out when non-empty.
	NatsURL           string
	EventSubject      string
	PIDNamespace      string
	ChecksumAlgorithm string
	// MetricsAddr enables the /metrics listener when non-empty.
	MetricsAddr     string
	LockTTL         time.Duration
	ValidateWorkers int
	// ParentLookup is "identifier" or "pid".
	ParentLookup string
}

// Load returns configuration using environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Backend:           strings.ToLower(envOr(envBackend, defaultBackend)),
		RedisURL:          envOr(envRedisURL, defaultRedisURL),
		NatsURL:           envOr(envNATSURL, ""),
		EventSubject:      envOr(envEventSubject, defaultEventSubject),
		PIDNamespace:      envOr(envPIDNamespace, defaultPIDNamespace),
		ChecksumAlgorithm: envOr(envChecksumAlgorithm, defaultChecksumAlgorithm),
		MetricsAddr:       envOr(envMetricsAddr, ""),
		LockTTL:           durationEnv(envLockTTL, defaultLockTTL),
		ValidateWorkers:   intEnv(envValidateWorkers, defaultValidateWorkers),
		ParentLookup:      strings.ToLower(envOr(envParentLookup, defaultParentLookup)),
	}
}

// UsesRedis reports whether stores should be backed by Redis.
func (c *Config) UsesRedis() bool {
	return c != nil && c.Backend == BackendRedis
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
