// Package redisutil opens the Redis clients shared by the ledger-adjacent stores.
package redisutil

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultURL is used when no Redis URL is configured.
const DefaultURL = "redis://localhost:6379"

const (
	envTLSCA         = "REDIS_TLS_CA"
	envTLSCert       = "REDIS_TLS_CERT"
	envTLSKey        = "REDIS_TLS_KEY"
	envTLSInsecure   = "REDIS_TLS_INSECURE"
	envTLSServerName = "REDIS_TLS_SERVER_NAME"
	envClusterAddrs  = "REDIS_CLUSTER_ADDRESSES"

	pingTimeout = 2 * time.Second
)

var errKeyPairIncomplete = errors.New("redis tls: cert and key must be set together")

// Connect builds a client for url and verifies the server answers a PING.
func Connect(url string) (redis.UniversalClient, error) {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	client, err := NewClient(url)
	if err != nil {
		return nil, fmt.Errorf("redis client %s: %w", url, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewClient returns a universal client for url. REDIS_CLUSTER_ADDRESSES, when
// set, replaces the single address from the URL.
func NewClient(url string) (redis.UniversalClient, error) {
	opts, err := ParseOptions(url)
	if err != nil {
		return nil, err
	}
	addrs := splitAddrs(os.Getenv(envClusterAddrs))
	if len(addrs) == 0 {
		addrs = []string{opts.Addr}
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:     addrs,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}), nil
}

// ParseOptions parses a Redis URL and layers the REDIS_TLS_* settings on top.
func ParseOptions(url string) (*redis.Options, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	cfg, err := tlsSettingsFromEnv().apply(opts.TLSConfig)
	if err != nil {
		return nil, err
	}
	opts.TLSConfig = cfg
	return opts, nil
}

type tlsSettings struct {
	ca, cert, key string
	serverName    string
	insecure      bool
}

func tlsSettingsFromEnv() tlsSettings {
	env := func(key string) string { return strings.TrimSpace(os.Getenv(key)) }
	insecure := false
	switch strings.ToLower(env(envTLSInsecure)) {
	case "1", "true", "yes", "y", "on":
		insecure = true
	}
	return tlsSettings{
		ca:         env(envTLSCA),
		cert:       env(envTLSCert),
		key:        env(envTLSKey),
		serverName: env(envTLSServerName),
		insecure:   insecure,
	}
}

func (s tlsSettings) empty() bool {
	return s == tlsSettings{}
}

// apply returns base untouched when nothing is configured, otherwise a copy
// of base (or a fresh config) carrying the settings.
func (s tlsSettings) apply(base *tls.Config) (*tls.Config, error) {
	if s.empty() {
		return base, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if base != nil {
		cfg = base.Clone()
	}
	if s.serverName != "" {
		cfg.ServerName = s.serverName
	}
	if s.insecure {
		cfg.InsecureSkipVerify = true // #nosec G402 -- explicit operator opt-in
	}
	if s.ca != "" {
		pool, err := loadPool(cfg.RootCAs, s.ca)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if s.cert != "" || s.key != "" {
		if s.cert == "" || s.key == "" {
			return nil, errKeyPairIncomplete
		}
		pair, err := tls.LoadX509KeyPair(s.cert, s.key)
		if err != nil {
			return nil, fmt.Errorf("redis tls keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return cfg, nil
}

func loadPool(pool *x509.CertPool, path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("redis tls ca: %w", err)
	}
	if pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("redis tls ca %s: no certificates", path)
	}
	return pool, nil
}

func splitAddrs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}
