package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %s", cfg.Backend)
	}
	if cfg.RedisURL != defaultRedisURL {
		t.Fatalf("expected default redis url")
	}
	if cfg.NatsURL != "" {
		t.Fatalf("expected nats disabled by default")
	}
	if cfg.EventSubject != defaultEventSubject || cfg.PIDNamespace != defaultPIDNamespace {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.ChecksumAlgorithm != defaultChecksumAlgorithm {
		t.Fatalf("expected default checksum algorithm")
	}
	if cfg.LockTTL != defaultLockTTL || cfg.ValidateWorkers != defaultValidateWorkers {
		t.Fatalf("unexpected lock ttl or workers: %#v", cfg)
	}
	if cfg.ParentLookup != "identifier" {
		t.Fatalf("expected identifier parent lookup, got %q", cfg.ParentLookup)
	}
	if cfg.UsesRedis() {
		t.Fatalf("memory backend must not use redis")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(envBackend, "Redis")
	t.Setenv(envRedisURL, "redis://example:6379")
	t.Setenv(envNATSURL, "nats://example:4222")
	t.Setenv(envEventSubject, "repo.events")
	t.Setenv(envPIDNamespace, "duke")
	t.Setenv(envChecksumAlgorithm, "BLAKE3")
	t.Setenv(envMetricsAddr, ":9400")
	t.Setenv(envLockTTL, "90s")
	t.Setenv(envValidateWorkers, "8")
	t.Setenv(envParentLookup, "PID")

	cfg := Load()
	if !cfg.UsesRedis() || cfg.RedisURL != "redis://example:6379" {
		t.Fatalf("unexpected redis config: %#v", cfg)
	}
	if cfg.NatsURL != "nats://example:4222" || cfg.EventSubject != "repo.events" {
		t.Fatalf("unexpected bus config: %#v", cfg)
	}
	if cfg.PIDNamespace != "duke" || cfg.ChecksumAlgorithm != "BLAKE3" || cfg.MetricsAddr != ":9400" {
		t.Fatalf("unexpected overrides: %#v", cfg)
	}
	if cfg.LockTTL != 90*time.Second || cfg.ValidateWorkers != 8 {
		t.Fatalf("unexpected lock ttl or workers: %#v", cfg)
	}
	if cfg.ParentLookup != "pid" {
		t.Fatalf("unexpected parent lookup %q", cfg.ParentLookup)
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv(envLockTTL, "soon")
	t.Setenv(envValidateWorkers, "-2")
	cfg := Load()
	if cfg.LockTTL != defaultLockTTL || cfg.ValidateWorkers != defaultValidateWorkers {
		t.Fatalf("expected fallbacks, got %#v", cfg)
	}
}

func TestValidateManifest(t *testing.T) {
	good := []byte(`basepath: /data/batch1/
model: Item
metadata: [qdc]
content:
  location: content/
  extension: .tif
objects:
  - identifier: item001
  - identifier: [item002, alt002]
    marcxml: item002-marc.xml
`)
	if err := ValidateManifest(good); err != nil {
		t.Fatalf("expected valid manifest: %v", err)
	}

	cases := map[string]string{
		"missing objects": "basepath: /data/\n",
		"unknown model":   "basepath: /data/\nmodel: Widget\nobjects:\n  - identifier: a\n",
		"unknown key":     "basepath: /data/\nobjects:\n  - identifier: a\n    colour: red\n",
		"bad metadata":    "basepath: /data/\nmetadata: [mods]\nobjects:\n  - identifier: a\n",
		"empty objects":   "basepath: /data/\nobjects: []\n",
	}
	for name, body := range cases {
		if err := ValidateManifest([]byte(body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		} else if !strings.Contains(err.Error(), "validate manifest") {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
	if err := ValidateManifest(nil); err == nil {
		t.Fatalf("expected error for empty manifest")
	}
}
