package checksum

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{
		"":        SHA256,
		"sha256":  SHA256,
		"SHA-256": SHA256,
		"sha-1":   SHA1,
		"md5":     MD5,
		"blake3":  BLAKE3,
	}
	for in, want := range cases {
		got, err := ParseAlgorithm(in)
		if err != nil || got != want {
			t.Fatalf("ParseAlgorithm(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAlgorithm("crc32"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestSumKnownVectors(t *testing.T) {
	data := []byte("abc")
	cases := map[Algorithm]string{
		SHA256: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		SHA1:   "a9993e364706816aba3e25717850c26c9cd0d89d",
		MD5:    "900150983cd24fb0d6963f7d28e17f72",
		BLAKE3: "6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85",
	}
	for alg, want := range cases {
		got, err := Sum(alg, data)
		if err != nil {
			t.Fatalf("sum %s: %v", alg, err)
		}
		if got != want {
			t.Fatalf("%s digest = %s, want %s", alg, got, want)
		}
	}
	if _, err := Sum("CRC", data); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestEqual(t *testing.T) {
	if !Equal("ABCD", " abcd ") {
		t.Fatalf("expected case-insensitive match")
	}
	if Equal("", "") {
		t.Fatalf("empty digests never match")
	}
}

func TestParseManifest(t *testing.T) {
	doc := `<?xml version="1.0"?>
<checksums>
  <checksum><componentid>cmp001</componentid><value> abc123 </value></checksum>
  <checksum><componentid>cmp002</componentid><value>def456</value></checksum>
  <checksum><value>orphan</value></checksum>
</checksums>`
	m, err := ParseManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Len())
	}
	if v, ok := m.Lookup("cmp001"); !ok || v != "abc123" {
		t.Fatalf("unexpected lookup %q %v", v, ok)
	}
	if _, ok := m.Lookup("cmp003"); ok {
		t.Fatalf("expected missing component")
	}
	if got := m.Components(); len(got) != 2 || got[0] != "cmp001" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestParseManifestDuplicate(t *testing.T) {
	doc := `<checksums><checksum><componentid>a</componentid><value>1</value></checksum><checksum><componentid>a</componentid><value>2</value></checksum></checksums>`
	if _, err := ParseManifest(strings.NewReader(doc)); !errors.Is(err, ErrDuplicateComponent) {
		t.Fatalf("expected ErrDuplicateComponent, got %v", err)
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sums.xml")
	if err := os.WriteFile(path, []byte(`<checksums><checksum><componentid>x</componentid><value>v</value></checksum></checksums>`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, _ := m.Lookup("x"); v != "v" {
		t.Fatalf("unexpected value %q", v)
	}
	if _, err := LoadManifest(path + ".missing"); err == nil {
		t.Fatalf("expected error for missing file")
	}
	var nilManifest *Manifest
	if _, ok := nilManifest.Lookup("x"); ok {
		t.Fatalf("nil manifest has no entries")
	}
}
