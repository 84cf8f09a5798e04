package artifacts

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(srv.Close)
	store, err := NewRedisStore("redis://" + srv.Addr())
	if err != nil {
		t.Fatalf("create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, srv
}

func TestRedisStorePutGetCompressesXML(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	content := []byte(`<?xml version="1.0"?><dc>` + strings.Repeat("<dcterms:title>Sample</dcterms:title>", 100) + `</dc>`)
	ptr, err := store.Put(ctx, content, Metadata{Labels: map[string]string{"dsid": "descMetadata"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	id, err := IDFromPointer(ptr)
	if err != nil {
		t.Fatalf("pointer: %v", err)
	}
	raw := srv.HGet(blobKey(id), fieldData)
	if raw == "" {
		t.Fatalf("expected data field in blob hash")
	}
	if len(raw) >= len(content) {
		t.Fatalf("expected compressed blob, raw=%d content=%d", len(raw), len(content))
	}

	got, meta, err := store.Get(ctx, ptr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch")
	}
	if meta.Encoding != EncodingZstd {
		t.Fatalf("expected zstd encoding, got %s", meta.Encoding)
	}
	if meta.SizeBytes != int64(len(content)) {
		t.Fatalf("unexpected size: %d", meta.SizeBytes)
	}
	if !strings.Contains(meta.ContentType, "xml") {
		t.Fatalf("unexpected content type: %s", meta.ContentType)
	}
	if meta.Labels["dsid"] != "descMetadata" {
		t.Fatalf("labels not preserved: %#v", meta.Labels)
	}
}

func TestRedisStoreKeepsBinaryAsIs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	content := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 1024)...)
	ptr, err := store.Put(ctx, content, Metadata{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	got, meta, err := store.Get(ctx, ptr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if meta.Encoding != EncodingNone {
		t.Fatalf("expected no encoding for png, got %s", meta.Encoding)
	}
	if meta.ContentType != "image/png" {
		t.Fatalf("unexpected content type %s", meta.ContentType)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch")
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ptr, err := store.Put(ctx, []byte("hello"), Metadata{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, ptr); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Get(ctx, ptr); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPointerParsing(t *testing.T) {
	if _, err := IDFromPointer("redis://art:1"); err == nil {
		t.Fatalf("expected error for foreign pointer")
	}
	if _, err := IDFromPointer("blob://"); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if id, err := IDFromPointer(PointerFor("abc")); err != nil || id != "abc" {
		t.Fatalf("unexpected id %q err=%v", id, err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	content := bytes.Repeat([]byte("fixity "), 200)
	stored, err := encode(content, EncodingZstd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decode(stored, EncodingZstd, int64(len(content)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(out, content) {
		t.Fatalf("round trip mismatch")
	}
	if _, err := decode(stored, EncodingZstd, int64(len(content))+1); err == nil {
		t.Fatalf("expected size mismatch error")
	}
	if _, err := encode(content, Encoding("lz4")); err == nil {
		t.Fatalf("expected unsupported encoding error")
	}
}
