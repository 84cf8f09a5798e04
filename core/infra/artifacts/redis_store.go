package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cordum/depositor/core/infra/redisutil"
)

// RedisStore keeps datastream content in Redis hashes. Blobs never expire.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore constructs a blob store backed by Redis.
func NewRedisStore(url string) (*RedisStore, error) {
	client, err := redisutil.Connect(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient shares an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Put stores content and metadata under one hash, returning a blob pointer.
func (s *RedisStore) Put(ctx context.Context, content []byte, meta Metadata) (string, error) {
	if s == nil || s.client == nil {
		return "", errStoreClosed
	}
	if meta.ContentType == "" {
		meta.ContentType = DetectContentType(content)
	}
	meta.SizeBytes = int64(len(content))
	meta.Encoding = chooseEncoding(content, meta.ContentType)
	stored, err := encode(content, meta.Encoding)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal blob metadata: %w", err)
	}
	id := uuid.NewString()
	if err := s.client.HSet(ctx, blobKey(id), fieldData, stored, fieldMeta, payload).Err(); err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	return PointerFor(id), nil
}

// Get returns blob content and metadata for a pointer.
func (s *RedisStore) Get(ctx context.Context, ptr string) ([]byte, Metadata, error) {
	if s == nil || s.client == nil {
		return nil, Metadata{}, errStoreClosed
	}
	id, err := IDFromPointer(ptr)
	if err != nil {
		return nil, Metadata{}, err
	}
	vals, err := s.client.HMGet(ctx, blobKey(id), fieldData, fieldMeta).Result()
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("read blob: %w", err)
	}
	stored, okData := vals[0].(string)
	rawMeta, okMeta := vals[1].(string)
	if !okData {
		return nil, Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, ptr)
	}
	if !okMeta {
		return nil, Metadata{}, fmt.Errorf("blob %s has no metadata", ptr)
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(rawMeta), &meta); err != nil {
		return nil, Metadata{}, fmt.Errorf("decode blob metadata: %w", err)
	}
	content, err := decode([]byte(stored), meta.Encoding, meta.SizeBytes)
	if err != nil {
		return nil, Metadata{}, err
	}
	return content, meta, nil
}

// Delete removes a blob. Missing blobs are not an error.
func (s *RedisStore) Delete(ctx context.Context, ptr string) error {
	if s == nil || s.client == nil {
		return errStoreClosed
	}
	id, err := IDFromPointer(ptr)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, blobKey(id)).Err()
}

const (
	fieldData = "data"
	fieldMeta = "meta"
)

var errStoreClosed = errors.New("blob store unavailable")

func blobKey(id string) string {
	return "depositor:blob:" + id
}
