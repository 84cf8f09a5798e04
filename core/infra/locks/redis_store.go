package locks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cordum/depositor/core/infra/redisutil"
)

var errStoreClosed = errors.New("lock store unavailable")

// RedisStore shares locks between depositor processes through a Redis key per resource.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore connects to url and returns a lock store.
func NewRedisStore(url string) (*RedisStore, error) {
	client, err := redisutil.Connect(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client. Close will close it.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Acquire claims or extends the lock in a single script so the owner check and TTL write cannot interleave.
func (s *RedisStore) Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (*Lock, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, errStoreClosed
	}
	resource, owner = strings.TrimSpace(resource), strings.TrimSpace(owner)
	if resource == "" || owner == "" {
		return nil, false, errMissingArgs
	}
	ttl = normalizeTTL(ttl)
	reply, err := acquireScript.Run(ctx, s.client, []string{lockKey(resource)}, owner, ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, false, fmt.Errorf("lock script: %w", err)
	}
	if len(reply) != 3 {
		return nil, false, fmt.Errorf("lock script: unexpected reply %v", reply)
	}
	granted, _ := reply[0].(int64)
	holder, _ := reply[1].(string)
	remaining, _ := reply[2].(int64)
	lock := &Lock{Resource: resource, Owner: holder}
	if remaining > 0 {
		lock.ExpiresAt = time.Now().Add(time.Duration(remaining) * time.Millisecond).UTC()
	}
	return lock, granted == 1, nil
}

// Release deletes the lock only when owner still holds it.
func (s *RedisStore) Release(ctx context.Context, resource, owner string) (bool, error) {
	if s == nil || s.client == nil {
		return false, errStoreClosed
	}
	n, err := releaseScript.Run(ctx, s.client, []string{lockKey(resource)}, owner).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Holder returns the current owner, or nil when the resource is free.
func (s *RedisStore) Holder(ctx context.Context, resource string) (*Lock, error) {
	if s == nil || s.client == nil {
		return nil, errStoreClosed
	}
	key := lockKey(resource)
	pipe := s.client.Pipeline()
	ownerCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	owner, err := ownerCmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lock := &Lock{Resource: resource, Owner: owner}
	if ttl := ttlCmd.Val(); ttl > 0 {
		lock.ExpiresAt = time.Now().Add(ttl).UTC()
	}
	return lock, nil
}

func lockKey(resource string) string {
	return "depositor:lock:" + resource
}

var acquireScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
  return {1, ARGV[1], tonumber(ARGV[2])}
end
local holder = redis.call("GET", KEYS[1])
if holder == ARGV[1] then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  return {1, holder, tonumber(ARGV[2])}
end
return {0, holder or "", redis.call("PTTL", KEYS[1])}
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)
