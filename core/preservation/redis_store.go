package preservation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cordum/depositor/core/infra/redisutil"
)

// RedisStore keeps each event as a JSON value and an append-ordered id list
// per subject.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(url string) (*RedisStore, error) {
	client, err := redisutil.Connect(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) Append(ctx context.Context, ev Event) error {
	if ev.Subject == "" {
		return ErrNoSubject
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.SetNX(ctx, eventKey(ev.ID), data, 0)
	pipe.RPush(ctx, subjectKey(ev.Subject), ev.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *RedisStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	ids, err := s.client.LRange(ctx, subjectKey(subject), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(ids) == 0 {
		return []Event{}, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, eventKey(id))
	}
	_, _ = pipe.Exec(ctx)

	out := make([]Event, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			return nil, fmt.Errorf("load event %s: %w", ids[i], err)
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", ids[i], err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func eventKey(id string) string {
	return "event:" + id
}

func subjectKey(subject string) string {
	return "event:subject:" + subject
}
