package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cordum/depositor/core/checksum"
	"github.com/cordum/depositor/core/infra/artifacts"
	"github.com/cordum/depositor/core/model"
)

// RedisRepository stores object records in Redis and datastream bytes in a
// blob store.
type RedisRepository struct {
	client redis.UniversalClient
	blobs  artifacts.Store
	opts   Options
	now    func() time.Time
}

func NewRedisRepository(client redis.UniversalClient, blobs artifacts.Store, opts Options) *RedisRepository {
	return &RedisRepository{client: client, blobs: blobs, opts: opts.withDefaults(), now: time.Now}
}

type datastreamRecord struct {
	MIMEType     string             `json:"mime_type"`
	ChecksumType checksum.Algorithm `json:"checksum_type"`
	Checksum     string             `json:"checksum"`
	Size         int64              `json:"size"`
	Digest       string             `json:"digest"`
	Blob         string             `json:"blob"`
}

type objectRecord struct {
	Object
	Seq         int64                       `json:"seq"`
	Datastreams map[string]datastreamRecord `json:"datastreams"`
}

func (r *RedisRepository) Create(ctx context.Context, obj *Object) error {
	if err := checkNew(obj); err != nil {
		return err
	}
	seq, err := r.client.Incr(ctx, seqKey(r.opts.Namespace)).Result()
	if err != nil {
		return fmt.Errorf("allocate pid: %w", err)
	}
	obj.PID = formatPID(r.opts.Namespace, seq)
	now := r.now().UTC()
	obj.CreatedAt, obj.UpdatedAt = now, now
	if err := r.persist(ctx, obj, nil, seq); err != nil {
		obj.PID = ""
		return err
	}
	return nil
}

func (r *RedisRepository) Save(ctx context.Context, obj *Object) error {
	if err := checkExisting(obj); err != nil {
		return err
	}
	prev, err := r.load(ctx, obj.PID)
	if err != nil {
		return err
	}
	obj.UpdatedAt = r.now().UTC()
	return r.persist(ctx, obj, prev, prev.Seq)
}

func (r *RedisRepository) persist(ctx context.Context, obj *Object, prev *objectRecord, seq int64) error {
	if err := writeSystemDatastreams(obj, r.opts.Algorithm); err != nil {
		return err
	}
	rec := objectRecord{Object: *obj, Seq: seq, Datastreams: make(map[string]datastreamRecord, len(obj.Datastreams))}
	rec.Object.Datastreams = nil

	var stale []string
	for id, ds := range obj.Datastreams {
		digest, err := checksum.Sum(checksum.SHA256, ds.Content)
		if err != nil {
			return err
		}
		dr := datastreamRecord{
			MIMEType:     ds.MIMEType,
			ChecksumType: ds.ChecksumType,
			Checksum:     ds.Checksum,
			Size:         int64(len(ds.Content)),
			Digest:       digest,
		}
		if old, ok := prevDatastream(prev, id); ok && old.Digest == digest && old.Blob != "" {
			dr.Blob = old.Blob
		} else {
			ptr, err := r.blobs.Put(ctx, ds.Content, artifacts.Metadata{
				ContentType: ds.MIMEType,
				Labels:      map[string]string{"pid": obj.PID, "dsid": id},
			})
			if err != nil {
				return fmt.Errorf("store datastream %s: %w", id, err)
			}
			dr.Blob = ptr
			if ok && old.Blob != "" {
				stale = append(stale, old.Blob)
			}
		}
		rec.Datastreams[id] = dr
	}
	if prev != nil {
		for id, old := range prev.Datastreams {
			if _, ok := rec.Datastreams[id]; !ok && old.Blob != "" {
				stale = append(stale, old.Blob)
			}
		}
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal object: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, objectKey(obj.PID), payload, 0)
	if prev != nil {
		for _, id := range prev.Identifiers {
			pipe.SRem(ctx, identifierKey(prev.Model, id), obj.PID)
		}
		if prev.ParentPID != "" && prev.ParentPID != obj.ParentPID {
			pipe.ZRem(ctx, childrenKey(prev.ParentPID), obj.PID)
		}
	}
	for _, id := range obj.Identifiers {
		pipe.SAdd(ctx, identifierKey(obj.Model, id), obj.PID)
	}
	if obj.ParentPID != "" {
		pipe.ZAdd(ctx, childrenKey(obj.ParentPID), redis.Z{Score: float64(seq), Member: obj.PID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save object %s: %w", obj.PID, err)
	}
	r.deleteBlobs(ctx, stale)
	return nil
}

func prevDatastream(prev *objectRecord, id string) (datastreamRecord, bool) {
	if prev == nil {
		return datastreamRecord{}, false
	}
	dr, ok := prev.Datastreams[id]
	return dr, ok
}

func (r *RedisRepository) load(ctx context.Context, pid string) (*objectRecord, error) {
	data, err := r.client.Get(ctx, objectKey(pid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pid)
	}
	if err != nil {
		return nil, fmt.Errorf("load object %s: %w", pid, err)
	}
	var rec objectRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode object %s: %w", pid, err)
	}
	return &rec, nil
}

func (r *RedisRepository) Find(ctx context.Context, pid string) (*Object, error) {
	rec, err := r.load(ctx, pid)
	if err != nil {
		return nil, err
	}
	obj := rec.Object
	obj.Datastreams = make(map[string]*Datastream, len(rec.Datastreams))
	for id, dr := range rec.Datastreams {
		content, _, err := r.blobs.Get(ctx, dr.Blob)
		if err != nil {
			return nil, fmt.Errorf("load datastream %s/%s: %w", pid, id, err)
		}
		obj.Datastreams[id] = &Datastream{
			ID:           id,
			MIMEType:     dr.MIMEType,
			ChecksumType: dr.ChecksumType,
			Checksum:     dr.Checksum,
			Content:      content,
		}
	}
	return &obj, nil
}

func (r *RedisRepository) Delete(ctx context.Context, pid string) error {
	rec, err := r.load(ctx, pid)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, objectKey(pid))
	for _, id := range rec.Identifiers {
		pipe.SRem(ctx, identifierKey(rec.Model, id), pid)
	}
	if rec.ParentPID != "" {
		pipe.ZRem(ctx, childrenKey(rec.ParentPID), pid)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete object %s: %w", pid, err)
	}
	blobs := make([]string, 0, len(rec.Datastreams))
	for _, dr := range rec.Datastreams {
		blobs = append(blobs, dr.Blob)
	}
	r.deleteBlobs(ctx, blobs)
	return nil
}

func (r *RedisRepository) FindByIdentifier(ctx context.Context, m model.Model, id string) ([]*Object, error) {
	pids, err := r.client.SMembers(ctx, identifierKey(m, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("identifier lookup: %w", err)
	}
	sort.Slice(pids, func(i, j int) bool { return pidLess(pids[i], pids[j]) })
	return r.findAll(ctx, pids)
}

func (r *RedisRepository) Children(ctx context.Context, pid string) ([]*Object, error) {
	pids, err := r.client.ZRange(ctx, childrenKey(pid), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("children lookup: %w", err)
	}
	return r.findAll(ctx, pids)
}

func (r *RedisRepository) findAll(ctx context.Context, pids []string) ([]*Object, error) {
	out := make([]*Object, 0, len(pids))
	for _, pid := range pids {
		obj, err := r.Find(ctx, pid)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (r *RedisRepository) deleteBlobs(ctx context.Context, ptrs []string) {
	for _, ptr := range ptrs {
		if ptr == "" {
			continue
		}
		_ = r.blobs.Delete(ctx, ptr)
	}
}

func pidLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func seqKey(namespace string) string {
	return "repo:seq:" + namespace
}

func objectKey(pid string) string {
	return "repo:obj:" + pid
}

func identifierKey(m model.Model, id string) string {
	return "repo:ident:" + string(m) + ":" + id
}

func childrenKey(pid string) string {
	return "repo:children:" + pid
}
