package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/cordum/depositor/core/checksum"
	"github.com/cordum/depositor/core/infra/artifacts"
	"github.com/cordum/depositor/core/infra/redisutil"
	"github.com/cordum/depositor/core/model"
)

func newRedisRepository(t *testing.T) *RedisRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisutil.Connect("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client, artifacts.NewRedisStoreWithClient(client), Options{Namespace: "test"})
}

func implementations(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"memory": NewMemoryRepository(Options{Namespace: "test"}),
		"redis":  newRedisRepository(t),
	}
}

func TestCreateAssignsPIDAndSystemDatastreams(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			obj := NewObject(model.Item)
			obj.Label = "First"
			obj.Identifiers = []string{"item001"}
			if err := repo.Create(ctx, obj); err != nil {
				t.Fatalf("create: %v", err)
			}
			if obj.PID != "test:1" {
				t.Fatalf("unexpected pid %s", obj.PID)
			}
			if err := repo.Create(ctx, obj); !errors.Is(err, ErrAlreadySaved) {
				t.Fatalf("expected ErrAlreadySaved, got %v", err)
			}
			found, err := repo.Find(ctx, obj.PID)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			dc, ok := found.Datastream(model.DatastreamDC)
			if !ok || !strings.Contains(string(dc.Content), "<dc:identifier>item001</dc:identifier>") {
				t.Fatalf("unexpected DC datastream: %v", dc)
			}
			if _, ok := found.Datastream(model.DatastreamRelsExt); !ok {
				t.Fatalf("expected RELS-EXT datastream")
			}
			if found.Label != "First" || found.Model != model.Item {
				t.Fatalf("unexpected object %#v", found)
			}
		})
	}
}

func TestSaveDatastreamsAndProfiles(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			obj := NewObject(model.Item)
			if err := repo.Create(ctx, obj); err != nil {
				t.Fatalf("create: %v", err)
			}
			content := []byte(strings.Repeat("<page/>", 200))
			if err := obj.SetDatastream(model.DatastreamContent, content, "", checksum.SHA256); err != nil {
				t.Fatalf("set datastream: %v", err)
			}
			if err := repo.Save(ctx, obj); err != nil {
				t.Fatalf("save: %v", err)
			}
			found, err := repo.Find(ctx, obj.PID)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			ds, ok := found.Datastream(model.DatastreamContent)
			if !ok {
				t.Fatalf("expected content datastream")
			}
			profile := ds.Profile(true)
			if profile.Size != int64(len(content)) || !profile.ChecksumValid || profile.ChecksumType != checksum.SHA256 {
				t.Fatalf("unexpected profile %#v", profile)
			}
			if !strings.HasPrefix(profile.MIMEType, "text/") {
				t.Fatalf("expected detected text mime type, got %s", profile.MIMEType)
			}

			ds.Checksum = "deadbeef"
			if err := repo.Save(ctx, found); err != nil {
				t.Fatalf("save tampered: %v", err)
			}
			again, _ := repo.Find(ctx, obj.PID)
			tampered, _ := again.Datastream(model.DatastreamContent)
			if tampered.Profile(true).ChecksumValid {
				t.Fatalf("expected invalid checksum after tampering")
			}
			if tampered.Profile(false).ChecksumValid {
				t.Fatalf("non-validating profile never reports valid")
			}
		})
	}
}

func TestIdentifierLookupAndChildren(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := NewObject(model.Collection)
			coll.Identifiers = []string{"coll"}
			if err := repo.Create(ctx, coll); err != nil {
				t.Fatalf("create: %v", err)
			}
			// An item sharing the identifier must not match a Collection lookup.
			decoy := NewObject(model.Item)
			decoy.Identifiers = []string{"coll"}
			if err := repo.Create(ctx, decoy); err != nil {
				t.Fatalf("create: %v", err)
			}
			for _, key := range []string{"a", "b"} {
				item := NewObject(model.Item)
				item.Identifiers = []string{key}
				item.ParentPID = coll.PID
				if err := repo.Create(ctx, item); err != nil {
					t.Fatalf("create: %v", err)
				}
			}

			matches, err := repo.FindByIdentifier(ctx, model.Collection, "coll")
			if err != nil || len(matches) != 1 || matches[0].PID != coll.PID {
				t.Fatalf("unexpected matches %v err=%v", matches, err)
			}
			children, err := repo.Children(ctx, coll.PID)
			if err != nil {
				t.Fatalf("children: %v", err)
			}
			if len(children) != 2 || children[0].Identifiers[0] != "a" || children[1].Identifiers[0] != "b" {
				t.Fatalf("unexpected children %v", children)
			}

			// Re-parenting moves the child between sets.
			moved := children[1]
			moved.ParentPID = decoy.PID
			if err := repo.Save(ctx, moved); err != nil {
				t.Fatalf("save: %v", err)
			}
			if children, _ := repo.Children(ctx, coll.PID); len(children) != 1 {
				t.Fatalf("expected one child left, got %d", len(children))
			}

			if err := repo.Delete(ctx, coll.PID); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := repo.Find(ctx, coll.PID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if matches, _ := repo.FindByIdentifier(ctx, model.Collection, "coll"); len(matches) != 0 {
				t.Fatalf("deleted object still indexed")
			}
			if err := repo.Delete(ctx, coll.PID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	}
}

func TestSaveRequiresPID(t *testing.T) {
	for name, repo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.Save(context.Background(), NewObject(model.Item)); !errors.Is(err, ErrNoPID) {
				t.Fatalf("expected ErrNoPID, got %v", err)
			}
			if err := repo.Create(context.Background(), NewObject("Bogus")); !errors.Is(err, ErrInvalidModel) {
				t.Fatalf("expected ErrInvalidModel, got %v", err)
			}
		})
	}
}

func TestRelsExtParent(t *testing.T) {
	obj := NewObject(model.Component)
	obj.PID = "test:9"
	obj.ParentPID = "test:2"
	obj.AdminPolicy = "apo:1"
	data, err := systemRelsExt(obj)
	if err != nil {
		t.Fatalf("rels: %v", err)
	}
	for _, want := range []string{
		`rdf:about="info:fedora/test:9"`,
		`<rel:isPartOf rdf:resource="info:fedora/test:2">`,
		`<rel:isGovernedBy rdf:resource="info:fedora/apo:1">`,
		`info:fedora/afmodel:Component`,
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("missing %q in %s", want, data)
		}
	}
}

func TestMemoryMutateBypassesSave(t *testing.T) {
	repo := NewMemoryRepository(Options{})
	obj := NewObject(model.Item)
	if err := repo.Create(context.Background(), obj); err != nil {
		t.Fatalf("create: %v", err)
	}
	if obj.PID != "depositor:1" {
		t.Fatalf("expected default namespace, got %s", obj.PID)
	}
	if err := repo.Mutate(obj.PID, func(o *Object) {
		o.Datastreams[model.DatastreamDC].Content = []byte("corrupt")
	}); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	found, _ := repo.Find(context.Background(), obj.PID)
	if ds, _ := found.Datastream(model.DatastreamDC); ds.Profile(true).ChecksumValid {
		t.Fatalf("expected corrupted DC to fail validation")
	}
}
