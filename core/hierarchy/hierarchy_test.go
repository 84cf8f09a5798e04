package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/cordum/depositor/core/model"
	"github.com/cordum/depositor/core/repository"
)

func create(t *testing.T, repo repository.Repository, m model.Model, ids ...string) *repository.Object {
	t.Helper()
	obj := repository.NewObject(m)
	obj.Identifiers = ids
	if err := repo.Create(context.Background(), obj); err != nil {
		t.Fatalf("create: %v", err)
	}
	return obj
}

func TestLinkByIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository(repository.Options{})
	coll := create(t, repo, model.Collection, "item")
	create(t, repo, model.Item, "item") // same identifier, wrong model

	child := create(t, repo, model.Item, "item00123")
	parent, err := NewLinker(repo, ByIdentifier).Link(ctx, child, "item")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if parent.PID != coll.PID || child.ParentPID != coll.PID {
		t.Fatalf("expected parent %s, got %s", coll.PID, child.ParentPID)
	}
}

func TestLinkEmptyParentIsRoot(t *testing.T) {
	repo := repository.NewMemoryRepository(repository.Options{})
	child := create(t, repo, model.Collection, "c")
	parent, err := NewLinker(repo, ByIdentifier).Link(context.Background(), child, "")
	if err != nil || parent != nil || child.ParentPID != "" {
		t.Fatalf("expected root, got parent=%v err=%v", parent, err)
	}
}

func TestResolveFailures(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository(repository.Options{})
	create(t, repo, model.Collection, "dup")
	create(t, repo, model.Collection, "dup")
	linker := NewLinker(repo, ByIdentifier)

	if _, err := linker.Resolve(ctx, model.Item, "missing"); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
	if _, err := linker.Resolve(ctx, model.Item, "dup"); !errors.Is(err, ErrAmbiguousParent) {
		t.Fatalf("expected ErrAmbiguousParent, got %v", err)
	}
	if _, err := linker.Resolve(ctx, model.Collection, "dup"); !errors.Is(err, ErrNoParentModel) {
		t.Fatalf("expected ErrNoParentModel, got %v", err)
	}
}

func TestResolveByPID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository(repository.Options{})
	item := create(t, repo, model.Item, "i1")
	linker := NewLinker(repo, ByPID)

	got, err := linker.Resolve(ctx, model.Component, item.PID)
	if err != nil || got.PID != item.PID {
		t.Fatalf("resolve: %v %v", got, err)
	}
	// An Item cannot parent another Item.
	if _, err := linker.Resolve(ctx, model.Item, item.PID); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected model mismatch to fail, got %v", err)
	}
	if _, err := linker.Resolve(ctx, model.Component, "depositor:404"); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
}

func TestVerifyIsBidirectional(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository(repository.Options{})
	coll := create(t, repo, model.Collection, "coll")
	child := create(t, repo, model.Item, "coll001")
	linker := NewLinker(repo, ByIdentifier)
	if _, err := linker.Link(ctx, child, "coll"); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := repo.Save(ctx, child); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := linker.Verify(ctx, child, "coll")
	if err != nil || !ok {
		t.Fatalf("expected verified link, got %v %v", ok, err)
	}
	if ok, _ := linker.Verify(ctx, child, "other"); ok {
		t.Fatalf("wrong parent identifier must not verify")
	}

	// Parent pointer set locally but never saved: the parent has no such child.
	orphan := create(t, repo, model.Item, "coll002")
	orphan.ParentPID = coll.PID
	if ok, _ := linker.Verify(ctx, orphan, "coll"); ok {
		t.Fatalf("one-directional link must not verify")
	}
	if _, err := linker.Verify(ctx, repository.NewObject(model.Item), "coll"); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound for parentless object, got %v", err)
	}
}

func TestParseBy(t *testing.T) {
	cases := map[string]By{"": ByIdentifier, "identifier": ByIdentifier, " PID ": ByPID}
	for in, want := range cases {
		got, err := ParseBy(in)
		if err != nil || got != want {
			t.Fatalf("ParseBy(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseBy("ark"); !errors.Is(err, ErrUnknownLookup) {
		t.Fatalf("expected ErrUnknownLookup, got %v", err)
	}
}
