package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cordum/depositor/core/model"
)

// MemoryRepository keeps objects in process memory. Objects are deep-copied on
// the way in and out so callers never share state with the store.
type MemoryRepository struct {
	mu      sync.RWMutex
	opts    Options
	seq     int64
	order   []string
	objects map[string]*Object
	now     func() time.Time
}

func NewMemoryRepository(opts Options) *MemoryRepository {
	return &MemoryRepository{
		opts:    opts.withDefaults(),
		objects: map[string]*Object{},
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, obj *Object) error {
	if err := checkNew(obj); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	obj.PID = formatPID(r.opts.Namespace, r.seq)
	now := r.now().UTC()
	obj.CreatedAt, obj.UpdatedAt = now, now
	if err := writeSystemDatastreams(obj, r.opts.Algorithm); err != nil {
		obj.PID = ""
		return err
	}
	r.objects[obj.PID] = obj.Clone()
	r.order = append(r.order, obj.PID)
	return nil
}

func (r *MemoryRepository) Save(ctx context.Context, obj *Object) error {
	if err := checkExisting(obj); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[obj.PID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, obj.PID)
	}
	obj.UpdatedAt = r.now().UTC()
	if err := writeSystemDatastreams(obj, r.opts.Algorithm); err != nil {
		return err
	}
	r.objects[obj.PID] = obj.Clone()
	return nil
}

func (r *MemoryRepository) Find(ctx context.Context, pid string) (*Object, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[pid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pid)
	}
	return obj.Clone(), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, pid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[pid]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, pid)
	}
	delete(r.objects, pid)
	for i, p := range r.order {
		if p == pid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) FindByIdentifier(ctx context.Context, m model.Model, id string) ([]*Object, error) {
	return r.filter(func(obj *Object) bool {
		return obj.Model == m && obj.HasIdentifier(id)
	}), nil
}

func (r *MemoryRepository) Children(ctx context.Context, pid string) ([]*Object, error) {
	return r.filter(func(obj *Object) bool {
		return obj.ParentPID == pid
	}), nil
}

func (r *MemoryRepository) filter(keep func(*Object) bool) []*Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Object
	for _, pid := range r.order {
		if obj := r.objects[pid]; keep(obj) {
			out = append(out, obj.Clone())
		}
	}
	return out
}
