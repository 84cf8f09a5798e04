package repository

import "fmt"

// Mutate applies fn to the stored object directly, bypassing Save.
func (r *MemoryRepository) Mutate(pid string, fn func(*Object)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[pid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, pid)
	}
	fn(obj)
	return nil
}
