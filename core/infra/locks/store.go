// Package locks serializes pipeline phases that touch the same ledger.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 5 * time.Minute

var (
	// ErrHeld reports that another owner holds the lock.
	ErrHeld = errors.New("lock held by another owner")

	errMissingArgs = errors.New("lock resource and owner required")
)

// Lock captures the current ownership of a resource.
type Lock struct {
	Resource  string    `json:"resource"`
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store grants exclusive, expiring ownership of named resources.
//
// Acquire succeeds when the resource is free, expired, or already held by
// owner (which extends it). On refusal it returns the current holder.
type Store interface {
	Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (*Lock, bool, error)
	Release(ctx context.Context, resource, owner string) (bool, error)
	Holder(ctx context.Context, resource string) (*Lock, error)
}

// WithLock runs fn while holding an exclusive lock on resource. A nil store runs fn unguarded.
func WithLock(ctx context.Context, store Store, resource string, ttl time.Duration, fn func(context.Context) error) error {
	if store == nil {
		return fn(ctx)
	}
	owner := uuid.NewString()
	holder, ok, err := store.Acquire(ctx, resource, owner, ttl)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", resource, err)
	}
	if !ok {
		if holder == nil {
			return fmt.Errorf("%w: %s", ErrHeld, resource)
		}
		return fmt.Errorf("%w: %s owned by %s until %s", ErrHeld, resource, holder.Owner, holder.ExpiresAt.Format(time.RFC3339))
	}
	defer func() {
		_, _ = store.Release(context.WithoutCancel(ctx), resource, owner)
	}()
	return fn(ctx)
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultTTL
	}
	return ttl
}
