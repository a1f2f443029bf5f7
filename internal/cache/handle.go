package cache

import (
	"context"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

// Handle is the typed accessor for one registered resource. The errors its
// methods return are ErrUnknownResource for a handle that did not come from
// Register on this cache, and updater panics from Mutate.
type Handle[T any] struct {
	cache *Cache
	name  string
}

func (h Handle[T]) Name() string {
	return h.name
}

func (h Handle[T]) Load(ctx context.Context) error {
	return h.cache.Load(ctx, h.name)
}

func (h Handle[T]) Refresh(ctx context.Context) error {
	return h.cache.Refresh(ctx, h.name)
}

func (h Handle[T]) Invalidate() error {
	return h.cache.Invalidate(h.name)
}

// Mutate applies update to the current value, the zero value when there is none.
func (h Handle[T]) Mutate(update func(current T) T) error {
	return h.cache.Mutate(h.name, func(current any, _ bool) any {
		value, _ := current.(T)
		return update(value)
	})
}

// Read returns the current entity. A failed lookup reads as a failed entity
// carrying the lookup error.
func (h Handle[T]) Read() Entity[T] {
	snapshot, err := h.cache.Read(h.name)
	if err != nil {
		return Entity[T]{Name: h.name, Status: StatusFailed, Err: lookupError(err)}
	}
	return entityOf[T](snapshot)
}

func (h Handle[T]) Wait(ctx context.Context) error {
	return h.cache.Wait(ctx, h.name)
}

// LoadAndWait loads the resource and blocks until it settles.
func (h Handle[T]) LoadAndWait(ctx context.Context) (Entity[T], error) {
	if err := h.Load(ctx); err != nil {
		return h.Read(), err
	}
	if err := h.Wait(ctx); err != nil {
		return h.Read(), err
	}
	return h.Read(), nil
}

func lookupError(err error) *ErrorInfo {
	return &ErrorInfo{Kind: domain.ErrorKindUnknown, Message: err.Error()}
}
