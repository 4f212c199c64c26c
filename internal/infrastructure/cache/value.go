package cache

import "context"

// Value caches a single nullable record such as the company settings
type Value[T any] struct {
	*slot[T]
}

// NewValue creates a single-record collection backed by fetch
func NewValue[T any](name Collection, fetch func(context.Context) (T, error), opts ...Option) *Value[T] {
	o := applyOptions(opts)
	return &Value[T]{
		slot: newSlot(name, fetch, passThrough[T], o.logger, o.recorder),
	}
}

// Set replaces the cached value and notifies listeners
func (v *Value[T]) Set(item T) {
	v.mutate(func(T) (T, bool) {
		return item, true
	})
}

// Optimistic replaces the value and returns a Mutation whose rollback
// restores the previous value.
func (v *Value[T]) Optimistic(item T) *Mutation {
	var (
		prev  T
		epoch uint64
	)
	v.mutate(func(data T) (T, bool) {
		prev = data
		epoch = v.epoch
		v.pending[string(v.name)]++
		return item, true
	})

	m := &Mutation{}
	m.commit = func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if epoch == v.epoch {
			v.releaseLocked(string(v.name))
		}
	}
	m.rollback = func() {
		v.mutate(func(data T) (T, bool) {
			if epoch != v.epoch {
				return data, false
			}
			v.releaseLocked(string(v.name))
			return prev, true
		})
	}
	return m
}

// Pending reports whether an optimistic replacement is unconfirmed
func (v *Value[T]) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending[string(v.name)] > 0
}

func passThrough[T any](v T) T {
	return v
}
