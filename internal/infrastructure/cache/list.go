package cache

import (
	"context"

	"go.uber.org/zap"
)

// Operation is a local mutation applied to a list collection
type Operation string

const (
	OpAdd    Operation = "add"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// IsValid reports whether op is a known operation
func (op Operation) IsValid() bool {
	return op == OpAdd || op == OpUpdate || op == OpDelete
}

// List caches an ordered collection whose elements are identified by keyOf
type List[T any] struct {
	*slot[[]T]
	keyOf func(T) string
}

// NewList creates a list collection backed by fetch
func NewList[T any](name Collection, fetch func(context.Context) ([]T, error), keyOf func(T) string, opts ...Option) *List[T] {
	o := applyOptions(opts)
	return &List[T]{
		slot:  newSlot(name, fetch, cloneSlice[T], o.logger, o.recorder),
		keyOf: keyOf,
	}
}

// Find returns the element with the given id from the current snapshot
func (l *List[T]) Find(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(l.data, id); i >= 0 {
		return l.data[i], true
	}
	var zero T
	return zero, false
}

// Apply mutates the snapshot locally and notifies listeners. add prepends
// item; update replaces the element with itemID in place; delete removes it.
// update and delete on a missing id change nothing but still notify.
func (l *List[T]) Apply(op Operation, item T, itemID string) {
	l.mutate(func(data []T) ([]T, bool) {
		data, _, _ = l.applyLocked(data, op, item, itemID)
		return data, true
	})
}

// Optimistic applies the same change as Apply and marks it pending until the
// returned Mutation is committed or rolled back.
func (l *List[T]) Optimistic(op Operation, item T, itemID string) *Mutation {
	key := itemID
	if op == OpAdd {
		key = l.keyOf(item)
	}

	var (
		prev    T
		prevIdx = -1
		epoch   uint64
	)
	l.mutate(func(data []T) ([]T, bool) {
		data, prev, prevIdx = l.applyLocked(data, op, item, itemID)
		l.pending[key]++
		epoch = l.epoch
		return data, true
	})

	m := &Mutation{}
	m.commit = func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if epoch == l.epoch {
			l.releaseLocked(key)
		}
	}
	m.rollback = func() {
		l.mutate(func(data []T) ([]T, bool) {
			if epoch != l.epoch {
				return data, false
			}
			l.releaseLocked(key)
			switch op {
			case OpAdd:
				if i := l.indexLocked(data, key); i >= 0 {
					data = removeAt(data, i)
				}
			case OpUpdate:
				if prevIdx < 0 {
					return data, false
				}
				if i := l.indexLocked(data, l.keyOf(item)); i >= 0 {
					data = replaceAt(data, i, prev)
				}
			case OpDelete:
				if prevIdx < 0 {
					return data, false
				}
				data = insertAt(data, min(prevIdx, len(data)), prev)
			}
			return data, true
		})
		l.logger.Debug("Optimistic change rolled back",
			zap.String("collection", string(l.name)),
			zap.String("operation", string(op)),
			zap.String("id", key))
	}
	return m
}

// Pending reports whether id has an unconfirmed optimistic change
func (l *List[T]) Pending(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending[id] > 0
}

// applyLocked returns the mutated slice plus the element it displaced and
// that element's index, or -1 when nothing was displaced.
func (l *List[T]) applyLocked(data []T, op Operation, item T, itemID string) ([]T, T, int) {
	var zero T
	switch op {
	case OpAdd:
		return insertAt(data, 0, item), zero, -1
	case OpUpdate:
		if i := l.indexLocked(data, itemID); i >= 0 {
			prev := data[i]
			return replaceAt(data, i, item), prev, i
		}
	case OpDelete:
		if i := l.indexLocked(data, itemID); i >= 0 {
			prev := data[i]
			return removeAt(data, i), prev, i
		}
	}
	return data, zero, -1
}

func (l *List[T]) indexLocked(data []T, id string) int {
	for i, v := range data {
		if l.keyOf(v) == id {
			return i
		}
	}
	return -1
}

// The helpers below always allocate so that snapshots handed out earlier
// never observe later mutations.

func cloneSlice[T any](data []T) []T {
	out := make([]T, len(data))
	copy(out, data)
	return out
}

func insertAt[T any](data []T, i int, v T) []T {
	out := make([]T, 0, len(data)+1)
	out = append(out, data[:i]...)
	out = append(out, v)
	return append(out, data[i:]...)
}

func replaceAt[T any](data []T, i int, v T) []T {
	out := cloneSlice(data)
	out[i] = v
	return out
}

func removeAt[T any](data []T, i int) []T {
	out := make([]T, 0, len(data)-1)
	out = append(out, data[:i]...)
	return append(out, data[i+1:]...)
}
