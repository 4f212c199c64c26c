package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Listener is notified after a collection changes. It takes no arguments;
// listeners re-read the collection through Get.
type Listener func()

// call is one fetch of a collection. Late callers wait on done.
type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

type registration struct {
	id uint64
	fn Listener
}

// emission is one change waiting to be delivered to the listeners that were
// registered when the change was applied.
type emission struct {
	ctx       context.Context
	listeners []Listener
}

// slot holds one cached collection. mu guards every field below it.
// Changes queue an emission under mu; the goroutine that finds the queue
// idle delivers emissions in order until it drains, so a listener may load
// or mutate its own collection and its change is delivered after the
// current one.
type slot[T any] struct {
	name     Collection
	fetch    func(context.Context) (T, error)
	snapshot func(T) T
	logger   *zap.Logger
	recorder Recorder

	mu         sync.Mutex
	queue      []emission
	emitting   bool
	data       T
	running    []*call[T]
	generation uint64
	epoch      uint64
	loaded     bool
	pending    map[string]int
	listeners  []registration
	nextID     uint64
}

func newSlot[T any](name Collection, fetch func(context.Context) (T, error), snapshot func(T) T, logger *zap.Logger, recorder Recorder) *slot[T] {
	s := &slot[T]{
		name:     name,
		fetch:    fetch,
		snapshot: snapshot,
		logger:   logger,
		recorder: recorder,
		pending:  make(map[string]int),
	}
	var zero T
	s.data = snapshot(zero)
	return s
}

// Name returns the collection name
func (s *slot[T]) Name() Collection {
	return s.name
}

// Get returns the current snapshot without fetching
func (s *slot[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.data)
}

// Loaded reports whether a fetch has completed since creation or the last reset
func (s *slot[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Current returns the snapshot, waiting for the first fetch when none has
// completed yet.
func (s *slot[T]) Current(ctx context.Context) (T, error) {
	if s.Loaded() {
		return s.Get(), nil
	}
	return s.Await(ctx)
}

// IsLoading reports whether a fetch is in flight
func (s *slot[T]) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running) > 0
}

// Subscribe registers l and returns a function that removes this registration.
// Every call registers a new entry; the returned function is safe to call more than once.
func (s *slot[T]) Subscribe(l Listener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, registration{id: id, fn: l})
	gen := s.generation
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if gen != s.generation {
				return
			}
			for i, r := range s.listeners {
				if r.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Load fetches the collection. When a fetch is already in flight and force is
// false it returns the current, possibly stale, snapshot without waiting.
func (s *slot[T]) Load(ctx context.Context, force bool) (T, error) {
	s.mu.Lock()
	if len(s.running) > 0 && !force {
		data := s.snapshot(s.data)
		s.mu.Unlock()
		s.recorder.FetchDeduplicated(ctx, s.name)
		s.logger.Debug("Fetch already in flight, returning cached snapshot",
			zap.String("collection", string(s.name)))
		return data, nil
	}
	c := s.startLocked()
	gen := s.generation
	s.mu.Unlock()

	s.run(ctx, c, gen)
	return c.val, c.err
}

// Reload always performs a fresh fetch regardless of in-flight state
func (s *slot[T]) Reload(ctx context.Context) (T, error) {
	return s.Load(ctx, true)
}

// Await joins the most recently started fetch, or starts one when none is
// in flight, and returns its result. ctx only bounds the wait.
func (s *slot[T]) Await(ctx context.Context) (T, error) {
	s.mu.Lock()
	if len(s.running) == 0 {
		c := s.startLocked()
		gen := s.generation
		s.mu.Unlock()
		s.run(ctx, c, gen)
		return c.val, c.err
	}
	c := s.running[len(s.running)-1]
	s.mu.Unlock()
	s.recorder.FetchDeduplicated(ctx, s.name)

	select {
	case <-c.done:
		if c.err != nil {
			var zero T
			return zero, c.err
		}
		return s.snapshot(c.val), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (s *slot[T]) startLocked() *call[T] {
	c := &call[T]{done: make(chan struct{})}
	s.running = append(s.running, c)
	return c
}

func (s *slot[T]) run(ctx context.Context, c *call[T], gen uint64) {
	s.recorder.FetchStarted(ctx, s.name)
	s.logger.Debug("Fetching collection", zap.String("collection", string(s.name)))
	start := time.Now()

	val, err := s.safeFetch(ctx)
	elapsed := time.Since(start)
	s.recorder.FetchFinished(ctx, s.name, elapsed, err)

	s.mu.Lock()
	s.removeRunningLocked(c)
	applied := false
	if err == nil {
		if gen == s.generation {
			s.data = val
			s.loaded = true
			s.epoch++
			clear(s.pending)
			s.enqueueLocked(ctx)
			applied = true
		}
		c.val = s.snapshot(val)
	} else {
		c.err = err
	}
	s.mu.Unlock()
	close(c.done)

	if err != nil {
		s.logger.Warn("Collection fetch failed, keeping previous snapshot",
			zap.String("collection", string(s.name)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return
	}
	s.logger.Debug("Collection fetched",
		zap.String("collection", string(s.name)),
		zap.Duration("elapsed", elapsed))
	if applied {
		s.drain()
	}
}

func (s *slot[T]) safeFetch(ctx context.Context) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache: fetch %s panicked: %v", s.name, r)
		}
	}()
	return s.fetch(ctx)
}

func (s *slot[T]) removeRunningLocked(c *call[T]) {
	for i, r := range s.running {
		if r == c {
			s.running = append(s.running[:i:i], s.running[i+1:]...)
			return
		}
	}
}

// enqueueLocked queues a notification for the current listeners
func (s *slot[T]) enqueueLocked(ctx context.Context) {
	listeners := make([]Listener, len(s.listeners))
	for i, r := range s.listeners {
		listeners[i] = r.fn
	}
	s.queue = append(s.queue, emission{ctx: ctx, listeners: listeners})
}

// drain delivers queued emissions unless another call is already doing so,
// in which case that call delivers them after its current emission.
func (s *slot[T]) drain() {
	s.mu.Lock()
	if s.emitting {
		s.mu.Unlock()
		return
	}
	s.emitting = true
	for len(s.queue) > 0 {
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		for _, l := range e.listeners {
			s.callListener(l)
		}
		s.recorder.Notified(e.ctx, s.name, len(e.listeners))

		s.mu.Lock()
	}
	s.queue = nil
	s.emitting = false
	s.mu.Unlock()
}

// mutate applies fn to the snapshot under the lock, then notifies listeners.
// fn may return false to skip notification.
func (s *slot[T]) mutate(fn func(data T) (T, bool)) {
	s.mu.Lock()
	data, notify := fn(s.data)
	s.data = data
	if notify {
		s.enqueueLocked(context.Background())
	}
	s.mu.Unlock()

	if notify {
		s.drain()
	}
}

// releaseLocked drops one pending marker for key
func (s *slot[T]) releaseLocked(key string) {
	if n := s.pending[key]; n > 1 {
		s.pending[key] = n - 1
	} else {
		delete(s.pending, key)
	}
}

func (s *slot[T]) callListener(l Listener) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Collection listener panicked",
				zap.String("collection", string(s.name)),
				zap.Any("panic", r))
		}
	}()
	l()
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.data = s.snapshot(zero)
	s.loaded = false
	s.running = nil
	s.listeners = nil
	s.queue = nil
	s.generation++
	s.epoch++
	clear(s.pending)
}

// Mutation is an optimistic change awaiting confirmation from the store
type Mutation struct {
	once     sync.Once
	commit   func()
	rollback func()
}

// Commit confirms the change and clears its pending marker
func (m *Mutation) Commit() {
	m.once.Do(m.commit)
}

// Rollback undoes the change and notifies listeners. It does nothing when
// the snapshot was replaced by a fetch since the change was applied.
func (m *Mutation) Rollback() {
	m.once.Do(m.rollback)
}
