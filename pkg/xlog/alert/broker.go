// Package alert fans values out to live subscribers without ever blocking the
// publisher. Each subscriber owns a bounded channel; when it is full the value
// is dropped for that subscriber only. There is no buffering for absent
// subscribers and no replay.
package alert

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultBuffer is the channel capacity used when Subscribe is given a
// non-positive size.
const DefaultBuffer = 64

// Option customizes a Broker.
type Option[T any] func(b *Broker[T])

// WithOnDrop registers a callback invoked every time a value is dropped
// because a subscriber's channel is full.
func WithOnDrop[T any](fn func()) Option[T] {
	return func(b *Broker[T]) {
		b.onDrop = fn
	}
}

// Broker is an observer registry. It is safe for concurrent use.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription[T]
	closed bool
	onDrop func()
}

// NewBroker creates an empty broker.
func NewBroker[T any](opts ...Option[T]) *Broker[T] {
	b := &Broker[T]{
		subs: make(map[string]*Subscription[T]),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription is a live view of published values.
type Subscription[T any] struct {
	id      string
	ch      chan T
	broker  *Broker[T]
	once    sync.Once
	dropped atomic.Uint64
}

// Subscribe registers a new subscriber with a channel of the given capacity.
// Subscribing to a closed broker returns an already closed subscription.
func (b *Broker[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	s := &Subscription[T]{
		id:     uuid.NewString(),
		ch:     make(chan T, buffer),
		broker: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	b.subs[s.id] = s
	return s
}

// Publish offers v to every current subscriber and returns how many accepted
// it. It never blocks.
func (b *Broker[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, s := range b.subs {
		select {
		case s.ch <- v:
			delivered++
		default:
			s.dropped.Add(1)
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
	return delivered
}

// Len returns the number of active subscribers.
func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription and rejects new ones.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		s.once.Do(func() { close(s.ch) })
	}
}

func (b *Broker[T]) remove(s *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, s.id)
	s.once.Do(func() { close(s.ch) })
}

// ID returns the subscription identifier.
func (s *Subscription[T]) ID() string {
	return s.id
}

// C returns the receive channel. It is closed when the subscription or the
// broker is closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped returns how many values were dropped because C was full.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.broker.remove(s)
}
