// Package streams implements the publication fabric: bounded, multi-
// subscriber, drop-on-backpressure fan-out. Follows a
// channel-based trade-channel pattern (order_matching.Engine.TradeChannel,
// a buffered channel drained with a non-blocking select-default drop) and
// generalized into a multi-subscriber broadcaster resembling watermill's
// pubsub/gochannel fan-out-per-subscriber model.
package streams

import (
	"sync"
	"time"
)

// DefaultDropTimeout is how long publish waits for room on the main queue
// before counting a drop.
const DefaultDropTimeout = time.Millisecond

// DefaultMaxSize is the default capacity of the main queue and every
// subscriber queue.
const DefaultMaxSize = 1024

// BoundedStream is a multi-subscriber, bounded-queue fan-out for one
// message type. No publisher ever blocks on a slow consumer: a slow
// subscriber only drops its own messages.
type BoundedStream[T any] struct {
	main        chan T
	dropTimeout time.Duration
	maxSize     int

	mu          sync.Mutex
	subscribers map[*subscriber[T]]struct{}
	closed      bool
	dropped     uint64

	wg sync.WaitGroup
}

type subscriber[T any] struct {
	ch      chan T
	dropped uint64
}

// New returns a BoundedStream with the given main/subscriber queue capacity
// and publish drop timeout, and starts its background forwarder.
func New[T any](maxSize int, dropTimeout time.Duration) *BoundedStream[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if dropTimeout <= 0 {
		dropTimeout = DefaultDropTimeout
	}
	s := &BoundedStream[T]{
		main:        make(chan T, maxSize),
		dropTimeout: dropTimeout,
		maxSize:     maxSize,
		subscribers: make(map[*subscriber[T]]struct{}),
	}
	s.wg.Add(1)
	go s.forward()
	return s
}

// Publish places t on the main queue, waiting up to the configured drop
// timeout for room. Returns false and counts a drop on timeout; returns
// false without counting a drop if the stream is closed.
func (s *BoundedStream[T]) Publish(t T) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.dropTimeout)
	defer timer.Stop()
	select {
	case s.main <- t:
		return true
	case <-timer.C:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return false
	}
}

// PublishNowait places t on the main queue without ever waiting.
func (s *BoundedStream[T]) PublishNowait(t T) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	select {
	case s.main <- t:
		return true
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return false
	}
}

// Subscription is a consumer's view of a BoundedStream: Items yields
// published items in publish order (subject to this subscriber's own
// drops) and is closed when the stream is closed — a ranging consumer
// sees end-of-sequence as normal channel closure.
type Subscription[T any] struct {
	Items <-chan T

	stream *BoundedStream[T]
	sub    *subscriber[T]
}

// Subscribe registers a new subscriber queue of the stream's configured
// capacity.
func (s *BoundedStream[T]) Subscribe() *Subscription[T] {
	sub := &subscriber[T]{ch: make(chan T, s.maxSize)}
	s.mu.Lock()
	closed := s.closed
	if !closed {
		s.subscribers[sub] = struct{}{}
	}
	s.mu.Unlock()

	if closed {
		close(sub.ch)
	}
	return &Subscription[T]{Items: sub.ch, stream: s, sub: sub}
}

// Unsubscribe removes the subscriber so the forwarder stops routing to it.
func (sub *Subscription[T]) Unsubscribe() {
	sub.stream.mu.Lock()
	defer sub.stream.mu.Unlock()
	delete(sub.stream.subscribers, sub.sub)
}

// Close signals end-of-sequence to every current and future subscriber and
// stops accepting new publishes.
func (s *BoundedStream[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.main)
	s.mu.Unlock()
	s.wg.Wait()
}

// Dropped returns the number of messages dropped on the main queue (before
// fan-out); per-subscriber drops are not surfaced here since a slow
// consumer must never affect others' delivery accounting.
func (s *BoundedStream[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *BoundedStream[T]) forward() {
	defer s.wg.Done()
	for item := range s.main {
		s.mu.Lock()
		subs := make([]*subscriber[T], 0, len(s.subscribers))
		for sub := range s.subscribers {
			subs = append(subs, sub)
		}
		s.mu.Unlock()

		for _, sub := range subs {
			select {
			case sub.ch <- item:
			case <-time.After(s.dropTimeout):
				s.mu.Lock()
				sub.dropped++
				s.mu.Unlock()
			}
		}
	}

	s.mu.Lock()
	subs := make([]*subscriber[T], 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.subscribers = make(map[*subscriber[T]]struct{})
	s.mu.Unlock()
	for _, sub := range subs {
		close(sub.ch)
	}
}
