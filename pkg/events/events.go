// Package events provides a generic publish-subscribe broker used to fan
// a single stream of values out to many readers that must all observe
// the same sequence.
package events

import (
	"context"
	"sync"
)

// Broker fans published values out to every current subscriber.
// Subscribers are responsible for draining their channel promptly;
// Publish blocks on a full subscriber buffer rather than dropping a
// value, because silently dropping a value here means a subscriber's
// view of the stream silently diverges from every other subscriber's.
type Broker[T any] struct {
	mu          sync.RWMutex
	subscribers map[chan T]bool
}

// NewBroker creates an empty broker ready to accept subscribers.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[chan T]bool),
	}
}

// Subscribe returns a new channel that receives every value published
// from this point on, in publish order. The channel has the given
// buffer depth.
func (b *Broker[T]) Subscribe(bufferDepth int) chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, bufferDepth)
	b.subscribers[ch] = true
	return ch
}

// Unsubscribe removes and closes a subscriber channel. Safe to call
// more than once for the same channel.
func (b *Broker[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Publish delivers a value to every current subscriber, blocking until
// each has accepted it or ctx is done, whichever comes first. If ctx is
// cancelled partway through, some subscribers may have already received
// v and others not; callers that need all-or-nothing delivery must
// arrange their own coordination, but during shutdown a half-delivered
// publish is harmless since every subscriber is about to be torn down.
func (b *Broker[T]) Publish(ctx context.Context, v T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- v:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// CloseAll closes every subscriber channel, signalling that no further
// values will be published.
func (b *Broker[T]) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
