// Package pubsub fans dispatch events out to subscription streams.
package pubsub

import (
	"context"
	"sync"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Bus is an in-process broadcaster. Publish never blocks: a subscriber whose
// buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	subs   map[chan interface{}]struct{}
	buffer int
}

// New returns a Bus whose subscriber channels hold buffer events.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{subs: make(map[chan interface{}]struct{}), buffer: buffer}
}

// Publish delivers v to every current subscriber.
func (b *Bus) Publish(v interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe returns a channel of published events. The channel is closed
// once ctx is done.
func (b *Bus) Subscribe(ctx context.Context) <-chan interface{} {
	ch := make(chan interface{}, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

// Len reports the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
