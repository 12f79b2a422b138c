// Package notify delivers values to subscribers asynchronously, one at a time
// and in publication order, from a single dispatch goroutine per Hub.
package notify

import (
	"sync"
	"sync/atomic"
)

type subscription[T any] struct {
	fn     func(T)
	active atomic.Bool
}

type delivery[T any] struct {
	value   T
	targets []*subscription[T]
	flushed chan struct{}
}

// Hub fans values out to subscribers. Handlers run on the hub's dispatch
// goroutine, so a slow handler delays later deliveries but never reorders them.
type Hub[T any] struct {
	mu      sync.Mutex
	subs    []*subscription[T]
	pending []delivery[T]
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func NewHub[T any]() *Hub[T] {
	h := &Hub[T]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go h.run()
	return h
}

// Subscribe registers fn for every value published after this call.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return h.subscribe(fn, nil)
}

// SubscribeWith registers fn and queues initial for fn alone, ahead of any value
// published after this call.
func (h *Hub[T]) SubscribeWith(fn func(T), initial T) (unsubscribe func()) {
	return h.subscribe(fn, &initial)
}

func (h *Hub[T]) subscribe(fn func(T), initial *T) func() {
	sub := &subscription[T]{fn: fn}
	sub.active.Store(true)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	h.subs = append(h.subs, sub)
	if initial != nil {
		h.enqueueLocked(delivery[T]{value: *initial, targets: []*subscription[T]{sub}})
	}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subs {
				if s == sub {
					h.subs = append(h.subs[:i], h.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish queues v for every current subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.subs) == 0 {
		return
	}
	targets := make([]*subscription[T], len(h.subs))
	copy(targets, h.subs)
	h.enqueueLocked(delivery[T]{value: v, targets: targets})
}

func (h *Hub[T]) enqueueLocked(d delivery[T]) {
	h.pending = append(h.pending, d)
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every delivery queued before the call has been handled.
// It must not be called from a handler.
func (h *Hub[T]) Flush() {
	ch := make(chan struct{})
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.enqueueLocked(delivery[T]{flushed: ch})
	h.mu.Unlock()

	select {
	case <-ch:
	case <-h.done:
	}
}

// Close stops the dispatch goroutine. Queued deliveries are dropped.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.pending = nil
	h.subs = nil
	h.mu.Unlock()

	close(h.done)
}

func (h *Hub[T]) run() {
	for {
		select {
		case <-h.done:
			return
		case <-h.wake:
		}

		for {
			h.mu.Lock()
			if h.closed || len(h.pending) == 0 {
				h.mu.Unlock()
				break
			}
			batch := h.pending
			h.pending = nil
			h.mu.Unlock()

			for _, d := range batch {
				if d.flushed != nil {
					close(d.flushed)
					continue
				}
				for _, sub := range d.targets {
					if sub.active.Load() {
						sub.fn(d.value)
					}
				}
			}
		}
	}
}
