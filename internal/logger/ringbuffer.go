package logger

import "sync"

// RingBuffer is a fixed-capacity, thread-safe FIFO that overwrites its oldest item when full.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	start int
	count int
}

// NewRingBuffer creates a ring buffer holding at most capacity items.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{items: make([]T, capacity)}
}

// Push appends an item.
func (r *RingBuffer[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.items)
	r.items[(r.start+r.count)%capacity] = item
	if r.count < capacity {
		r.count++
		return
	}
	r.start = (r.start + 1) % capacity
}

// GetAll returns every item, oldest first.
func (r *RingBuffer[T]) GetAll() []T {
	return r.Last(-1)
}

// Last returns up to n of the newest items, oldest first. n < 0 returns all.
func (r *RingBuffer[T]) Last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n < 0 || n > r.count {
		n = r.count
	}
	out := make([]T, n)
	skip := r.count - n
	for i := range n {
		out[i] = r.items[(r.start+skip+i)%len(r.items)]
	}
	return out
}

// Len returns the current number of items.
func (r *RingBuffer[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
