// File: pool/freelist.go
// Author: momentics <momentics@gmail.com>
//
// Freelist is an unbounded recycled-allocation cache, trimmed by a periodic compaction job rather than a fixed
// capacity. Callers own GC scheduling; Freelist only owns the storage and
// the trim arithmetic.

package pool

import "sync"

// Freelist caches released *T values for reuse by New on a later Get.
type Freelist[T any] struct {
	mu    sync.Mutex
	items []T
	new   func() T
}

// NewFreelist constructs an empty freelist. newFn allocates a fresh T when
// the freelist is empty on Get.
func NewFreelist[T any](newFn func() T) *Freelist[T] {
	return &Freelist[T]{new: newFn}
}

// Get returns a recycled item if one is available, else allocates one.
func (f *Freelist[T]) Get() T {
	f.mu.Lock()
	if n := len(f.items); n > 0 {
		v := f.items[n-1]
		f.items = f.items[:n-1]
		f.mu.Unlock()
		return v
	}
	f.mu.Unlock()
	return f.new()
}

// Put returns an item to the freelist for later reuse.
func (f *Freelist[T]) Put(v T) {
	f.mu.Lock()
	f.items = append(f.items, v)
	f.mu.Unlock()
}

// Len reports the number of items currently cached.
func (f *Freelist[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Trim shrinks the freelist toward floor when it holds more than floor
// entries and more than liveCount live entries are currently in use
// elsewhere.
// It returns the number of entries actually dropped.
func (f *Freelist[T]) Trim(floor, liveCount int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.items)
	if n <= floor || n <= liveCount {
		return 0
	}
	excess := n - floor
	drop := excess / 2
	if drop <= 0 {
		return 0
	}
	if n-drop < floor {
		drop = n - floor
	}
	f.items = f.items[:n-drop]
	return drop
}
