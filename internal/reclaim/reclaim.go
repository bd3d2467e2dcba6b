// Package reclaim provides deferred reclamation for large audio buffers.
//
// Releasing the last reference to a multi-hundred-megabyte stem buffer must
// not happen on the audio thread: severing the reference there makes the
// buffer eligible for collection mid-callback, and any explicit teardown work
// (pools, mapped regions) would run at real-time priority. A Handle behaves
// like an ordinary counted reference, except that when the count reaches
// zero the underlying value is pushed onto a lock-free stack and a dedicated
// background goroutine severs the reference and runs the finalizer on its
// own schedule.
//
// The push is wait-free and performs no allocation: the stack node is
// embedded in the shared header that was allocated when the handle was
// created. The reclaim goroutine drains the stack every ~100 ms.
//
// Values still in flight when the process exits are leaked deliberately; the
// OS reclaims everything on exit.
package reclaim

import (
	"sync"
	"sync/atomic"
	"time"
)

// ReclaimInterval is how often the background goroutine drains the stack.
const ReclaimInterval = 100 * time.Millisecond

// node is the intrusive stack link embedded in every shared header.
type node struct {
	next    *node
	release func()
}

var (
	head     atomic.Pointer[node]
	pending  atomic.Int64
	startGC  sync.Once
	gcTicker *time.Ticker
)

// Warmup starts the reclamation goroutine. Handles trigger it lazily on
// first use, but the engine calls Warmup during construction so the
// goroutine exists before the audio thread starts.
func Warmup() {
	startGC.Do(func() {
		gcTicker = time.NewTicker(ReclaimInterval)
		go func() {
			for range gcTicker.C {
				Drain()
			}
		}()
	})
}

// Drain synchronously reclaims everything queued so far. The background
// goroutine calls this periodically; tests call it directly.
func Drain() {
	n := head.Swap(nil)
	for n != nil {
		next := n.next
		n.release()
		n.next = nil
		pending.Add(-1)
		n = next
	}
}

// Pending returns the number of values queued but not yet reclaimed.
func Pending() int64 {
	return pending.Load()
}

// enqueue pushes a node with a CAS loop. No allocation, no locks; safe from
// the audio thread.
func enqueue(n *node) {
	pending.Add(1)
	for {
		old := head.Load()
		n.next = old
		if head.CompareAndSwap(old, n) {
			return
		}
	}
}

// shared is the reference-counted header for one tracked value.
type shared[T any] struct {
	node      node
	refs      atomic.Int32
	value     *T
	finalizer func(*T)
}

// Handle is a counted reference to a reclaim-tracked value. The zero Handle
// is empty. Handles are values; copy them freely, but balance every New and
// Clone with exactly one Release.
type Handle[T any] struct {
	s *shared[T]
}

// New wraps v in a tracked handle with a reference count of one.
func New[T any](v *T) Handle[T] {
	return NewWithFinalizer(v, nil)
}

// NewWithFinalizer additionally registers fn to run on the reclaim
// goroutine just before the value reference is severed.
func NewWithFinalizer[T any](v *T, fn func(*T)) Handle[T] {
	Warmup()
	s := &shared[T]{value: v, finalizer: fn}
	s.refs.Store(1)
	s.node.release = func() {
		if s.finalizer != nil {
			s.finalizer(s.value)
		}
		s.value = nil
	}
	return Handle[T]{s: s}
}

// Clone increments the reference count and returns a new handle to the same
// value. Safe from any thread.
func (h Handle[T]) Clone() Handle[T] {
	if h.s != nil {
		h.s.refs.Add(1)
	}
	return h
}

// Get returns the tracked value, or nil for an empty or released handle.
func (h Handle[T]) Get() *T {
	if h.s == nil {
		return nil
	}
	return h.s.value
}

// IsZero reports whether the handle is empty.
func (h Handle[T]) IsZero() bool {
	return h.s == nil
}

// Release decrements the reference count; the last release enqueues the
// value for background reclamation. Wait-free, allocation-free, safe from
// the audio thread. The handle must not be used afterwards.
func (h Handle[T]) Release() {
	if h.s == nil {
		return
	}
	if h.s.refs.Add(-1) == 0 {
		enqueue(&h.s.node)
	}
}
