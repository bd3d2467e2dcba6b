// Package rtlog is the logging path for the audio thread.
//
// The audio thread must never block or allocate, so it cannot call a normal
// logger. Instead it pushes fixed-size records into a bounded ring; a
// background goroutine drains the ring and forwards each record to a
// charmbracelet logger where blocking is harmless. When the ring is full the
// record is dropped and a drop counter is bumped; losing a diagnostic line
// is always preferable to stalling the device callback.
//
// Records carry a static message string plus two integer arguments, which
// covers every diagnostic the engine emits (latency clamps, sample-rate
// mismatches, tracks loaded without a beat grid) without formatting on the
// producer side.
package rtlog

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Level mirrors the subset of log levels the audio thread uses.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Record is one preformatted log event. Msg must be a constant string so
// that pushing a record performs no allocation.
type Record struct {
	Level Level
	Msg   string
	A, B  int64
	seq   uint64
}

// Ring is a single-producer bounded log ring. The producer is the audio
// thread; the consumer is the drain goroutine started by Start.
type Ring struct {
	buf  []Record
	mask uint64
	head atomic.Uint64 // next write (producer only)
	tail atomic.Uint64 // next read (consumer only)

	dropped atomic.Uint64

	logger *log.Logger
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewRing creates a log ring with the given capacity, rounded up to a power
// of two (minimum 64).
func NewRing(capacity int) *Ring {
	size := 64
	for size < capacity {
		size <<= 1
	}
	return &Ring{
		buf:  make([]Record, size),
		mask: uint64(size - 1),
		stop: make(chan struct{}),
	}
}

// Push enqueues a record from the audio thread. Wait-free; drops the record
// when the consumer has fallen a full ring behind.
func (r *Ring) Push(level Level, msg string, a, b int64) {
	head := r.head.Load()
	if head-r.tail.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return
	}
	slot := &r.buf[head&r.mask]
	slot.Level = level
	slot.Msg = msg
	slot.A = a
	slot.B = b
	r.head.Store(head + 1)
}

// Dropped returns the number of records lost to a full ring.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}

// Start launches the drain goroutine, forwarding records to logger every
// interval. Must be called before the audio thread starts pushing.
func (r *Ring) Start(logger *log.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	r.logger = logger
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.drain()
			case <-r.stop:
				r.drain()
				return
			}
		}
	}()
}

// Stop flushes remaining records and stops the drain goroutine.
func (r *Ring) Stop() {
	close(r.stop)
	r.wg.Wait()
}

func (r *Ring) drain() {
	tail := r.tail.Load()
	head := r.head.Load()
	for ; tail != head; tail++ {
		rec := r.buf[tail&r.mask]
		r.emit(rec)
	}
	r.tail.Store(tail)
	if n := r.dropped.Swap(0); n > 0 && r.logger != nil {
		r.logger.Warn("audio log records dropped", "count", n)
	}
}

func (r *Ring) emit(rec Record) {
	if r.logger == nil {
		return
	}
	switch rec.Level {
	case LevelDebug:
		r.logger.Debug(rec.Msg, "a", rec.A, "b", rec.B)
	case LevelInfo:
		r.logger.Info(rec.Msg, "a", rec.A, "b", rec.B)
	case LevelWarn:
		r.logger.Warn(rec.Msg, "a", rec.A, "b", rec.B)
	default:
		r.logger.Error(rec.Msg, "a", rec.A, "b", rec.B)
	}
}
