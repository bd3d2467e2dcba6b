package reclaim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type bigBuffer struct {
	data []float32
}

func TestReleaseDefersReclamation(t *testing.T) {
	buf := &bigBuffer{data: make([]float32, 1024)}
	h := New(buf)

	assert.Same(t, buf, h.Get())

	h.Release()

	// Value is queued, not yet severed.
	assert.Equal(t, int64(1), Pending())

	Drain()
	assert.Equal(t, int64(0), Pending())
}

func TestCloneKeepsValueAlive(t *testing.T) {
	finalized := false
	h := NewWithFinalizer(&bigBuffer{}, func(*bigBuffer) { finalized = true })
	h2 := h.Clone()

	h.Release()
	Drain()
	assert.False(t, finalized, "value reclaimed while a clone is live")
	assert.NotNil(t, h2.Get())

	h2.Release()
	Drain()
	assert.True(t, finalized)
}

func TestZeroHandle(t *testing.T) {
	var h Handle[bigBuffer]
	assert.True(t, h.IsZero())
	assert.Nil(t, h.Get())
	h.Release() // must not panic
}

func TestReleaseDoesNotAllocate(t *testing.T) {
	// Steady state: handles are created off the audio thread; only Release
	// runs on it.
	handles := make([]Handle[bigBuffer], 128)
	mk := func() {
		for i := range handles {
			handles[i] = New(&bigBuffer{})
		}
	}
	mk()
	i := 0
	allocs := testing.AllocsPerRun(100, func() {
		handles[i%len(handles)].Release()
		i++
	})
	assert.Zero(t, allocs, "Release must not allocate")
	Drain()
}
