package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestHeapAcquireRelease(t *testing.T) {
	h := NewHeap()
	p := h.Acquire(64)
	assert.NotEqual(t, unsafe.Pointer(nil), p)
	assert.Equal(t, int64(64), h.Acquired())
	h.Release(p)
}

func TestHeapAcquireZero(t *testing.T) {
	h := NewHeap()
	assert.Equal(t, unsafe.Pointer(nil), h.Acquire(0))
}

func TestHeapReleaseNilPanics(t *testing.T) {
	h := NewHeap()
	assert.Panics(t, func() { h.Release(nil) })
}
