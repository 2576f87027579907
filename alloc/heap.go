// Functions and methods are not thread safe.

package alloc

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

import "github.com/prataprc/chunkpool/api"

// Heap is a UserAllocator that draws blocks straight from the C heap
// via malloc/free, bypassing the Go garbage collector entirely. This is
// the flavor a Pool wants when the objects it doles out must have a
// stable address for the lifetime of the process, or must be handed to
// C code.
type Heap struct {
	acquired int64
}

// NewHeap returns a Heap allocator.
func NewHeap() *Heap {
	return &Heap{}
}

// Acquire implements api.UserAllocator.
func (h *Heap) Acquire(n int64) unsafe.Pointer {
	if n <= 0 {
		return nil
	}
	p := C.malloc(C.size_t(n))
	if p == nil {
		return nil
	}
	h.acquired += n
	return p
}

// Release implements api.UserAllocator.
func (h *Heap) Release(p unsafe.Pointer) {
	if p == nil {
		panic("alloc.Heap.Release(): nil pointer")
	}
	C.free(p)
}

// Acquired returns the cumulative number of bytes handed out by Acquire,
// not adjusted for Release calls; it is a diagnostic counter, not a live
// balance.
func (h *Heap) Acquired() int64 {
	return h.acquired
}

var _ api.UserAllocator = (*Heap)(nil)
