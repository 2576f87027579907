package alloc

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/prataprc/chunkpool/api"
)

// Array is a UserAllocator that draws blocks from Go's own heap via
// make([]byte, n) and pins each block with its own runtime.Pinner so
// the garbage collector never moves or frees it out from under a Pool
// that only ever sees an unsafe.Pointer into the middle of it. Use this
// flavor when the pooled objects never leave Go and there is no need to
// pay cgo's call overhead.
type Array struct {
	mu     sync.Mutex
	blocks map[unsafe.Pointer]*arrayBlock
}

type arrayBlock struct {
	buf    []byte
	pinner runtime.Pinner
}

// alignment is the byte boundary Acquire rounds its returned address up
// to. make([]byte, n) does not itself promise any particular alignment
// for n not a power of two, so Acquire pads and reslices the way
// GoAllocator.Allocate does.
const alignment = int64(unsafe.Sizeof(uintptr(0)))

func roundUpToAlignment(addr uintptr) uintptr {
	a := uintptr(alignment)
	return (addr + a - 1) &^ (a - 1)
}

// NewArray returns an Array allocator.
func NewArray() *Array {
	return &Array{blocks: make(map[unsafe.Pointer]*arrayBlock)}
}

// Acquire implements api.UserAllocator.
func (a *Array) Acquire(n int64) unsafe.Pointer {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n+alignment)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	next := roundUpToAlignment(addr)
	shift := int64(next - addr)
	buf = buf[shift : n+shift : n+shift]

	block := &arrayBlock{buf: buf}
	p := unsafe.Pointer(&block.buf[0])
	block.pinner.Pin(p)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.blocks[p] = block
	return p
}

// Release implements api.UserAllocator.
func (a *Array) Release(p unsafe.Pointer) {
	if p == nil {
		panic("alloc.Array.Release(): nil pointer")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	block, ok := a.blocks[p]
	if !ok {
		panic("alloc.Array.Release(): pointer not owned by this allocator")
	}
	block.pinner.Unpin()
	delete(a.blocks, p)
}

var _ api.UserAllocator = (*Array)(nil)
