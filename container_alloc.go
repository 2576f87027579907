package pool

// PoolAllocator and FastPoolAllocator adapt a shared Registry entry to
// the shape a Go container wants when it owns element storage itself
// rather than letting the runtime's allocator place it: a way to get n
// contiguous elements and a way to give them back, sized off a Key so
// unrelated containers of the same element size never share storage
// unless they ask to by using the same Tag.
//
// PoolAllocator routes every request through MallocN/OrderedFreeN so
// that n > 1 requests can find contiguous runs; FastPoolAllocator does
// the same for n > 1 but sends n == 1 requests down the unordered
// Malloc/Free fast path, mirroring how fast_pool_allocator special-cases
// n == 1 to call plain malloc instead of ordered_malloc.

import (
	"unsafe"

	"github.com/prataprc/chunkpool/api"
)

// PoolAllocator allocates contiguous runs of T from a shared
// SingletonPool, always through the ordered path.
type PoolAllocator[T any] struct {
	sp *SingletonPool
}

// NewPoolAllocator builds a PoolAllocator for type T, sharing storage
// through reg keyed by key (key.RequestedSize is overwritten with
// sizeof(T) since the allocator, not the caller, controls the chunk
// size for its own type).
func NewPoolAllocator[T any](reg *Registry, key Key) *PoolAllocator[T] {
	key.RequestedSize = sizeOf[T]()
	return &PoolAllocator[T]{sp: reg.GetPool(key)}
}

// Allocate returns a pointer to n contiguous, uninitialized values of
// type T, or nil, ErrOutOfMemory if the underlying UserAllocator cannot
// supply another block.
func (a *PoolAllocator[T]) Allocate(n int) (*T, error) {
	if n <= 0 {
		return nil, nil
	}
	ptr := a.sp.MallocN(int64(n))
	if ptr == nil {
		return nil, ErrOutOfMemory
	}
	return (*T)(ptr), nil
}

// Deallocate returns n contiguous values, previously obtained from
// Allocate with the same n, to the pool.
func (a *PoolAllocator[T]) Deallocate(ptr *T, n int) {
	if ptr == nil || n <= 0 {
		return
	}
	a.sp.OrderedFreeN(unsafe.Pointer(ptr), int64(n))
}

// Address returns x unchanged. It exists for parity with
// pool_allocator<T,...>::address(reference), a C++03 allocator
// requirement that is a no-op in Go: a *T already is the address of
// the value it points to.
func (a *PoolAllocator[T]) Address(x *T) *T {
	return x
}

// MaxSize returns the cap on chunks per new block the underlying Pool
// enforces, or zero if unbounded, mirroring
// pool_allocator<T,...>::max_size().
func (a *PoolAllocator[T]) MaxSize() int64 {
	return a.sp.MaxSize()
}

// FastPoolAllocator is PoolAllocator with a single-element fast path
// that bypasses the ordered free-list search MallocN/OrderedFreeN pay
// for. Chunks freed through that path go to the head of the free list
// unordered, so later n > 1 requests may not find runs among them.
type FastPoolAllocator[T any] struct {
	PoolAllocator[T]
}

// NewFastPoolAllocator builds a FastPoolAllocator for type T.
func NewFastPoolAllocator[T any](reg *Registry, key Key) *FastPoolAllocator[T] {
	key.RequestedSize = sizeOf[T]()
	return &FastPoolAllocator[T]{PoolAllocator[T]{sp: reg.GetPool(key)}}
}

// Allocate returns a single, uninitialized value of type T using the
// pool's unordered fast path, or nil, ErrOutOfMemory if the pool is out
// of memory. For n > 1 it falls back to the same ordered path
// PoolAllocator uses.
func (a *FastPoolAllocator[T]) Allocate(n int) (*T, error) {
	if n != 1 {
		return a.PoolAllocator.Allocate(n)
	}
	ptr := a.sp.Malloc()
	if ptr == nil {
		return nil, ErrOutOfMemory
	}
	return (*T)(ptr), nil
}

// Deallocate returns a single value, previously obtained from Allocate
// with n == 1, using the pool's unordered fast path. For n > 1 it falls
// back to the same ordered path PoolAllocator uses.
func (a *FastPoolAllocator[T]) Deallocate(ptr *T, n int) {
	if n != 1 {
		a.PoolAllocator.Deallocate(ptr, n)
		return
	}
	if ptr == nil {
		return
	}
	a.sp.Free(unsafe.Pointer(ptr))
}

var (
	_ api.ContainerAllocator[int] = (*PoolAllocator[int])(nil)
	_ api.ContainerAllocator[int] = (*FastPoolAllocator[int])(nil)
)

func sizeOf[T any]() int64 {
	var zero T
	size := int64(unsafe.Sizeof(zero))
	if size == 0 {
		return 1
	}
	return size
}
