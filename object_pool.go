package pool

import (
	"unsafe"
)

// ObjectPool is a typed façade over a Pool: New both allocates a chunk
// and runs an initializer on it, and Close walks whatever chunks were
// never returned and finalizes each one before the underlying storage
// is released, mirroring how a C++ object_pool destructor sweeps its
// block list calling ~T() on every chunk still outstanding.
//
// T must not hold any pointer into itself, since the space New hands
// back is reused directly as free-list link storage once freed.
type ObjectPool[T any] struct {
	pool     *Pool
	init     func(*T) error
	finalize func(*T)
}

// NewObjectPool constructs an ObjectPool for values of type T. init, if
// not nil, runs on every value handed out by New; if it returns an
// error the chunk is freed and New propagates the error instead of
// returning the value. finalize, if not nil, runs on every value still
// outstanding when Close is called.
func NewObjectPool[T any](init func(*T) error, finalize func(*T), opts ...Option) *ObjectPool[T] {
	var zero T
	size := int64(unsafe.Sizeof(zero))
	if size == 0 {
		size = 1
	}
	return &ObjectPool[T]{
		pool:     NewPool(size, opts...),
		init:     init,
		finalize: finalize,
	}
}

// New allocates and initializes a value of type T, returning a pointer
// into pool storage. It returns nil, ErrOutOfMemory if the pool cannot
// grow, or nil and the initializer's error if init fails.
func (op *ObjectPool[T]) New() (*T, error) {
	chunk := op.pool.OrderedMalloc()
	if chunk == nil {
		return nil, ErrOutOfMemory
	}
	obj := (*T)(chunk)
	*obj = *new(T)
	if op.init != nil {
		if err := op.init(obj); err != nil {
			op.pool.OrderedFree(chunk)
			return nil, err
		}
	}
	return obj, nil
}

// Free finalizes obj, if a finalizer was configured, and returns its
// storage to the pool. obj must have been returned by New on this same
// ObjectPool and must not be used again afterwards.
func (op *ObjectPool[T]) Free(obj *T) {
	if op.finalize != nil {
		op.finalize(obj)
	}
	op.pool.OrderedFree(unsafe.Pointer(obj))
}

// IsFrom reports whether obj was allocated from this ObjectPool.
func (op *ObjectPool[T]) IsFrom(obj *T) bool {
	return op.pool.IsFrom(unsafe.Pointer(obj))
}

// NextSize passes through the underlying Pool's NextSize.
func (op *ObjectPool[T]) NextSize() int64 {
	return op.pool.NextSize()
}

// Allocate returns a raw, uninitialized chunk from the underlying Pool,
// bypassing init, mirroring object_pool<T,A>'s inherited
// pool_base::malloc(). Pair it with Deallocate, not Free, since Free
// runs finalize on whatever New would have initialized.
func (op *ObjectPool[T]) Allocate() *T {
	chunk := op.pool.OrderedMalloc()
	if chunk == nil {
		return nil
	}
	return (*T)(chunk)
}

// Deallocate returns a chunk obtained from Allocate directly to the
// pool without running finalize, mirroring pool_base::free().
func (op *ObjectPool[T]) Deallocate(obj *T) {
	op.pool.OrderedFree(unsafe.Pointer(obj))
}

// Close finalizes every object still outstanding (i.e. never passed to
// Free) and releases every block back to the underlying UserAllocator.
// The ObjectPool must not be used after Close.
func (op *ObjectPool[T]) Close() {
	if op.finalize != nil {
		op.sweepOutstanding()
	}
	op.pool.PurgeMemory()
}

// sweepOutstanding walks the block list in parallel with the free list,
// exactly as a C++ object_pool destructor does, finalizing every chunk
// that is not present in the free list.
func (op *ObjectPool[T]) sweepOutstanding() {
	p := op.pool
	iter := p.blockList
	if !iter.Valid() {
		return
	}
	freedIter := p.freeList.first

	for iter.Valid() {
		next := iter.Next()
		for i := uintptr(iter.base); i != uintptr(iter.End()); i += uintptr(p.partitionSize) {
			chunk := unsafe.Pointer(i)
			if chunk == freedIter {
				freedIter = nextOf(freedIter)
				continue
			}
			op.finalize((*T)(chunk))
		}
		iter = next
	}
}
