package api

import "unsafe"

// Pooler is the shape a fixed-chunk-size allocator presents to code
// that only needs to hand out and reclaim chunks, without depending on
// the concrete pool package: Malloc/Free are the fast, unordered path;
// OrderedMalloc/OrderedFree keep the free list sorted so the pool can
// later reclaim empty blocks or serve contiguous multi-chunk requests.
type Pooler interface {
	RequestedSize() int64

	Malloc() unsafe.Pointer
	Free(chunk unsafe.Pointer)

	OrderedMalloc() unsafe.Pointer
	OrderedFree(chunk unsafe.Pointer)

	IsFrom(chunk unsafe.Pointer) bool
}

// ContainerAllocator is the shape a container-facing allocator presents
// once it commits to a single element type T's worth of chunk size:
// Allocate/Deallocate work in units of elements, not bytes, letting a
// container ask for n contiguous elements without knowing sizeof(T)
// itself.
type ContainerAllocator[T any] interface {
	Allocate(n int) (*T, error)
	Deallocate(ptr *T, n int)
}
