// Package pool implements a fast fixed-chunk-size memory allocator on
// top of a pluggable UserAllocator. A Pool doles out chunks of a single
// requested size from blocks it requests from its UserAllocator using a
// doubling growth policy, and threads an intrusive singly-linked free
// list through the chunks themselves so that freeing a chunk costs no
// more than a pointer write.
//
// ObjectPool builds a typed façade over a Pool that also runs a
// constructor and destructor on each object. Registry lets callers
// share a single Pool per (tag, size, ...) key across a process instead
// of constructing one by hand at every call site. PoolAllocator and
// FastPoolAllocator adapt a Registry entry to the shape a
// Go container needs when it wants to own its element storage.
package pool
