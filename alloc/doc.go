// Package alloc supplies the two UserAllocator flavors a Pool can be
// backed by: Heap, which draws from the C heap through cgo, and Array,
// which draws from Go's own garbage-collected heap and pins the memory
// it hands out so the collector never relocates or reclaims it while a
// pool still owns it.
package alloc
