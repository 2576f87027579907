package pool

import (
	"unsafe"

	"github.com/prataprc/chunkpool/lib"
)

// FreeList is a simple segregated storage: a singly-linked free list
// threaded through the free chunks themselves. A chunk that is free has
// its first machine word overwritten with the address of the next free
// chunk, or nil if it is the last one; Pool relies on this to keep
// deallocation to a single pointer write.
//
// FreeList is not safe for concurrent use.
type FreeList struct {
	first unsafe.Pointer
}

func nextOf(ptr unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(ptr)
}

func setNextOf(ptr, next unsafe.Pointer) {
	*(*unsafe.Pointer)(ptr) = next
}

// Empty reports whether the free list has no chunks left.
func (fl *FreeList) Empty() bool {
	return fl.first == nil
}

// Malloc removes and returns the head chunk of the free list. Callers
// must check Empty first; Malloc on an empty list returns nil.
func (fl *FreeList) Malloc() unsafe.Pointer {
	ret := fl.first
	if ret != nil {
		fl.first = nextOf(ret)
	}
	return ret
}

// Free pushes chunk back onto the head of the free list in O(1), at the
// cost of leaving the list unordered.
func (fl *FreeList) Free(chunk unsafe.Pointer) {
	setNextOf(chunk, fl.first)
	fl.first = chunk
}

// findPrev walks the free list and returns the chunk immediately before
// where ptr would sort, or nil if ptr sorts before every chunk already
// on the list (including when the list is empty).
func (fl *FreeList) findPrev(ptr unsafe.Pointer) unsafe.Pointer {
	if fl.first == nil || lib.PtrLess(ptr, fl.first) {
		return nil
	}
	iter := fl.first
	for {
		next := nextOf(iter)
		if next == nil || lib.PtrLess(ptr, next) {
			return iter
		}
		iter = next
	}
}

// OrderedFree inserts chunk back into the free list at its sorted
// position, in O(n) with respect to the list length. ReleaseMemory and
// MallocN rely on the free list being kept in address order, which is
// what this buys over Free.
func (fl *FreeList) OrderedFree(chunk unsafe.Pointer) {
	loc := fl.findPrev(chunk)
	if loc == nil {
		fl.Free(chunk)
		return
	}
	setNextOf(chunk, nextOf(loc))
	setNextOf(loc, chunk)
}

// segregate carves [block, block+size) into partitionSize chunks and
// links them into a free list ending in end, returning the new head.
func segregate(block unsafe.Pointer, size, partitionSize int64, end unsafe.Pointer) unsafe.Pointer {
	base := uintptr(block)
	last := base + uintptr(((size-partitionSize)/partitionSize)*partitionSize)
	setNextOf(unsafe.Pointer(last), end)

	if last == base {
		return block
	}
	for iter := last - uintptr(partitionSize); iter != base; last, iter = iter, iter-uintptr(partitionSize) {
		setNextOf(unsafe.Pointer(iter), unsafe.Pointer(last))
	}
	setNextOf(block, unsafe.Pointer(last))
	return block
}

// AddBlock segregates block into partitionSize chunks and prepends the
// resulting free list onto fl's own, in time linear in the number of
// chunks.
func (fl *FreeList) AddBlock(block unsafe.Pointer, size, partitionSize int64) {
	fl.first = segregate(block, size, partitionSize, fl.first)
}

// AddOrderedBlock is AddBlock but merges the new block's chunks into fl
// at their sorted position, keeping the list ordered end to end.
func (fl *FreeList) AddOrderedBlock(block unsafe.Pointer, size, partitionSize int64) {
	loc := fl.findPrev(block)
	if loc == nil {
		fl.AddBlock(block, size, partitionSize)
		return
	}
	setNextOf(loc, segregate(block, size, partitionSize, nextOf(loc)))
}

// tryMallocN attempts to find n contiguous chunks of partitionSize
// starting immediately after start, returning the last chunk of that
// run. On failure it returns nil and leaves start pointing at the last
// chunk it considered, so the caller can resume searching from there.
func tryMallocN(start *unsafe.Pointer, n, partitionSize int64) unsafe.Pointer {
	iter := nextOf(*start)
	for n--; n != 0; n-- {
		next := nextOf(iter)
		if uintptr(next) != uintptr(iter)+uintptr(partitionSize) {
			*start = iter
			return nil
		}
		iter = next
	}
	return iter
}

// MallocN finds and removes n contiguous chunks of partitionSize from
// the free list, returning the address of the first one, or nil if no
// such run exists. The free list must be ordered for this to find runs
// that span more than one originally-contiguous allocation.
func (fl *FreeList) MallocN(n, partitionSize int64) unsafe.Pointer {
	if n == 0 {
		return nil
	}
	slot := unsafe.Pointer(&fl.first)
	start := &slot
	var iter unsafe.Pointer
	for {
		if nextOf(*start) == nil {
			return nil
		}
		iter = tryMallocN(start, n, partitionSize)
		if iter != nil {
			break
		}
	}
	ret := nextOf(*start)
	setNextOf(*start, nextOf(iter))
	return ret
}

// FreeN returns n contiguous chunks, previously returned by MallocN, to
// the free list as a single block, at the cost of leaving the list
// unordered.
func (fl *FreeList) FreeN(chunks unsafe.Pointer, n, partitionSize int64) {
	if n != 0 {
		fl.AddBlock(chunks, n*partitionSize, partitionSize)
	}
}

// OrderedFreeN is FreeN but keeps the free list ordered.
func (fl *FreeList) OrderedFreeN(chunks unsafe.Pointer, n, partitionSize int64) {
	if n != 0 {
		fl.AddOrderedBlock(chunks, n*partitionSize, partitionSize)
	}
}
