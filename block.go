package pool

import (
	"unsafe"

	"github.com/prataprc/chunkpool/lib"
)

// wordSize is the space, in bytes, occupied by a pointer or an int64
// footer field; the two are the same size on every platform Go
// targets, but the constant documents which invariant footerSize
// relies on.
const wordSize = int64(unsafe.Sizeof(uintptr(0)))

// footerSize is the space reserved at the tail of every block for its
// next-pointer and next-size fields, aligned to the least common
// multiple of an int64 and a pointer so both fields land on a boundary
// either type can be read from directly.
var footerSize = lib.LCM(wordSize, wordSize) + wordSize

// block describes one memory block a Pool obtained from its
// UserAllocator. Blocks form a singly-linked list threaded through a
// footer at the tail of each block's memory, mirroring how PODptr
// stores the block-list pointer inline with the data it owns instead of
// in a separate node allocation.
//
// A zero-value block is invalid; the zero value of base is nil and
// Valid reports false for it.
type block struct {
	base      unsafe.Pointer // first byte of the block, including its chunk area
	totalSize int64          // size of the whole block, chunk area plus footer
}

// Valid reports whether b refers to an actual block.
func (b block) Valid() bool {
	return b.base != nil
}

// ElementSize returns the number of bytes available to chunks, i.e.
// totalSize minus the footer reserved for the next-block links.
func (b block) ElementSize() int64 {
	return b.totalSize - footerSize
}

// End returns the address one past the last chunk byte, i.e. the start
// of this block's footer.
func (b block) End() unsafe.Pointer {
	return unsafe.Pointer(uintptr(b.base) + uintptr(b.ElementSize()))
}

func (b block) nextSizePtr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(b.base) + uintptr(b.totalSize-wordSize))
}

func (b block) nextPtrPtr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(b.nextSizePtr()) - uintptr(wordSize))
}

// NextSize returns the total size of the next block in the list.
func (b block) NextSize() int64 {
	return *(*int64)(b.nextSizePtr())
}

// NextBase returns the base pointer of the next block in the list.
func (b block) NextBase() unsafe.Pointer {
	return *(*unsafe.Pointer)(b.nextPtrPtr())
}

// Next returns the block that follows b in the list.
func (b block) Next() block {
	return block{base: b.NextBase(), totalSize: b.NextSize()}
}

// SetNext writes next's identity into b's footer, linking b to next.
func (b block) SetNext(next block) {
	*(*unsafe.Pointer)(b.nextPtrPtr()) = next.base
	*(*int64)(b.nextSizePtr()) = next.totalSize
}

// isFrom reports whether chunk lies within [base, base+size), using a
// total pointer order so the comparison is well-defined even though
// chunk may have nothing to do with this allocation.
func isFrom(chunk, base unsafe.Pointer, size int64) bool {
	end := unsafe.Pointer(uintptr(base) + uintptr(size))
	return lib.PtrCompare(base, chunk) <= 0 && lib.PtrLess(chunk, end)
}

// IsFrom reports whether chunk lies in b's chunk area.
func (b block) IsFrom(chunk unsafe.Pointer) bool {
	return isFrom(chunk, b.base, b.ElementSize())
}
