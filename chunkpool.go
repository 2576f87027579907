package pool

import (
	"runtime"
	"sort"
	"unsafe"

	"github.com/prataprc/chunkpool/alloc"
	"github.com/prataprc/chunkpool/api"
	"github.com/prataprc/chunkpool/lib"
)

const defaultNextSize = int64(32)

var _ api.Pooler = (*Pool)(nil)

// Pool is a fast fixed-chunk-size allocator. It hands out chunks of
// RequestedSize() bytes, growing its backing storage from its
// UserAllocator with a doubling policy the first time it runs out of
// free chunks, and every time after that until MaxSize caps it.
//
// Pool is not safe for concurrent use; wrap it (see Registry) if more
// than one goroutine needs to share it.
type Pool struct {
	requestedSize int64
	partitionSize int64
	nextSize      int64
	startSize     int64
	maxSize       int64

	freeList  FreeList
	blockList block

	userAlloc api.UserAllocator
	log       api.Logger
	closed    bool
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithUserAllocator sets the source Pool draws blocks from. The
// default, if this option is not given, is alloc.NewHeap().
func WithUserAllocator(ua api.UserAllocator) Option {
	return func(p *Pool) { p.userAlloc = ua }
}

// WithNextSize sets the number of chunks the first block will hold, and
// the size every subsequent doubling starts back at after
// ReleaseMemory or PurgeMemory. Must be greater than zero.
func WithNextSize(n int64) Option {
	return func(p *Pool) {
		if n <= 0 {
			panic(ErrBadNextSize)
		}
		p.nextSize, p.startSize = n, n
	}
}

// WithMaxSize caps the number of chunks Malloc and OrderedMalloc will
// request for a new block, in units of requestedSize bytes. MallocN does
// not apply the cap. Zero, the default, means unbounded doubling.
func WithMaxSize(n int64) Option {
	return func(p *Pool) { p.maxSize = n }
}

// WithLogger installs a logger Pool uses to report block growth and
// release events. These calls are purely informational; nothing in
// Pool's control flow depends on the logger being present or on what
// it does with the messages.
func WithLogger(l api.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// NewPool constructs a Pool that hands out chunks of requestedSize
// bytes. requestedSize must be greater than zero.
func NewPool(requestedSize int64, opts ...Option) *Pool {
	if requestedSize <= 0 {
		panic(ErrBadRequestedSize)
	}
	p := &Pool{
		requestedSize: requestedSize,
		nextSize:      defaultNextSize,
		startSize:     defaultNextSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.partitionSize = lib.LCM(requestedSize, wordSize)
	if p.userAlloc == nil {
		p.userAlloc = alloc.NewHeap()
	}
	runtime.SetFinalizer(p, (*Pool).Close)
	return p
}

// NewPoolFromConfig builds a Pool the way NewPool does, but reads
// requestedSize, and optionally next_size/max_size, out of cfg instead
// of positional arguments, for callers that already carry pool settings
// in a generic settings map (e.g. loaded from JSON/TOML). opts, if any,
// are applied after the config-derived options, so they can still
// override what cfg specifies.
func NewPoolFromConfig(cfg lib.Config, opts ...Option) *Pool {
	cfgOpts := make([]Option, 0, 2+len(opts))
	if _, ok := cfg["next_size"]; ok {
		cfgOpts = append(cfgOpts, WithNextSize(cfg.Int64("next_size")))
	}
	if _, ok := cfg["max_size"]; ok {
		cfgOpts = append(cfgOpts, WithMaxSize(cfg.Int64("max_size")))
	}
	cfgOpts = append(cfgOpts, opts...)
	return NewPool(cfg.Int64("requested_size"), cfgOpts...)
}

// RequestedSize returns the chunk size passed to NewPool. It never
// changes over the lifetime of the Pool.
func (p *Pool) RequestedSize() int64 {
	return p.requestedSize
}

// NextSize returns the number of chunks the next new block will hold.
func (p *Pool) NextSize() int64 {
	return p.nextSize
}

// SetNextSize resets both the next growth step and the value NextSize
// returns to after ReleaseMemory/PurgeMemory. n must be greater than
// zero.
func (p *Pool) SetNextSize(n int64) {
	if n <= 0 {
		panic(ErrBadNextSize)
	}
	p.nextSize, p.startSize = n, n
}

// MaxSize returns the current cap on chunks per new block, or zero if
// unbounded.
func (p *Pool) MaxSize() int64 {
	return p.maxSize
}

// SetMaxSize changes the cap on chunks per new block.
func (p *Pool) SetMaxSize(n int64) {
	p.maxSize = n
}

// AllocSize returns partitionSize, the actual number of bytes a single
// chunk occupies: the least common multiple of RequestedSize and the
// pointer word size.
func (p *Pool) AllocSize() int64 {
	return p.partitionSize
}

func (p *Pool) blockPayload(nchunks int64) int64 {
	return nchunks*p.partitionSize + footerSize
}

func (p *Pool) growNextSize() {
	if p.maxSize == 0 {
		p.nextSize <<= 1
		return
	}
	ceiling := p.maxSize * p.requestedSize / p.partitionSize
	if p.nextSize*p.partitionSize/p.requestedSize < p.maxSize {
		doubled := p.nextSize << 1
		if doubled < ceiling {
			p.nextSize = doubled
		} else {
			p.nextSize = ceiling
		}
	}
}

func (p *Pool) allocBlock(nchunks int64) block {
	total := p.blockPayload(nchunks)
	base := p.userAlloc.Acquire(total)
	if base == nil {
		return block{}
	}
	if p.log != nil {
		p.log.Debugf("pool: grew by %d chunks of %d bytes\n", nchunks, p.requestedSize)
	}
	return block{base: base, totalSize: total}
}

func (p *Pool) linkBlockUnordered(b block) {
	b.SetNext(p.blockList)
	p.blockList = b
}

func (p *Pool) linkBlockOrdered(b block) {
	if !p.blockList.Valid() || lib.PtrLess(b.base, p.blockList.base) {
		b.SetNext(p.blockList)
		p.blockList = b
		return
	}
	prev := p.blockList
	for {
		next := prev.Next()
		if !next.Valid() || lib.PtrLess(b.base, next.base) {
			break
		}
		prev = next
	}
	b.SetNext(prev.Next())
	prev.SetNext(b)
}

func (p *Pool) mallocNeedResize() unsafe.Pointer {
	b := p.allocBlock(p.nextSize)
	if !b.Valid() {
		return nil
	}
	p.growNextSize()
	p.freeList.AddBlock(b.base, b.ElementSize(), p.partitionSize)
	p.linkBlockUnordered(b)
	return p.freeList.Malloc()
}

func (p *Pool) orderedMallocNeedResize() unsafe.Pointer {
	b := p.allocBlock(p.nextSize)
	if !b.Valid() {
		return nil
	}
	p.growNextSize()
	p.freeList.AddOrderedBlock(b.base, b.ElementSize(), p.partitionSize)
	p.linkBlockOrdered(b)
	return p.freeList.Malloc()
}

// Malloc returns a chunk from the free list, growing the pool first if
// it is empty. It returns nil if the UserAllocator is out of memory. It
// panics with ErrClosed if Close has already run.
func (p *Pool) Malloc() unsafe.Pointer {
	if p.closed {
		panic(ErrClosed)
	}
	if !p.freeList.Empty() {
		return p.freeList.Malloc()
	}
	return p.mallocNeedResize()
}

// OrderedMalloc is Malloc but keeps the free list, and the resulting
// block list, in address order. Use this flavor if you also intend to
// call ReleaseMemory, MallocN, or FreeN. It panics with ErrClosed if
// Close has already run.
func (p *Pool) OrderedMalloc() unsafe.Pointer {
	if p.closed {
		panic(ErrClosed)
	}
	if !p.freeList.Empty() {
		return p.freeList.Malloc()
	}
	return p.orderedMallocNeedResize()
}

func (p *Pool) numChunksFor(n int64) int64 {
	total := n * p.requestedSize
	chunks := total / p.partitionSize
	if total%p.partitionSize != 0 {
		chunks++
	}
	return chunks
}

// MallocN allocates n*RequestedSize contiguous bytes as a single run of
// chunks, growing the pool if no existing run is long enough. It
// returns nil if out of memory. Chunks obtained this way must be freed
// with FreeN or OrderedFreeN using the same n, never with Free.
//
// The free list must already be ordered (i.e. obtained exclusively via
// OrderedMalloc/OrderedFree so far) for MallocN to find runs among
// chunks that were freed separately. It panics with ErrClosed if Close
// has already run.
func (p *Pool) MallocN(n int64) unsafe.Pointer {
	if p.closed {
		panic(ErrClosed)
	}
	numChunks := p.numChunksFor(n)
	if ret := p.freeList.MallocN(numChunks, p.partitionSize); ret != nil {
		return ret
	}

	if numChunks > p.nextSize {
		p.nextSize = numChunks
	}
	b := p.allocBlock(p.nextSize)
	if !b.Valid() {
		return nil
	}

	if p.nextSize > numChunks {
		leftover := unsafe.Pointer(uintptr(b.base) + uintptr(numChunks*p.partitionSize))
		p.freeList.AddOrderedBlock(leftover, b.ElementSize()-numChunks*p.partitionSize, p.partitionSize)
	}
	p.nextSize <<= 1
	p.linkBlockOrdered(b)
	return b.base
}

// Free returns a single chunk, previously obtained from Malloc or
// OrderedMalloc, to the free list in O(1). chunk must not be nil.
func (p *Pool) Free(chunk unsafe.Pointer) {
	p.freeList.Free(chunk)
}

// OrderedFree is Free but keeps the free list in address order, in
// O(n) with respect to the free list's length.
func (p *Pool) OrderedFree(chunk unsafe.Pointer) {
	p.freeList.OrderedFree(chunk)
}

// FreeN returns n*RequestedSize contiguous bytes, previously obtained
// from MallocN, to the free list as a single unordered block.
func (p *Pool) FreeN(chunks unsafe.Pointer, n int64) {
	numChunks := p.numChunksFor(n)
	p.freeList.FreeN(chunks, numChunks, p.partitionSize)
}

// OrderedFreeN is FreeN but keeps the free list ordered.
func (p *Pool) OrderedFreeN(chunks unsafe.Pointer, n int64) {
	numChunks := p.numChunksFor(n)
	p.freeList.OrderedFreeN(chunks, numChunks, p.partitionSize)
}

// IsFrom reports whether chunk was allocated, or could be allocated in
// the future, from this Pool. It must not be used to test arbitrary
// pointer values not known to originate from a Pool.
func (p *Pool) IsFrom(chunk unsafe.Pointer) bool {
	for b := p.blockList; b.Valid(); b = b.Next() {
		if b.IsFrom(chunk) {
			return true
		}
	}
	return false
}

// ReleaseMemory frees every block that has no chunks currently
// allocated out of it, returning the freed blocks' storage to the
// UserAllocator. It requires the free list and block list to already be
// ordered, i.e. built exclusively through OrderedMalloc/OrderedFree/
// MallocN/OrderedFreeN. It reports whether it actually released
// anything.
func (p *Pool) ReleaseMemory() bool {
	released := false

	var prevBlock block
	curBlock := p.blockList

	freeP := p.freeList.first
	var prevFreeP unsafe.Pointer

	for curBlock.Valid() {
		if freeP == nil {
			break
		}

		allChunksFree := true
		savedFree := freeP
		for i := uintptr(curBlock.base); i != uintptr(curBlock.End()); i += uintptr(p.partitionSize) {
			if unsafe.Pointer(i) != freeP {
				allChunksFree = false
				freeP = savedFree
				break
			}
			freeP = nextOf(freeP)
		}

		next := curBlock.Next()

		if !allChunksFree {
			if isFrom(freeP, curBlock.base, curBlock.ElementSize()) {
				end := curBlock.End()
				for freeP != nil && lib.PtrLess(freeP, end) {
					prevFreeP = freeP
					freeP = nextOf(freeP)
				}
			}
			prevBlock = curBlock
		} else {
			if prevBlock.Valid() {
				prevBlock.SetNext(next)
			} else {
				p.blockList = next
			}
			if prevFreeP != nil {
				setNextOf(prevFreeP, freeP)
			} else {
				p.freeList.first = freeP
			}
			p.userAlloc.Release(curBlock.base)
			if p.log != nil {
				p.log.Debugf("pool: released empty block of %d bytes\n", curBlock.totalSize)
			}
			released = true
		}
		curBlock = next
	}

	p.nextSize = p.startSize
	return released
}

// PurgeMemory frees every block regardless of whether it still has
// chunks allocated out of it, returning all storage to the
// UserAllocator and invalidating any chunk previously handed out. It
// reports whether it actually released anything.
func (p *Pool) PurgeMemory() bool {
	iter := p.blockList
	if !iter.Valid() {
		return false
	}
	for iter.Valid() {
		next := iter.Next()
		p.userAlloc.Release(iter.base)
		iter = next
	}
	if p.log != nil {
		p.log.Infof("pool: purged all blocks\n")
	}
	p.blockList = block{}
	p.freeList.first = nil
	p.nextSize = p.startSize
	return true
}

// Close is equivalent to PurgeMemory and clears the finalizer NewPool
// registered, mirroring how a C++ pool's destructor unconditionally
// returns every block to its UserAllocator. A Pool that is never
// Closed still gets its storage back via the finalizer, but that path
// runs at an unpredictable time (or not before process exit) and is
// meant only as a safety net for a forgotten Close, not a substitute
// for calling it.
func (p *Pool) Close() {
	p.PurgeMemory()
	p.closed = true
	runtime.SetFinalizer(p, nil)
}

// BlockRange describes one block currently owned by a Pool.
type BlockRange struct {
	Base uintptr
	Size int64
}

// BlockRanges returns the base address and byte size of every block in
// the block list, sorted by base address ascending. It is a read-only
// diagnostic, useful for inspecting a Pool's footprint without reaching
// into its unexported fields.
func (p *Pool) BlockRanges() []BlockRange {
	var ranges []BlockRange
	for b := p.blockList; b.Valid(); b = b.Next() {
		ranges = append(ranges, BlockRange{Base: uintptr(b.base), Size: b.totalSize})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Base < ranges[j].Base })
	return ranges
}
