package pool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prataprc/chunkpool/alloc"
	"github.com/prataprc/chunkpool/lib"
)

func TestNewPoolBadRequestedSizePanics(t *testing.T) {
	assert.Panics(t, func() { NewPool(0) })
	assert.Panics(t, func() { NewPool(-1) })
}

func TestNewPoolDefaults(t *testing.T) {
	p := NewPool(24)
	assert.Equal(t, int64(24), p.RequestedSize())
	assert.Equal(t, defaultNextSize, p.NextSize())
	assert.Equal(t, int64(0), p.MaxSize())
}

func TestPoolMallocFreeRoundTrip(t *testing.T) {
	p := NewPool(32, WithUserAllocator(alloc.NewArray()), WithNextSize(4))

	var chunks []unsafe.Pointer
	for i := 0; i < 4; i++ {
		c := p.Malloc()
		require.NotEqual(t, unsafe.Pointer(nil), c)
		chunks = append(chunks, c)
	}
	// forces growth past the first block.
	extra := p.Malloc()
	require.NotEqual(t, unsafe.Pointer(nil), extra)
	chunks = append(chunks, extra)

	seen := map[unsafe.Pointer]bool{}
	for _, c := range chunks {
		assert.False(t, seen[c], "chunk handed out twice")
		seen[c] = true
	}

	for _, c := range chunks {
		p.Free(c)
	}
}

func TestPoolIsFrom(t *testing.T) {
	p := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(2))
	c := p.OrderedMalloc()
	require.NotEqual(t, unsafe.Pointer(nil), c)
	assert.True(t, p.IsFrom(c))

	other := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(2))
	c2 := other.OrderedMalloc()
	assert.False(t, p.IsFrom(c2))
}

func TestPoolMallocNContiguous(t *testing.T) {
	p := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(8))
	run := p.MallocN(3)
	require.NotEqual(t, unsafe.Pointer(nil), run)

	for i := int64(0); i < 3; i++ {
		off := unsafe.Pointer(uintptr(run) + uintptr(i*p.partitionSize))
		assert.True(t, p.IsFrom(off))
	}
	p.FreeN(run, 3)
}

func TestPoolReleaseMemoryFreesEmptyBlocks(t *testing.T) {
	p := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(4))

	var chunks []unsafe.Pointer
	for i := 0; i < 4; i++ {
		chunks = append(chunks, p.OrderedMalloc())
	}
	for _, c := range chunks {
		p.OrderedFree(c)
	}

	released := p.ReleaseMemory()
	assert.True(t, released)
	assert.Equal(t, p.startSize, p.nextSize)
}

func TestPoolReleaseMemoryKeepsPartiallyUsedBlocks(t *testing.T) {
	p := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(4))

	var chunks []unsafe.Pointer
	for i := 0; i < 4; i++ {
		chunks = append(chunks, p.OrderedMalloc())
	}
	// keep one chunk allocated so the block cannot be released.
	for _, c := range chunks[1:] {
		p.OrderedFree(c)
	}

	released := p.ReleaseMemory()
	assert.False(t, released)
	assert.True(t, p.IsFrom(chunks[0]))
}

func TestPoolPurgeMemoryInvalidatesEverything(t *testing.T) {
	p := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(4))
	c := p.Malloc()
	require.NotEqual(t, unsafe.Pointer(nil), c)

	assert.True(t, p.PurgeMemory())
	assert.False(t, p.IsFrom(c))
	assert.False(t, p.PurgeMemory())
}

func TestPoolSetNextSizeRejectsZero(t *testing.T) {
	p := NewPool(16)
	assert.Panics(t, func() { p.SetNextSize(0) })
}

func TestPoolGrowthDoublesWithNoMaxSize(t *testing.T) {
	p := NewPool(8, WithUserAllocator(alloc.NewArray()), WithNextSize(2))
	assert.Equal(t, int64(2), p.NextSize())
	p.Malloc()
	assert.Equal(t, int64(4), p.NextSize())
}

func TestPoolGrowthRespectsMaxSize(t *testing.T) {
	p := NewPool(8, WithUserAllocator(alloc.NewArray()), WithNextSize(2), WithMaxSize(4))
	p.Malloc()
	assert.LessOrEqual(t, p.NextSize(), int64(4))
}

func TestPoolAllocSize(t *testing.T) {
	p := NewPool(8, WithUserAllocator(alloc.NewArray()))
	assert.Equal(t, p.partitionSize, p.AllocSize())
}

func TestPoolCloseIsIdempotentAndInvalidates(t *testing.T) {
	p := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(4))
	c := p.Malloc()
	require.NotEqual(t, unsafe.Pointer(nil), c)

	p.Close()
	assert.False(t, p.IsFrom(c))
	// PurgeMemory on an already-empty pool reports no work done; Close
	// must tolerate being called again without panicking.
	assert.NotPanics(t, func() { p.Close() })
}

func TestPoolBlockRangesSortedByBase(t *testing.T) {
	p := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(4))
	for i := 0; i < 3; i++ {
		require.NotEqual(t, unsafe.Pointer(nil), p.OrderedMalloc())
	}

	ranges := p.BlockRanges()
	require.NotEmpty(t, ranges)
	for i := 1; i < len(ranges); i++ {
		assert.Less(t, ranges[i-1].Base, ranges[i].Base)
	}
}

// cappedAllocator is a UserAllocator that refuses any request over max
// bytes, standing in for the LCM-example's "user allocator that returns
// null for any request over 2000 bytes".
type cappedAllocator struct {
	max int64
}

func (c *cappedAllocator) Acquire(n int64) unsafe.Pointer {
	if n > c.max {
		return nil
	}
	buf := make([]byte, n)
	return unsafe.Pointer(&buf[0])
}

func (c *cappedAllocator) Release(unsafe.Pointer) {}

// TestPoolGrowthCapScenarioRegression reproduces the requested_size=8,
// initial_next_size=32, max_size=64 growth/cap regression: next_size
// must read 32 only before the very first malloc, and 64 (the cap)
// before every one thereafter, with every one of the 34 calls
// succeeding.
func TestPoolGrowthCapScenarioRegression(t *testing.T) {
	p := NewPool(8, WithUserAllocator(alloc.NewArray()), WithNextSize(32), WithMaxSize(64))
	for i := 0; i < 34; i++ {
		if i == 0 {
			assert.Equal(t, int64(32), p.NextSize())
		} else {
			assert.Equal(t, int64(64), p.NextSize())
		}
		require.NotEqual(t, unsafe.Pointer(nil), p.Malloc())
	}
}

// TestPoolLCMExampleFirstMallocReturnsNil reproduces the LCM example:
// requested_size=1501 pushes partition_size (and therefore the first
// block's byte request) well past a 2000-byte-capped allocator, so even
// the very first Malloc must fail.
func TestPoolLCMExampleFirstMallocReturnsNil(t *testing.T) {
	p := NewPool(1501, WithUserAllocator(&cappedAllocator{max: 2000}))
	assert.Equal(t, unsafe.Pointer(nil), p.Malloc())
}

func TestPoolMallocAfterClosePanics(t *testing.T) {
	p := NewPool(16, WithUserAllocator(alloc.NewArray()), WithNextSize(4))
	p.Close()

	assert.PanicsWithValue(t, ErrClosed, func() { p.Malloc() })
	assert.PanicsWithValue(t, ErrClosed, func() { p.OrderedMalloc() })
	assert.PanicsWithValue(t, ErrClosed, func() { p.MallocN(2) })
}

func TestNewPoolFromConfig(t *testing.T) {
	cfg := lib.Config{
		"requested_size": int64(16),
		"next_size":      int64(8),
		"max_size":       int64(32),
	}
	p := NewPoolFromConfig(cfg, WithUserAllocator(alloc.NewArray()))

	assert.Equal(t, int64(16), p.RequestedSize())
	assert.Equal(t, int64(8), p.NextSize())
	assert.Equal(t, int64(32), p.MaxSize())
}

func TestNewPoolFromConfigDefaultsWhenOptionalKeysMissing(t *testing.T) {
	cfg := lib.Config{"requested_size": int64(16)}
	p := NewPoolFromConfig(cfg, WithUserAllocator(alloc.NewArray()))

	assert.Equal(t, int64(16), p.RequestedSize())
	assert.Equal(t, defaultNextSize, p.NextSize())
	assert.Equal(t, int64(0), p.MaxSize())
}
