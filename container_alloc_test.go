package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prataprc/chunkpool/alloc"
)

type point struct{ x, y int64 }

func TestPoolAllocatorSingleAndRun(t *testing.T) {
	reg := NewRegistry(WithRegistryUserAllocator(alloc.NewArray()))
	pa := NewPoolAllocator[point](reg, Key{Tag: "points"})

	single, err := pa.Allocate(1)
	require.NoError(t, err)
	require.NotNil(t, single)
	pa.Deallocate(single, 1)

	run, err := pa.Allocate(4)
	require.NoError(t, err)
	require.NotNil(t, run)
	pa.Deallocate(run, 4)
}

func TestPoolAllocatorZeroIsNil(t *testing.T) {
	reg := NewRegistry(WithRegistryUserAllocator(alloc.NewArray()))
	pa := NewPoolAllocator[point](reg, Key{Tag: "points"})
	got, err := pa.Allocate(0)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestFastPoolAllocatorSingleFastPath(t *testing.T) {
	reg := NewRegistry(WithRegistryUserAllocator(alloc.NewArray()))
	fpa := NewFastPoolAllocator[point](reg, Key{Tag: "fastpoints"})

	p, err := fpa.Allocate(1)
	require.NoError(t, err)
	require.NotNil(t, p)
	p.x, p.y = 3, 4
	assert.Equal(t, int64(3), p.x)
	fpa.Deallocate(p, 1)
}

func TestFastPoolAllocatorMultiFallsBackToOrdered(t *testing.T) {
	reg := NewRegistry(WithRegistryUserAllocator(alloc.NewArray()))
	fpa := NewFastPoolAllocator[point](reg, Key{Tag: "fastpoints-run"})

	run, err := fpa.Allocate(3)
	require.NoError(t, err)
	require.NotNil(t, run)
	fpa.Deallocate(run, 3)
}

func TestPoolAllocatorOutOfMemory(t *testing.T) {
	reg := NewRegistry(WithRegistryUserAllocator(&cappedAllocator{max: 64}))
	pa := NewPoolAllocator[point](reg, Key{Tag: "capped"})
	got, err := pa.Allocate(1)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestPoolAllocatorSizesByType(t *testing.T) {
	reg := NewRegistry(WithRegistryUserAllocator(alloc.NewArray()))
	pa1 := NewPoolAllocator[point](reg, Key{Tag: "same-tag"})
	pa2 := NewPoolAllocator[int64](reg, Key{Tag: "same-tag"})
	// distinct element sizes must never collapse to the same pool even
	// under an identical tag, since RequestedSize is part of the Key.
	assert.NotSame(t, pa1.sp, pa2.sp)
}

func TestPoolAllocatorAddressIsIdentity(t *testing.T) {
	reg := NewRegistry(WithRegistryUserAllocator(alloc.NewArray()))
	pa := NewPoolAllocator[point](reg, Key{Tag: "address"})

	p, err := pa.Allocate(1)
	require.NoError(t, err)
	assert.Same(t, p, pa.Address(p))
}

func TestPoolAllocatorMaxSizePassesThroughSingleton(t *testing.T) {
	reg := NewRegistry(WithRegistryUserAllocator(alloc.NewArray()))
	pa := NewPoolAllocator[point](reg, Key{Tag: "maxsize", MaxSize: 4})

	assert.Equal(t, pa.sp.MaxSize(), pa.MaxSize())
	assert.Equal(t, int64(4), pa.MaxSize())
}
