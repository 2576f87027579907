package pool

import (
	"errors"

	"github.com/prataprc/chunkpool/api"
)

// ErrOutOfMemory is returned when a UserAllocator cannot supply another
// block and the free list has nothing left to hand out. It is the same
// sentinel api.ErrOutOfMemory names, aliased here so callers of this
// package never need to import api just to compare errors.
var ErrOutOfMemory = api.ErrOutOfMemory

// ErrClosed is panicked by Malloc, OrderedMalloc, and MallocN when
// called on a Pool that has already been Close'd. Free-side operations
// (Free, OrderedFree, FreeN, OrderedFreeN) and diagnostics (IsFrom,
// ReleaseMemory, PurgeMemory) are left unchecked: returning storage to
// an already-closed pool is harmless once the block list is empty, and
// checking every one of them would just be one more branch a hot path
// pays for on every call.
var ErrClosed = errors.New("pool.closed")

// ErrBadRequestedSize is the value NewPool panics with when given a
// requested chunk size of zero or less.
var ErrBadRequestedSize = errors.New("pool.badRequestedSize")

// ErrBadNextSize is the value WithNextSize and SetNextSize panic with
// when given a next-size of zero or less.
var ErrBadNextSize = errors.New("pool.badNextSize")
