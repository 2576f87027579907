package api

import "errors"

// ErrOutOfMemory is returned by the pool façades when a UserAllocator
// cannot satisfy an Acquire request (Acquire returned nil).
var ErrOutOfMemory = errors.New("api.outOfMemory")
